// Package system builds the configuration objects of a simulated machine:
// clock domain, memory, CPU, L1 caches, memory bus and the port connections
// between them.
package system

import (
	"fmt"
)

// System is a fully wired machine configuration.
type System struct {
	ClkDomain ClockDomain
	MemMode   string
	MemRanges []AddrRange

	// StatsDumpPeriod is the periodic stats dump interval in ticks; zero
	// disables periodic dumps.
	StatsDumpPeriod uint64

	MemCtrl *MemCtrl
	CPU     *CPU
	MemBus  *Bus

	// SystemPort is the functional access port of the system.
	SystemPort *Port
}

// Root is the top of the object hierarchy handed to the simulator.
type Root struct {
	FullSystem bool
	System     *System
}

// NewRoot wraps a system for instantiation.
func NewRoot(fullSystem bool, s *System) *Root {
	return &Root{FullSystem: fullSystem, System: s}
}

// Builder creates Systems. It follows the value-receiver builder pattern, so
// a configured builder can be reused for several systems.
type Builder struct {
	config     *Config
	useBP      bool
	numThreads int
}

// MakeBuilder returns a builder with the default configuration, branch
// prediction disabled and a single thread.
func MakeBuilder() Builder {
	return Builder{
		config:     DefaultConfig(),
		numThreads: 1,
	}
}

// WithConfig sets the system parameters.
func (b Builder) WithConfig(config *Config) Builder {
	b.config = config
	return b
}

// WithBranchPrediction enables or disables the branch predictor.
func (b Builder) WithBranchPrediction(enabled bool) Builder {
	b.useBP = enabled
	return b
}

// WithNumThreads sets the number of hardware threads of the CPU.
func (b Builder) WithNumThreads(n int) Builder {
	b.numThreads = n
	return b
}

// Create builds a system from the default configuration.
func Create(useBP bool, numThreads int) (*System, error) {
	return MakeBuilder().
		WithBranchPrediction(useBP).
		WithNumThreads(numThreads).
		Build()
}

// Build creates a new System and wires all of its ports.
func (b Builder) Build() (*System, error) {
	if b.numThreads <= 0 {
		return nil, fmt.Errorf("num threads must be > 0, got %d", b.numThreads)
	}
	if err := b.config.Validate(); err != nil {
		return nil, err
	}

	s, err := b.createObjects()
	if err != nil {
		return nil, err
	}

	if err := b.wire(s); err != nil {
		return nil, fmt.Errorf("failed to wire system: %w", err)
	}
	if err := s.CheckConnectivity(); err != nil {
		return nil, fmt.Errorf("failed to wire system: %w", err)
	}

	return s, nil
}

func (b Builder) createObjects() (*System, error) {
	c := b.config

	clock, err := ParseClock(c.Clock)
	if err != nil {
		return nil, err
	}

	memSize, err := ParseSize(c.MemSize)
	if err != nil {
		return nil, err
	}

	var period uint64
	if c.StatsDumpPeriod != "" {
		period, err = ParseTicks(c.StatsDumpPeriod)
		if err != nil {
			return nil, err
		}
	}

	s := &System{
		ClkDomain: ClockDomain{
			Clock:         clock,
			VoltageDomain: VoltageDomain{Voltage: c.Voltage},
		},
		MemMode:         c.MemMode,
		MemRanges:       []AddrRange{{Start: 0, Size: memSize}},
		StatsDumpPeriod: period,
		MemBus:          newBus(),
		SystemPort:      NewPort("system", "system_port", RequestPort),
	}
	s.MemCtrl = newMemCtrl(c.DRAM, s.MemRanges[0])

	s.CPU = newCPU(c.CPUType, b.numThreads)
	if b.useBP {
		s.CPU.BranchPred = &BranchPredictor{
			Type:       c.BranchPredictor,
			Tournament: c.Tournament,
		}
	}

	s.CPU.ICache, err = newCache("system.cpu.icache", InstructionCache, c.L1I)
	if err != nil {
		return nil, fmt.Errorf("l1i: %w", err)
	}
	s.CPU.DCache, err = newCache("system.cpu.dcache", DataCache, c.L1D)
	if err != nil {
		return nil, fmt.Errorf("l1d: %w", err)
	}

	return s, nil
}

func (b Builder) wire(s *System) error {
	cpu := s.CPU
	bus := s.MemBus

	if err := cpu.ICache.ConnectCPU(cpu); err != nil {
		return err
	}
	if err := cpu.DCache.ConnectCPU(cpu); err != nil {
		return err
	}
	if err := cpu.ICache.ConnectBus(bus); err != nil {
		return err
	}
	if err := cpu.DCache.ConnectBus(bus); err != nil {
		return err
	}

	if err := Connect(bus.MemSidePorts.Next(), s.MemCtrl.Port); err != nil {
		return err
	}

	cpu.CreateInterruptController()
	if cpu.ISA() == "x86" {
		for _, ic := range cpu.Interrupts {
			if err := Connect(bus.MemSidePorts.Next(), ic.PIO); err != nil {
				return err
			}
			if err := Connect(ic.IntRequestor, bus.CPUSidePorts.Next()); err != nil {
				return err
			}
			if err := Connect(bus.MemSidePorts.Next(), ic.IntResponder); err != nil {
				return err
			}
		}
	}

	return Connect(s.SystemPort, bus.CPUSidePorts.Next())
}

// requestPorts lists every request port of the system in a fixed order.
func (s *System) requestPorts() []*Port {
	ports := []*Port{
		s.CPU.IcachePort,
		s.CPU.DcachePort,
		s.CPU.ICache.MemSide,
		s.CPU.DCache.MemSide,
	}
	ports = append(ports, s.MemBus.MemSidePorts.Elements()...)
	for _, ic := range s.CPU.Interrupts {
		ports = append(ports, ic.IntRequestor)
	}
	return append(ports, s.SystemPort)
}

// Connections returns every bound connection in a deterministic order.
func (s *System) Connections() []Edge {
	var edges []Edge
	for _, p := range s.requestPorts() {
		if p.Connected() {
			edges = append(edges, Edge{Request: p, Response: p.Peer()})
		}
	}
	return edges
}

// CheckConnectivity returns an error naming the first fixed port that has no
// peer.
func (s *System) CheckConnectivity() error {
	ports := []*Port{
		s.CPU.IcachePort,
		s.CPU.DcachePort,
		s.CPU.ICache.CPUSide,
		s.CPU.ICache.MemSide,
		s.CPU.DCache.CPUSide,
		s.CPU.DCache.MemSide,
		s.MemCtrl.Port,
		s.SystemPort,
	}
	if s.CPU.ISA() == "x86" {
		for _, ic := range s.CPU.Interrupts {
			ports = append(ports, ic.PIO, ic.IntRequestor, ic.IntResponder)
		}
	}

	for _, p := range ports {
		if !p.Connected() {
			return fmt.Errorf("port %s is not connected", p.Path())
		}
	}

	return nil
}
