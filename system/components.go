package system

import (
	"fmt"

	"github.com/sarchlab/akita/v4/sim"
)

// TournamentBP names the tournament branch predictor model.
const TournamentBP = "TournamentBP"

// VoltageDomain is the voltage supplied to a clock domain.
type VoltageDomain struct {
	Voltage string
}

// ClockDomain is a source clock domain.
type ClockDomain struct {
	Clock         sim.Freq
	VoltageDomain VoltageDomain
}

// AddrRange is a contiguous physical address range.
type AddrRange struct {
	Start uint64
	Size  uint64
}

// End returns the first address past the range.
func (r AddrRange) End() uint64 {
	return r.Start + r.Size
}

func (r AddrRange) String() string {
	return fmt.Sprintf("[0x%x, 0x%x)", r.Start, r.End())
}

// MemCtrl is a memory controller with a single DRAM interface.
type MemCtrl struct {
	DRAM  string
	Range AddrRange

	// Port faces the memory bus.
	Port *Port
}

func newMemCtrl(dram string, r AddrRange) *MemCtrl {
	return &MemCtrl{
		DRAM:  dram,
		Range: r,
		Port:  NewPort("system.mem_ctrl", "port", ResponsePort),
	}
}

// Bus is a coherent crossbar between the CPU side and memory.
type Bus struct {
	Type string

	// CPUSidePorts accept requests from caches and devices.
	CPUSidePorts *VectorPort
	// MemSidePorts forward requests to memories and devices.
	MemSidePorts *VectorPort
}

func newBus() *Bus {
	return &Bus{
		Type:         "SystemXBar",
		CPUSidePorts: NewVectorPort("system.membus", "cpu_side_ports", ResponsePort),
		MemSidePorts: NewVectorPort("system.membus", "mem_side_ports", RequestPort),
	}
}

// BranchPredictor describes the predictor attached to a CPU.
type BranchPredictor struct {
	Type       string
	Tournament TournamentConfig
}

// IsTournament reports whether the predictor is a tournament predictor.
func (bp *BranchPredictor) IsTournament() bool {
	return bp != nil && bp.Type == TournamentBP
}

// InterruptController is the per-thread local interrupt controller.
type InterruptController struct {
	path string

	PIO          *Port
	IntRequestor *Port
	IntResponder *Port
}

func newInterruptController(path string) *InterruptController {
	return &InterruptController{
		path:         path,
		PIO:          NewPort(path, "pio", ResponsePort),
		IntRequestor: NewPort(path, "int_requestor", RequestPort),
		IntResponder: NewPort(path, "int_responder", ResponsePort),
	}
}

// Path returns the controller's dotted path.
func (ic *InterruptController) Path() string {
	return ic.path
}
