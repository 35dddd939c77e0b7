package system

import "fmt"

// CacheLineSize is the line size of every cache, gem5's default
// cache_line_size.
const CacheLineSize = 64

// CacheKind tells which CPU port a cache serves.
type CacheKind int

const (
	// InstructionCache sits on the CPU's instruction fetch port.
	InstructionCache CacheKind = iota
	// DataCache sits on the CPU's load/store port.
	DataCache
)

// Cache is a private L1 cache.
type Cache struct {
	Kind   CacheKind
	Config CacheConfig

	// SizeBytes is Config.Size parsed.
	SizeBytes uint64

	// CPUSide receives requests from the CPU.
	CPUSide *Port
	// MemSide sends misses to the bus.
	MemSide *Port

	path string
}

func newCache(path string, kind CacheKind, config CacheConfig) (*Cache, error) {
	size, err := ParseSize(config.Size)
	if err != nil {
		return nil, err
	}

	c := &Cache{
		Kind:      kind,
		Config:    config,
		SizeBytes: size,
		CPUSide:   NewPort(path, "cpu_side", ResponsePort),
		MemSide:   NewPort(path, "mem_side", RequestPort),
		path:      path,
	}

	// gem5 indexes sets with address bits.
	sets := c.NumSets(CacheLineSize)
	if sets == 0 || sets&(sets-1) != 0 {
		return nil, fmt.Errorf("%s of %d ways gives %d sets of %dB lines, not a power of 2",
			config.Size, config.Associativity, sets, CacheLineSize)
	}

	return c, nil
}

// Path returns the cache's dotted path.
func (c *Cache) Path() string {
	return c.path
}

// NumSets returns the number of sets for the given line size.
func (c *Cache) NumSets(lineSize uint64) uint64 {
	return c.SizeBytes / (lineSize * uint64(c.Config.Associativity))
}

// ConnectCPU attaches the cache to the matching port of the CPU.
func (c *Cache) ConnectCPU(cpu *CPU) error {
	cpuPort := cpu.IcachePort
	if c.Kind == DataCache {
		cpuPort = cpu.DcachePort
	}

	if err := Connect(cpuPort, c.CPUSide); err != nil {
		return fmt.Errorf("failed to connect %s to cpu: %w", c.path, err)
	}

	return nil
}

// ConnectBus attaches the cache's memory side to the bus.
func (c *Cache) ConnectBus(bus *Bus) error {
	if err := Connect(c.MemSide, bus.CPUSidePorts.Next()); err != nil {
		return fmt.Errorf("failed to connect %s to bus: %w", c.path, err)
	}

	return nil
}
