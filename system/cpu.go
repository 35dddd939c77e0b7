package system

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sarchlab/ilpsweep/workload"
)

var (
	// ErrNoWorkload is returned when threads are created before a workload
	// is attached.
	ErrNoWorkload = errors.New("cpu has no workload")

	// ErrThreadsCreated is returned when threads are created twice.
	ErrThreadsCreated = errors.New("cpu threads already created")
)

// CPU is a single core running one or more hardware threads.
type CPU struct {
	Type       string
	NumThreads int

	// BranchPred is nil when branch prediction is disabled.
	BranchPred *BranchPredictor

	ICache *Cache
	DCache *Cache

	IcachePort *Port
	DcachePort *Port

	Interrupts []*InterruptController

	Workload *workload.Process

	threads int
}

func newCPU(cpuType string, numThreads int) *CPU {
	return &CPU{
		Type:       cpuType,
		NumThreads: numThreads,
		IcachePort: NewPort("system.cpu", "icache_port", RequestPort),
		DcachePort: NewPort("system.cpu", "dcache_port", RequestPort),
	}
}

// Path returns the CPU's dotted path.
func (c *CPU) Path() string {
	return "system.cpu"
}

// ISA returns the instruction set prefix of the CPU model, e.g. "x86".
func (c *CPU) ISA() string {
	if strings.HasPrefix(c.Type, "X86") {
		return "x86"
	}
	return ""
}

// CreateInterruptController creates one interrupt controller per thread.
func (c *CPU) CreateInterruptController() {
	c.Interrupts = make([]*InterruptController, c.NumThreads)
	for i := range c.Interrupts {
		c.Interrupts[i] = newInterruptController(
			fmt.Sprintf("%s.interrupts[%d]", c.Path(), i))
	}
}

// SetWorkload attaches the process the CPU will run.
func (c *CPU) SetWorkload(p workload.Process) {
	c.Workload = &p
}

// CreateThreads instantiates one thread context per hardware thread.
func (c *CPU) CreateThreads() error {
	if c.Workload == nil {
		return ErrNoWorkload
	}
	if c.threads != 0 {
		return ErrThreadsCreated
	}

	c.threads = c.NumThreads

	return nil
}

// Threads returns the number of thread contexts created so far.
func (c *CPU) Threads() int {
	return c.threads
}
