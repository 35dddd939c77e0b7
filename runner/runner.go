// Package runner drives a single simulation: it attaches a workload to a
// configured system, hands the system to the simulator, blocks until the
// simulator exits and collects the dumped statistics.
package runner

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sarchlab/ilpsweep/stats"
	"github.com/sarchlab/ilpsweep/system"
	"github.com/sarchlab/ilpsweep/workload"
)

// ExitEvent describes why the simulator stopped.
type ExitEvent struct {
	// Tick is the simulated tick at which the simulation exited.
	Tick uint64
	// Cause is the simulator's exit cause, e.g. "exiting with last active
	// thread context".
	Cause string
	// Code is the exit code reported with the cause.
	Code int
}

// Simulator is the external simulator.
type Simulator interface {
	// Instantiate creates the simulated objects for root. It may only be
	// called once between resets.
	Instantiate(root *system.Root) error

	// Simulate runs until the simulator signals an exit condition.
	Simulate(ctx context.Context) (ExitEvent, error)

	// CurTick returns the current simulated tick.
	CurTick() uint64

	// DumpStats dumps the statistics gathered since the last reset.
	DumpStats() (*stats.Snapshot, error)

	// ResetStats clears the statistics counters.
	ResetStats() error

	// Reset discards all simulator global state so that a new system can be
	// instantiated.
	Reset() error
}

// Result is the outcome of one run.
type Result struct {
	Process  workload.Process
	Exit     ExitEvent
	Stats    *stats.Snapshot
	WallTime time.Duration
}

// Driver runs workloads on a simulator.
type Driver struct {
	sim    Simulator
	out    io.Writer
	logger logrus.FieldLogger
}

// DriverOption configures a Driver.
type DriverOption func(*Driver)

// WithOutput sets where progress lines are written.
func WithOutput(out io.Writer) DriverOption {
	return func(d *Driver) {
		d.out = out
	}
}

// WithLogger sets the logger.
func WithLogger(logger logrus.FieldLogger) DriverOption {
	return func(d *Driver) {
		d.logger = logger
	}
}

// NewDriver creates a driver for sim.
func NewDriver(sim Simulator, opts ...DriverOption) *Driver {
	d := &Driver{
		sim:    sim,
		out:    os.Stdout,
		logger: logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Run attaches proc to the system's CPU, instantiates the system, and blocks
// until the simulator exits. Statistics are dumped and then reset.
func (d *Driver) Run(ctx context.Context, sys *system.System, proc workload.Process) (*Result, error) {
	log := d.logger.WithField("benchmark", proc.Executable())

	sys.CPU.SetWorkload(proc)
	if err := sys.CPU.CreateThreads(); err != nil {
		return nil, fmt.Errorf("failed to create threads: %w", err)
	}

	root := system.NewRoot(false, sys)
	if err := d.sim.Instantiate(root); err != nil {
		return nil, fmt.Errorf("failed to instantiate: %w", err)
	}
	log.Debug("instantiated")

	_, _ = fmt.Fprintf(d.out, "Beginning simulation for %s!\n", proc.Executable())

	start := time.Now()
	exit, err := d.sim.Simulate(ctx)
	wallTime := time.Since(start)
	if err != nil {
		return nil, fmt.Errorf("simulation of %s failed: %w", proc.Executable(), err)
	}

	_, _ = fmt.Fprintf(d.out, "Exiting @ tick %d because %s\n", d.sim.CurTick(), exit.Cause)
	log.WithFields(logrus.Fields{
		"tick":  exit.Tick,
		"cause": exit.Cause,
		"wall":  wallTime,
	}).Info("simulation exited")

	snap, err := d.sim.DumpStats()
	if err != nil {
		return nil, fmt.Errorf("failed to dump stats: %w", err)
	}
	if err := d.sim.ResetStats(); err != nil {
		return nil, fmt.Errorf("failed to reset stats: %w", err)
	}

	return &Result{
		Process:  proc,
		Exit:     exit,
		Stats:    snap,
		WallTime: wallTime,
	}, nil
}
