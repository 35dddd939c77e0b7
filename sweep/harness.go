// Package sweep runs every benchmark under every CPU variant and reports the
// results.
package sweep

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sarchlab/ilpsweep/runner"
	"github.com/sarchlab/ilpsweep/stats"
	"github.com/sarchlab/ilpsweep/system"
	"github.com/sarchlab/ilpsweep/workload"
)

// Variant is one CPU configuration of the sweep.
type Variant struct {
	// Name is printed as "Simulation <Name>:".
	Name string

	// BranchPrediction enables the branch predictor.
	BranchPrediction bool
}

// DefaultVariants returns the two configurations of the sweep: branch
// prediction off, then on.
func DefaultVariants() []Variant {
	return []Variant{
		{Name: "without branch prediction", BranchPrediction: false},
		{Name: "with branch prediction", BranchPrediction: true},
	}
}

// Result holds the statistics of one benchmark under one variant.
type Result struct {
	// Benchmark is the benchmark name.
	Benchmark string `json:"benchmark"`

	// Path is the executable path handed to the simulator.
	Path string `json:"path"`

	// Variant is the variant name.
	Variant string `json:"variant"`

	// BranchPrediction tells whether the predictor was enabled.
	BranchPrediction bool `json:"branch_prediction"`

	IPC          float64 `json:"ipc"`
	CPI          float64 `json:"cpi"`
	Cycles       uint64  `json:"cycles"`
	Instructions uint64  `json:"instructions"`

	// Conditional branch counters, only set with branch prediction on.
	CondPredicted         uint64  `json:"cond_predicted,omitempty"`
	CondIncorrect         uint64  `json:"cond_incorrect,omitempty"`
	BranchAccuracyPercent float64 `json:"branch_accuracy_percent,omitempty"`
	MispredictionRate     float64 `json:"misprediction_rate,omitempty"`

	// Ticks is the simulated tick at exit.
	Ticks uint64 `json:"ticks"`

	// ExitCause is the simulator's exit cause.
	ExitCause string `json:"exit_cause"`

	// ExitCode is the exit code reported with the cause.
	ExitCode int `json:"exit_code"`

	// WallTime is the time spent inside the simulator.
	WallTime time.Duration `json:"wall_time_ns"`

	// Error is set for runs that failed under KeepGoing.
	Error string `json:"error,omitempty"`
}

// StatsFiler is implemented by simulators that write a stats file per run.
type StatsFiler interface {
	StatsFile() string
}

// HarnessConfig configures the sweep.
type HarnessConfig struct {
	// System is the machine configuration shared by all runs.
	System *system.Config

	// NumThreads is the number of hardware threads of the CPU.
	NumThreads int

	// Variants are run in order for every benchmark.
	Variants []Variant

	// Root is the directory relative benchmark paths are checked against.
	Root string

	// CheckBinaries rejects benchmarks that are not x86-64 ELF files
	// before handing them to the simulator.
	CheckBinaries bool

	// EchoStatsFile prints the simulator's stats file after each run.
	EchoStatsFile bool

	// KeepGoing records failed runs and continues with the next one
	// instead of aborting the sweep.
	KeepGoing bool

	// Output is where progress and stats are written (default: os.Stdout).
	Output io.Writer

	// Logger receives structured logs (default: the logrus standard
	// logger).
	Logger logrus.FieldLogger
}

// DefaultConfig returns the reference sweep configuration.
func DefaultConfig() HarnessConfig {
	return HarnessConfig{
		System:        system.DefaultConfig(),
		NumThreads:    1,
		Variants:      DefaultVariants(),
		Root:          ".",
		CheckBinaries: true,
		Output:        os.Stdout,
		Logger:        logrus.StandardLogger(),
	}
}

// Harness runs benchmarks on a simulator.
type Harness struct {
	config     HarnessConfig
	sim        runner.Simulator
	driver     *runner.Driver
	printer    *stats.Printer
	benchmarks []workload.Benchmark
}

// NewHarness creates a harness that runs on sim.
func NewHarness(config HarnessConfig, sim runner.Simulator) *Harness {
	if config.Output == nil {
		config.Output = os.Stdout
	}
	if config.Logger == nil {
		config.Logger = logrus.StandardLogger()
	}
	if config.System == nil {
		config.System = system.DefaultConfig()
	}
	if config.NumThreads == 0 {
		config.NumThreads = 1
	}
	if config.Variants == nil {
		config.Variants = DefaultVariants()
	}
	if config.Root == "" {
		config.Root = "."
	}

	return &Harness{
		config: config,
		sim:    sim,
		driver: runner.NewDriver(sim,
			runner.WithOutput(config.Output),
			runner.WithLogger(config.Logger)),
		printer: stats.NewPrinter(config.Output),
	}
}

// AddBenchmark adds a benchmark to the harness.
func (h *Harness) AddBenchmark(b workload.Benchmark) {
	h.benchmarks = append(h.benchmarks, b)
}

// AddBenchmarks adds multiple benchmarks to the harness.
func (h *Harness) AddBenchmarks(benchmarks []workload.Benchmark) {
	h.benchmarks = append(h.benchmarks, benchmarks...)
}

// Benchmarks returns the benchmarks added so far.
func (h *Harness) Benchmarks() []workload.Benchmark {
	return h.benchmarks
}

// RunAll runs every benchmark under every variant. The simulator is reset
// after each run, whether it succeeded or not. Without KeepGoing the first
// error stops the sweep and is returned with the results gathered so far.
func (h *Harness) RunAll(ctx context.Context) ([]Result, error) {
	results := make([]Result, 0, len(h.benchmarks)*len(h.config.Variants))
	out := h.config.Output

	for _, bench := range h.benchmarks {
		_, _ = fmt.Fprintf(out, "\n--- Running benchmark: %s ---\n", bench.Path)

		for _, v := range h.config.Variants {
			_, _ = fmt.Fprintf(out, "\nSimulation %s:\n", v.Name)

			result, err := h.runOne(ctx, bench, v)
			if resetErr := h.sim.Reset(); resetErr != nil && err == nil {
				err = fmt.Errorf("failed to reset simulator: %w", resetErr)
			}

			if err != nil {
				if !h.config.KeepGoing || ctx.Err() != nil {
					return results, err
				}

				h.config.Logger.WithFields(logrus.Fields{
					"benchmark": bench.Name,
					"variant":   v.Name,
				}).WithError(err).Warn("run failed, continuing")
				result.Error = err.Error()
			}

			results = append(results, result)
		}
	}

	return results, nil
}

func (h *Harness) runOne(ctx context.Context, bench workload.Benchmark, v Variant) (Result, error) {
	result := Result{
		Benchmark:        bench.Name,
		Path:             bench.Path,
		Variant:          v.Name,
		BranchPrediction: v.BranchPrediction,
	}

	if h.config.CheckBinaries {
		if err := workload.CheckX86(h.binaryPath(bench)); err != nil {
			return result, err
		}
	}

	sys, err := system.MakeBuilder().
		WithConfig(h.config.System).
		WithBranchPrediction(v.BranchPrediction).
		WithNumThreads(h.config.NumThreads).
		Build()
	if err != nil {
		return result, fmt.Errorf("failed to build system: %w", err)
	}

	run, err := h.driver.Run(ctx, sys, workload.NewProcess(bench.Path))
	if err != nil {
		return result, err
	}

	cpuStats, err := stats.ExtractCPU(run.Stats, sys.CPU.Path())
	if err != nil {
		return result, err
	}

	tick := h.sim.CurTick()
	result.IPC = finite(cpuStats.IPC)
	result.CPI = finite(cpuStats.CPI())
	result.Cycles = cpuStats.Cycles
	result.Instructions = cpuStats.Instructions
	result.Ticks = tick
	result.ExitCause = run.Exit.Cause
	result.ExitCode = run.Exit.Code
	result.WallTime = run.WallTime

	if err := h.printer.Print(sys, cpuStats, tick); err != nil {
		return result, err
	}

	if sys.CPU.BranchPred.IsTournament() {
		result.CondPredicted = cpuStats.Branch.CondPredicted
		result.CondIncorrect = cpuStats.Branch.CondIncorrect
		result.MispredictionRate = cpuStats.Branch.MispredictionRate()
		if acc, err := cpuStats.Branch.Accuracy(); err == nil {
			result.BranchAccuracyPercent = acc * 100
		}
	}

	if h.config.EchoStatsFile {
		if sf, ok := h.sim.(StatsFiler); ok {
			if err := h.printer.PrintRaw(sf.StatsFile()); err != nil {
				return result, err
			}
		}
	}

	return result, nil
}

func (h *Harness) binaryPath(b workload.Benchmark) string {
	if filepath.IsAbs(b.Path) {
		return b.Path
	}
	return filepath.Join(h.config.Root, b.Path)
}

// finite maps NaN and infinities to zero so results stay JSON-encodable.
func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
