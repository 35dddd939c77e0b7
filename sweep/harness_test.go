package sweep_test

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/sarchlab/ilpsweep/sweep"
	"github.com/sarchlab/ilpsweep/workload"
)

var runCalls = []string{"instantiate", "simulate", "dump", "reset-stats", "reset"}

var errWriteFailed = errors.New("disk full")

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errWriteFailed
}

var _ = Describe("Harness", func() {
	var (
		sim     *fakeSimulator
		out     *bytes.Buffer
		config  sweep.HarnessConfig
		harness *sweep.Harness
	)

	BeforeEach(func() {
		sim = newFakeSimulator()
		out = &bytes.Buffer{}
		logger, _ := test.NewNullLogger()

		config = sweep.DefaultConfig()
		config.CheckBinaries = false
		config.Output = out
		config.Logger = logger
	})

	JustBeforeEach(func() {
		harness = sweep.NewHarness(config, sim)
		harness.AddBenchmarks(workload.DefaultBenchmarks())
	})

	It("should run every benchmark without and then with branch prediction", func() {
		results, err := harness.RunAll(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(results).To(HaveLen(6))

		Expect(sim.withBP).To(Equal([]bool{false, true, false, true, false, true}))
		Expect(sim.programs).To(Equal([]string{
			"tests/test-progs/hello/bin/x86/linux/hello",
			"tests/test-progs/hello/bin/x86/linux/hello",
			"tests/test-progs/matrix-multiply/bin/x86/linux/matrix-multiply",
			"tests/test-progs/matrix-multiply/bin/x86/linux/matrix-multiply",
			"tests/test-progs/quicksort/bin/x86/linux/quicksort",
			"tests/test-progs/quicksort/bin/x86/linux/quicksort",
		}))

		for i, r := range results {
			Expect(r.BranchPrediction).To(Equal(i%2 == 1))
			Expect(r.Error).To(BeEmpty())
		}
	})

	It("should reset the simulator after every run", func() {
		_, err := harness.RunAll(context.Background())
		Expect(err).NotTo(HaveOccurred())

		var want []string
		for i := 0; i < 6; i++ {
			want = append(want, runCalls...)
		}
		Expect(sim.calls).To(Equal(want))
	})

	It("should print the progress and statistics of each run", func() {
		_, err := harness.RunAll(context.Background())
		Expect(err).NotTo(HaveOccurred())

		text := out.String()
		Expect(text).To(HavePrefix("\n--- Running benchmark: tests/test-progs/hello/bin/x86/linux/hello ---\n" +
			"\nSimulation without branch prediction:\n" +
			"Beginning simulation for tests/test-progs/hello/bin/x86/linux/hello!\n" +
			"Exiting @ tick 1000000 because exiting with last active thread context\n" +
			"\nSimulation statistics:\n" +
			"Instructions per cycle (IPC): 0.5\n" +
			"Number of cycles: 1000\n" +
			"Number of instructions: 500\n" +
			"Simulation ticks: 1000000\n" +
			"\nSimulation with branch prediction:\n"))
		Expect(strings.Count(text, "--- Running benchmark:")).To(Equal(3))
		Expect(strings.Count(text, "Simulation statistics:")).To(Equal(6))
	})

	It("should report branch accuracy only with branch prediction on", func() {
		results, err := harness.RunAll(context.Background())
		Expect(err).NotTo(HaveOccurred())

		Expect(strings.Count(out.String(), "Branch prediction accuracy: 90.00%\n")).To(Equal(3))

		Expect(results[0].BranchAccuracyPercent).To(BeZero())
		Expect(results[0].CondPredicted).To(BeZero())
		Expect(results[0].IPC).To(Equal(0.5))
		Expect(results[0].CPI).To(Equal(2.0))
		Expect(results[0].MispredictionRate).To(BeZero())

		Expect(results[1].BranchAccuracyPercent).To(BeNumerically("~", 90, 1e-9))
		Expect(results[1].CondPredicted).To(Equal(uint64(90)))
		Expect(results[1].CondIncorrect).To(Equal(uint64(10)))
		Expect(results[1].IPC).To(Equal(0.75))
		Expect(results[1].MispredictionRate).To(BeNumerically("~", 10.0/90.0, 1e-12))
		Expect(results[1].Ticks).To(Equal(uint64(1000000)))
		Expect(results[1].ExitCause).To(Equal("exiting with last active thread context"))
	})

	Context("when a run fails", func() {
		var simErr = errors.New("gem5 crashed")

		BeforeEach(func() {
			sim.failOn[1] = simErr
		})

		It("should stop the sweep and still reset the simulator", func() {
			results, err := harness.RunAll(context.Background())
			Expect(err).To(MatchError(simErr))
			Expect(results).To(HaveLen(1))

			Expect(sim.calls).To(Equal(append(append([]string{}, runCalls...),
				"instantiate", "simulate", "reset")))
		})

		Context("with KeepGoing", func() {
			BeforeEach(func() {
				config.KeepGoing = true
			})

			It("should record the failure and continue", func() {
				results, err := harness.RunAll(context.Background())
				Expect(err).NotTo(HaveOccurred())
				Expect(results).To(HaveLen(6))
				Expect(results[1].Error).To(ContainSubstring("gem5 crashed"))
				Expect(results[2].Error).To(BeEmpty())
				Expect(sim.withBP).To(HaveLen(6))
			})

			It("should count the failure in the report", func() {
				results, err := harness.RunAll(context.Background())
				Expect(err).NotTo(HaveOccurred())

				report := harness.BuildReport(results)
				Expect(report.Summary.TotalRuns).To(Equal(6))
				Expect(report.Summary.FailedRuns).To(Equal(1))
				Expect(report.Summary.TotalCycles).To(Equal(uint64(5000)))
				Expect(report.Summary.TotalInstructions).To(Equal(uint64(2500)))
				Expect(report.Summary.AverageIPC).To(Equal(0.5))
			})
		})
	})

	It("should stop on cancellation even with KeepGoing", func() {
		config.KeepGoing = true
		harness = sweep.NewHarness(config, sim)
		harness.AddBenchmarks(workload.DefaultBenchmarks())

		ctx, cancel := context.WithCancel(context.Background())
		sim.failOn[0] = context.Canceled
		cancel()

		results, err := harness.RunAll(ctx)
		Expect(err).To(MatchError(context.Canceled))
		Expect(results).To(BeEmpty())
	})

	Context("with binary checks", func() {
		BeforeEach(func() {
			root, err := os.MkdirTemp("", "sweep-root")
			Expect(err).NotTo(HaveOccurred())
			DeferCleanup(os.RemoveAll, root)

			config.Root = root
			config.CheckBinaries = true
		})

		It("should reject missing binaries before instantiating", func() {
			_, err := harness.RunAll(context.Background())
			Expect(err).To(HaveOccurred())
			Expect(sim.calls).To(Equal([]string{"reset"}))
		})
	})

	Context("with EchoStatsFile", func() {
		var statsPath string

		BeforeEach(func() {
			statsPath = filepath.Join(GinkgoT().TempDir(), "stats.txt")
			Expect(os.WriteFile(statsPath, []byte("simTicks 1000000\n"), 0644)).To(Succeed())
			config.EchoStatsFile = true
		})

		It("should echo the stats file after each run", func() {
			harness = sweep.NewHarness(config, fakeStatsFileSimulator{fakeSimulator: sim, path: statsPath})
			harness.AddBenchmark(workload.DefaultBenchmarks()[0])

			_, err := harness.RunAll(context.Background())
			Expect(err).NotTo(HaveOccurred())
			Expect(strings.Count(out.String(), "\nContents of stats.txt:\nsimTicks 1000000\n")).To(Equal(2))
		})
	})

	Describe("reports", func() {
		var results []sweep.Result

		JustBeforeEach(func() {
			var err error
			results, err = harness.RunAll(context.Background())
			Expect(err).NotTo(HaveOccurred())
			out.Reset()
		})

		It("should print CSV", func() {
			Expect(harness.PrintCSV(results)).To(Succeed())

			lines := strings.Split(strings.TrimSpace(out.String()), "\n")
			Expect(lines).To(HaveLen(7))
			Expect(lines[0]).To(Equal("benchmark,variant,branch_prediction,ipc,cpi,cycles,instructions," +
				"cond_predicted,cond_incorrect,branch_accuracy_percent,misprediction_rate,ticks,exit_code,error"))
			Expect(lines[1]).To(Equal("hello,without branch prediction,false,0.500000,2.000000,1000,500,0,0,0.00,0.000000,1000000,0,"))
			Expect(lines[2]).To(Equal("hello,with branch prediction,true,0.750000,2.000000,1000,500,90,10,90.00,0.111111,1000000,0,"))
		})

		It("should quote CSV fields with separators and quotes", func() {
			results[0].Benchmark = "hello, world"
			results[0].Error = "gem5 said \"no\"\nthen exited"
			Expect(harness.PrintCSV(results[:1])).To(Succeed())

			records, err := csv.NewReader(out).ReadAll()
			Expect(err).NotTo(HaveOccurred())
			Expect(records).To(HaveLen(2))
			Expect(records[1]).To(HaveLen(len(records[0])))
			Expect(records[1][0]).To(Equal("hello, world"))
			Expect(records[1][1]).To(Equal("without branch prediction"))
			Expect(records[1][len(records[1])-1]).To(Equal("gem5 said \"no\"\nthen exited"))
		})

		It("should return the error of a failing CSV writer", func() {
			config.Output = failingWriter{}
			harness = sweep.NewHarness(config, sim)

			Expect(harness.PrintCSV(results)).To(MatchError(errWriteFailed))
		})

		It("should print a JSON report", func() {
			Expect(harness.PrintJSON(results)).To(Succeed())

			var report sweep.Report
			Expect(json.Unmarshal(out.Bytes(), &report)).To(Succeed())
			Expect(report.Metadata.Version).To(Equal(sweep.Version))
			Expect(report.Metadata.CPUType).To(Equal("X86O3CPU"))
			Expect(report.Metadata.Clock).To(Equal("1GHz"))
			Expect(report.Results).To(HaveLen(6))
			Expect(report.Results[1].BranchAccuracyPercent).To(BeNumerically("~", 90, 1e-9))
			Expect(report.Summary.TotalRuns).To(Equal(6))
			Expect(report.Summary.FailedRuns).To(BeZero())
		})

		It("should leave branch fields out of runs without prediction", func() {
			Expect(harness.PrintJSON(results[:1])).To(Succeed())
			Expect(out.String()).NotTo(ContainSubstring("branch_accuracy_percent"))
			Expect(out.String()).NotTo(ContainSubstring("cond_predicted"))
			Expect(out.String()).NotTo(ContainSubstring("misprediction_rate"))
			Expect(out.String()).To(ContainSubstring(`"cpi": 2`))
		})

		It("should print the IPC comparison", func() {
			harness.PrintComparison(results)

			text := out.String()
			Expect(text).To(HavePrefix("\n=== IPC by variant ===\nhello\n"))
			Expect(text).To(ContainSubstring("without branch prediction    IPC 0.5000  (1.00x)"))
			Expect(text).To(ContainSubstring("with branch prediction       IPC 0.7500  (1.50x)"))
		})
	})
})
