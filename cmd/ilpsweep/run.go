package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"

	"github.com/sarchlab/ilpsweep/gem5"
	"github.com/sarchlab/ilpsweep/sweep"
)

var (
	csvOutput  bool   // Print CSV instead of the comparison table
	reportPath string // JSON report destination
	echoStats  bool   // Echo stats.txt after each run
	keepGoing  bool   // Continue after a failed run
	noCheck    bool   // Skip the ELF check of benchmark binaries
)

// runCmd executes the sweep using parameters from CLI flags
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run every benchmark without and with branch prediction",
	RunE: func(cmd *cobra.Command, args []string) error {
		sysConfig, err := loadSystemConfig()
		if err != nil {
			return err
		}

		sim, err := gem5.NewSimulator(gem5Config(), logrus.StandardLogger())
		if err != nil {
			return err
		}

		config := sweep.DefaultConfig()
		config.System = sysConfig
		config.NumThreads = numThreads
		config.Root = sim.Config().Root
		config.CheckBinaries = !noCheck
		config.EchoStatsFile = echoStats
		config.KeepGoing = keepGoing
		config.Output = cmd.OutOrStdout()

		harness := sweep.NewHarness(config, sim)
		harness.AddBenchmarks(selectedBenchmarks())

		var results []sweep.Result
		if reportPath != "" {
			atexit.Register(func() { writeReport(harness, results) })
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		logrus.WithFields(logrus.Fields{
			"benchmarks": len(harness.Benchmarks()),
			"variants":   len(config.Variants),
			"outdir":     sim.Config().OutDir,
		}).Info("starting sweep")

		results, err = harness.RunAll(ctx)
		if err != nil {
			return err
		}

		if csvOutput {
			if err := harness.PrintCSV(results); err != nil {
				return fmt.Errorf("failed to write CSV: %w", err)
			}
		} else {
			harness.PrintComparison(results)
		}

		logrus.Info("Sweep complete.")
		return nil
	},
}

// writeReport saves the JSON report. It runs at exit so that partial results
// of a failed sweep are kept.
func writeReport(harness *sweep.Harness, results []sweep.Result) {
	f, err := os.Create(reportPath)
	if err != nil {
		logrus.WithError(err).Error("failed to create report")
		return
	}
	defer func() { _ = f.Close() }()

	if err := harness.WriteJSON(f, results); err != nil {
		logrus.WithError(err).Error("failed to write report")
		return
	}

	fmt.Fprintf(os.Stderr, "Report written to %s\n", reportPath)
}

func init() {
	runCmd.Flags().BoolVar(&csvOutput, "csv", false, "Output results in CSV format")
	runCmd.Flags().StringVar(&reportPath, "report", "", "Write a JSON report to this file")
	runCmd.Flags().BoolVar(&echoStats, "echo-stats", false, "Print the contents of stats.txt after each run")
	runCmd.Flags().BoolVar(&keepGoing, "keep-going", false, "Record failed runs and continue")
	runCmd.Flags().BoolVar(&noCheck, "no-check", false, "Do not check that benchmarks are x86-64 ELF files")

	rootCmd.AddCommand(runCmd)
}
