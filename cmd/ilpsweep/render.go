package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/sarchlab/ilpsweep/gem5"
	"github.com/sarchlab/ilpsweep/system"
	"github.com/sarchlab/ilpsweep/workload"
)

var (
	renderBP     bool   // Render the branch prediction variant
	renderOutput string // Script destination, "-" for stdout
)

// renderCmd prints the gem5 config script of one run without running it.
var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Write the gem5 config script for the first benchmark",
	RunE: func(cmd *cobra.Command, args []string) error {
		sysConfig, err := loadSystemConfig()
		if err != nil {
			return err
		}

		sys, err := system.MakeBuilder().
			WithConfig(sysConfig).
			WithBranchPrediction(renderBP).
			WithNumThreads(numThreads).
			Build()
		if err != nil {
			return err
		}

		bench := selectedBenchmarks()[0]
		sys.CPU.SetWorkload(workload.NewProcess(bench.Path))
		if err := sys.CPU.CreateThreads(); err != nil {
			return err
		}

		var w io.Writer = cmd.OutOrStdout()
		if renderOutput != "-" {
			f, err := os.Create(renderOutput)
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", renderOutput, err)
			}
			defer func() { _ = f.Close() }()
			w = f
		}

		return gem5.Render(w, system.NewRoot(false, sys))
	},
}

// configCmd writes the default system configuration as YAML.
var configCmd = &cobra.Command{
	Use:   "config <file>",
	Short: "Write the default system configuration to a YAML file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := system.DefaultConfig().SaveConfig(args[0]); err != nil {
			return err
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Default configuration written to %s\n", args[0])
		return nil
	},
}

func init() {
	renderCmd.Flags().BoolVar(&renderBP, "branch-prediction", false, "Render the variant with branch prediction")
	renderCmd.Flags().StringVarP(&renderOutput, "output", "o", "-", "Output file, - for stdout")

	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(configCmd)
}
