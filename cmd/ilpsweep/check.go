package main

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sarchlab/ilpsweep/gem5"
	"github.com/sarchlab/ilpsweep/workload"
)

// checkCmd reports whether gem5 and the benchmark binaries are usable.
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check that gem5 starts and the benchmark binaries exist",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()

		sim, err := gem5.NewSimulator(gem5Config(), logrus.StandardLogger())
		if err != nil {
			return err
		}

		catalog, err := workload.NewCatalog(sim.Config().Root, selectedBenchmarks())
		if err != nil {
			return err
		}

		gem5Err := sim.Check(context.Background())
		if gem5Err != nil {
			_, _ = fmt.Fprintf(out, "gem5: %v\n", gem5Err)
		} else {
			_, _ = fmt.Fprintf(out, "gem5: %s\n", sim.Config().Binary)
		}

		available := catalog.ListAvailable()
		missing := catalog.ListMissing()
		unusable := 0

		if len(available) > 0 {
			_, _ = fmt.Fprintf(out, "\nAvailable benchmarks (%d):\n", len(available))
			for _, b := range available {
				if err := workload.CheckX86(catalog.BinaryPath(b)); err != nil {
					_, _ = fmt.Fprintf(out, "  ! %s - %v\n", b.Name, err)
					unusable++
					continue
				}
				_, _ = fmt.Fprintf(out, "  + %s - %s\n", b.Name, b.Description)
			}
		}

		if len(missing) > 0 {
			_, _ = fmt.Fprintf(out, "\nMissing benchmarks (%d):\n", len(missing))
			for _, b := range missing {
				_, _ = fmt.Fprintf(out, "  - %s (%s)\n", b.Name, catalog.BinaryPath(b))
			}
		}

		if gem5Err != nil || len(missing) > 0 || unusable > 0 {
			return fmt.Errorf("setup incomplete")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
