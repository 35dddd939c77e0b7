package main

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sarchlab/ilpsweep/gem5"
	"github.com/sarchlab/ilpsweep/system"
	"github.com/sarchlab/ilpsweep/workload"
)

var (
	logLevel       string   // Log verbosity level
	gem5Binary     string   // gem5 executable
	gem5Root       string   // gem5 checkout, working directory of gem5
	outDir         string   // Directory receiving per-run output
	configPath     string   // YAML system config
	numThreads     int      // Hardware threads per CPU
	benchmarkPaths []string // Overrides the default benchmark list
	debugFlags     []string // gem5 debug flags
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:          "ilpsweep",
	Short:        "Sweep benchmarks across branch prediction configurations on gem5",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			return err
		}
		logrus.SetLevel(level)
		logrus.SetOutput(os.Stderr)
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
		return nil
	},
}

func init() {
	defaults := gem5.DefaultConfig()

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&logLevel, "log", "warn", "Log level (trace, debug, info, warn, error, fatal, panic)")
	flags.StringVar(&gem5Binary, "gem5", defaults.Binary, "gem5 binary, relative to --gem5-root unless absolute")
	flags.StringVar(&gem5Root, "gem5-root", defaults.Root, "gem5 checkout; gem5 runs from here")
	flags.StringVar(&outDir, "outdir", defaults.OutDir, "Directory receiving one subdirectory per run")
	flags.StringVarP(&configPath, "config", "c", "", "YAML system configuration (default: built-in)")
	flags.IntVar(&numThreads, "threads", 1, "Hardware threads per CPU")
	flags.StringSliceVar(&benchmarkPaths, "benchmark", nil, "Benchmark executable (repeatable; default: the built-in list)")
	flags.StringSliceVar(&debugFlags, "debug-flags", defaults.DebugFlags, "gem5 debug flags")
}

// loadSystemConfig returns the --config file or the defaults.
func loadSystemConfig() (*system.Config, error) {
	if configPath == "" {
		return system.DefaultConfig(), nil
	}
	return system.LoadConfig(configPath)
}

// selectedBenchmarks returns the --benchmark list or the defaults.
func selectedBenchmarks() []workload.Benchmark {
	if len(benchmarkPaths) > 0 {
		return workload.FromPaths(benchmarkPaths)
	}
	return workload.DefaultBenchmarks()
}

// gem5Config assembles the simulator configuration from flags.
func gem5Config() gem5.Config {
	config := gem5.DefaultConfig()
	config.Binary = gem5Binary
	config.Root = gem5Root
	config.OutDir = outDir
	config.DebugFlags = debugFlags
	return config
}
