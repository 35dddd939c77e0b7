// Command ilpsweep runs a fixed set of benchmarks on gem5 with and without
// branch prediction and prints IPC, cycle and instruction counts for each
// run.
//
// Usage:
//
//	go run ./cmd/ilpsweep run [flags]
//
// Example:
//
//	# Sweep the default benchmarks from inside a gem5 checkout
//	ilpsweep run --gem5-root ~/gem5
//
//	# Sweep a custom binary and write a JSON report
//	ilpsweep run --benchmark ./bin/qsort --report results.json
//
//	# Show the config script gem5 would run
//	ilpsweep render --branch-prediction
package main

import (
	"github.com/tebeka/atexit"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		atexit.Exit(1)
	}
	atexit.Exit(0)
}
