// Package main provides the entry point for ilpsweep.
// ilpsweep sweeps benchmark binaries across CPU configurations on gem5.
//
// For the full CLI, use: go run ./cmd/ilpsweep
package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Println("ilpsweep - gem5 branch prediction sweep")
	fmt.Println("")
	fmt.Println("Usage: ilpsweep <command> [options]")
	fmt.Println("")
	fmt.Println("Commands:")
	fmt.Println("  run      Run every benchmark without and with branch prediction")
	fmt.Println("  render   Write the gem5 config script for one run")
	fmt.Println("  check    Check that gem5 and the benchmark binaries are usable")
	fmt.Println("  config   Write the default system configuration")
	fmt.Println("")
	fmt.Println("Run 'go run ./cmd/ilpsweep' for the full CLI.")

	if len(os.Args) > 1 {
		fmt.Println("\nNote: You provided arguments. Use 'go run ./cmd/ilpsweep' instead.")
	}
}
