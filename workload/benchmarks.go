package workload

import (
	"fmt"
	"os"
	"path/filepath"
)

// Benchmark is one program of the sweep.
type Benchmark struct {
	// Name identifies the benchmark.
	Name string

	// Description explains what the benchmark exercises.
	Description string

	// Path is the executable path. Relative paths are resolved against the
	// simulator checkout.
	Path string
}

// DefaultBenchmarks returns the three test programs shipped with the
// simulator, in sweep order.
func DefaultBenchmarks() []Benchmark {
	return []Benchmark{
		{
			Name:        "hello",
			Description: "Prints a greeting and exits - startup and syscall overhead",
			Path:        "tests/test-progs/hello/bin/x86/linux/hello",
		},
		{
			Name:        "matrix-multiply",
			Description: "Dense matrix multiply - regular loops, predictable branches",
			Path:        "tests/test-progs/matrix-multiply/bin/x86/linux/matrix-multiply",
		},
		{
			Name:        "quicksort",
			Description: "Quicksort over random data - data-dependent branches",
			Path:        "tests/test-progs/quicksort/bin/x86/linux/quicksort",
		},
	}
}

// FromPaths turns executable paths into benchmarks named after their base
// names.
func FromPaths(paths []string) []Benchmark {
	benchs := make([]Benchmark, 0, len(paths))
	for _, p := range paths {
		benchs = append(benchs, Benchmark{Name: filepath.Base(p), Path: p})
	}
	return benchs
}

// Catalog resolves benchmarks against a simulator checkout.
type Catalog struct {
	root       string
	benchmarks []Benchmark
}

// NewCatalog creates a catalog rooted at the simulator checkout. root must
// be an existing directory.
func NewCatalog(root string, benchmarks []Benchmark) (*Catalog, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("simulator root not found at %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("simulator root %s is not a directory", root)
	}

	return &Catalog{root: root, benchmarks: benchmarks}, nil
}

// Benchmarks returns the catalog's benchmarks.
func (c *Catalog) Benchmarks() []Benchmark {
	return c.benchmarks
}

// BinaryPath returns the absolute-or-root-relative path of a benchmark.
func (c *Catalog) BinaryPath(b Benchmark) string {
	if filepath.IsAbs(b.Path) {
		return b.Path
	}
	return filepath.Join(c.root, b.Path)
}

// BinaryExists reports whether the benchmark's executable is a regular file.
func (c *Catalog) BinaryExists(b Benchmark) bool {
	info, err := os.Stat(c.BinaryPath(b))
	return err == nil && info.Mode().IsRegular()
}

// ListAvailable returns the benchmarks whose binaries exist.
func (c *Catalog) ListAvailable() []Benchmark {
	var available []Benchmark
	for _, b := range c.benchmarks {
		if c.BinaryExists(b) {
			available = append(available, b)
		}
	}
	return available
}

// ListMissing returns the benchmarks whose binaries do not exist.
func (c *Catalog) ListMissing() []Benchmark {
	var missing []Benchmark
	for _, b := range c.benchmarks {
		if !c.BinaryExists(b) {
			missing = append(missing, b)
		}
	}
	return missing
}
