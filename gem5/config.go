// Package gem5 runs systems built by package system on the gem5 simulator.
// Each instantiation renders a self-contained gem5 config script and runs
// the gem5 binary on it as a child process.
package gem5

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Config configures how gem5 is invoked.
type Config struct {
	// Binary is the gem5 executable. Relative paths are resolved against
	// Root.
	Binary string

	// Root is the gem5 checkout. gem5 runs with Root as its working
	// directory so relative benchmark paths resolve against it.
	Root string

	// OutDir receives one run directory per instantiation.
	OutDir string

	// DebugFlags are passed as --debug-flags.
	DebugFlags []string

	// ExtraArgs are passed to gem5 before the config script.
	ExtraArgs []string

	// Stdout and Stderr receive gem5's output. Nil means os.Stdout and
	// os.Stderr.
	Stdout io.Writer
	Stderr io.Writer
}

// DefaultConfig returns the configuration for an X86 build of gem5 in the
// current directory.
func DefaultConfig() Config {
	return Config{
		Binary:     filepath.Join("build", "X86", "gem5.opt"),
		Root:       ".",
		OutDir:     "m5out",
		DebugFlags: []string{"Terminal", "Exec"},
	}
}

// resolve returns a copy with absolute paths and default writers.
func (c Config) resolve() (Config, error) {
	if c.Binary == "" {
		return c, fmt.Errorf("gem5 binary must be set")
	}
	if c.Root == "" {
		c.Root = "."
	}
	if c.OutDir == "" {
		c.OutDir = "m5out"
	}

	root, err := filepath.Abs(c.Root)
	if err != nil {
		return c, fmt.Errorf("failed to resolve gem5 root: %w", err)
	}
	c.Root = root

	if !filepath.IsAbs(c.Binary) {
		c.Binary = filepath.Join(c.Root, c.Binary)
	}

	outDir, err := filepath.Abs(c.OutDir)
	if err != nil {
		return c, fmt.Errorf("failed to resolve output directory: %w", err)
	}
	c.OutDir = outDir

	if c.Stdout == nil {
		c.Stdout = os.Stdout
	}
	if c.Stderr == nil {
		c.Stderr = os.Stderr
	}

	return c, nil
}
