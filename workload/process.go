// Package workload describes the programs run inside the simulator: the
// process descriptor handed to the CPU, the fixed benchmark list and checks
// on the benchmark binaries.
package workload

import (
	"path/filepath"
)

// Process is the descriptor of a user-space program run in
// syscall-emulation mode.
type Process struct {
	// Cmd is the argument vector; Cmd[0] is the executable.
	Cmd []string

	// Cwd is the working directory of the simulated process. Empty means
	// the simulator's working directory.
	Cwd string

	// Env is the environment of the simulated process, as KEY=VALUE.
	Env []string
}

// NewProcess creates a process that runs path with the given arguments.
func NewProcess(path string, args ...string) Process {
	cmd := make([]string, 0, len(args)+1)
	cmd = append(cmd, path)
	cmd = append(cmd, args...)
	return Process{Cmd: cmd}
}

// Executable returns the program path, or "" for an empty process.
func (p Process) Executable() string {
	if len(p.Cmd) == 0 {
		return ""
	}
	return p.Cmd[0]
}

// Name returns the base name of the executable.
func (p Process) Name() string {
	return filepath.Base(p.Executable())
}
