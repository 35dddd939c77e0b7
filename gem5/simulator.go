package gem5

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/sarchlab/ilpsweep/runner"
	"github.com/sarchlab/ilpsweep/stats"
	"github.com/sarchlab/ilpsweep/system"
)

var (
	// ErrAlreadyInstantiated is returned by Instantiate when a system is
	// already instantiated. Call Reset first.
	ErrAlreadyInstantiated = errors.New("simulator already instantiated")

	// ErrNotInstantiated is returned when simulating before instantiating.
	ErrNotInstantiated = errors.New("simulator not instantiated")

	// ErrNotSimulated is returned when dumping stats before a simulation
	// has exited.
	ErrNotSimulated = errors.New("simulation has not run")

	// ErrNoExitEvent is returned when gem5 terminates without reporting an
	// exit event.
	ErrNoExitEvent = errors.New("gem5 terminated without an exit event")
)

var exitPattern = regexp.MustCompile(
	`^` + regexp.QuoteMeta(exitMarker) + ` tick=(\d+) code=(-?\d+) cause=(.*)$`)

// Simulator runs gem5 as a child process. It implements runner.Simulator.
type Simulator struct {
	config Config
	logger logrus.FieldLogger

	run        int
	runDir     string
	scriptPath string
	root       *system.Root

	exit    *runner.ExitEvent
	curTick uint64
}

var _ runner.Simulator = (*Simulator)(nil)

// NewSimulator creates a simulator. The output directory is created if
// needed.
func NewSimulator(config Config, logger logrus.FieldLogger) (*Simulator, error) {
	config, err := config.resolve()
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(config.OutDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	if logger == nil {
		logger = logrus.StandardLogger()
	}

	return &Simulator{config: config, logger: logger}, nil
}

// Config returns the resolved configuration.
func (s *Simulator) Config() Config {
	return s.config
}

// RunDir returns the directory of the current or last run.
func (s *Simulator) RunDir() string {
	return s.runDir
}

// ScriptPath returns the config script of the current or last run.
func (s *Simulator) ScriptPath() string {
	return s.scriptPath
}

// StatsFile returns the stats file of the current or last run.
func (s *Simulator) StatsFile() string {
	return filepath.Join(s.runDir, "stats.txt")
}

// Instantiate renders root into a fresh run directory.
func (s *Simulator) Instantiate(root *system.Root) error {
	if s.root != nil {
		return ErrAlreadyInstantiated
	}

	s.run++
	runDir := filepath.Join(s.config.OutDir, fmt.Sprintf("run-%03d", s.run))
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return fmt.Errorf("failed to create run directory: %w", err)
	}

	scriptPath := filepath.Join(runDir, "config.py")
	f, err := os.Create(scriptPath)
	if err != nil {
		return fmt.Errorf("failed to create config script: %w", err)
	}

	if err := Render(f, root); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write config script: %w", err)
	}

	s.runDir = runDir
	s.scriptPath = scriptPath
	s.root = root

	s.logger.WithFields(logrus.Fields{
		"run":    s.run,
		"script": scriptPath,
	}).Debug("gem5 config rendered")

	return nil
}

func (s *Simulator) args() []string {
	args := []string{"--outdir", s.runDir}
	if len(s.config.DebugFlags) > 0 {
		args = append(args, "--debug-flags="+strings.Join(s.config.DebugFlags, ","))
	}
	args = append(args, s.config.ExtraArgs...)
	return append(args, s.scriptPath)
}

// Simulate runs gem5 on the rendered script and blocks until it exits.
// Cancelling ctx kills the child process.
func (s *Simulator) Simulate(ctx context.Context) (runner.ExitEvent, error) {
	if s.root == nil {
		return runner.ExitEvent{}, ErrNotInstantiated
	}

	cmd := exec.CommandContext(ctx, s.config.Binary, s.args()...)
	cmd.Dir = s.config.Root
	cmd.Stderr = s.config.Stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return runner.ExitEvent{}, fmt.Errorf("failed to open gem5 stdout: %w", err)
	}

	s.logger.WithField("args", cmd.Args).Debug("starting gem5")
	if err := cmd.Start(); err != nil {
		return runner.ExitEvent{}, fmt.Errorf("failed to start gem5: %w", err)
	}

	exit, found, scanErr := s.scanOutput(bufio.NewScanner(stdout))
	// A scanner stopped by an overlong line leaves output in the pipe; gem5
	// must not block on it before Wait.
	_, _ = io.Copy(io.Discard, stdout)
	waitErr := cmd.Wait()

	switch {
	case ctx.Err() != nil:
		return runner.ExitEvent{}, fmt.Errorf("gem5 interrupted: %w", ctx.Err())
	case waitErr != nil:
		return runner.ExitEvent{}, fmt.Errorf("gem5 exited abnormally: %w", waitErr)
	case scanErr != nil:
		return runner.ExitEvent{}, fmt.Errorf("failed to read gem5 output: %w", scanErr)
	case !found:
		return runner.ExitEvent{}, ErrNoExitEvent
	}

	s.exit = &exit
	s.curTick = exit.Tick

	return exit, nil
}

// scanOutput forwards gem5's stdout and picks out the exit line.
func (s *Simulator) scanOutput(scanner *bufio.Scanner) (runner.ExitEvent, bool, error) {
	var (
		exit     runner.ExitEvent
		found    bool
		parseErr error
	)

	// The pipe is drained even after a bad line so gem5 never blocks on a
	// full pipe.
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()

		m := exitPattern.FindStringSubmatch(line)
		if m == nil {
			_, _ = fmt.Fprintln(s.config.Stdout, line)
			continue
		}

		ev, err := parseExit(m)
		if err != nil {
			if parseErr == nil {
				parseErr = err
			}
			continue
		}
		exit, found = ev, true
	}

	if err := scanner.Err(); err != nil {
		return exit, found, err
	}
	return exit, found, parseErr
}

func parseExit(m []string) (runner.ExitEvent, error) {
	tick, err := strconv.ParseUint(m[1], 10, 64)
	if err != nil {
		return runner.ExitEvent{}, fmt.Errorf("bad exit tick %q: %w", m[1], err)
	}

	code, err := strconv.Atoi(m[2])
	if err != nil {
		return runner.ExitEvent{}, fmt.Errorf("bad exit code %q: %w", m[2], err)
	}

	return runner.ExitEvent{Tick: tick, Code: code, Cause: m[3]}, nil
}

// CurTick returns the tick at which the last simulation exited.
func (s *Simulator) CurTick() uint64 {
	return s.curTick
}

// DumpStats reads the final statistics dump of the last run.
func (s *Simulator) DumpStats() (*stats.Snapshot, error) {
	if s.exit == nil {
		return nil, ErrNotSimulated
	}

	return stats.ParseFile(s.StatsFile())
}

// ResetStats is a no-op: gem5 resets its counters itself after the final
// dump, and the process is gone once Simulate returns.
func (s *Simulator) ResetStats() error {
	if s.exit == nil {
		return ErrNotSimulated
	}
	return nil
}

// Reset forgets the instantiated system so the next Instantiate starts a new
// run directory. Output of earlier runs is kept.
func (s *Simulator) Reset() error {
	s.root = nil
	s.exit = nil
	s.curTick = 0
	return nil
}

// Check runs the gem5 binary with --help to make sure it can start.
func (s *Simulator) Check(ctx context.Context) error {
	cmd := exec.CommandContext(ctx, s.config.Binary, "--help")
	cmd.Dir = s.config.Root
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("gem5 at %s failed to start: %w: %s",
			s.config.Binary, err, strings.TrimSpace(string(out)))
	}
	return nil
}
