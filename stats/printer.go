package stats

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/sarchlab/ilpsweep/system"
)

// Printer writes the per-run summary.
type Printer struct {
	out io.Writer
}

// NewPrinter creates a printer that writes to out. A nil out means stdout.
func NewPrinter(out io.Writer) *Printer {
	if out == nil {
		out = os.Stdout
	}
	return &Printer{out: out}
}

// Print writes the summary of one run. Branch prediction accuracy is only
// computed and printed when the system's CPU uses the tournament predictor;
// an accuracy error is returned after the lines before it are written.
func (p *Printer) Print(sys *system.System, s CPUStats, tick uint64) error {
	_, _ = fmt.Fprintln(p.out, "")
	_, _ = fmt.Fprintln(p.out, "Simulation statistics:")
	_, _ = fmt.Fprintf(p.out, "Instructions per cycle (IPC): %s\n",
		strconv.FormatFloat(s.IPC, 'f', -1, 64))
	_, _ = fmt.Fprintf(p.out, "Number of cycles: %d\n", s.Cycles)
	_, _ = fmt.Fprintf(p.out, "Number of instructions: %d\n", s.Instructions)

	if sys.CPU.BranchPred.IsTournament() {
		accuracy, err := s.Branch.Accuracy()
		if err != nil {
			return fmt.Errorf("failed to compute branch prediction accuracy: %w", err)
		}
		_, _ = fmt.Fprintf(p.out, "Branch prediction accuracy: %.2f%%\n", accuracy*100)
	}

	_, _ = fmt.Fprintf(p.out, "Simulation ticks: %d\n", tick)

	return nil
}

// PrintRaw echoes a stats file verbatim.
func (p *Printer) PrintRaw(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open stats file: %w", err)
	}
	defer func() { _ = f.Close() }()

	_, _ = fmt.Fprintln(p.out, "\nContents of stats.txt:")
	if _, err := io.Copy(p.out, f); err != nil {
		return fmt.Errorf("failed to copy stats file: %w", err)
	}

	return nil
}
