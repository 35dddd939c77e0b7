package stats

import (
	"errors"
	"fmt"
)

// ErrNoBranchSamples is returned when branch accuracy is requested but the
// predictor recorded no conditional branches.
var ErrNoBranchSamples = errors.New("no conditional branch predictions recorded")

// BranchStats holds the conditional branch counters of a predictor.
type BranchStats struct {
	// CondPredicted is the number of conditional branches predicted.
	CondPredicted uint64
	// CondIncorrect is the number of conditional branches mispredicted.
	CondIncorrect uint64
}

// Accuracy returns condPredicted / (condPredicted + condIncorrect), the
// ratio the sweep has always reported, as a fraction.
func (b BranchStats) Accuracy() (float64, error) {
	total := b.CondPredicted + b.CondIncorrect
	if total == 0 {
		return 0, ErrNoBranchSamples
	}
	return float64(b.CondPredicted) / float64(total), nil
}

// MispredictionRate returns condIncorrect / condPredicted as a fraction.
func (b BranchStats) MispredictionRate() float64 {
	if b.CondPredicted == 0 {
		return 0
	}
	return float64(b.CondIncorrect) / float64(b.CondPredicted)
}

// CPUStats holds the per-CPU values printed after a run.
type CPUStats struct {
	IPC          float64
	Cycles       uint64
	Instructions uint64
	Branch       BranchStats
}

// CPI returns cycles per instruction.
func (s CPUStats) CPI() float64 {
	if s.Instructions == 0 {
		return 0
	}
	return float64(s.Cycles) / float64(s.Instructions)
}

// ExtractCPU reads the stats of the CPU at cpuPath (e.g. "system.cpu").
// Cycles and IPC are required; instruction count falls back through the
// names used by different CPU models and simulator versions.
func ExtractCPU(snap *Snapshot, cpuPath string) (CPUStats, error) {
	var s CPUStats

	cycles, ok := snap.Get(cpuPath + ".numCycles")
	if !ok {
		return s, fmt.Errorf("stat %s.numCycles not found", cpuPath)
	}
	s.Cycles = uint64(cycles)

	insts, ok := snap.First(
		cpuPath+".numInsts",
		cpuPath+".committedInsts",
		cpuPath+".thread_0.numInsts",
		cpuPath+".exec_context.thread_0.numInsts",
		"simInsts",
	)
	if !ok {
		return s, fmt.Errorf("instruction count for %s not found", cpuPath)
	}
	s.Instructions = uint64(insts)

	if ipc, ok := snap.Get(cpuPath + ".ipc"); ok {
		s.IPC = ipc
	} else if s.Cycles > 0 {
		s.IPC = float64(s.Instructions) / float64(s.Cycles)
	}

	s.Branch.CondPredicted = uint64(snap.Value(cpuPath + ".branchPred.condPredicted"))
	s.Branch.CondIncorrect = uint64(snap.Value(cpuPath + ".branchPred.condIncorrect"))

	return s, nil
}
