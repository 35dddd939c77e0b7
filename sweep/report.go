package sweep

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"
)

// Version is reported in JSON reports.
const Version = "0.1.0"

// Report is the complete output format for sweep results.
type Report struct {
	// Metadata about the sweep
	Metadata ReportMetadata `json:"metadata"`

	// Results is the list of individual run results
	Results []Result `json:"results"`

	// Summary contains aggregate statistics
	Summary ReportSummary `json:"summary"`
}

// ReportMetadata contains information about the sweep.
type ReportMetadata struct {
	Timestamp  string `json:"timestamp"`
	Version    string `json:"version"`
	CPUType    string `json:"cpu_type"`
	Clock      string `json:"clock"`
	NumThreads int    `json:"num_threads"`
}

// ReportSummary contains aggregate statistics across all runs.
type ReportSummary struct {
	TotalRuns         int           `json:"total_runs"`
	FailedRuns        int           `json:"failed_runs"`
	TotalCycles       uint64        `json:"total_cycles"`
	TotalInstructions uint64        `json:"total_instructions"`
	AverageIPC        float64       `json:"average_ipc"`
	TotalWallTime     time.Duration `json:"total_wall_time_ns"`
}

// BuildReport assembles the report for results.
func (h *Harness) BuildReport(results []Result) Report {
	var summary ReportSummary
	summary.TotalRuns = len(results)

	for _, r := range results {
		if r.Error != "" {
			summary.FailedRuns++
			continue
		}
		summary.TotalCycles += r.Cycles
		summary.TotalInstructions += r.Instructions
		summary.TotalWallTime += r.WallTime
	}

	if summary.TotalCycles > 0 {
		summary.AverageIPC = float64(summary.TotalInstructions) / float64(summary.TotalCycles)
	}

	return Report{
		Metadata: ReportMetadata{
			Timestamp:  time.Now().UTC().Format(time.RFC3339),
			Version:    Version,
			CPUType:    h.config.System.CPUType,
			Clock:      h.config.System.Clock,
			NumThreads: h.config.NumThreads,
		},
		Results: results,
		Summary: summary,
	}
}

// WriteJSON writes the report for results to w.
func (h *Harness) WriteJSON(w io.Writer, results []Result) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(h.BuildReport(results))
}

// PrintJSON outputs the report in JSON format.
func (h *Harness) PrintJSON(results []Result) error {
	return h.WriteJSON(h.config.Output, results)
}

// csvHeader names the columns written by PrintCSV.
var csvHeader = []string{
	"benchmark",
	"variant",
	"branch_prediction",
	"ipc",
	"cpi",
	"cycles",
	"instructions",
	"cond_predicted",
	"cond_incorrect",
	"branch_accuracy_percent",
	"misprediction_rate",
	"ticks",
	"exit_code",
	"error",
}

// PrintCSV outputs results in CSV format for spreadsheet comparison.
func (h *Harness) PrintCSV(results []Result) error {
	w := csv.NewWriter(h.config.Output)
	if err := w.Write(csvHeader); err != nil {
		return err
	}

	for _, r := range results {
		record := []string{
			r.Benchmark,
			r.Variant,
			strconv.FormatBool(r.BranchPrediction),
			strconv.FormatFloat(r.IPC, 'f', 6, 64),
			strconv.FormatFloat(r.CPI, 'f', 6, 64),
			strconv.FormatUint(r.Cycles, 10),
			strconv.FormatUint(r.Instructions, 10),
			strconv.FormatUint(r.CondPredicted, 10),
			strconv.FormatUint(r.CondIncorrect, 10),
			strconv.FormatFloat(r.BranchAccuracyPercent, 'f', 2, 64),
			strconv.FormatFloat(r.MispredictionRate, 'f', 6, 64),
			strconv.FormatUint(r.Ticks, 10),
			strconv.Itoa(r.ExitCode),
			r.Error,
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

// PrintComparison prints, per benchmark, the IPC of every variant and its
// speedup over the first variant.
func (h *Harness) PrintComparison(results []Result) {
	out := h.config.Output
	_, _ = fmt.Fprintln(out, "\n=== IPC by variant ===")

	var (
		current  string
		baseline float64
	)
	for _, r := range results {
		if r.Benchmark != current {
			current = r.Benchmark
			baseline = r.IPC
			_, _ = fmt.Fprintf(out, "%s\n", r.Benchmark)
		}

		if r.Error != "" {
			_, _ = fmt.Fprintf(out, "  %-28s failed: %s\n", r.Variant, r.Error)
			continue
		}

		speedup := 0.0
		if baseline > 0 {
			speedup = r.IPC / baseline
		}
		_, _ = fmt.Fprintf(out, "  %-28s IPC %.4f  (%.2fx)\n", r.Variant, r.IPC, speedup)
	}
}
