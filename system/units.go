package system

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/sarchlab/akita/v4/mem/mem"
	"github.com/sarchlab/akita/v4/sim"
)

var (
	clockPattern = regexp.MustCompile(`^([0-9]*\.?[0-9]+)\s*([kKMG]?Hz)$`)
	sizePattern  = regexp.MustCompile(`^([0-9]+)\s*([kKMG]i?B|B)?$`)
	tickPattern  = regexp.MustCompile(`^([0-9]+)t?$`)
)

// ParseClock converts a clock string such as "1GHz" or "800MHz" into a
// frequency.
func ParseClock(s string) (sim.Freq, error) {
	m := clockPattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0, fmt.Errorf("invalid clock %q", s)
	}

	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, fmt.Errorf("invalid clock %q: %w", s, err)
	}

	unit := sim.Hz
	switch m[2] {
	case "kHz", "KHz":
		unit = sim.KHz
	case "MHz":
		unit = sim.MHz
	case "GHz":
		unit = sim.GHz
	}

	f := sim.Freq(v) * unit
	if f <= 0 {
		return 0, fmt.Errorf("clock must be > 0, got %q", s)
	}

	return f, nil
}

// FormatClock renders a frequency the way the simulator's config language
// expects it.
func FormatClock(f sim.Freq) string {
	switch {
	case f >= sim.GHz:
		return strconv.FormatFloat(float64(f/sim.GHz), 'f', -1, 64) + "GHz"
	case f >= sim.MHz:
		return strconv.FormatFloat(float64(f/sim.MHz), 'f', -1, 64) + "MHz"
	case f >= sim.KHz:
		return strconv.FormatFloat(float64(f/sim.KHz), 'f', -1, 64) + "kHz"
	default:
		return strconv.FormatFloat(float64(f), 'f', -1, 64) + "Hz"
	}
}

// ParseSize converts a size string such as "512MB" or "16kB" into bytes.
// Units are binary, as in the simulator.
func ParseSize(s string) (uint64, error) {
	m := sizePattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0, fmt.Errorf("invalid size %q", s)
	}

	v, err := strconv.ParseUint(m[1], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", s, err)
	}

	unit := uint64(1)
	switch strings.TrimSuffix(strings.ToUpper(m[2]), "IB") {
	case "K", "KB":
		unit = mem.KB
	case "M", "MB":
		unit = mem.MB
	case "G", "GB":
		unit = mem.GB
	}

	if v > math.MaxUint64/unit {
		return 0, fmt.Errorf("size %q overflows", s)
	}
	v *= unit

	if v == 0 {
		return 0, fmt.Errorf("size must be > 0, got %q", s)
	}

	return v, nil
}

// FormatSize renders a byte count with the largest unit that divides it.
func FormatSize(v uint64) string {
	switch {
	case v >= mem.GB && v%mem.GB == 0:
		return fmt.Sprintf("%dGB", v/mem.GB)
	case v >= mem.MB && v%mem.MB == 0:
		return fmt.Sprintf("%dMB", v/mem.MB)
	case v >= mem.KB && v%mem.KB == 0:
		return fmt.Sprintf("%dkB", v/mem.KB)
	default:
		return fmt.Sprintf("%dB", v)
	}
}

// ParseTicks converts a tick count written as "1000000t" (or a bare
// number) into ticks.
func ParseTicks(s string) (uint64, error) {
	m := tickPattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0, fmt.Errorf("invalid tick count %q", s)
	}

	return strconv.ParseUint(m[1], 10, 64)
}
