// Package stats reads the statistics dumped by the simulator and prints the
// per-run summary.
package stats

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
)

const (
	beginMarker = "---------- Begin Simulation Statistics ----------"
	endMarker   = "---------- End Simulation Statistics"
)

// ErrNoDump is returned when a stats file holds no complete dump.
var ErrNoDump = errors.New("no statistics dump found")

// Snapshot is one statistics dump: stat name to value.
type Snapshot struct {
	values map[string]float64
}

// NewSnapshot creates a snapshot from a map of values.
func NewSnapshot(values map[string]float64) *Snapshot {
	s := &Snapshot{values: make(map[string]float64, len(values))}
	for k, v := range values {
		s.values[k] = v
	}
	return s
}

// Get returns the value of a stat and whether it was present.
func (s *Snapshot) Get(name string) (float64, bool) {
	v, ok := s.values[name]
	return v, ok
}

// Value returns the value of a stat, or 0 when absent.
func (s *Snapshot) Value(name string) float64 {
	return s.values[name]
}

// First returns the value of the first present name.
func (s *Snapshot) First(names ...string) (float64, bool) {
	for _, n := range names {
		if v, ok := s.values[n]; ok {
			return v, true
		}
	}
	return 0, false
}

// Names returns the stat names in sorted order.
func (s *Snapshot) Names() []string {
	names := make([]string, 0, len(s.values))
	for n := range s.values {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of stats.
func (s *Snapshot) Len() int {
	return len(s.values)
}

// Parse reads a stats file and returns one snapshot per dump block, in file
// order. Lines outside dump blocks are ignored.
func Parse(r io.Reader) ([]*Snapshot, error) {
	var (
		dumps   []*Snapshot
		current *Snapshot
		lineNo  int
	)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())

		switch {
		case strings.HasPrefix(line, beginMarker):
			current = &Snapshot{values: make(map[string]float64)}
			continue
		case strings.HasPrefix(line, endMarker):
			if current != nil {
				dumps = append(dumps, current)
				current = nil
			}
			continue
		case current == nil || line == "":
			continue
		}

		name, value, ok, err := parseLine(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		if ok {
			current.values[name] = value
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read stats: %w", err)
	}

	return dumps, nil
}

// parseLine splits "name value [pdf cdf] # description". ok is false for
// lines that carry no value.
func parseLine(line string) (name string, value float64, ok bool, err error) {
	if i := strings.Index(line, "#"); i >= 0 {
		line = line[:i]
	}

	fields := strings.Fields(line)
	if len(fields) < 2 {
		return "", 0, false, nil
	}

	value, err = parseValue(fields[1])
	if err != nil {
		return "", 0, false, fmt.Errorf("stat %s: %w", fields[0], err)
	}

	return fields[0], value, true, nil
}

func parseValue(s string) (float64, error) {
	switch strings.ToLower(s) {
	case "nan":
		return math.NaN(), nil
	case "inf", "+inf":
		return math.Inf(1), nil
	case "-inf":
		return math.Inf(-1), nil
	}

	return strconv.ParseFloat(strings.TrimSuffix(s, "%"), 64)
}

// ParseFile returns the last dump of a stats file.
func ParseFile(path string) (*Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open stats file: %w", err)
	}
	defer func() { _ = f.Close() }()

	dumps, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	if len(dumps) == 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrNoDump)
	}

	return dumps[len(dumps)-1], nil
}
