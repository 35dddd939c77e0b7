package system

import (
	"bytes"
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// identPattern matches the simulator class names that are emitted verbatim
// into generated scripts.
var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// CacheConfig holds the parameters of one L1 cache.
type CacheConfig struct {
	// Size of the cache, e.g. "16kB".
	Size string `yaml:"size"`

	// Associativity is the number of ways.
	Associativity int `yaml:"assoc"`

	// TagLatency is the tag lookup latency in cycles.
	TagLatency uint64 `yaml:"tag_latency"`

	// DataLatency is the data access latency in cycles.
	DataLatency uint64 `yaml:"data_latency"`

	// ResponseLatency is the latency for returning a response in cycles.
	ResponseLatency uint64 `yaml:"response_latency"`

	// MSHRs is the number of miss status holding registers.
	MSHRs int `yaml:"mshrs"`

	// TargetsPerMSHR is the number of accesses that can wait on one MSHR.
	TargetsPerMSHR int `yaml:"tgts_per_mshr"`
}

// TournamentConfig holds the table sizes of a tournament branch predictor.
type TournamentConfig struct {
	LocalPredictorSize    int `yaml:"local_predictor_size"`
	LocalCtrBits          int `yaml:"local_ctr_bits"`
	LocalHistoryTableSize int `yaml:"local_history_table_size"`
	GlobalPredictorSize   int `yaml:"global_predictor_size"`
	GlobalCtrBits         int `yaml:"global_ctr_bits"`
	ChoicePredictorSize   int `yaml:"choice_predictor_size"`
	ChoiceCtrBits         int `yaml:"choice_ctr_bits"`
}

// Config holds the tunable parameters of a simulated system. The branch
// predictor switch and the thread count are not part of it; they are chosen
// per run.
type Config struct {
	// Clock is the system clock, e.g. "1GHz".
	Clock string `yaml:"clock"`

	// Voltage of the clock domain's voltage domain, e.g. "1V".
	Voltage string `yaml:"voltage"`

	// MemMode is the memory access mode ("timing" or "atomic").
	MemMode string `yaml:"mem_mode"`

	// MemSize is the size of the single physical memory range.
	MemSize string `yaml:"mem_size"`

	// DRAM is the DRAM interface model of the memory controller.
	DRAM string `yaml:"dram"`

	// CPUType is the CPU model, e.g. "X86O3CPU".
	CPUType string `yaml:"cpu_type"`

	// StatsDumpPeriod is the periodic statistics dump interval, e.g.
	// "1000000t". Empty disables periodic dumps.
	StatsDumpPeriod string `yaml:"stats_dump_period"`

	// BranchPredictor is the predictor used when branch prediction is on.
	BranchPredictor string `yaml:"branch_predictor"`

	// Tournament holds the tournament predictor table sizes.
	Tournament TournamentConfig `yaml:"tournament"`

	// L1I and L1D configure the private L1 caches.
	L1I CacheConfig `yaml:"l1i"`
	L1D CacheConfig `yaml:"l1d"`
}

// DefaultL1IConfig returns the default L1 instruction cache configuration.
func DefaultL1IConfig() CacheConfig {
	return CacheConfig{
		Size:            "16kB",
		Associativity:   2,
		TagLatency:      2,
		DataLatency:     2,
		ResponseLatency: 2,
		MSHRs:           4,
		TargetsPerMSHR:  20,
	}
}

// DefaultL1DConfig returns the default L1 data cache configuration.
func DefaultL1DConfig() CacheConfig {
	c := DefaultL1IConfig()
	c.Size = "64kB"
	return c
}

// DefaultTournamentConfig returns the simulator's stock tournament predictor
// sizes.
func DefaultTournamentConfig() TournamentConfig {
	return TournamentConfig{
		LocalPredictorSize:    2048,
		LocalCtrBits:          2,
		LocalHistoryTableSize: 2048,
		GlobalPredictorSize:   8192,
		GlobalCtrBits:         2,
		ChoicePredictorSize:   8192,
		ChoiceCtrBits:         2,
	}
}

// DefaultConfig returns the configuration of the reference sweep: a 1GHz
// out-of-order x86 core with 512MB of DDR4.
func DefaultConfig() *Config {
	return &Config{
		Clock:           "1GHz",
		Voltage:         "1V",
		MemMode:         "timing",
		MemSize:         "512MB",
		DRAM:            "DDR4_2400_8x8",
		CPUType:         "X86O3CPU",
		StatsDumpPeriod: "1000000t",
		BranchPredictor: TournamentBP,
		Tournament:      DefaultTournamentConfig(),
		L1I:             DefaultL1IConfig(),
		L1D:             DefaultL1DConfig(),
	}
}

// LoadConfig loads a Config from a YAML file. Missing keys keep their
// defaults; unknown keys are rejected.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read system config file: %w", err)
	}

	config := DefaultConfig()
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(config); err != nil {
		return nil, fmt.Errorf("failed to parse system config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid system config %s: %w", path, err)
	}

	return config, nil
}

// SaveConfig writes a Config to a YAML file.
func (c *Config) SaveConfig(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to serialize system config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write system config file: %w", err)
	}

	return nil
}

// Validate checks that every value can be turned into a configuration
// object.
func (c *Config) Validate() error {
	if _, err := ParseClock(c.Clock); err != nil {
		return err
	}
	if c.Voltage == "" {
		return fmt.Errorf("voltage must be set")
	}
	if c.MemMode != "timing" && c.MemMode != "atomic" {
		return fmt.Errorf("mem_mode must be timing or atomic, got %q", c.MemMode)
	}
	if _, err := ParseSize(c.MemSize); err != nil {
		return fmt.Errorf("mem_size: %w", err)
	}
	if !identPattern.MatchString(c.DRAM) {
		return fmt.Errorf("dram must be a DRAM interface class name, got %q", c.DRAM)
	}
	if !identPattern.MatchString(c.CPUType) {
		return fmt.Errorf("cpu_type must be a CPU class name, got %q", c.CPUType)
	}
	if !strings.HasPrefix(c.CPUType, "X86") {
		return fmt.Errorf("cpu_type must be an x86 CPU model, got %q", c.CPUType)
	}
	if c.StatsDumpPeriod != "" {
		if _, err := ParseTicks(c.StatsDumpPeriod); err != nil {
			return fmt.Errorf("stats_dump_period: %w", err)
		}
	}
	if c.BranchPredictor != TournamentBP {
		return fmt.Errorf("unsupported branch_predictor %q", c.BranchPredictor)
	}
	if err := c.Tournament.validate(); err != nil {
		return fmt.Errorf("tournament: %w", err)
	}
	if err := c.L1I.validate(); err != nil {
		return fmt.Errorf("l1i: %w", err)
	}
	if err := c.L1D.validate(); err != nil {
		return fmt.Errorf("l1d: %w", err)
	}
	return nil
}

func (c CacheConfig) validate() error {
	size, err := ParseSize(c.Size)
	if err != nil {
		return err
	}
	if c.Associativity <= 0 {
		return fmt.Errorf("assoc must be > 0")
	}
	if size%uint64(c.Associativity) != 0 {
		return fmt.Errorf("size %s is not divisible by assoc %d", c.Size, c.Associativity)
	}
	if c.TagLatency == 0 || c.DataLatency == 0 || c.ResponseLatency == 0 {
		return fmt.Errorf("latencies must be > 0")
	}
	if c.MSHRs <= 0 {
		return fmt.Errorf("mshrs must be > 0")
	}
	if c.TargetsPerMSHR <= 0 {
		return fmt.Errorf("tgts_per_mshr must be > 0")
	}
	return nil
}

func (t TournamentConfig) validate() error {
	sizes := map[string]int{
		"local_predictor_size":     t.LocalPredictorSize,
		"local_history_table_size": t.LocalHistoryTableSize,
		"global_predictor_size":    t.GlobalPredictorSize,
		"choice_predictor_size":    t.ChoicePredictorSize,
	}
	for name, v := range sizes {
		if v <= 0 || v&(v-1) != 0 {
			return fmt.Errorf("%s must be a power of 2, got %d", name, v)
		}
	}
	if t.LocalCtrBits <= 0 || t.GlobalCtrBits <= 0 || t.ChoiceCtrBits <= 0 {
		return fmt.Errorf("counter widths must be > 0")
	}
	return nil
}

// Clone returns a deep copy of the Config.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}
