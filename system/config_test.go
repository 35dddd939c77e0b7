package system_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/ilpsweep/system"
)

var _ = Describe("Config", func() {
	var tempDir string

	BeforeEach(func() {
		var err error
		tempDir, err = os.MkdirTemp("", "system-config-*")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		_ = os.RemoveAll(tempDir)
	})

	It("should validate the defaults", func() {
		Expect(system.DefaultConfig().Validate()).To(Succeed())
	})

	It("should round-trip through a file", func() {
		path := filepath.Join(tempDir, "system.yaml")
		config := system.DefaultConfig()
		config.Clock = "2GHz"
		config.L1I.Size = "32kB"

		Expect(config.SaveConfig(path)).To(Succeed())

		loaded, err := system.LoadConfig(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(loaded).To(Equal(config))
	})

	It("should keep defaults for missing keys", func() {
		path := filepath.Join(tempDir, "partial.yaml")
		Expect(os.WriteFile(path, []byte("clock: 3GHz\nl1d:\n  size: 128kB\n"), 0644)).To(Succeed())

		loaded, err := system.LoadConfig(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(loaded.Clock).To(Equal("3GHz"))
		Expect(loaded.MemSize).To(Equal("512MB"))
		Expect(loaded.L1D.Size).To(Equal("128kB"))
		Expect(loaded.L1D.Associativity).To(Equal(2))
	})

	It("should reject unknown keys", func() {
		path := filepath.Join(tempDir, "typo.yaml")
		Expect(os.WriteFile(path, []byte("clokc: 3GHz\n"), 0644)).To(Succeed())

		_, err := system.LoadConfig(path)
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("failed to parse system config"))
	})

	It("should reject invalid values on load", func() {
		path := filepath.Join(tempDir, "bad.yaml")
		Expect(os.WriteFile(path, []byte("cpu_type: ArmO3CPU\n"), 0644)).To(Succeed())

		_, err := system.LoadConfig(path)
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("x86"))
	})

	It("should fail on a missing file", func() {
		_, err := system.LoadConfig(filepath.Join(tempDir, "missing.yaml"))
		Expect(err).To(HaveOccurred())
	})

	DescribeTable("Validate",
		func(mutate func(c *system.Config), want string) {
			config := system.DefaultConfig()
			mutate(config)
			err := config.Validate()
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring(want))
		},
		Entry("bad mem mode", func(c *system.Config) { c.MemMode = "functional" }, "mem_mode"),
		Entry("bad mem size", func(c *system.Config) { c.MemSize = "lots" }, "mem_size"),
		Entry("bad dump period", func(c *system.Config) { c.StatsDumpPeriod = "1ms" }, "stats_dump_period"),
		Entry("unknown predictor", func(c *system.Config) { c.BranchPredictor = "BiModeBP" }, "branch_predictor"),
		Entry("non power of 2 table", func(c *system.Config) { c.Tournament.GlobalPredictorSize = 1000 }, "global_predictor_size"),
		Entry("zero assoc", func(c *system.Config) { c.L1I.Associativity = 0 }, "l1i"),
		Entry("zero mshrs", func(c *system.Config) { c.L1D.MSHRs = 0 }, "l1d"),
		Entry("empty dram", func(c *system.Config) { c.DRAM = "" }, "dram"),
		Entry("dram with code", func(c *system.Config) {
			c.DRAM = `DDR4_2400_8x8(); print("x"); y = DDR4_2400_8x8`
		}, "dram"),
		Entry("cpu type with code", func(c *system.Config) {
			c.CPUType = "X86O3CPU(); import os; z = X86O3CPU"
		}, "cpu_type"),
	)

	It("should clone independently", func() {
		config := system.DefaultConfig()
		clone := config.Clone()
		clone.L1I.Size = "8kB"
		Expect(config.L1I.Size).To(Equal("16kB"))
	})
})

var _ = Describe("Units", func() {
	DescribeTable("ParseClock",
		func(s string, want sim.Freq) {
			f, err := system.ParseClock(s)
			Expect(err).NotTo(HaveOccurred())
			Expect(f).To(Equal(want))
		},
		Entry("GHz", "1GHz", 1*sim.GHz),
		Entry("MHz", "800MHz", 800*sim.MHz),
		Entry("fractional", "2.5GHz", 2.5*sim.GHz),
	)

	It("should reject bad clocks", func() {
		_, err := system.ParseClock("1GB")
		Expect(err).To(HaveOccurred())
		_, err = system.ParseClock("0GHz")
		Expect(err).To(HaveOccurred())
	})

	It("should format clocks", func() {
		Expect(system.FormatClock(1 * sim.GHz)).To(Equal("1GHz"))
		Expect(system.FormatClock(2.5 * sim.GHz)).To(Equal("2.5GHz"))
		Expect(system.FormatClock(800 * sim.MHz)).To(Equal("800MHz"))
	})

	DescribeTable("ParseSize",
		func(s string, want uint64) {
			v, err := system.ParseSize(s)
			Expect(err).NotTo(HaveOccurred())
			Expect(v).To(Equal(want))
		},
		Entry("bytes", "64", uint64(64)),
		Entry("kB", "16kB", uint64(16*1024)),
		Entry("KiB", "16KiB", uint64(16*1024)),
		Entry("MB", "512MB", uint64(512*1024*1024)),
		Entry("GB", "2GB", uint64(2*1024*1024*1024)),
	)

	It("should reject sizes that overflow", func() {
		_, err := system.ParseSize("17179869185GB")
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("overflows"))

		v, err := system.ParseSize("17179869183GB")
		Expect(err).NotTo(HaveOccurred())
		Expect(v).To(Equal(uint64(17179869183) << 30))
	})

	It("should format sizes", func() {
		Expect(system.FormatSize(512 * 1024 * 1024)).To(Equal("512MB"))
		Expect(system.FormatSize(64 * 1024)).To(Equal("64kB"))
		Expect(system.FormatSize(1000)).To(Equal("1000B"))
	})

	It("should parse tick counts", func() {
		v, err := system.ParseTicks("1000000t")
		Expect(err).NotTo(HaveOccurred())
		Expect(v).To(Equal(uint64(1000000)))

		_, err = system.ParseTicks("10us")
		Expect(err).To(HaveOccurred())
	})
})
