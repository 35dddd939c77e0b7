package gem5_test

import (
	"bytes"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/ilpsweep/gem5"
	"github.com/sarchlab/ilpsweep/system"
	"github.com/sarchlab/ilpsweep/workload"
)

var _ = Describe("Render", func() {
	var proc workload.Process

	render := func(root *system.Root) string {
		var buf bytes.Buffer
		Expect(gem5.Render(&buf, root)).To(Succeed())
		return buf.String()
	}

	BeforeEach(func() {
		proc = workload.NewProcess("tests/test-progs/hello/bin/x86/linux/hello")
	})

	It("should describe the system", func() {
		script := render(newRoot(false, proc))

		Expect(script).To(ContainSubstring(`system.clk_domain.clock = "1GHz"`))
		Expect(script).To(ContainSubstring(`system.clk_domain.voltage_domain = VoltageDomain(voltage="1V")`))
		Expect(script).To(ContainSubstring(`system.mem_mode = "timing"`))
		Expect(script).To(ContainSubstring(`system.mem_ranges = [AddrRange("512MB")]`))
		Expect(script).To(ContainSubstring("system.mem_ctrl.dram = DDR4_2400_8x8()"))
		Expect(script).To(ContainSubstring("system.cpu = X86O3CPU()\nsystem.cpu.numThreads = 1\n"))
		Expect(script).To(ContainSubstring("system.membus = SystemXBar()"))
		Expect(script).To(ContainSubstring("system.cpu.createInterruptController()"))
	})

	It("should configure both caches", func() {
		script := render(newRoot(false, proc))

		Expect(script).To(ContainSubstring("system.cpu.icache = Cache(\n    size=\"16kB\",\n    assoc=2,"))
		Expect(script).To(ContainSubstring("system.cpu.dcache = Cache(\n    size=\"64kB\",\n    assoc=2,"))
		Expect(script).To(ContainSubstring("tgts_per_mshr=20,"))
	})

	It("should connect ports in order", func() {
		script := render(newRoot(false, proc))

		Expect(script).To(ContainSubstring(
			"system.cpu.icache_port = system.cpu.icache.cpu_side\n" +
				"system.cpu.dcache_port = system.cpu.dcache.cpu_side\n" +
				"system.cpu.icache.mem_side = system.membus.cpu_side_ports\n" +
				"system.cpu.dcache.mem_side = system.membus.cpu_side_ports\n" +
				"system.membus.mem_side_ports = system.mem_ctrl.port\n"))
		Expect(script).To(ContainSubstring("system.system_port = system.membus.cpu_side_ports\n"))
	})

	It("should disable branch prediction when not requested", func() {
		script := render(newRoot(false, proc))

		Expect(script).To(ContainSubstring("system.cpu.branchPred = NULL\n"))
		Expect(script).NotTo(ContainSubstring("TournamentBP"))
	})

	It("should attach a tournament predictor when requested", func() {
		script := render(newRoot(true, proc))

		Expect(script).To(ContainSubstring("system.cpu.branchPred = TournamentBP(\n"))
		Expect(script).To(ContainSubstring("localPredictorSize=2048,"))
		Expect(script).To(ContainSubstring("globalPredictorSize=8192,"))
		Expect(script).To(ContainSubstring("choiceCtrBits=2,"))
		Expect(script).NotTo(ContainSubstring("branchPred = NULL"))
	})

	It("should set up the workload", func() {
		script := render(newRoot(false, proc))

		Expect(script).To(ContainSubstring(
			`system.workload = SEWorkload.init_compatible("tests/test-progs/hello/bin/x86/linux/hello")`))
		Expect(script).To(ContainSubstring(
			`process.cmd = ["tests/test-progs/hello/bin/x86/linux/hello"]`))
		Expect(script).To(ContainSubstring("system.cpu.workload = process\nsystem.cpu.createThreads()\n"))
		Expect(script).NotTo(ContainSubstring("process.cwd"))
		Expect(script).NotTo(ContainSubstring("process.env"))
	})

	It("should pass arguments, working directory and environment", func() {
		proc = workload.NewProcess("bin/sort", "-n", `it's "quoted"`)
		proc.Cwd = "/tmp/work"
		proc.Env = []string{"OMP_NUM_THREADS=1"}

		script := render(newRoot(false, proc))

		Expect(script).To(ContainSubstring(`process.cmd = ["bin/sort", "-n", "it's \"quoted\""]`))
		Expect(script).To(ContainSubstring(`process.cwd = "/tmp/work"`))
		Expect(script).To(ContainSubstring(`process.env = ["OMP_NUM_THREADS=1"]`))
	})

	It("should instantiate, simulate and dump", func() {
		script := render(newRoot(false, proc))

		Expect(script).To(ContainSubstring("root = Root(full_system=False, system=system)\nm5.instantiate()\n"))
		Expect(script).To(ContainSubstring("m5.stats.periodicStatDump(1000000)"))
		Expect(script).To(ContainSubstring("exit_event = m5.simulate()"))
		Expect(script).To(ContainSubstring(`print("@@ilpsweep exit tick={} code={} cause={}"`))
		Expect(script).To(HaveSuffix("m5.stats.dump()\nm5.stats.reset()\n"))
	})

	It("should skip periodic dumps when disabled", func() {
		config := system.DefaultConfig()
		config.StatsDumpPeriod = ""

		sys, err := system.MakeBuilder().WithConfig(config).Build()
		Expect(err).NotTo(HaveOccurred())
		sys.CPU.SetWorkload(proc)

		var buf bytes.Buffer
		Expect(gem5.Render(&buf, system.NewRoot(false, sys))).To(Succeed())
		Expect(buf.String()).NotTo(ContainSubstring("periodicStatDump"))
	})

	It("should refuse a system without a workload", func() {
		sys, err := system.Create(false, 1)
		Expect(err).NotTo(HaveOccurred())

		var buf bytes.Buffer
		err = gem5.Render(&buf, system.NewRoot(false, sys))
		Expect(err).To(MatchError(system.ErrNoWorkload))
	})
})
