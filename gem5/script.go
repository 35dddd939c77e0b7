package gem5

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/template"

	"github.com/sarchlab/ilpsweep/system"
)

// exitMarker prefixes the machine-readable exit line printed by the script.
const exitMarker = "@@ilpsweep exit"

var scriptTemplate = template.Must(template.New("config").Funcs(template.FuncMap{
	"py":     pyString,
	"pylist": pyList,
	"pybool": pyBool,
}).Parse(`# Generated by ilpsweep. Do not edit.
import m5
from m5.objects import *

system = System()
system.clk_domain = SrcClockDomain()
system.clk_domain.clock = {{py .Clock}}
system.clk_domain.voltage_domain = VoltageDomain(voltage={{py .Voltage}})
system.mem_mode = {{py .MemMode}}
system.mem_ranges = [AddrRange({{py .MemSize}})]

system.mem_ctrl = MemCtrl()
system.mem_ctrl.dram = {{.DRAM}}()
system.mem_ctrl.dram.range = system.mem_ranges[0]

system.cpu = {{.CPUType}}()
system.cpu.numThreads = {{.NumThreads}}
{{- with .BranchPred}}
system.cpu.branchPred = {{.Type}}(
    localPredictorSize={{.Tournament.LocalPredictorSize}},
    localCtrBits={{.Tournament.LocalCtrBits}},
    localHistoryTableSize={{.Tournament.LocalHistoryTableSize}},
    globalPredictorSize={{.Tournament.GlobalPredictorSize}},
    globalCtrBits={{.Tournament.GlobalCtrBits}},
    choicePredictorSize={{.Tournament.ChoicePredictorSize}},
    choiceCtrBits={{.Tournament.ChoiceCtrBits}},
)
{{- else}}
system.cpu.branchPred = NULL
{{- end}}
{{range .Caches}}
system.cpu.{{.Name}} = Cache(
    size={{py .Size}},
    assoc={{.Associativity}},
    tag_latency={{.TagLatency}},
    data_latency={{.DataLatency}},
    response_latency={{.ResponseLatency}},
    mshrs={{.MSHRs}},
    tgts_per_mshr={{.TargetsPerMSHR}},
)
{{- end}}

system.membus = SystemXBar()
system.cpu.createInterruptController()
{{range .Edges}}
{{.Request}} = {{.Response}}
{{- end}}

system.workload = SEWorkload.init_compatible({{py .Executable}})

process = Process()
process.cmd = {{pylist .Cmd}}
{{- if .Cwd}}
process.cwd = {{py .Cwd}}
{{- end}}
{{- if .Env}}
process.env = {{pylist .Env}}
{{- end}}
system.cpu.workload = process
system.cpu.createThreads()

root = Root(full_system={{pybool .FullSystem}}, system=system)
m5.instantiate()
{{- if .StatsDumpPeriod}}
m5.stats.periodicStatDump({{.StatsDumpPeriod}})
{{- end}}

exit_event = m5.simulate()
print("` + exitMarker + ` tick={} code={} cause={}".format(
    m5.curTick(), exit_event.getCode(), exit_event.getCause()), flush=True)

m5.stats.dump()
m5.stats.reset()
`))

type cacheView struct {
	Name string
	system.CacheConfig
}

type edgeView struct {
	Request  string
	Response string
}

type scriptView struct {
	Clock           string
	Voltage         string
	MemMode         string
	MemSize         string
	DRAM            string
	CPUType         string
	NumThreads      int
	BranchPred      *system.BranchPredictor
	Caches          []cacheView
	Edges           []edgeView
	Executable      string
	Cmd             []string
	Cwd             string
	Env             []string
	FullSystem      bool
	StatsDumpPeriod uint64
}

// Render writes the gem5 config script for root. The CPU must have a
// workload attached.
func Render(w io.Writer, root *system.Root) error {
	view, err := newScriptView(root)
	if err != nil {
		return err
	}

	if err := scriptTemplate.Execute(w, view); err != nil {
		return fmt.Errorf("failed to render gem5 config: %w", err)
	}

	return nil
}

func newScriptView(root *system.Root) (*scriptView, error) {
	s := root.System
	if s == nil || s.CPU == nil {
		return nil, fmt.Errorf("root has no system")
	}

	proc := s.CPU.Workload
	if proc == nil || proc.Executable() == "" {
		return nil, system.ErrNoWorkload
	}

	view := &scriptView{
		Clock:           system.FormatClock(s.ClkDomain.Clock),
		Voltage:         s.ClkDomain.VoltageDomain.Voltage,
		MemMode:         s.MemMode,
		MemSize:         system.FormatSize(s.MemRanges[0].Size),
		DRAM:            s.MemCtrl.DRAM,
		CPUType:         s.CPU.Type,
		NumThreads:      s.CPU.NumThreads,
		BranchPred:      s.CPU.BranchPred,
		Executable:      proc.Executable(),
		Cmd:             proc.Cmd,
		Cwd:             proc.Cwd,
		Env:             proc.Env,
		FullSystem:      root.FullSystem,
		StatsDumpPeriod: s.StatsDumpPeriod,
		Caches: []cacheView{
			{Name: "icache", CacheConfig: s.CPU.ICache.Config},
			{Name: "dcache", CacheConfig: s.CPU.DCache.Config},
		},
	}

	for _, e := range s.Connections() {
		view.Edges = append(view.Edges, edgeView{
			Request:  e.Request.Path(),
			Response: e.Response.Path(),
		})
	}

	return view, nil
}

func pyString(s string) string {
	return strconv.Quote(s)
}

func pyList(items []string) string {
	quoted := make([]string, len(items))
	for i, item := range items {
		quoted[i] = pyString(item)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}

func pyBool(b bool) string {
	if b {
		return "True"
	}
	return "False"
}
