// Package topology describes the cores a runtime schedules on: performance
// versus efficiency class, cluster, and NUMA node. The table is built once
// at startup and read-only afterwards. Synthetic builds a fixed layout;
// Detect populates the table from sysfs on Linux and returns the synthetic
// layout elsewhere.
package topology

import "github.com/behrlich/go-actly/internal/constants"

// CoreType classifies a core.
type CoreType uint32

const (
	CoreEfficiency CoreType = iota
	CorePerformance
)

func (c CoreType) String() string {
	if c == CorePerformance {
		return "performance"
	}
	return "efficiency"
}

// ProcessType is the workload hint used when asking for an optimal core.
type ProcessType uint32

const (
	ProcessCpuIntensive ProcessType = iota
	ProcessIoBound

	numProcessTypes
)

// Info describes one core.
type Info struct {
	Type    CoreType
	Cluster uint32
	NUMA    uint32
}

// Table is the per-runtime core map.
type Table struct {
	cores []Info
}

// Synthetic builds a topology for n cores without consulting the host:
// all performance cores, four cores per cluster, eight per NUMA node.
// It is the runtime's layout unless host detection is configured, Detect's
// result outside Linux, and the layout tests use.
func Synthetic(n uint32) *Table {
	if n == 0 || n > constants.MaxCores {
		return nil
	}
	cores := make([]Info, n)
	for i := range cores {
		cores[i] = Info{
			Type:    CorePerformance,
			Cluster: uint32(i) / 4,
			NUMA:    uint32(i) / 8,
		}
	}
	return &Table{cores: cores}
}

// NewTable builds a topology from explicit per-core info. Used by tests
// that need heterogeneous layouts.
func NewTable(cores []Info) *Table {
	if len(cores) == 0 || len(cores) > constants.MaxCores {
		return nil
	}
	c := make([]Info, len(cores))
	copy(c, cores)
	return &Table{cores: c}
}

// NumCores returns the table size.
func (t *Table) NumCores() uint32 {
	if t == nil {
		return 0
	}
	return uint32(len(t.cores))
}

func (t *Table) valid(core uint32) bool {
	return t != nil && core < uint32(len(t.cores))
}

// CoreType returns the class of core.
func (t *Table) CoreType(core uint32) (CoreType, bool) {
	if !t.valid(core) {
		return CoreEfficiency, false
	}
	return t.cores[core].Type, true
}

// IsPerformanceCore reports whether core is a performance core. Invalid
// cores report false.
func (t *Table) IsPerformanceCore(core uint32) bool {
	ct, ok := t.CoreType(core)
	return ok && ct == CorePerformance
}

// Cluster returns the cluster id of core.
func (t *Table) Cluster(core uint32) (uint32, bool) {
	if !t.valid(core) {
		return 0, false
	}
	return t.cores[core].Cluster, true
}

// NUMANode returns the NUMA node of core.
func (t *Table) NUMANode(core uint32) (uint32, bool) {
	if !t.valid(core) {
		return 0, false
	}
	return t.cores[core].NUMA, true
}

// OptimalCore suggests a core for a workload type: CPU-intensive work
// prefers a performance core, I/O-bound work an efficiency core. When the
// preferred class does not exist the first core is returned. Unknown
// workload types fail.
func (t *Table) OptimalCore(pt ProcessType) (uint32, bool) {
	if t == nil || pt >= numProcessTypes {
		return 0, false
	}
	want := CorePerformance
	if pt == ProcessIoBound {
		want = CoreEfficiency
	}
	for core := range t.cores {
		if t.cores[core].Type == want {
			return uint32(core), true
		}
	}
	return 0, true
}
