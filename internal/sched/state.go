// Package sched implements the per-core scheduler: priority run queues,
// reduction accounting, blocking and wake, work stealing, and the built-in
// operations that drive it all.
//
// Each scheduler state is single-writer by its owning core. The exceptions
// are thief-side deque pops (synchronized by the deque's CAS on top) and
// cross-core wakes and enqueues, which serialize on the per-scheduler mutex.
package sched

import (
	"sync"
	"unsafe"

	"github.com/behrlich/go-actly/internal/constants"
	"github.com/behrlich/go-actly/internal/deque"
	"github.com/behrlich/go-actly/internal/interfaces"
	"github.com/behrlich/go-actly/internal/proc"
	"github.com/behrlich/go-actly/internal/topology"
)

// Queue is one intrusive FIFO of PCBs, linked through the PCB Next/Prev
// arena indices. Empty means Head == NilIdx, Tail == NilIdx, Count == 0.
type Queue struct {
	Head  int32
	Tail  int32
	Count uint32
	_     uint32
	_     uint64
}

// Stats is the per-scheduler statistics block.
type Stats struct {
	Scheduled  uint32
	Yields     uint32
	Migrations uint32
	Blocks     uint32
	Wakes      uint32
	Idles      uint32
}

// State is one per-core scheduler record.
//
// Current is the arena index of the running process (NilIdx when the core
// is idle); Reductions is the residual budget of that process. Mu
// serializes cross-core wakes and enqueues against the owner, per the
// shared-resource contract.
type State struct {
	CoreID     uint32
	Flags      uint32
	Ready      [constants.NumPriorities]Queue
	Waiting    [proc.NumWaitReasons]Queue
	Current    int32
	Reductions int32
	Stats      Stats
	Deque      *deque.Deque
	Mu         sync.Mutex
	rng        uint64
	_          [8]byte
}

// Compile-time size pins for the queue and scheduler records.
var _ [constants.QueueRecordSize]byte = [unsafe.Sizeof(Queue{})]byte{}
var _ [constants.SchedulerRecordSize]byte = [unsafe.Sizeof(State{})]byte{}

// StealStrategy selects how a thief picks its victim.
type StealStrategy uint32

const (
	StealRandom StealStrategy = iota
	StealByLoad
	StealLocality
)

// Options configures a scheduler table. Zero values select the defaults:
// tick clock, no-op context capability, work stealing on, random victim
// selection, synthetic topology, default deque capacity.
type Options struct {
	Clock         interfaces.Clock
	ContextOps    interfaces.ContextOps
	Observer      interfaces.Observer
	Topology      *topology.Table
	Strategy      StealStrategy
	DequeCapacity int
	DisableSteal  bool
}

// Table is the scheduler array: one State per core plus the shared PCB
// arena and capabilities. It is the handle every core entry point takes.
type Table struct {
	arena    *proc.Arena
	states   []State
	topo     *topology.Table
	clock    interfaces.Clock
	ctxOps   interfaces.ContextOps
	obs      interfaces.Observer
	strategy StealStrategy
	stealOn  bool
	maxCores uint32
}

// NewTable creates scheduler states for maxCores cores. maxCores must be in
// [1, constants.MaxCores].
func NewTable(maxCores uint32, opts Options) *Table {
	if maxCores == 0 || maxCores > constants.MaxCores {
		return nil
	}
	capacity := opts.DequeCapacity
	if capacity == 0 {
		capacity = constants.DefaultDequeCapacity
	}
	clock := opts.Clock
	if clock == nil {
		clock = NewTickClock()
	}
	ctxOps := opts.ContextOps
	if ctxOps == nil {
		ctxOps = noopContextOps{}
	}
	topo := opts.Topology
	if topo == nil {
		topo = topology.Synthetic(maxCores)
	}

	t := &Table{
		arena:    proc.NewArena(),
		states:   make([]State, maxCores),
		topo:     topo,
		clock:    clock,
		ctxOps:   ctxOps,
		obs:      opts.Observer,
		strategy: opts.Strategy,
		stealOn:  !opts.DisableSteal && constants.WorkStealEnabled == 1,
		maxCores: maxCores,
	}
	for i := range t.states {
		t.initState(uint32(i), capacity)
	}
	return t
}

// initState resets one scheduler state to empty.
func (t *Table) initState(core uint32, dequeCapacity int) {
	s := &t.states[core]
	s.CoreID = core
	s.Current = proc.NilIdx
	s.Reductions = 0
	s.Stats = Stats{}
	s.rng = uint64(core)*0x9e3779b97f4a7c15 + 0x2545f4914f6cdd1d
	for i := range s.Ready {
		s.Ready[i] = Queue{Head: proc.NilIdx, Tail: proc.NilIdx}
	}
	for i := range s.Waiting {
		s.Waiting[i] = Queue{Head: proc.NilIdx, Tail: proc.NilIdx}
	}
	s.Deque = deque.New(dequeCapacity)
}

// Arena exposes the PCB pool.
func (t *Table) Arena() *proc.Arena { return t.arena }

// Topology exposes the core topology table.
func (t *Table) Topology() *topology.Table { return t.topo }

// MaxCores returns the number of scheduler states.
func (t *Table) MaxCores() uint32 { return t.maxCores }

// Clock returns the tick source.
func (t *Table) Clock() interfaces.Clock { return t.clock }

// validCore reports whether core names a scheduler in this table.
func (t *Table) validCore(core uint32) bool {
	return core < t.maxCores
}

// State returns the scheduler state for core, or nil for an invalid core.
func (t *Table) State(core uint32) *State {
	if !t.validCore(core) {
		return nil
	}
	return &t.states[core]
}

// ReadyQueue returns the ready queue for a priority on a core, or nil.
func (t *Table) ReadyQueue(core uint32, prio proc.Priority) *Queue {
	if !t.validCore(core) || !prio.Valid() {
		return nil
	}
	return &t.states[core].Ready[prio]
}

// WaitingQueue returns the waiting queue for a blocking reason on a core,
// or nil for invalid arguments or BlockNone.
func (t *Table) WaitingQueue(core uint32, reason proc.BlockReason) *Queue {
	if !t.validCore(core) || reason < proc.BlockReceive || reason > proc.BlockIO {
		return nil
	}
	return &t.states[core].Waiting[reason.WaitIndex()]
}

// QueueLength returns the count of a queue; nil queues have length 0.
func QueueLength(q *Queue) uint32 {
	if q == nil {
		return 0
	}
	return q.Count
}

// CurrentProcess returns the running process on core, or nil.
func (t *Table) CurrentProcess(core uint32) *proc.PCB {
	if !t.validCore(core) {
		return nil
	}
	return t.arena.Get(t.states[core].Current)
}

// SetCurrentProcess installs a process as the running one, used by the
// harness to construct scheduler situations directly. The PCB must already
// be Running or transitionable to it.
func (t *Table) SetCurrentProcess(core uint32, p *proc.PCB) bool {
	if !t.validCore(core) {
		return false
	}
	s := &t.states[core]
	if p == nil {
		s.Current = proc.NilIdx
		return true
	}
	if p.State != proc.StateRunning && !p.Transition(proc.StateRunning) {
		return false
	}
	p.SchedulerID = core
	s.Current = p.Self
	return true
}

// ReductionCount returns the residual reduction budget of core's running
// process slot.
func (t *Table) ReductionCount(core uint32) int32 {
	if !t.validCore(core) {
		return 0
	}
	return t.states[core].Reductions
}

// SetReductionCount overrides the residual budget, used by the harness.
func (t *Table) SetReductionCount(core uint32, n int32) bool {
	if !t.validCore(core) {
		return false
	}
	s := &t.states[core]
	s.Reductions = n
	if p := t.arena.Get(s.Current); p != nil {
		p.ReductionCount = n
	}
	return true
}

// noopContextOps is the default context capability: the register-save area
// is left untouched. The in-process dispatcher drives user code itself.
type noopContextOps struct{}

func (noopContextOps) Save(*proc.PCB)    {}
func (noopContextOps) Restore(*proc.PCB) {}
