package sched

import (
	"github.com/behrlich/go-actly/internal/constants"
	"github.com/behrlich/go-actly/internal/proc"
	"github.com/behrlich/go-actly/internal/segpool"
)

// Trap is a BIF's scheduling decision.
type Trap int

const (
	// TrapContinue means the BIF may do its work and return to the caller.
	TrapContinue Trap = iota

	// TrapPreempted means the reduction budget ran out; the process has
	// been context-switched out and the BIF must return as if it failed.
	TrapPreempted
)

// TrapCheck charges cost reductions to core's running process before a BIF
// does any work. If the budget cannot cover the cost, or hits exactly zero
// after paying it, the process is preempted. Invalid arguments (bad core,
// idle core) also report Preempted so the calling BIF refuses its work.
func (t *Table) TrapCheck(core uint32, cost int32) Trap {
	if !t.validCore(core) || cost < 0 {
		return TrapPreempted
	}
	s := &t.states[core]
	s.Mu.Lock()
	defer s.Mu.Unlock()

	p := t.arena.Get(s.Current)
	if p == nil {
		return TrapPreempted
	}
	if s.Reductions < cost {
		t.ctxOps.Save(p)
		t.requeueCurrentLocked(s, p)
		return TrapPreempted
	}
	s.Reductions -= cost
	p.ReductionCount = s.Reductions
	if s.Reductions == 0 {
		t.ctxOps.Save(p)
		t.requeueCurrentLocked(s, p)
		return TrapPreempted
	}
	return TrapContinue
}

// YieldBIF is the yield built-in: after the trap check it unconditionally
// yields the current process. Returns false when the trap already preempted
// or there was nothing to yield.
func (t *Table) YieldBIF(core uint32) bool {
	if t.TrapCheck(core, constants.BifYieldCost) == TrapPreempted {
		return false
	}
	p := t.CurrentProcess(core)
	if p == nil {
		return false
	}
	t.Yield(core, p)
	return true
}

// SpawnBIF is the spawn built-in: creates a process running entry at prio
// with the given stack and heap sizes and enqueues it on core. Returns the
// new pid, or 0 on preemption, bad arguments, or pool exhaustion.
//
// stackSize and heapSize of 0 select the defaults; explicit sizes must fall
// within [default, max].
func (t *Table) SpawnBIF(core uint32, entry uint64, prio proc.Priority, stackSize, heapSize uint64) uint64 {
	if t.TrapCheck(core, constants.BifSpawnCost) == TrapPreempted {
		return 0
	}
	p := t.CreateProcess(entry, prio, stackSize, heapSize)
	if p == nil {
		return 0
	}
	p.Transition(proc.StateReady)
	if !t.Enqueue(core, p, prio) {
		t.DestroyProcess(p)
		return 0
	}
	if t.obs != nil {
		t.obs.ObserveSpawn(core, p.Pid)
	}
	return p.Pid
}

// ExitBIF is the exit built-in: terminates core's running process, storing
// reason for post-mortem inspection, releasing its mailbox and memory
// segments, and scheduling the next process. The exited process is never
// re-enqueued and control never returns to it; the dispatcher resumes with
// whatever Schedule produced. Returns false when the trap preempted first
// (the process will re-issue the exit when rescheduled).
func (t *Table) ExitBIF(core uint32, reason uint64) bool {
	if t.TrapCheck(core, constants.BifExitCost) == TrapPreempted {
		return false
	}
	s := &t.states[core]
	s.Mu.Lock()
	p := t.arena.Get(s.Current)
	if p == nil {
		s.Mu.Unlock()
		return false
	}
	p.BlockingData = reason
	p.Transition(proc.StateTerminated)
	s.Current = proc.NilIdx
	pid := p.Pid
	s.Mu.Unlock()

	t.DestroyProcess(p)
	if t.obs != nil {
		t.obs.ObserveExit(core, pid)
	}

	s.Mu.Lock()
	next := t.scheduleLocked(s)
	s.Mu.Unlock()
	if next != nil {
		t.ctxOps.Restore(next)
	}
	return true
}

// CreateProcess allocates and initializes a PCB without enqueueing it. Size
// zero selects the default segment; explicit sizes must fall within
// [default, max]. Returns nil on bad arguments or pool exhaustion.
func (t *Table) CreateProcess(entry uint64, prio proc.Priority, stackSize, heapSize uint64) *proc.PCB {
	if !prio.Valid() {
		return nil
	}
	if stackSize == 0 {
		stackSize = constants.DefaultStackSize
	}
	if heapSize == 0 {
		heapSize = constants.DefaultHeapSize
	}
	if stackSize < constants.DefaultStackSize || stackSize > constants.MaxStackSize {
		return nil
	}
	if heapSize < constants.DefaultHeapSize || heapSize > constants.MaxHeapSize {
		return nil
	}
	p := t.arena.Alloc()
	if p == nil {
		return nil
	}
	p.EntryPoint = entry
	p.Priority = prio
	stack := segpool.GetStack(stackSize)
	heap := segpool.GetHeap(heapSize)
	t.arena.SetSegments(p.Self, stack, heap)
	p.Stack = proc.MemDesc{Size: stackSize, Limit: stackSize}
	p.Heap = proc.MemDesc{Size: heapSize, Limit: heapSize}
	p.ReductionCount = constants.DefaultReductions
	return p
}

// DestroyProcess tears a process down: mailbox dropped, segments recycled,
// slab freed. The PCB must already be off every queue.
func (t *Table) DestroyProcess(p *proc.PCB) bool {
	if p == nil {
		return false
	}
	t.arena.DropQueue(p.MsgQ)
	stack, heap := t.arena.TakeSegments(p.Self)
	segpool.PutStack(stack)
	segpool.PutHeap(heap)
	return t.arena.Free(p)
}
