package sched

import "github.com/behrlich/go-actly/internal/proc"

// yieldExhaustionThreshold is the residual at or below which YieldCheck
// reports exhaustion. The sources this scheduler derives from disagree on
// whether a residual of 1 already counts; keeping the boundary in one place
// lets either reading be restored with a one-line change.
var yieldExhaustionThreshold int32 = 0

// DecrementReductionsWithCheck charges one reduction to core's running
// process. When the budget hits zero the process is moved Running -> Ready
// and re-enqueued at the tail of its priority, leaving the core without a
// current process; the dispatcher re-enters Schedule. Returns true when the
// process was preempted.
func (t *Table) DecrementReductionsWithCheck(core uint32) bool {
	if !t.validCore(core) {
		return false
	}
	s := &t.states[core]
	s.Mu.Lock()
	defer s.Mu.Unlock()

	p := t.arena.Get(s.Current)
	if p == nil {
		return false
	}
	s.Reductions--
	p.ReductionCount = s.Reductions
	if s.Reductions > 0 {
		return false
	}
	if s.Reductions < 0 {
		s.Reductions = 0
		p.ReductionCount = 0
	}
	t.requeueCurrentLocked(s, p)
	return true
}

// YieldCheck reports whether p has exhausted its reduction budget.
func (t *Table) YieldCheck(core uint32, p *proc.PCB) bool {
	if !t.validCore(core) || p == nil {
		return false
	}
	return p.ReductionCount <= yieldExhaustionThreshold
}

// requeueCurrentLocked moves the running process back to Ready at the tail
// of its priority queue and clears the current slot.
func (t *Table) requeueCurrentLocked(s *State, p *proc.PCB) {
	p.Transition(proc.StateReady)
	t.pushTail(&s.Ready[p.Priority], p)
	s.Current = proc.NilIdx
}

// Preempt forces core's running process out: Running -> Ready, re-enqueued
// at its priority tail (round-robin), then the next process is scheduled
// and returned (nil when none). p must be the current process.
func (t *Table) Preempt(core uint32, p *proc.PCB) *proc.PCB {
	if !t.validCore(core) || p == nil {
		return nil
	}
	s := &t.states[core]
	s.Mu.Lock()
	defer s.Mu.Unlock()
	if s.Current == proc.NilIdx || s.Current != p.Self || p.State != proc.StateRunning {
		return nil
	}
	t.ctxOps.Save(p)
	t.requeueCurrentLocked(s, p)
	return t.scheduleLocked(s)
}

// Yield is the voluntary twin of Preempt. Always yields.
func (t *Table) Yield(core uint32, p *proc.PCB) *proc.PCB {
	if !t.validCore(core) || p == nil {
		return nil
	}
	s := &t.states[core]
	s.Mu.Lock()
	defer s.Mu.Unlock()
	if s.Current == proc.NilIdx || s.Current != p.Self || p.State != proc.StateRunning {
		return nil
	}
	s.Stats.Yields++
	t.ctxOps.Save(p)
	t.requeueCurrentLocked(s, p)
	return t.scheduleLocked(s)
}

// YieldConditional yields only when some other process is ready to run.
// Returns true when a yield happened.
func (t *Table) YieldConditional(core uint32, p *proc.PCB) bool {
	if !t.validCore(core) || p == nil {
		return false
	}
	s := &t.states[core]
	s.Mu.Lock()
	defer s.Mu.Unlock()
	if s.Current == proc.NilIdx || s.Current != p.Self || p.State != proc.StateRunning {
		return false
	}
	if t.readyCountLocked(s) == 0 && s.Deque.IsEmpty() {
		return false
	}
	s.Stats.Yields++
	t.ctxOps.Save(p)
	t.requeueCurrentLocked(s, p)
	t.scheduleLocked(s)
	return true
}
