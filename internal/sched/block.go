package sched

import (
	"github.com/behrlich/go-actly/internal/constants"
	"github.com/behrlich/go-actly/internal/proc"
)

// Block moves core's running process into the waiting queue for reason and
// schedules the next process, restoring its context when there is one. The
// blocked process stays off every ready queue until Wake. Returns the next
// process, nil when the core goes idle.
func (t *Table) Block(core uint32, p *proc.PCB, reason proc.BlockReason) *proc.PCB {
	if !t.validCore(core) || p == nil {
		return nil
	}
	if reason < proc.BlockReceive || reason > proc.BlockIO {
		return nil
	}
	s := &t.states[core]
	s.Mu.Lock()
	if s.Current == proc.NilIdx || s.Current != p.Self || p.State != proc.StateRunning {
		s.Mu.Unlock()
		return nil
	}
	t.ctxOps.Save(p)
	p.Transition(proc.StateWaiting)
	p.BlockingReason = reason
	p.Unlink()
	t.pushTail(&s.Waiting[reason.WaitIndex()], p)
	s.Current = proc.NilIdx
	s.Stats.Blocks++
	if t.obs != nil {
		t.obs.ObserveBlock(core, reason)
	}
	next := t.scheduleLocked(s)
	s.Mu.Unlock()
	if next != nil {
		t.ctxOps.Restore(next)
	}
	return next
}

// Wake moves a Waiting process back to Ready on core, granting it a fresh
// reduction budget. Callable from any core; the target scheduler's mutex
// serializes it against the owner. Returns false when p is not Waiting.
func (t *Table) Wake(core uint32, p *proc.PCB) bool {
	if !t.validCore(core) || p == nil {
		return false
	}
	s := &t.states[core]
	s.Mu.Lock()
	defer s.Mu.Unlock()
	if p.State != proc.StateWaiting {
		return false
	}
	wq := &s.Waiting[p.BlockingReason.WaitIndex()]
	t.unlink(wq, p)
	p.Transition(proc.StateReady)
	p.BlockingReason = proc.BlockNone
	p.BlockingData = 0
	p.WakeTime = 0
	p.ReductionCount = constants.DefaultReductions
	if s.Current == proc.NilIdx {
		s.Reductions = constants.DefaultReductions
	}
	t.pushTail(&s.Ready[p.Priority], p)
	s.Stats.Wakes++
	if t.obs != nil {
		t.obs.ObserveWake(core, p.Pid)
	}
	return true
}

// BlockOnReceive delivers a matching message immediately, or blocks the
// process on its mailbox. pattern may be proc.WildcardPattern to take any
// message. Returns the message when one was already queued; nil when the
// process blocked (or on invalid arguments).
func (t *Table) BlockOnReceive(core uint32, p *proc.PCB, pattern uint64) *proc.Message {
	if !t.validCore(core) || p == nil {
		return nil
	}
	mq := t.arena.Queue(p.MsgQ)
	if mq == nil {
		return nil
	}
	if m := mq.TakeMatch(pattern); m != nil {
		return m
	}
	p.BlockingData = pattern
	mq.SetBlocked(p.Self)
	if t.Block(core, p, proc.BlockReceive) == nil && p.State != proc.StateWaiting {
		// Block refused (e.g. p was not current); undo the rendezvous.
		mq.ClearBlocked()
	}
	return nil
}

// BlockOnTimer blocks the process until timeoutTicks from now have passed.
// Rejects timeouts beyond MaxBlockingTime. The sleeper is released by the
// owner's CheckTimerWakeups sweep.
func (t *Table) BlockOnTimer(core uint32, p *proc.PCB, timeoutTicks uint64) bool {
	if !t.validCore(core) || p == nil {
		return false
	}
	if timeoutTicks == 0 || timeoutTicks > constants.MaxBlockingTime {
		return false
	}
	wake := t.clock.Now() + timeoutTicks
	prev := p.WakeTime
	p.WakeTime = wake
	if t.Block(core, p, proc.BlockTimer) == nil && p.State != proc.StateWaiting {
		p.WakeTime = prev
		return false
	}
	return true
}

// BlockOnIO blocks the process on an opaque I/O descriptor. Completion is
// reported through CompleteIO.
func (t *Table) BlockOnIO(core uint32, p *proc.PCB, descriptor uint64) bool {
	if !t.validCore(core) || p == nil {
		return false
	}
	prev := p.BlockingData
	p.BlockingData = descriptor
	if t.Block(core, p, proc.BlockIO) == nil && p.State != proc.StateWaiting {
		p.BlockingData = prev
		return false
	}
	return true
}

// CheckTimerWakeups wakes every timer sleeper on core whose deadline has
// passed. Owner-only; returns the number woken.
func (t *Table) CheckTimerWakeups(core uint32) int {
	if !t.validCore(core) {
		return 0
	}
	s := &t.states[core]
	now := t.clock.Now()

	// Collect expired sleepers first; Wake edits the list under the same
	// mutex and would invalidate a live iteration.
	s.Mu.Lock()
	var expired []*proc.PCB
	wq := &s.Waiting[proc.BlockTimer.WaitIndex()]
	for idx := wq.Head; idx != proc.NilIdx; {
		p := t.arena.Get(idx)
		if p == nil {
			break
		}
		if p.WakeTime <= now {
			expired = append(expired, p)
		}
		idx = p.Next
	}
	s.Mu.Unlock()

	woken := 0
	for _, p := range expired {
		if t.Wake(core, p) {
			woken++
		}
	}
	return woken
}

// CompleteIO wakes every process on core blocked on descriptor. Returns the
// number woken.
func (t *Table) CompleteIO(core uint32, descriptor uint64) int {
	if !t.validCore(core) {
		return 0
	}
	s := &t.states[core]

	s.Mu.Lock()
	var done []*proc.PCB
	wq := &s.Waiting[proc.BlockIO.WaitIndex()]
	for idx := wq.Head; idx != proc.NilIdx; {
		p := t.arena.Get(idx)
		if p == nil {
			break
		}
		if p.BlockingData == descriptor {
			done = append(done, p)
		}
		idx = p.Next
	}
	s.Mu.Unlock()

	woken := 0
	for _, p := range done {
		if t.Wake(core, p) {
			woken++
		}
	}
	return woken
}

// Send appends a message to target's mailbox. If target is blocked on a
// receive whose pattern matches (or is the wildcard), it is woken on its
// own scheduler, per the rendezvous contract.
func (t *Table) Send(target *proc.PCB, pattern, payload uint64) bool {
	if target == nil {
		return false
	}
	mq := t.arena.Queue(target.MsgQ)
	if mq == nil {
		return false
	}
	receiver, wake := mq.Enqueue(pattern, payload)
	if !wake {
		return true
	}
	p := t.arena.Get(receiver)
	if p == nil {
		return true
	}
	want := p.BlockingData
	if want != proc.WildcardPattern && want != pattern {
		// Not the message the receiver is selecting on; leave it blocked
		// and restore the rendezvous for the next sender.
		mq.SetBlocked(receiver)
		return true
	}
	t.Wake(p.SchedulerID, p)
	return true
}
