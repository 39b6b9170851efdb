package sched

import (
	"github.com/behrlich/go-actly/internal/constants"
	"github.com/behrlich/go-actly/internal/proc"
)

// Enqueue appends p to core's ready queue for prio. The per-scheduler mutex
// is taken so remote wakers and the owner can enqueue concurrently; from
// the owner's point of view the enqueue is atomic.
func (t *Table) Enqueue(core uint32, p *proc.PCB, prio proc.Priority) bool {
	if !t.validCore(core) || p == nil || !prio.Valid() {
		return false
	}
	s := &t.states[core]
	s.Mu.Lock()
	t.pushTail(&s.Ready[prio], p)
	s.Mu.Unlock()
	return true
}

// Dequeue removes and returns the head of q, or nil when q is empty or nil.
func (t *Table) Dequeue(q *Queue) *proc.PCB {
	return t.popHead(q)
}

// Schedule picks the next process for core: the first non-empty ready queue
// scanning Max down to Low, FIFO within a level. When every ready queue is
// empty the owner's deque is drained LIFO before giving up. The picked
// process becomes Running with a fresh reduction budget.
func (t *Table) Schedule(core uint32) *proc.PCB {
	if !t.validCore(core) {
		return nil
	}
	s := &t.states[core]
	s.Mu.Lock()
	p := t.scheduleLocked(s)
	s.Mu.Unlock()
	return p
}

func (t *Table) scheduleLocked(s *State) *proc.PCB {
	var p *proc.PCB
	for prio := range s.Ready {
		if p = t.popHead(&s.Ready[prio]); p != nil {
			break
		}
	}
	if p == nil {
		// Surplus previously exported to the steal surface.
		if idx := s.Deque.PopBottom(); idx != proc.NilIdx {
			p = t.arena.Get(idx)
		}
	}
	if p == nil {
		return nil
	}
	p.Transition(proc.StateRunning)
	p.SchedulerID = s.CoreID
	p.LastScheduled = t.clock.Now()
	p.ReductionCount = constants.DefaultReductions
	s.Current = p.Self
	s.Reductions = constants.DefaultReductions
	s.Stats.Scheduled++
	if t.obs != nil {
		t.obs.ObserveSchedule(s.CoreID, p.Pid)
	}
	return p
}

// Idle records that core found nothing to run. With work stealing on, one
// steal attempt is made and any stolen process is enqueued locally so the
// next Schedule picks it up.
func (t *Table) Idle(core uint32) {
	if !t.validCore(core) {
		return
	}
	s := &t.states[core]
	s.Stats.Idles++
	if !t.stealOn {
		return
	}
	if p := t.TryStealWork(core); p != nil {
		t.Enqueue(core, p, p.Priority)
	}
}

// ShareWork exports surplus ready processes to core's deque so thieves have
// something to take. The owner keeps at least one process queued for
// itself; surplus is taken from the tail of the lowest-priority non-empty
// queue first, since that work would run last locally anyway. Owner-only.
func (t *Table) ShareWork(core uint32) int {
	if !t.validCore(core) || !t.stealOn {
		return 0
	}
	s := &t.states[core]
	s.Mu.Lock()
	defer s.Mu.Unlock()

	moved := 0
	for t.readyCountLocked(s) > 1 {
		var p *proc.PCB
		for prio := constants.NumPriorities - 1; prio >= 0; prio-- {
			if p = t.popTail(&s.Ready[prio]); p != nil {
				break
			}
		}
		if p == nil {
			break
		}
		if !s.Deque.PushBottom(p.Self) {
			// Ring full; put it back where it came from.
			t.pushTail(&s.Ready[p.Priority], p)
			break
		}
		moved++
	}
	return moved
}

func (t *Table) readyCountLocked(s *State) uint32 {
	var n uint32
	for i := range s.Ready {
		n += s.Ready[i].Count
	}
	return n
}

// ReadyCount returns the number of processes in core's ready queues.
func (t *Table) ReadyCount(core uint32) uint32 {
	if !t.validCore(core) {
		return 0
	}
	s := &t.states[core]
	s.Mu.Lock()
	defer s.Mu.Unlock()
	return t.readyCountLocked(s)
}
