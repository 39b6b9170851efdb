package actly

import (
	"github.com/behrlich/go-actly/internal/proc"
)

// ProcessFunc is the Go body of a process. The dispatcher calls it every
// time the process is scheduled; the returned Action tells the dispatcher
// what to do when the handler finishes its slice. A handler that blocked
// through its Env, or was preempted by ChargeReduction or a BIF trap, has
// already been switched out and its action is ignored.
type ProcessFunc func(env *Env) Action

// Action is what a process slice asks the dispatcher to do next.
type Action struct {
	kind   int
	reason uint64
}

const (
	actionContinue = iota
	actionYield
	actionExit
)

// Continue keeps the process running; the dispatcher charges a reduction
// and re-runs the handler on the next slice.
func Continue() Action { return Action{kind: actionContinue} }

// YieldNow gives up the core voluntarily.
func YieldNow() Action { return Action{kind: actionYield} }

// ExitWith terminates the process with reason.
func ExitWith(reason uint64) Action { return Action{kind: actionExit, reason: reason} }

// Env is the view a running process has of its runtime: its identity plus
// the BIF surface.
type Env struct {
	rt   *Runtime
	core uint32
	pcb  *proc.PCB
}

// Pid returns the process id.
func (e *Env) Pid() uint64 { return e.pcb.Pid }

// Core returns the scheduler the process is running on.
func (e *Env) Core() uint32 { return e.core }

// Reductions returns the residual budget of the current slice.
func (e *Env) Reductions() int32 { return e.rt.table.ReductionCount(e.core) }

// Spawn creates a child process; the parent is charged the spawn cost.
// Returns 0 when the trap preempted or the spawn was invalid.
func (e *Env) Spawn(entry uint64, prio Priority, stackSize, heapSize uint64) uint64 {
	return e.rt.table.SpawnBIF(e.core, entry, prio, stackSize, heapSize)
}

// Send delivers a message to another process.
func (e *Env) Send(pid uint64, pattern, payload uint64) bool {
	target := e.rt.table.Arena().LookupPid(pid)
	if target == nil {
		return false
	}
	return e.rt.table.Send(target, pattern, payload)
}

// Receive takes a message matching pattern from the mailbox, or blocks the
// process until one arrives. Returns nil when blocked; the handler must
// return immediately after a nil receive.
func (e *Env) Receive(pattern uint64) *Message {
	return e.rt.table.BlockOnReceive(e.core, e.pcb, pattern)
}

// Sleep blocks the process for timeoutTicks. The handler must return
// immediately after a successful sleep.
func (e *Env) Sleep(timeoutTicks uint64) bool {
	return e.rt.table.BlockOnTimer(e.core, e.pcb, timeoutTicks)
}

// BlockIO parks the process under an I/O descriptor until a completion for
// it is reaped. The handler must return immediately after.
func (e *Env) BlockIO(descriptor uint64) bool {
	return e.rt.table.BlockOnIO(e.core, e.pcb, descriptor)
}

// ChargeReduction spends one reduction; returns true when the process was
// preempted and the handler must return.
func (e *Env) ChargeReduction() bool {
	return e.rt.table.DecrementReductionsWithCheck(e.core)
}

// ProcessInfo is a read-only snapshot of one process.
type ProcessInfo struct {
	Pid       uint64
	State     string
	Priority  Priority
	Core      uint32
	Mailbox   int
	Migrated  uint32
	Reduction int32
}

// ProcessInfo returns a snapshot of pid, or an error when it is not alive.
func (r *Runtime) ProcessInfo(pid uint64) (ProcessInfo, error) {
	p := r.table.Arena().LookupPid(pid)
	if p == nil {
		return ProcessInfo{}, &Error{Op: "INFO", Core: -1, Pid: pid, Code: ErrCodeUnknownPid}
	}
	return ProcessInfo{
		Pid:       p.Pid,
		State:     p.State.String(),
		Priority:  p.Priority,
		Core:      p.SchedulerID,
		Mailbox:   r.table.Arena().Queue(p.MsgQ).Len(),
		Migrated:  p.MigrationCount,
		Reduction: p.ReductionCount,
	}, nil
}
