// Package interfaces provides internal capability definitions for go-actly.
// These are separate from the public interfaces to avoid circular imports
// between the main package and internal packages.
package interfaces

import "github.com/behrlich/go-actly/internal/proc"

// ContextOps is the bulk register save/restore capability. The scheduler
// core never names registers; it hands the PCB (whose register-save area is
// opaque bytes) to the platform layer at every suspension point.
type ContextOps interface {
	// Save persists the running context into the PCB's register-save area.
	Save(p *proc.PCB)

	// Restore resumes execution from the PCB's register-save area. For the
	// in-process dispatcher this means invoking the registered entry slice;
	// on a bare-metal port it would not return.
	Restore(p *proc.PCB)
}

// Clock supplies the monotonic tick counter used by timer waits and the
// locality heuristics. Ticks only move forward.
type Clock interface {
	Now() uint64
}

// Logger interface for optional logging.
type Logger interface {
	Printf(format string, args ...interface{})
	Debugf(format string, args ...interface{})
}

// Observer interface for scheduler statistics collection.
// Implementations must be thread-safe as methods are called from every
// scheduler thread.
type Observer interface {
	ObserveSchedule(core uint32, pid uint64)
	ObserveSpawn(core uint32, pid uint64)
	ObserveExit(core uint32, pid uint64)
	ObserveBlock(core uint32, reason proc.BlockReason)
	ObserveWake(core uint32, pid uint64)
	ObserveSteal(thief, victim uint32, success bool)
}
