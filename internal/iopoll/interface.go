// Package iopoll provides the completion source behind I/O blocking. A
// process blocking on I/O parks itself under an opaque descriptor; a Poller
// surfaces completions for those descriptors so the owning scheduler can
// wake the sleepers.
package iopoll

import "errors"

// ErrPollerFull is returned when the submission ring has no room. The
// caller should drain completions and retry.
var ErrPollerFull = errors.New("poller submission ring full")

// Config holds poller configuration.
type Config struct {
	// Entries sizes the submission/completion rings.
	Entries uint32
}

// Completion is one finished I/O wait.
type Completion struct {
	Descriptor uint64 // the descriptor the process blocked under
	Result     int32  // raw result, negative errno style
}

// Poller is the interface the runtime drives. Implementations must be safe
// for one submitter and one reaper.
type Poller interface {
	// Close releases the poller and its ring.
	Close() error

	// SubmitPoll arms readiness polling for fd, tagged with descriptor.
	SubmitPoll(fd int32, descriptor uint64) error

	// Reap returns up to max pending completions without blocking.
	Reap(max int) ([]Completion, error)
}
