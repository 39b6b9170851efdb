package iopoll

import "sync"

// Manual is a poller fed by hand. It is the default on hosts without an
// io_uring build and the completion source tests drive directly.
type Manual struct {
	mu      sync.Mutex
	pending []Completion
	closed  bool
}

// NewManual returns an empty manual poller.
func NewManual() *Manual {
	return &Manual{}
}

// Close marks the poller closed; further completions are dropped.
func (m *Manual) Close() error {
	m.mu.Lock()
	m.closed = true
	m.pending = nil
	m.mu.Unlock()
	return nil
}

// SubmitPoll records nothing; a manual poller completes only what Complete
// is told about.
func (m *Manual) SubmitPoll(fd int32, descriptor uint64) error {
	return nil
}

// Complete queues a completion for descriptor.
func (m *Manual) Complete(descriptor uint64, result int32) {
	m.mu.Lock()
	if !m.closed {
		m.pending = append(m.pending, Completion{Descriptor: descriptor, Result: result})
	}
	m.mu.Unlock()
}

// Reap drains up to max queued completions.
func (m *Manual) Reap(max int) ([]Completion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.pending) == 0 {
		return nil, nil
	}
	n := len(m.pending)
	if max > 0 && n > max {
		n = max
	}
	out := make([]Completion, n)
	copy(out, m.pending[:n])
	m.pending = m.pending[n:]
	return out, nil
}
