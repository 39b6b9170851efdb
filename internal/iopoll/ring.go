//go:build giouring
// +build giouring

// io_uring-backed poller using pawelgaczynski/giouring.
package iopoll

import (
	"fmt"

	"github.com/pawelgaczynski/giouring"
	"golang.org/x/sys/unix"
)

// ringPoller implements Poller over a real io_uring instance. One poll-add
// SQE is armed per blocked descriptor; completions surface through the CQ.
type ringPoller struct {
	ring   *giouring.Ring
	config Config
}

// NewRingPoller creates an io_uring poller.
func NewRingPoller(config Config) (Poller, error) {
	entries := config.Entries
	if entries == 0 {
		entries = 256
	}
	ring, err := giouring.CreateRing(entries)
	if err != nil {
		return nil, fmt.Errorf("failed to create io_uring: %v", err)
	}
	return &ringPoller{ring: ring, config: config}, nil
}

func (r *ringPoller) Close() error {
	if r.ring != nil {
		r.ring.QueueExit()
	}
	return nil
}

func (r *ringPoller) SubmitPoll(fd int32, descriptor uint64) error {
	sqe := r.ring.GetSQE()
	if sqe == nil {
		return ErrPollerFull
	}
	sqe.PreparePollAdd(int(fd), unix.POLLIN)
	sqe.UserData = descriptor
	if _, err := r.ring.Submit(); err != nil {
		return fmt.Errorf("io_uring submit: %v", err)
	}
	return nil
}

func (r *ringPoller) Reap(max int) ([]Completion, error) {
	if max <= 0 {
		max = int(r.config.Entries)
	}
	cqes := make([]*giouring.CompletionQueueEvent, max)
	n := r.ring.PeekBatchCQE(cqes)
	if n == 0 {
		return nil, nil
	}
	out := make([]Completion, 0, n)
	for _, cqe := range cqes[:n] {
		out = append(out, Completion{Descriptor: cqe.UserData, Result: cqe.Res})
	}
	r.ring.CQAdvance(uint32(n))
	return out, nil
}
