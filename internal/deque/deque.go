// Package deque implements the per-scheduler work-stealing deque.
//
// The layout follows the Chase-Lev design: a bounded power-of-two ring with
// an owner index (bottom) and a thief index (top). The owner pushes and pops
// at the bottom, LIFO; thieves take from the top, FIFO, racing through a
// compare-and-swap on top. Cells hold PCB arena indices, which is what makes
// single-word atomic cells possible.
package deque

import (
	"sync/atomic"

	"github.com/behrlich/go-actly/internal/constants"
	"github.com/behrlich/go-actly/internal/proc"
)

// Deque is a bounded work-stealing deque of PCB arena indices.
//
// size = bottom - top; the deque is empty when bottom <= top. Neither index
// wraps; cells are addressed modulo capacity via the mask.
type Deque struct {
	mask   int64
	cells  []atomic.Int32
	bottom atomic.Int64
	top    atomic.Int64
}

// New creates a deque. capacity must be a power of two between 4 and 1024;
// anything else returns nil.
func New(capacity int) *Deque {
	if capacity < constants.DequeMinCapacity || capacity > constants.DequeMaxCapacity {
		return nil
	}
	if capacity&(capacity-1) != 0 {
		return nil
	}
	return &Deque{
		mask:  int64(capacity) - 1,
		cells: make([]atomic.Int32, capacity),
	}
}

// Capacity returns the ring size, or 0 for a nil deque.
func (d *Deque) Capacity() int {
	if d == nil {
		return 0
	}
	return len(d.cells)
}

// Size returns bottom - top. A nil deque has size 0. The value is a
// snapshot; concurrent thieves may change it immediately.
func (d *Deque) Size() int64 {
	if d == nil {
		return 0
	}
	b := d.bottom.Load()
	t := d.top.Load()
	if b < t {
		return 0
	}
	return b - t
}

// IsEmpty reports bottom <= top. A nil deque is empty.
func (d *Deque) IsEmpty() bool {
	if d == nil {
		return true
	}
	return d.bottom.Load() <= d.top.Load()
}

// PushBottom appends a PCB index at the owner end. Only the owning
// scheduler may call it. Returns false for nil deques, negative indices,
// and a full ring.
func (d *Deque) PushBottom(idx int32) bool {
	if d == nil || idx < 0 {
		return false
	}
	b := d.bottom.Load()
	t := d.top.Load()
	if b-t > d.mask {
		return false
	}
	d.cells[b&d.mask].Store(idx)
	d.bottom.Store(b + 1)
	return true
}

// PopBottom removes the most recently pushed index, owner side, LIFO.
// Returns proc.NilIdx when empty. When exactly one element remains the
// owner races thieves for it through the CAS on top.
func (d *Deque) PopBottom() int32 {
	if d == nil {
		return proc.NilIdx
	}
	b := d.bottom.Load() - 1
	d.bottom.Store(b)
	t := d.top.Load()
	if b < t {
		// Already empty; restore bottom.
		d.bottom.Store(t)
		return proc.NilIdx
	}
	v := d.cells[b&d.mask].Load()
	if b > t {
		return v
	}
	// Last element: win or lose against a concurrent thief.
	if !d.top.CompareAndSwap(t, t+1) {
		v = proc.NilIdx
	}
	d.bottom.Store(t + 1)
	return v
}

// PopTop steals the oldest index, thief side, FIFO. Returns proc.NilIdx
// when empty or when the CAS on top loses against the owner or another
// thief.
func (d *Deque) PopTop() int32 {
	if d == nil {
		return proc.NilIdx
	}
	t := d.top.Load()
	b := d.bottom.Load()
	if t >= b {
		return proc.NilIdx
	}
	v := d.cells[t&d.mask].Load()
	if !d.top.CompareAndSwap(t, t+1) {
		return proc.NilIdx
	}
	return v
}

// PeekTop returns the index a PopTop would steal next without claiming it,
// or proc.NilIdx when empty. Used to check steal permission before
// committing the CAS; the subsequent PopTop may still observe a different
// element if a race intervenes.
func (d *Deque) PeekTop() int32 {
	if d == nil {
		return proc.NilIdx
	}
	t := d.top.Load()
	b := d.bottom.Load()
	if t >= b {
		return proc.NilIdx
	}
	return d.cells[t&d.mask].Load()
}
