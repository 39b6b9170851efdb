package sched

import "github.com/behrlich/go-actly/internal/proc"

// Intrusive list plumbing. These helpers assume the caller already holds
// whatever serialization the queue needs; they only move links.

// pushTail appends p to q. p must be unlinked.
func (t *Table) pushTail(q *Queue, p *proc.PCB) {
	p.Next = proc.NilIdx
	p.Prev = q.Tail
	if q.Tail != proc.NilIdx {
		t.arena.Get(q.Tail).Next = p.Self
	} else {
		q.Head = p.Self
	}
	q.Tail = p.Self
	q.Count++
}

// popHead removes and returns the head of q, or nil when empty.
func (t *Table) popHead(q *Queue) *proc.PCB {
	if q == nil || q.Head == proc.NilIdx {
		return nil
	}
	p := t.arena.Get(q.Head)
	q.Head = p.Next
	if q.Head != proc.NilIdx {
		t.arena.Get(q.Head).Prev = proc.NilIdx
	} else {
		q.Tail = proc.NilIdx
	}
	p.Unlink()
	q.Count--
	return p
}

// popTail removes and returns the tail of q, or nil when empty. Used by the
// owner when exporting surplus work to the steal surface.
func (t *Table) popTail(q *Queue) *proc.PCB {
	if q == nil || q.Tail == proc.NilIdx {
		return nil
	}
	p := t.arena.Get(q.Tail)
	q.Tail = p.Prev
	if q.Tail != proc.NilIdx {
		t.arena.Get(q.Tail).Next = proc.NilIdx
	} else {
		q.Head = proc.NilIdx
	}
	p.Unlink()
	q.Count--
	return p
}

// unlink removes p from q wherever it sits.
func (t *Table) unlink(q *Queue, p *proc.PCB) {
	if p.Prev != proc.NilIdx {
		t.arena.Get(p.Prev).Next = p.Next
	} else {
		q.Head = p.Next
	}
	if p.Next != proc.NilIdx {
		t.arena.Get(p.Next).Prev = p.Prev
	} else {
		q.Tail = p.Prev
	}
	p.Unlink()
	q.Count--
}
