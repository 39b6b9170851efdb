package proc

import "sync"

// WildcardPattern matches any message during a receive.
const WildcardPattern = ^uint64(0)

// Message is one queued message. Pattern is the tag a receive matches
// against; Payload is opaque to the scheduler.
type Message struct {
	Pattern uint64
	Payload uint64
	next    *Message
}

// MessageQueue is the per-process mailbox: a FIFO of messages plus the
// rendezvous pair coupling the queue to at most one blocked receiver.
//
// The mutex covers the list and the blocked/waiting fields together, so a
// sender observing blocked=true flips the flag and learns the receiver in
// one critical section. The wake itself happens outside the lock.
type MessageQueue struct {
	mu      sync.Mutex
	head    *Message
	tail    *Message
	count   uint32
	blocked bool
	waiting int32
}

// NewMessageQueue returns an empty mailbox with no blocked receiver.
func NewMessageQueue() *MessageQueue {
	return &MessageQueue{waiting: NilIdx}
}

// Enqueue appends a message. If a receiver is blocked on the queue, the
// blocked flag is cleared and the receiver's arena index is returned with
// wake=true; the caller is responsible for the actual wake.
func (q *MessageQueue) Enqueue(pattern, payload uint64) (receiver int32, wake bool) {
	if q == nil {
		return NilIdx, false
	}
	m := &Message{Pattern: pattern, Payload: payload}
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.tail == nil {
		q.head = m
	} else {
		q.tail.next = m
	}
	q.tail = m
	q.count++
	if q.blocked {
		q.blocked = false
		receiver = q.waiting
		q.waiting = NilIdx
		return receiver, true
	}
	return NilIdx, false
}

// TakeMatch removes and returns the first message whose pattern equals
// pattern, or the first message at all when pattern is WildcardPattern.
// Returns nil when nothing matches.
func (q *MessageQueue) TakeMatch(pattern uint64) *Message {
	if q == nil {
		return nil
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	var prev *Message
	for m := q.head; m != nil; m = m.next {
		if pattern != WildcardPattern && m.Pattern != pattern {
			prev = m
			continue
		}
		if prev == nil {
			q.head = m.next
		} else {
			prev.next = m.next
		}
		if q.tail == m {
			q.tail = prev
		}
		m.next = nil
		q.count--
		return m
	}
	return nil
}

// SetBlocked records that the process in slab receiver is about to block on
// this queue.
func (q *MessageQueue) SetBlocked(receiver int32) {
	if q == nil {
		return
	}
	q.mu.Lock()
	q.blocked = true
	q.waiting = receiver
	q.mu.Unlock()
}

// ClearBlocked drops the rendezvous pair, e.g. when the receiver is woken
// for another reason.
func (q *MessageQueue) ClearBlocked() {
	if q == nil {
		return
	}
	q.mu.Lock()
	q.blocked = false
	q.waiting = NilIdx
	q.mu.Unlock()
}

// Len returns the number of queued messages.
func (q *MessageQueue) Len() int {
	if q == nil {
		return 0
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	return int(q.count)
}
