// Package proc defines the process control block, its fixed pool, the
// process state machine, and the per-process message queue.
//
// PCBs are fixed 512-byte slabs living in one arena and are linked into
// queues by 32-bit arena indices rather than pointers, so a PCB reference
// can be stored in an atomic cell and shared across scheduler threads.
package proc

import (
	"unsafe"

	"github.com/behrlich/go-actly/internal/constants"
)

// NilIdx is the null arena index used to terminate intrusive lists.
const NilIdx int32 = -1

// Priority is a process scheduling priority. Lower value means higher
// priority.
type Priority uint32

const (
	PriorityMax Priority = iota
	PriorityHigh
	PriorityNormal
	PriorityLow
)

// Valid reports whether p names one of the four priority levels.
func (p Priority) Valid() bool { return p < constants.NumPriorities }

func (p Priority) String() string {
	switch p {
	case PriorityMax:
		return "max"
	case PriorityHigh:
		return "high"
	case PriorityNormal:
		return "normal"
	case PriorityLow:
		return "low"
	}
	return "invalid"
}

// BlockReason records why a Waiting process is blocked.
type BlockReason uint32

const (
	BlockNone BlockReason = iota
	BlockReceive
	BlockTimer
	BlockIO
)

// NumWaitReasons is the number of distinct waiting queues per scheduler.
const NumWaitReasons = 3

// WaitIndex maps a blocking reason to its waiting-queue slot.
// Only valid for Receive, Timer and IO.
func (r BlockReason) WaitIndex() int { return int(r) - 1 }

func (r BlockReason) String() string {
	switch r {
	case BlockNone:
		return "none"
	case BlockReceive:
		return "receive"
	case BlockTimer:
		return "timer"
	case BlockIO:
		return "io"
	}
	return "invalid"
}

// MemDesc describes one bump-allocated memory segment. Base and Ptr are
// offsets into the segment's backing store (owned by the arena side table),
// not machine addresses, so the record stays free of Go pointers.
type MemDesc struct {
	Base  uint64
	Size  uint64
	Ptr   uint64
	Limit uint64
}

// RegisterSaveSlots is the size of the register-save area in 64-bit words.
// Large enough for the general-purpose file plus flags and a few system
// registers on every target we care about; the context capability treats it
// as opaque bytes.
const RegisterSaveSlots = 32

// PCB is one process control block.
//
// The struct must be exactly 512 bytes (see the compile-time pin below):
// the pool addresses slabs by index arithmetic and validates freed pointers
// by alignment. Next/Prev are arena indices; NilIdx when unlinked. The
// message queue lives in the arena side table (slot MsgQ) so the record
// itself contains no Go pointers and may sit in raw arena memory.
type PCB struct {
	Next           int32
	Prev           int32
	Pid            uint64
	SchedulerID    uint32
	State          State
	Priority       Priority
	ReductionCount int32
	Regs           [RegisterSaveSlots]uint64
	Stack          MemDesc
	Heap           MemDesc
	MsgQ           int32
	Self           int32
	Affinity       [2]uint64
	MigrationCount uint32
	BlockingReason BlockReason
	BlockingData   uint64
	WakeTime       uint64
	LastScheduled  uint64
	EntryPoint     uint64
	_              [96]byte
}

// Compile-time size pin - the pool and the free-pointer validation depend on
// slabs being exactly PCBSize bytes.
var _ [constants.PCBSize]byte = [unsafe.Sizeof(PCB{})]byte{}

// Unlink clears the intrusive queue links.
func (p *PCB) Unlink() {
	p.Next = NilIdx
	p.Prev = NilIdx
}

// AffinityMask returns the process affinity as two 64-bit words, low cores
// first.
func (p *PCB) AffinityMask() [2]uint64 {
	if p == nil {
		return [2]uint64{}
	}
	return p.Affinity
}

// SetAffinity stores an affinity mask. An all-zero mask would make the
// process unschedulable everywhere and is refused.
func (p *PCB) SetAffinity(mask [2]uint64) bool {
	if p == nil || mask[0]|mask[1] == 0 {
		return false
	}
	p.Affinity = mask
	return true
}

// AllowedOn reports whether the affinity mask includes core.
func (p *PCB) AllowedOn(core uint32) bool {
	if p == nil || core >= constants.MaxCores {
		return false
	}
	return p.Affinity[core/64]&(1<<(core%64)) != 0
}

// AllCoresMask is the affinity mask permitting every core.
func AllCoresMask() [2]uint64 {
	return [2]uint64{^uint64(0), ^uint64(0)}
}
