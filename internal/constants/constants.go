package constants

// Scheduler sizing constants
const (
	// MaxCores is the largest number of per-core schedulers a runtime can host
	MaxCores = 128

	// NumPriorities is the number of distinct process priority levels
	NumPriorities = 4

	// DefaultReductions is the reduction budget granted to a process each
	// time it is scheduled or woken
	DefaultReductions = 2000

	// MaxProcesses is the capacity of the PCB pool
	MaxProcesses = 1024
)

// Record layout constants
//
// The PCB is a fixed-size slab so the pool can hand records out and reclaim
// them by index, and so free-pointer validation is plain arithmetic. The
// sizes are pinned with compile-time checks in internal/proc and
// internal/sched; changing any of these without updating the structs there
// fails the build.
const (
	// PCBSize is the size of one process control block slab in bytes
	PCBSize = 512

	// PCBAlignment is the required alignment of every PCB slab
	PCBAlignment = 512

	// QueueRecordSize is the size of one intrusive queue record in bytes
	QueueRecordSize = 24

	// SchedulerRecordSize is the size of one per-core scheduler record in bytes
	SchedulerRecordSize = 240
)

// Process memory constants
const (
	// DefaultStackSize is the smallest (and default) stack segment
	DefaultStackSize = 8192

	// DefaultHeapSize is the smallest (and default) heap segment
	DefaultHeapSize = 4096

	// MaxStackSize is the largest stack a process may request
	MaxStackSize = 65536

	// MaxHeapSize is the largest heap a process may request
	MaxHeapSize = 1 << 20

	// StackAlignment is the byte alignment of stack allocations
	StackAlignment = 16

	// HeapAlignment is the byte alignment of heap allocations
	HeapAlignment = 8

	// MaxExpansionBlocks caps a single memory-pool expansion request
	MaxExpansionBlocks = 1024
)

// Work-stealing constants
const (
	// MaxMigrations caps how many times one process may migrate between
	// cores before steals of it are refused
	MaxMigrations = 10

	// MinStealQueueSize is the smallest victim load worth stealing from
	MinStealQueueSize = 2

	// WorkStealEnabled is the default for the runtime work-stealing switch
	WorkStealEnabled = 1

	// DequeMinCapacity and DequeMaxCapacity bound the work-stealing ring.
	// Capacities are powers of two so index masking works.
	DequeMinCapacity = 4
	DequeMaxCapacity = 1024

	// DefaultDequeCapacity is the ring size each scheduler starts with
	DefaultDequeCapacity = 256
)

// Blocking constants
const (
	// MaxBlockingTime is the largest timer wait, in ticks, accepted by a
	// timed block
	MaxBlockingTime = 10_000
)

// BIF reduction costs
const (
	// BifYieldCost is charged on entry to the yield BIF
	BifYieldCost = 1

	// BifExitCost is charged on entry to the exit BIF
	BifExitCost = 1

	// BifSpawnCost is charged on entry to the spawn BIF
	BifSpawnCost = 10
)
