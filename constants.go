package actly

import (
	"github.com/behrlich/go-actly/internal/constants"
	"github.com/behrlich/go-actly/internal/proc"
)

// Re-export constants for public API
const (
	MaxCores            = constants.MaxCores
	NumPriorities       = constants.NumPriorities
	DefaultReductions   = constants.DefaultReductions
	PCBSize             = constants.PCBSize
	DefaultStackSize    = constants.DefaultStackSize
	DefaultHeapSize     = constants.DefaultHeapSize
	MaxStackSize        = constants.MaxStackSize
	MaxHeapSize         = constants.MaxHeapSize
	StackAlignment      = constants.StackAlignment
	HeapAlignment       = constants.HeapAlignment
	MaxProcesses        = constants.MaxProcesses
	MaxMigrations       = constants.MaxMigrations
	MinStealQueueSize   = constants.MinStealQueueSize
	WorkStealEnabled    = constants.WorkStealEnabled
	MaxBlockingTime     = constants.MaxBlockingTime
	BifSpawnCost        = constants.BifSpawnCost
	BifExitCost         = constants.BifExitCost
	BifYieldCost        = constants.BifYieldCost
	QueueRecordSize     = constants.QueueRecordSize
	SchedulerRecordSize = constants.SchedulerRecordSize
)

// Priority levels, numerically ordered: Max beats everything below it.
const (
	PriorityMax    = proc.PriorityMax
	PriorityHigh   = proc.PriorityHigh
	PriorityNormal = proc.PriorityNormal
	PriorityLow    = proc.PriorityLow
)

// Priority is a process scheduling priority.
type Priority = proc.Priority

// WildcardPattern matches any message in a receive.
const WildcardPattern = proc.WildcardPattern
