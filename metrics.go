package actly

import (
	"sync/atomic"
	"time"

	"github.com/behrlich/go-actly/internal/proc"
)

// Metrics tracks runtime-wide scheduling statistics
type Metrics struct {
	// Process lifecycle counters
	Spawned atomic.Uint64 // Total processes spawned
	Exited  atomic.Uint64 // Total processes exited

	// Scheduling counters
	Scheduled atomic.Uint64 // Total schedule decisions
	Blocks    atomic.Uint64 // Total blocking operations
	Wakes     atomic.Uint64 // Total wakes

	// Per-reason block counters
	ReceiveBlocks atomic.Uint64
	TimerBlocks   atomic.Uint64
	IoBlocks      atomic.Uint64

	// Work-stealing counters
	StealAttempts  atomic.Uint64 // Steal attempts, successful or not
	StealSuccesses atomic.Uint64 // Steals that migrated a process

	// Runtime lifecycle
	StartTime atomic.Int64 // Runtime start timestamp (UnixNano)
	StopTime  atomic.Int64 // Runtime stop timestamp (UnixNano)
}

// NewMetrics creates a new metrics instance
func NewMetrics() *Metrics {
	m := &Metrics{}
	m.StartTime.Store(time.Now().UnixNano())
	return m
}

// ObserveSchedule records a schedule decision
func (m *Metrics) ObserveSchedule(core uint32, pid uint64) {
	m.Scheduled.Add(1)
}

// ObserveSpawn records a successful spawn
func (m *Metrics) ObserveSpawn(core uint32, pid uint64) {
	m.Spawned.Add(1)
}

// ObserveExit records a process exit
func (m *Metrics) ObserveExit(core uint32, pid uint64) {
	m.Exited.Add(1)
}

// ObserveBlock records a blocking operation
func (m *Metrics) ObserveBlock(core uint32, reason proc.BlockReason) {
	m.Blocks.Add(1)
	switch reason {
	case proc.BlockReceive:
		m.ReceiveBlocks.Add(1)
	case proc.BlockTimer:
		m.TimerBlocks.Add(1)
	case proc.BlockIO:
		m.IoBlocks.Add(1)
	}
}

// ObserveWake records a wake
func (m *Metrics) ObserveWake(core uint32, pid uint64) {
	m.Wakes.Add(1)
}

// ObserveSteal records a steal attempt
func (m *Metrics) ObserveSteal(thief, victim uint32, success bool) {
	m.StealAttempts.Add(1)
	if success {
		m.StealSuccesses.Add(1)
	}
}

// MarkStopped records the stop timestamp
func (m *Metrics) MarkStopped() {
	m.StopTime.Store(time.Now().UnixNano())
}

// Uptime returns how long the runtime has been live
func (m *Metrics) Uptime() time.Duration {
	start := m.StartTime.Load()
	stop := m.StopTime.Load()
	if stop == 0 {
		stop = time.Now().UnixNano()
	}
	return time.Duration(stop - start)
}

// MetricsSnapshot is a point-in-time copy of the counters
type MetricsSnapshot struct {
	Spawned        uint64
	Exited         uint64
	Scheduled      uint64
	Blocks         uint64
	Wakes          uint64
	ReceiveBlocks  uint64
	TimerBlocks    uint64
	IoBlocks       uint64
	StealAttempts  uint64
	StealSuccesses uint64
	Uptime         time.Duration
}

// Snapshot captures the current counter values
func (m *Metrics) Snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		Spawned:        m.Spawned.Load(),
		Exited:         m.Exited.Load(),
		Scheduled:      m.Scheduled.Load(),
		Blocks:         m.Blocks.Load(),
		Wakes:          m.Wakes.Load(),
		ReceiveBlocks:  m.ReceiveBlocks.Load(),
		TimerBlocks:    m.TimerBlocks.Load(),
		IoBlocks:       m.IoBlocks.Load(),
		StealAttempts:  m.StealAttempts.Load(),
		StealSuccesses: m.StealSuccesses.Load(),
		Uptime:         m.Uptime(),
	}
}
