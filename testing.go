package actly

import (
	"sync"

	"github.com/behrlich/go-actly/internal/proc"
)

// MockContextOps provides a mock implementation of the context capability
// for testing. It tracks save/restore calls for verification.
type MockContextOps struct {
	mu       sync.Mutex
	saves    []uint64
	restores []uint64
}

// NewMockContextOps creates a new mock context capability.
func NewMockContextOps() *MockContextOps {
	return &MockContextOps{}
}

// Save implements the ContextOps interface
func (m *MockContextOps) Save(p *proc.PCB) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p != nil {
		m.saves = append(m.saves, p.Pid)
	}
}

// Restore implements the ContextOps interface
func (m *MockContextOps) Restore(p *proc.PCB) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p != nil {
		m.restores = append(m.restores, p.Pid)
	}
}

// SaveCalls returns the pids whose context was saved, in order.
func (m *MockContextOps) SaveCalls() []uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]uint64, len(m.saves))
	copy(out, m.saves)
	return out
}

// RestoreCalls returns the pids whose context was restored, in order.
func (m *MockContextOps) RestoreCalls() []uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]uint64, len(m.restores))
	copy(out, m.restores)
	return out
}

// MockObserver counts scheduler events for testing.
type MockObserver struct {
	mu        sync.Mutex
	Schedules int
	Spawns    int
	Exits     int
	Blocks    int
	Wakes     int
	Steals    int
	StealHits int
}

// NewMockObserver creates a new counting observer.
func NewMockObserver() *MockObserver {
	return &MockObserver{}
}

func (m *MockObserver) ObserveSchedule(core uint32, pid uint64) {
	m.mu.Lock()
	m.Schedules++
	m.mu.Unlock()
}

func (m *MockObserver) ObserveSpawn(core uint32, pid uint64) {
	m.mu.Lock()
	m.Spawns++
	m.mu.Unlock()
}

func (m *MockObserver) ObserveExit(core uint32, pid uint64) {
	m.mu.Lock()
	m.Exits++
	m.mu.Unlock()
}

func (m *MockObserver) ObserveBlock(core uint32, reason proc.BlockReason) {
	m.mu.Lock()
	m.Blocks++
	m.mu.Unlock()
}

func (m *MockObserver) ObserveWake(core uint32, pid uint64) {
	m.mu.Lock()
	m.Wakes++
	m.mu.Unlock()
}

func (m *MockObserver) ObserveSteal(thief, victim uint32, success bool) {
	m.mu.Lock()
	m.Steals++
	if success {
		m.StealHits++
	}
	m.mu.Unlock()
}

// Counts returns a copy of the counters under the lock.
func (m *MockObserver) Counts() (schedules, spawns, exits, blocks, wakes, steals, stealHits int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Schedules, m.Spawns, m.Exits, m.Blocks, m.Wakes, m.Steals, m.StealHits
}
