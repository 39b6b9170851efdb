package actly

import (
	"testing"

	"github.com/behrlich/go-actly/internal/proc"
)

func TestMetricsCounters(t *testing.T) {
	m := NewMetrics()
	m.ObserveSpawn(0, 1)
	m.ObserveSchedule(0, 1)
	m.ObserveSchedule(0, 1)
	m.ObserveBlock(0, proc.BlockReceive)
	m.ObserveBlock(0, proc.BlockTimer)
	m.ObserveBlock(0, proc.BlockIO)
	m.ObserveWake(0, 1)
	m.ObserveSteal(1, 0, true)
	m.ObserveSteal(1, 0, false)
	m.ObserveExit(0, 1)

	snap := m.Snapshot()
	if snap.Spawned != 1 {
		t.Errorf("Spawned = %d, want 1", snap.Spawned)
	}
	if snap.Scheduled != 2 {
		t.Errorf("Scheduled = %d, want 2", snap.Scheduled)
	}
	if snap.Blocks != 3 {
		t.Errorf("Blocks = %d, want 3", snap.Blocks)
	}
	if snap.ReceiveBlocks != 1 || snap.TimerBlocks != 1 || snap.IoBlocks != 1 {
		t.Error("per-reason block counters wrong")
	}
	if snap.Wakes != 1 {
		t.Errorf("Wakes = %d, want 1", snap.Wakes)
	}
	if snap.StealAttempts != 2 || snap.StealSuccesses != 1 {
		t.Errorf("steals = %d/%d, want 2/1", snap.StealAttempts, snap.StealSuccesses)
	}
	if snap.Exited != 1 {
		t.Errorf("Exited = %d, want 1", snap.Exited)
	}
}

func TestMetricsUptime(t *testing.T) {
	m := NewMetrics()
	if m.Uptime() < 0 {
		t.Error("uptime went backwards")
	}
	m.MarkStopped()
	frozen := m.Uptime()
	if m.Uptime() != frozen {
		t.Error("uptime should freeze after stop")
	}
}

func TestMetricsConcurrentUpdates(t *testing.T) {
	m := NewMetrics()
	done := make(chan struct{})
	for i := 0; i < 4; i++ {
		go func() {
			for j := 0; j < 1000; j++ {
				m.ObserveSchedule(0, 1)
			}
			done <- struct{}{}
		}()
	}
	for i := 0; i < 4; i++ {
		<-done
	}
	if got := m.Scheduled.Load(); got != 4000 {
		t.Errorf("Scheduled = %d, want 4000", got)
	}
}
