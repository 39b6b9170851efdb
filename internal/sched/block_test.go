package sched

import (
	"testing"

	"github.com/behrlich/go-actly/internal/constants"
	"github.com/behrlich/go-actly/internal/proc"
)

func newBlockedOnReceive(t *testing.T, tab *Table) *proc.PCB {
	t.Helper()
	p := spawnReady(t, tab, 0, proc.PriorityNormal)
	if tab.Schedule(0) != p {
		t.Fatal("Schedule did not pick the process")
	}
	if tab.Block(0, p, proc.BlockReceive) != nil {
		t.Fatal("Block returned a next process on a one-process core")
	}
	return p
}

func TestBlockAndWake(t *testing.T) {
	tab := newTestTable(t, 1)
	p := newBlockedOnReceive(t, tab)

	if p.State != proc.StateWaiting {
		t.Errorf("state = %v, want waiting", p.State)
	}
	if p.BlockingReason != proc.BlockReceive {
		t.Errorf("reason = %v, want receive", p.BlockingReason)
	}
	if n := QueueLength(tab.WaitingQueue(0, proc.BlockReceive)); n != 1 {
		t.Errorf("receive waiting queue length = %d, want 1", n)
	}
	if tab.CurrentProcess(0) != nil {
		t.Error("blocked process still current")
	}
	if got := tab.State(0).Stats.Blocks; got != 1 {
		t.Errorf("Blocks = %d, want 1", got)
	}

	if !tab.Wake(0, p) {
		t.Fatal("Wake failed")
	}
	if p.State != proc.StateReady {
		t.Errorf("state after wake = %v, want ready", p.State)
	}
	if p.BlockingReason != proc.BlockNone {
		t.Error("blocking reason not cleared")
	}
	if p.ReductionCount != constants.DefaultReductions {
		t.Errorf("reductions = %d after wake, want %d", p.ReductionCount, constants.DefaultReductions)
	}
	if tab.ReductionCount(0) != constants.DefaultReductions {
		t.Errorf("scheduler reductions = %d after wake, want %d",
			tab.ReductionCount(0), constants.DefaultReductions)
	}
	if n := QueueLength(tab.ReadyQueue(0, proc.PriorityNormal)); n != 1 {
		t.Errorf("ready queue length = %d after wake, want 1", n)
	}
	if n := QueueLength(tab.WaitingQueue(0, proc.BlockReceive)); n != 0 {
		t.Errorf("waiting queue length = %d after wake, want 0", n)
	}
	if got := tab.State(0).Stats.Wakes; got != 1 {
		t.Errorf("Wakes = %d, want 1", got)
	}
}

func TestBlockValidation(t *testing.T) {
	tab := newTestTable(t, 1)
	p := spawnReady(t, tab, 0, proc.PriorityNormal)

	if tab.Block(0, nil, proc.BlockReceive) != nil {
		t.Error("Block accepted nil PCB")
	}
	if tab.Block(5, p, proc.BlockReceive) != nil {
		t.Error("Block accepted invalid core")
	}
	if tab.Block(0, p, proc.BlockNone) != nil {
		t.Error("Block accepted reason None")
	}
	// p is Ready, not current.
	if tab.Block(0, p, proc.BlockReceive) != nil {
		t.Error("Block accepted a non-running process")
	}
	if p.State != proc.StateReady {
		t.Error("failed Block mutated state")
	}
}

func TestWakeRequiresWaiting(t *testing.T) {
	tab := newTestTable(t, 1)
	p := spawnReady(t, tab, 0, proc.PriorityNormal)
	if tab.Wake(0, p) {
		t.Error("Wake succeeded on a Ready process")
	}
	if tab.Wake(0, nil) {
		t.Error("Wake succeeded on nil")
	}
}

func TestBlockSchedulesNext(t *testing.T) {
	tab := newTestTable(t, 1)
	p1 := spawnReady(t, tab, 0, proc.PriorityNormal)
	p2 := spawnReady(t, tab, 0, proc.PriorityNormal)
	if tab.Schedule(0) != p1 {
		t.Fatal("expected p1 first")
	}
	next := tab.Block(0, p1, proc.BlockTimer)
	if next != p2 {
		t.Fatal("Block should schedule the next ready process")
	}
	if p2.State != proc.StateRunning {
		t.Error("next process should be Running")
	}
}

func TestBlockOnReceiveImmediate(t *testing.T) {
	tab := newTestTable(t, 1)
	p := spawnReady(t, tab, 0, proc.PriorityNormal)
	tab.Schedule(0)

	tab.Send(p, 7, 700)
	m := tab.BlockOnReceive(0, p, 7)
	if m == nil || m.Payload != 700 {
		t.Fatalf("BlockOnReceive = %+v, want queued message", m)
	}
	if p.State != proc.StateRunning {
		t.Error("immediate receive should not block")
	}
}

func TestBlockOnReceiveWildcard(t *testing.T) {
	tab := newTestTable(t, 1)
	p := spawnReady(t, tab, 0, proc.PriorityNormal)
	tab.Schedule(0)

	tab.Send(p, 3, 300)
	m := tab.BlockOnReceive(0, p, proc.WildcardPattern)
	if m == nil || m.Payload != 300 {
		t.Fatalf("wildcard receive = %+v, want payload 300", m)
	}
}

func TestBlockOnReceiveBlocksAndSendWakes(t *testing.T) {
	tab := newTestTable(t, 1)
	p := spawnReady(t, tab, 0, proc.PriorityNormal)
	tab.Schedule(0)

	if tab.BlockOnReceive(0, p, 9) != nil {
		t.Fatal("receive with an empty mailbox should block")
	}
	if p.State != proc.StateWaiting {
		t.Fatal("process should be Waiting")
	}

	// A non-matching send leaves it blocked.
	tab.Send(p, 8, 800)
	if p.State != proc.StateWaiting {
		t.Error("non-matching send woke the receiver")
	}

	// The matching send wakes it.
	tab.Send(p, 9, 900)
	if p.State != proc.StateReady {
		t.Error("matching send did not wake the receiver")
	}

	// The message is waiting in the mailbox for the re-issued receive.
	if m := tab.BlockOnReceive(0, p, 9); m == nil || m.Payload != 900 {
		t.Errorf("re-issued receive = %+v, want payload 900", m)
	}
}

func TestBlockOnTimerValidation(t *testing.T) {
	tab := newTestTable(t, 1)
	p := spawnReady(t, tab, 0, proc.PriorityNormal)
	tab.Schedule(0)

	if tab.BlockOnTimer(0, p, 0) {
		t.Error("zero timeout accepted")
	}
	if tab.BlockOnTimer(0, p, constants.MaxBlockingTime+1) {
		t.Error("timeout beyond MaxBlockingTime accepted")
	}
	if p.State != proc.StateRunning {
		t.Error("failed timer block changed state")
	}
	if !tab.BlockOnTimer(0, p, 50) {
		t.Error("valid timer block failed")
	}
	if p.State != proc.StateWaiting || p.BlockingReason != proc.BlockTimer {
		t.Error("process not timer-blocked")
	}
}

func TestCheckTimerWakeups(t *testing.T) {
	clock := NewManualClock()
	tab := NewTable(1, Options{Clock: clock, DisableSteal: true})

	p1 := spawnReady(t, tab, 0, proc.PriorityNormal)
	p2 := spawnReady(t, tab, 0, proc.PriorityNormal)

	tab.Schedule(0)
	tab.BlockOnTimer(0, p1, 10)
	// p2 became current via Block's reschedule.
	if tab.CurrentProcess(0) != p2 {
		t.Fatal("p2 should be running")
	}
	tab.BlockOnTimer(0, p2, 100)

	if n := tab.CheckTimerWakeups(0); n != 0 {
		t.Errorf("woke %d before any deadline, want 0", n)
	}
	clock.Advance(10)
	if n := tab.CheckTimerWakeups(0); n != 1 {
		t.Errorf("woke %d at tick 10, want 1", n)
	}
	if p1.State != proc.StateReady {
		t.Error("p1 should be awake")
	}
	if p2.State != proc.StateWaiting {
		t.Error("p2 should still be waiting")
	}
	clock.Advance(90)
	if n := tab.CheckTimerWakeups(0); n != 1 {
		t.Errorf("woke %d at tick 100, want 1", n)
	}
	if p2.State != proc.StateReady {
		t.Error("p2 should be awake")
	}
}

func TestBlockOnIOAndComplete(t *testing.T) {
	tab := newTestTable(t, 1)
	p := spawnReady(t, tab, 0, proc.PriorityNormal)
	tab.Schedule(0)

	if !tab.BlockOnIO(0, p, 0xfd01) {
		t.Fatal("BlockOnIO failed")
	}
	if p.BlockingReason != proc.BlockIO || p.BlockingData != 0xfd01 {
		t.Error("descriptor not recorded")
	}
	if n := tab.CompleteIO(0, 0xfd02); n != 0 {
		t.Errorf("CompleteIO woke %d for a foreign descriptor", n)
	}
	if n := tab.CompleteIO(0, 0xfd01); n != 1 {
		t.Errorf("CompleteIO woke %d, want 1", n)
	}
	if p.State != proc.StateReady {
		t.Error("process should be awake after completion")
	}
}

func TestCrossCoreWake(t *testing.T) {
	tab := newTestTable(t, 2)
	p := newBlockedOnReceive(t, tab)

	// Wake on the scheduler that owns the waiting queue, from any caller.
	done := make(chan bool)
	go func() {
		done <- tab.Wake(0, p)
	}()
	if !<-done {
		t.Fatal("cross-goroutine Wake failed")
	}
	if p.State != proc.StateReady {
		t.Error("process should be Ready")
	}
}
