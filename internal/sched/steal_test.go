package sched

import (
	"testing"

	"github.com/behrlich/go-actly/internal/constants"
	"github.com/behrlich/go-actly/internal/proc"
	"github.com/behrlich/go-actly/internal/topology"
)

func newStealTable(t *testing.T, cores uint32, strategy StealStrategy) *Table {
	t.Helper()
	tab := NewTable(cores, Options{Clock: NewManualClock(), Strategy: strategy})
	if tab == nil {
		t.Fatal("NewTable returned nil")
	}
	return tab
}

func TestLoadWeighting(t *testing.T) {
	tab := newStealTable(t, 2, StealByLoad)
	spawnReady(t, tab, 0, proc.PriorityMax)
	spawnReady(t, tab, 0, proc.PriorityHigh)
	spawnReady(t, tab, 0, proc.PriorityNormal)
	spawnReady(t, tab, 0, proc.PriorityLow)

	// 8 + 4 + 2 + 1
	if got := tab.Load(0); got != 15 {
		t.Errorf("Load = %d, want 15", got)
	}
	if tab.Load(1) != 0 {
		t.Error("idle core load should be 0")
	}
	if tab.Load(9) != 0 {
		t.Error("invalid core load should be 0")
	}
}

func TestFindBusiest(t *testing.T) {
	tab := newStealTable(t, 3, StealByLoad)
	spawnReady(t, tab, 1, proc.PriorityNormal)
	spawnReady(t, tab, 2, proc.PriorityNormal)
	spawnReady(t, tab, 2, proc.PriorityNormal)

	if got := tab.FindBusiest(0); got != 2 {
		t.Errorf("FindBusiest = %d, want 2", got)
	}
	// No other core busier than itself.
	tabIdle := newStealTable(t, 2, StealByLoad)
	if got := tabIdle.FindBusiest(0); got != 0 {
		t.Errorf("FindBusiest on idle table = %d, want 0 (self)", got)
	}
}

func TestSelectByLoad(t *testing.T) {
	tab := newStealTable(t, 2, StealByLoad)
	if _, ok := tab.SelectByLoad(0); ok {
		t.Error("SelectByLoad found a victim on an idle table")
	}
	spawnReady(t, tab, 1, proc.PriorityNormal)
	// One Normal process is load 2, exactly MinStealQueueSize.
	victim, ok := tab.SelectByLoad(0)
	if !ok || victim != 1 {
		t.Errorf("SelectByLoad = (%d, %v), want (1, true)", victim, ok)
	}
}

func TestSelectRandom(t *testing.T) {
	tab := newStealTable(t, 4, StealRandom)
	spawnReady(t, tab, 2, proc.PriorityNormal)
	spawnReady(t, tab, 2, proc.PriorityNormal)

	victim, ok := tab.SelectRandom(0)
	if !ok || victim != 2 {
		t.Errorf("SelectRandom = (%d, %v), want (2, true)", victim, ok)
	}
	if _, ok := tab.SelectRandom(9); ok {
		t.Error("SelectRandom on invalid core should fail")
	}
	single := newStealTable(t, 1, StealRandom)
	if _, ok := single.SelectRandom(0); ok {
		t.Error("SelectRandom with one core should fail")
	}
}

func TestSelectLocality(t *testing.T) {
	// Cores 0-3 cluster 0, cores 4-7 cluster 1 under the synthetic layout.
	tab := NewTable(8, Options{
		Clock:    NewManualClock(),
		Strategy: StealLocality,
		Topology: topology.Synthetic(8),
	})
	// Busy neighbor in-cluster and a busier stranger out-of-cluster.
	spawnReady(t, tab, 1, proc.PriorityNormal)
	spawnReady(t, tab, 1, proc.PriorityNormal)
	for i := 0; i < 4; i++ {
		spawnReady(t, tab, 5, proc.PriorityNormal)
	}

	victim, ok := tab.SelectLocality(0)
	if !ok || victim != 1 {
		t.Errorf("SelectLocality = (%d, %v), want in-cluster (1, true)", victim, ok)
	}

	// With the cluster idle it picks a busy core on the same NUMA node
	// (core 5 shares node 0 with core 0 under the synthetic layout).
	tab2 := NewTable(8, Options{
		Clock:    NewManualClock(),
		Strategy: StealLocality,
		Topology: topology.Synthetic(8),
	})
	for i := 0; i < 3; i++ {
		spawnReady(t, tab2, 5, proc.PriorityNormal)
	}
	victim, ok = tab2.SelectLocality(0)
	if !ok || victim != 5 {
		t.Errorf("SelectLocality fallback = (%d, %v), want (5, true)", victim, ok)
	}
}

func TestIsStealAllowed(t *testing.T) {
	tab := newStealTable(t, 2, StealRandom)
	p := tab.CreateProcess(0, proc.PriorityNormal, 0, 0)

	if tab.IsStealAllowed(0, 0, p) {
		t.Error("same-core steal allowed")
	}
	if tab.IsStealAllowed(0, 5, p) {
		t.Error("invalid target allowed")
	}
	if tab.IsStealAllowed(5, 1, p) {
		t.Error("invalid source allowed")
	}
	if tab.IsStealAllowed(0, 1, nil) {
		t.Error("nil PCB allowed")
	}

	p.MigrationCount = constants.MaxMigrations
	if tab.IsStealAllowed(0, 1, p) {
		t.Error("steal allowed at the migration cap")
	}
	p.MigrationCount = constants.MaxMigrations - 1
	if !tab.IsStealAllowed(0, 1, p) {
		t.Error("steal refused below the migration cap")
	}

	p.SetAffinity([2]uint64{1, 0}) // core 0 only
	if tab.IsStealAllowed(0, 1, p) {
		t.Error("steal allowed against the affinity mask")
	}
}

func TestMigrate(t *testing.T) {
	tab := newStealTable(t, 2, StealRandom)
	p := tab.CreateProcess(0, proc.PriorityNormal, 0, 0)

	if tab.Migrate(nil, 0, 1) {
		t.Error("Migrate accepted nil PCB")
	}
	if tab.Migrate(p, 0, 7) {
		t.Error("Migrate accepted invalid target")
	}

	// Same-core migration: no-op success.
	if !tab.Migrate(p, 0, 0) {
		t.Error("same-core migration should succeed")
	}
	if p.MigrationCount != 0 {
		t.Error("same-core migration counted")
	}

	if !tab.Migrate(p, 0, 1) {
		t.Error("valid migration failed")
	}
	if p.SchedulerID != 1 {
		t.Errorf("SchedulerID = %d, want 1", p.SchedulerID)
	}
	if p.MigrationCount != 1 {
		t.Errorf("MigrationCount = %d, want 1", p.MigrationCount)
	}
	if got := tab.State(0).Stats.Migrations; got != 1 {
		t.Errorf("source Migrations stat = %d, want 1", got)
	}
}

func TestTryStealWork(t *testing.T) {
	tab := newStealTable(t, 2, StealByLoad)

	// Victim core 1 has two ready processes; ShareWork exports one.
	spawnReady(t, tab, 1, proc.PriorityNormal)
	p2 := spawnReady(t, tab, 1, proc.PriorityNormal)
	if tab.ShareWork(1) != 1 {
		t.Fatal("ShareWork did not export")
	}

	stolen := tab.TryStealWork(0)
	if stolen == nil {
		t.Fatal("TryStealWork found nothing")
	}
	if stolen != p2 {
		t.Errorf("stole pid %d, want the exported pid %d", stolen.Pid, p2.Pid)
	}
	if stolen.SchedulerID != 0 {
		t.Error("stolen process not migrated to the thief")
	}
	if stolen.MigrationCount != 1 {
		t.Error("migration not counted")
	}
}

func TestTryStealRespectsAffinity(t *testing.T) {
	tab := newStealTable(t, 2, StealByLoad)
	spawnReady(t, tab, 1, proc.PriorityNormal)
	p2 := spawnReady(t, tab, 1, proc.PriorityNormal)
	p2.SetAffinity([2]uint64{0b10, 0}) // core 1 only
	if tab.ShareWork(1) != 1 {
		t.Fatal("ShareWork did not export")
	}
	if got := tab.TryStealWork(0); got != nil {
		t.Errorf("stole pid %d despite affinity", got.Pid)
	}
}

func TestIdleTriggersSteal(t *testing.T) {
	tab := newStealTable(t, 2, StealByLoad)
	spawnReady(t, tab, 1, proc.PriorityNormal)
	spawnReady(t, tab, 1, proc.PriorityNormal)
	tab.ShareWork(1)

	tab.Idle(0)
	if n := tab.ReadyCount(0); n != 1 {
		t.Errorf("core 0 ready count = %d after idle steal, want 1", n)
	}
	if p := tab.Schedule(0); p == nil {
		t.Error("stolen process should be schedulable on the thief")
	}
}
