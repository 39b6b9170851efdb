package sched

import (
	"github.com/behrlich/go-actly/internal/constants"
	"github.com/behrlich/go-actly/internal/proc"
)

// loadWeights weight the ready-queue lengths by priority when computing a
// scheduler's load. Max work counts heaviest.
var loadWeights = [constants.NumPriorities]uint64{8, 4, 2, 1}

// Load returns the weighted ready load of core, including work parked on
// the steal surface. Invalid cores have load 0.
func (t *Table) Load(core uint32) uint64 {
	if !t.validCore(core) {
		return 0
	}
	s := &t.states[core]
	var load uint64
	for prio := range s.Ready {
		load += uint64(s.Ready[prio].Count) * loadWeights[prio]
	}
	load += uint64(s.Deque.Size())
	return load
}

// FindBusiest returns the core with the highest load other than current,
// or current itself when no other core has more.
func (t *Table) FindBusiest(current uint32) uint32 {
	if !t.validCore(current) {
		return current
	}
	busiest := current
	var best uint64
	for core := uint32(0); core < t.maxCores; core++ {
		if core == current {
			continue
		}
		if load := t.Load(core); load > best {
			best = load
			busiest = core
		}
	}
	return busiest
}

// nextRand is a per-scheduler xorshift; victim selection must not contend
// on a shared source.
func (s *State) nextRand() uint64 {
	x := s.rng
	x ^= x << 13
	x ^= x >> 7
	x ^= x << 17
	s.rng = x
	return x
}

// SelectRandom picks a victim uniformly among the other cores, retrying a
// bounded number of draws until one with stealable load appears.
func (t *Table) SelectRandom(current uint32) (uint32, bool) {
	if !t.validCore(current) || t.maxCores < 2 {
		return current, false
	}
	s := &t.states[current]
	for attempt := 0; attempt < 2*int(t.maxCores); attempt++ {
		victim := uint32(s.nextRand() % uint64(t.maxCores))
		if victim == current {
			continue
		}
		if t.Load(victim) >= constants.MinStealQueueSize {
			return victim, true
		}
	}
	return current, false
}

// SelectByLoad picks the busiest other core, provided it has enough load to
// be worth a steal.
func (t *Table) SelectByLoad(current uint32) (uint32, bool) {
	if !t.validCore(current) {
		return current, false
	}
	victim := t.FindBusiest(current)
	if victim == current || t.Load(victim) < constants.MinStealQueueSize {
		return current, false
	}
	return victim, true
}

// SelectLocality prefers a victim on the same cluster, then the same NUMA
// node, falling back to by-load when the neighborhood is idle.
func (t *Table) SelectLocality(current uint32) (uint32, bool) {
	if !t.validCore(current) {
		return current, false
	}
	cluster, _ := t.topo.Cluster(current)
	node, _ := t.topo.NUMANode(current)

	victim, best := current, uint64(0)
	for core := uint32(0); core < t.maxCores; core++ {
		if core == current {
			continue
		}
		load := t.Load(core)
		if load < constants.MinStealQueueSize {
			continue
		}
		if c, ok := t.topo.Cluster(core); ok && c == cluster && load > best {
			victim, best = core, load
		}
	}
	if victim != current {
		return victim, true
	}
	for core := uint32(0); core < t.maxCores; core++ {
		if core == current {
			continue
		}
		load := t.Load(core)
		if load < constants.MinStealQueueSize {
			continue
		}
		if n, ok := t.topo.NUMANode(core); ok && n == node && load > best {
			victim, best = core, load
		}
	}
	if victim != current {
		return victim, true
	}
	return t.SelectByLoad(current)
}

// IsStealAllowed decides whether pcb may move from source to target: both
// cores valid and distinct, the process affinity admits target, and the
// migration cap is not yet reached.
func (t *Table) IsStealAllowed(source, target uint32, p *proc.PCB) bool {
	if source == target {
		return false
	}
	if !t.validCore(source) || !t.validCore(target) {
		return false
	}
	if p == nil || !p.AllowedOn(target) {
		return false
	}
	if p.MigrationCount >= constants.MaxMigrations {
		return false
	}
	return true
}

// TryStealWork attempts one steal on behalf of core: select a victim, check
// permission against the candidate at the top of its deque, then race for
// it with PopTop. The stolen process is migrated to core and returned; nil
// on any miss.
func (t *Table) TryStealWork(core uint32) *proc.PCB {
	if !t.validCore(core) || !t.stealOn {
		return nil
	}
	var victim uint32
	var ok bool
	switch t.strategy {
	case StealByLoad:
		victim, ok = t.SelectByLoad(core)
	case StealLocality:
		victim, ok = t.SelectLocality(core)
	default:
		victim, ok = t.SelectRandom(core)
	}
	if !ok {
		if t.obs != nil {
			t.obs.ObserveSteal(core, core, false)
		}
		return nil
	}

	vs := &t.states[victim]
	candidate := t.arena.Get(vs.Deque.PeekTop())
	if candidate == nil || !t.IsStealAllowed(victim, core, candidate) {
		if t.obs != nil {
			t.obs.ObserveSteal(core, victim, false)
		}
		return nil
	}
	p := t.arena.Get(vs.Deque.PopTop())
	if p == nil {
		if t.obs != nil {
			t.obs.ObserveSteal(core, victim, false)
		}
		return nil
	}
	if p != candidate && !t.IsStealAllowed(victim, core, p) {
		// Raced past the peeked candidate onto one we may not take; hand
		// it back to the victim's ready queue.
		t.Enqueue(victim, p, p.Priority)
		if t.obs != nil {
			t.obs.ObserveSteal(core, victim, false)
		}
		return nil
	}
	t.Migrate(p, victim, core)
	if t.obs != nil {
		t.obs.ObserveSteal(core, victim, true)
	}
	return p
}

// Migrate moves ownership of p from source to target. Same-core migration
// is a successful no-op. The migration counter feeds the steal cap; the
// source scheduler's statistic records the departure.
func (t *Table) Migrate(p *proc.PCB, source, target uint32) bool {
	if p == nil || !t.validCore(source) || !t.validCore(target) {
		return false
	}
	if source == target {
		return true
	}
	p.SchedulerID = target
	p.MigrationCount++
	t.states[source].Stats.Migrations++
	return true
}
