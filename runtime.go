// Package actly is a BEAM-inspired preemptive multicore scheduler for
// lightweight processes. A Runtime hosts one scheduler per core; processes
// are spawned onto a core, run until their reduction budget is exhausted,
// and are preempted, blocked, woken, and stolen between cores by the
// scheduling core in internal/sched.
package actly

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/behrlich/go-actly/internal/iopoll"
	"github.com/behrlich/go-actly/internal/logging"
	"github.com/behrlich/go-actly/internal/proc"
	"github.com/behrlich/go-actly/internal/sched"
	"github.com/behrlich/go-actly/internal/topology"
)

// Message is one mailbox entry, pattern plus opaque payload.
type Message = proc.Message

// Runtime is the public handle over the scheduler array.
type Runtime struct {
	cfg     *Config
	table   *sched.Table
	metrics *Metrics
	logger  *logging.Logger
	poller  iopoll.Poller

	mu       sync.Mutex
	handlers map[uint64]ProcessFunc
	closed   bool
}

// NewRuntime builds a runtime from cfg. A nil cfg selects the defaults.
func NewRuntime(cfg *Config) (*Runtime, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logCfg := logging.DefaultConfig()
	logCfg.Level = logging.ParseLevel(cfg.LogLevel)
	logger := logging.NewLogger(logCfg)

	var topo *topology.Table
	if cfg.DetectTopology {
		topo = topology.Detect(cfg.Cores)
	} else {
		topo = topology.Synthetic(cfg.Cores)
	}

	metrics := NewMetrics()
	table := sched.NewTable(cfg.Cores, sched.Options{
		Observer:      metrics,
		Topology:      topo,
		Strategy:      cfg.strategy(),
		DequeCapacity: cfg.DequeCapacity,
		DisableSteal:  !cfg.WorkStealing,
	})
	if table == nil {
		return nil, newError("INIT", int(cfg.Cores), ErrCodeInvalidCore)
	}

	// The io_uring poller only exists under -tags giouring; everything else
	// gets the manual completion source.
	poller, err := iopoll.NewRingPoller(iopoll.Config{})
	if err != nil {
		logger.Debug("io_uring poller unavailable, using manual completion source", "error", err)
		poller = iopoll.NewManual()
	}

	return &Runtime{
		cfg:      cfg,
		table:    table,
		metrics:  metrics,
		logger:   logger,
		poller:   poller,
		handlers: make(map[uint64]ProcessFunc),
	}, nil
}

// Close shuts the runtime down. Run loops must have stopped first.
func (r *Runtime) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	r.metrics.MarkStopped()
	return r.poller.Close()
}

// Table exposes the scheduler array for the harness and tests.
func (r *Runtime) Table() *sched.Table { return r.table }

// Metrics returns the runtime counters.
func (r *Runtime) Metrics() *Metrics { return r.metrics }

// Poller returns the I/O completion source.
func (r *Runtime) Poller() iopoll.Poller { return r.poller }

// Spawn creates a process running the entry registered at entry on core.
// Sizes of zero select the defaults. Returns the new pid.
func (r *Runtime) Spawn(core uint32, entry uint64, prio Priority, stackSize, heapSize uint64) (uint64, error) {
	if core >= r.table.MaxCores() {
		return 0, newError("SPAWN", int(core), ErrCodeInvalidCore)
	}
	if !prio.Valid() {
		return 0, newError("SPAWN", int(core), ErrCodeInvalidPriority)
	}
	if stackSize != 0 && (stackSize < DefaultStackSize || stackSize > MaxStackSize) {
		return 0, newError("SPAWN", int(core), ErrCodeSizeOutOfRange)
	}
	if heapSize != 0 && (heapSize < DefaultHeapSize || heapSize > MaxHeapSize) {
		return 0, newError("SPAWN", int(core), ErrCodeSizeOutOfRange)
	}
	// Spawns from outside any process (no current) skip the reduction trap;
	// spawns from a process charge it through the BIF.
	if r.table.CurrentProcess(core) != nil {
		pid := r.table.SpawnBIF(core, entry, prio, stackSize, heapSize)
		if pid == 0 {
			return 0, newError("SPAWN", int(core), ErrCodePreempted)
		}
		return pid, nil
	}
	p := r.table.CreateProcess(entry, prio, stackSize, heapSize)
	if p == nil {
		return 0, newError("SPAWN", int(core), ErrCodePoolExhausted)
	}
	p.Transition(proc.StateReady)
	if !r.table.Enqueue(core, p, prio) {
		r.table.DestroyProcess(p)
		return 0, newError("SPAWN", int(core), ErrCodeInvalidCore)
	}
	r.metrics.ObserveSpawn(core, p.Pid)
	return p.Pid, nil
}

// Yield runs the yield BIF for core's current process.
func (r *Runtime) Yield(core uint32) error {
	if core >= r.table.MaxCores() {
		return newError("YIELD", int(core), ErrCodeInvalidCore)
	}
	if !r.table.YieldBIF(core) {
		return newError("YIELD", int(core), ErrCodePreempted)
	}
	return nil
}

// Exit runs the exit BIF for core's current process.
func (r *Runtime) Exit(core uint32, reason uint64) error {
	if core >= r.table.MaxCores() {
		return newError("EXIT", int(core), ErrCodeInvalidCore)
	}
	if !r.table.ExitBIF(core, reason) {
		return newError("EXIT", int(core), ErrCodePreempted)
	}
	return nil
}

// Send delivers a message to pid's mailbox, waking the receiver if it is
// blocked on a matching receive.
func (r *Runtime) Send(pid uint64, pattern, payload uint64) error {
	p := r.table.Arena().LookupPid(pid)
	if p == nil {
		return &Error{Op: "SEND", Core: -1, Pid: pid, Code: ErrCodeUnknownPid}
	}
	if !r.table.Send(p, pattern, payload) {
		return &Error{Op: "SEND", Core: -1, Pid: pid, Code: ErrCodeInvalidPCB}
	}
	return nil
}

// RegisterEntry binds an entry address to a Go handler. The address is what
// Spawn takes; the dispatcher invokes the handler whenever a process with
// that entry point is scheduled.
func (r *Runtime) RegisterEntry(entry uint64, fn ProcessFunc) {
	r.mu.Lock()
	r.handlers[entry] = fn
	r.mu.Unlock()
}

func (r *Runtime) handler(entry uint64) ProcessFunc {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.handlers[entry]
}

// Run drives one OS thread per scheduler until ctx is done. Each thread is
// locked and, when configured, pinned to its core. Returns when every
// scheduler thread has parked.
func (r *Runtime) Run(ctx context.Context) error {
	cores := r.table.MaxCores()
	var wg sync.WaitGroup
	for core := uint32(0); core < cores; core++ {
		wg.Add(1)
		go func(core uint32) {
			defer wg.Done()
			runtime.LockOSThread()
			defer runtime.UnlockOSThread()
			if r.cfg.PinThreads {
				if err := topology.Pin(core); err != nil {
					r.logger.Warn("failed to pin scheduler thread", "core", core, "error", err)
				}
			}
			r.runCore(ctx, core)
		}(core)
	}
	wg.Wait()
	return ctx.Err()
}

// runCore is one scheduler thread's loop: timers, I/O completions, pick,
// dispatch, idle.
func (r *Runtime) runCore(ctx context.Context, core uint32) {
	idleDelay := time.Microsecond * 50
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		r.table.CheckTimerWakeups(core)
		r.reapIO(core)

		// A process that kept running through its last slice is still
		// current; picking another one would orphan it.
		p := r.table.CurrentProcess(core)
		if p == nil {
			p = r.table.Schedule(core)
		}
		if p == nil {
			r.table.Idle(core)
			time.Sleep(idleDelay)
			continue
		}
		r.table.ShareWork(core)
		r.dispatch(core, p)
	}
}

// reapIO drains the poller and wakes I/O sleepers. Core 0 reaps for the
// whole runtime; descriptors are matched on every core.
func (r *Runtime) reapIO(core uint32) {
	if core != 0 {
		return
	}
	completions, err := r.poller.Reap(64)
	if err != nil || len(completions) == 0 {
		return
	}
	for _, c := range completions {
		for target := uint32(0); target < r.table.MaxCores(); target++ {
			if r.table.CompleteIO(target, c.Descriptor) > 0 {
				break
			}
		}
	}
}

// dispatch runs the handler for a scheduled process and applies its
// resulting action. Processes with no registered handler are terminated;
// there is nothing to jump into.
func (r *Runtime) dispatch(core uint32, p *proc.PCB) {
	fn := r.handler(p.EntryPoint)
	if fn == nil {
		r.logger.Warn("no handler for entry point, terminating", "pid", p.Pid, "entry", p.EntryPoint)
		r.table.ExitBIF(core, 0)
		return
	}
	env := &Env{rt: r, core: core, pcb: p}
	action := fn(env)

	// The handler may have already context-switched the process out
	// (blocked, exited, or been preempted by a BIF trap). Only act when it
	// is still the current process.
	if r.table.CurrentProcess(core) != p {
		return
	}
	switch action.kind {
	case actionExit:
		r.table.ExitBIF(core, action.reason)
	case actionYield:
		r.table.YieldBIF(core)
	default:
		// Keep running: charge one reduction so spinning handlers still
		// preempt eventually.
		r.table.DecrementReductionsWithCheck(core)
	}
}
