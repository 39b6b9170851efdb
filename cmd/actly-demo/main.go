package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/behrlich/go-actly"
	"github.com/behrlich/go-actly/internal/logging"
)

func main() {
	var (
		cores      = flag.Int("cores", 4, "Number of scheduler cores")
		procs      = flag.Int("procs", 64, "Number of worker processes to spawn")
		work       = flag.Int("work", 10000, "Reduction-charged work units per process")
		duration   = flag.Duration("duration", 5*time.Second, "How long to run before shutting down")
		configPath = flag.String("config", "", "Optional TOML config file")
		verbose    = flag.Bool("v", false, "Verbose output")
	)
	flag.Parse()

	var cfg *actly.Config
	var err error
	if *configPath != "" {
		cfg, err = actly.LoadConfig(*configPath)
		if err != nil {
			log.Fatalf("Invalid config: %v", err)
		}
	} else {
		cfg = actly.DefaultConfig()
		cfg.Cores = uint32(*cores)
	}
	if *verbose {
		cfg.LogLevel = "debug"
	}

	// Set up logging
	logConfig := logging.DefaultConfig()
	if *verbose {
		logConfig.Level = logging.LevelDebug
	}
	logger := logging.NewLogger(logConfig)
	logging.SetDefault(logger)

	rt, err := actly.NewRuntime(cfg)
	if err != nil {
		logger.Error("failed to create runtime", "error", err)
		os.Exit(1)
	}
	defer rt.Close()

	// Worker: burn the requested work units one reduction at a time, then
	// exit. The reduction trap rotates workers automatically.
	const workerEntry = 0x1000
	var completed atomic.Int64
	var budgets sync.Map // pid -> *atomic.Int64

	rt.RegisterEntry(workerEntry, func(env *actly.Env) actly.Action {
		v, ok := budgets.Load(env.Pid())
		if !ok {
			return actly.ExitWith(1)
		}
		left := v.(*atomic.Int64)
		for left.Load() > 0 {
			left.Add(-1)
			if env.ChargeReduction() {
				return actly.Continue() // preempted; resume next slice
			}
		}
		completed.Add(1)
		return actly.ExitWith(0)
	})

	logger.Info("spawning workers", "procs", *procs, "cores", cfg.Cores)
	for i := 0; i < *procs; i++ {
		core := uint32(i) % cfg.Cores
		pid, err := rt.Spawn(core, workerEntry, actly.PriorityNormal, 0, 0)
		if err != nil {
			logger.Error("spawn failed", "error", err)
			os.Exit(1)
		}
		budget := new(atomic.Int64)
		budget.Store(int64(*work))
		budgets.Store(pid, budget)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			logger.Info("interrupted, shutting down")
			cancel()
		case <-ctx.Done():
		}
	}()

	go func() {
		// Stop early once every worker has exited.
		for completed.Load() < int64(*procs) {
			select {
			case <-ctx.Done():
				return
			default:
			}
			time.Sleep(10 * time.Millisecond)
		}
		cancel()
	}()

	start := time.Now()
	rt.Run(ctx)
	elapsed := time.Since(start)

	snap := rt.Metrics().Snapshot()
	fmt.Printf("Ran %d workers on %d cores in %v\n", *procs, cfg.Cores, elapsed.Round(time.Millisecond))
	fmt.Printf("  completed:       %d\n", completed.Load())
	fmt.Printf("  schedules:       %d\n", snap.Scheduled)
	fmt.Printf("  spawns/exits:    %d/%d\n", snap.Spawned, snap.Exited)
	fmt.Printf("  steal attempts:  %d (%d successful)\n", snap.StealAttempts, snap.StealSuccesses)
	fmt.Printf("  blocks/wakes:    %d/%d\n", snap.Blocks, snap.Wakes)
}
