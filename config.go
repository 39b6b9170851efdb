package actly

import (
	"fmt"
	"runtime"

	"github.com/BurntSushi/toml"

	"github.com/behrlich/go-actly/internal/constants"
	"github.com/behrlich/go-actly/internal/sched"
)

// Config configures a Runtime. The zero value is not usable; start from
// DefaultConfig or a TOML file.
type Config struct {
	// Cores is the number of per-core schedulers, at most MaxCores.
	Cores uint32 `toml:"cores"`

	// WorkStealing enables idle-core stealing.
	WorkStealing bool `toml:"work_stealing"`

	// StealStrategy picks victims: "random", "by_load", or "locality".
	StealStrategy string `toml:"steal_strategy"`

	// DequeCapacity sizes each scheduler's steal ring; must be a power of
	// two in [4, 1024]. 0 selects the default.
	DequeCapacity int `toml:"deque_capacity"`

	// LogLevel is "debug", "info", "warn", or "error".
	LogLevel string `toml:"log_level"`

	// DetectTopology reads the host core layout instead of the synthetic
	// one. Only effective on Linux.
	DetectTopology bool `toml:"detect_topology"`

	// PinThreads binds each scheduler thread to its core while running.
	PinThreads bool `toml:"pin_threads"`
}

// DefaultConfig returns a sensible default configuration: one scheduler per
// host CPU, random-victim stealing on.
func DefaultConfig() *Config {
	cores := uint32(runtime.NumCPU())
	if cores > constants.MaxCores {
		cores = constants.MaxCores
	}
	return &Config{
		Cores:         cores,
		WorkStealing:  constants.WorkStealEnabled == 1,
		StealStrategy: "random",
		LogLevel:      "info",
	}
}

// LoadConfig reads a TOML config file, filling unset fields from the
// defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for usable values.
func (c *Config) Validate() error {
	if c.Cores == 0 || c.Cores > constants.MaxCores {
		return &Error{Op: "CONFIG", Core: -1, Code: ErrCodeInvalidCore,
			Msg: fmt.Sprintf("cores must be in [1, %d], got %d", constants.MaxCores, c.Cores)}
	}
	switch c.StealStrategy {
	case "", "random", "by_load", "locality":
	default:
		return &Error{Op: "CONFIG", Core: -1, Code: ErrCodePermissionDenied,
			Msg: fmt.Sprintf("unknown steal strategy %q", c.StealStrategy)}
	}
	if c.DequeCapacity != 0 {
		cap := c.DequeCapacity
		if cap < constants.DequeMinCapacity || cap > constants.DequeMaxCapacity || cap&(cap-1) != 0 {
			return &Error{Op: "CONFIG", Core: -1, Code: ErrCodeSizeOutOfRange,
				Msg: fmt.Sprintf("deque capacity must be a power of two in [%d, %d]",
					constants.DequeMinCapacity, constants.DequeMaxCapacity)}
		}
	}
	return nil
}

// strategy maps the config string onto the scheduler's victim selector.
func (c *Config) strategy() sched.StealStrategy {
	switch c.StealStrategy {
	case "by_load":
		return sched.StealByLoad
	case "locality":
		return sched.StealLocality
	default:
		return sched.StealRandom
	}
}
