package core

import (
	"encoding/hex"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// Environment variables read by LoadConfig.
const (
	EnvLogSpec    = "TASKRT_LOG"
	EnvThreads    = "TASKRT_THREADS"
	EnvSeed       = "TASKRT_SEED"
	EnvConfigFile = "TASKRT_CONFIG"
)

// RuntimeConfig is the immutable snapshot of environment-derived runtime
// settings. It is loaded once at process start, validated, and shared by
// reference; nothing mutates it afterwards.
type RuntimeConfig struct {
	// LogSpec is the raw log settings string, e.g. "warn" or
	// "kernel=debug,scheduler=info". Parsed during kernel bootstrap.
	LogSpec string `yaml:"log"`

	// Threads is the scheduler thread-count hint. 0 means "pick a default"
	// (the machine's logical CPU count).
	Threads int `yaml:"threads" validate:"min=0,max=1024"`

	// Seed, when non-empty, is a hex-encoded fixed seed making the
	// process-level RandomSource deterministic.
	Seed string `yaml:"seed" validate:"omitempty,hexadecimal"`

	// RunID uniquely identifies this runtime instance in logs and metrics.
	RunID string `yaml:"-"`

	// Args is the argument vector handed to the entry point, minus any
	// runtime option overrides consumed by LoadConfig.
	Args []string `yaml:"-"`
}

var configValidate = validator.New()

// LoadConfig builds the RuntimeConfig for this process. Sources are merged in
// increasing precedence: defaults, an optional YAML config file named by
// TASKRT_CONFIG, environment variables, then leading "--key=value" overrides
// in the argument vector. Remaining arguments are preserved in Args.
//
// A malformed or invalid configuration is returned as an error; callers on
// the bootstrap path treat it as fatal.
func LoadConfig(args []string) (*RuntimeConfig, error) {
	cfg := &RuntimeConfig{
		RunID: uuid.NewString(),
	}

	if path := os.Getenv(EnvConfigFile); path != "" {
		if err := loadConfigFile(cfg, path); err != nil {
			return nil, err
		}
	}

	if v := os.Getenv(EnvLogSpec); v != "" {
		cfg.LogSpec = v
	}
	if v := os.Getenv(EnvThreads); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("config: %s=%q is not an integer: %w", EnvThreads, v, err)
		}
		cfg.Threads = n
	}
	if v := os.Getenv(EnvSeed); v != "" {
		cfg.Seed = v
	}

	rest, err := applyArgOverrides(cfg, args)
	if err != nil {
		return nil, err
	}
	cfg.Args = rest

	if err := configValidate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("config: validation failed: %w", err)
	}
	if _, err := ParseLogSpec(cfg.LogSpec); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if _, err := cfg.SeedBytes(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func loadConfigFile(cfg *RuntimeConfig, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return nil
}

// applyArgOverrides consumes leading --log= / --threads= / --seed= entries and
// returns the remaining arguments untouched. The first non-option argument
// ends override processing so task arguments pass through verbatim.
func applyArgOverrides(cfg *RuntimeConfig, args []string) ([]string, error) {
	i := 0
	for ; i < len(args); i++ {
		key, value, ok := strings.Cut(args[i], "=")
		if !ok || !strings.HasPrefix(key, "--") {
			break
		}
		switch key {
		case "--log":
			cfg.LogSpec = value
		case "--threads":
			n, err := strconv.Atoi(value)
			if err != nil {
				return nil, fmt.Errorf("config: %s is not an integer: %w", args[i], err)
			}
			cfg.Threads = n
		case "--seed":
			cfg.Seed = value
		default:
			// Unknown options belong to the hosted program.
			return args[i:], nil
		}
	}
	return args[i:], nil
}

// SchedulerThreads resolves the thread-count hint to a concrete value.
func (c *RuntimeConfig) SchedulerThreads() int {
	if c.Threads > 0 {
		return c.Threads
	}
	return runtime.NumCPU()
}

// SeedBytes decodes the fixed seed, or returns nil when the process should
// use OS entropy.
func (c *RuntimeConfig) SeedBytes() ([]byte, error) {
	if c.Seed == "" {
		return nil, nil
	}
	b, err := hex.DecodeString(c.Seed)
	if err != nil {
		return nil, fmt.Errorf("config: seed is not valid hex: %w", err)
	}
	return b, nil
}

// =============================================================================
// Static metadata table
// =============================================================================

// StaticMetadata is the platform-supplied metadata table handed to the
// runtime entry point. The runtime reads module names for log filtering and
// records the GC payload; it never interprets the payload itself.
type StaticMetadata struct {
	// Modules lists the module names known to the hosted program, used to
	// vet log spec entries.
	Modules []string

	// GCPayload is the opaque GC/static metadata pointer.
	GCPayload any
}

var gcMetadata atomic.Value

// UpdateGCMetadata records the process GC/static metadata table. Later calls
// replace earlier ones; the runtime only retains the most recent pointer.
func UpdateGCMetadata(meta *StaticMetadata) {
	if meta == nil {
		return
	}
	gcMetadata.Store(meta)
}

// GCMetadata returns the recorded metadata table, or nil if none was loaded.
func GCMetadata() *StaticMetadata {
	if v := gcMetadata.Load(); v != nil {
		return v.(*StaticMetadata)
	}
	return nil
}
