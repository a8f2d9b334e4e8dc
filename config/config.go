package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jonwraymond/evalcache/cache"
	"github.com/jonwraymond/evalcache/fingerprint"
	"github.com/jonwraymond/evalcache/observe"
	"github.com/jonwraymond/evalcache/runner"
)

// FileName is the configuration file looked up in the standard locations.
const FileName = "evalcache.yaml"

// Store backends.
const (
	BackendBolt   = "bolt"
	BackendFile   = "file"
	BackendMemory = "memory"
)

// ValidBackends lists the accepted store.backend values.
var ValidBackends = []string{BackendBolt, BackendFile, BackendMemory}

// Config is the evalcache configuration.
type Config struct {
	Store StoreConfig `yaml:"store"`

	// EnvAllowlist names the variables that are part of a command identity.
	EnvAllowlist []string `yaml:"env_allowlist"`

	CacheFailures bool `yaml:"cache_failures"`

	// LogArgs replaces the flags that enable the structured log stream.
	// Unset keeps the runner default.
	LogArgs []string `yaml:"log_args"`

	// IgnorePrefixes defaults to the nix store. Ignored paths are never
	// fingerprinted, so a garbage-collected store path does not invalidate
	// an entry.
	IgnorePrefixes []string `yaml:"ignore_prefixes"`

	ExtraWatchPaths []string `yaml:"extra_watch_paths"`

	// MaxHashSize caps content hashing of dependencies in bytes. Negative
	// disables content hashing.
	MaxHashSize int64 `yaml:"max_hash_size"`

	Timeout time.Duration `yaml:"timeout"`

	Observe observe.Config `yaml:"observe"`
}

// StoreConfig selects where entries persist.
type StoreConfig struct {
	Backend     string        `yaml:"backend"` // bolt|file|memory
	Path        string        `yaml:"path"`
	LockTimeout time.Duration `yaml:"lock_timeout"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		Store: StoreConfig{
			Backend:     BackendBolt,
			Path:        defaultStorePath(),
			LockTimeout: cache.DefaultBoltLockTimeout,
		},
		IgnorePrefixes: []string{"/nix/store/"},
		MaxHashSize:    fingerprint.DefaultMaxHashSize,
		Observe: observe.Config{
			ServiceName: "evalcache",
			Tracing:     observe.TracingConfig{Exporter: "none", SamplePct: 1.0},
			Metrics:     observe.MetricsConfig{Exporter: "none"},
			Logging:     observe.LoggingConfig{Enabled: true, Level: "warn"},
		},
	}
}

func defaultStorePath() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "evalcache", "cache.db")
}

// Load reads the file at path over Default, expands ${VAR} references and
// validates the result. Unknown keys are rejected.
func Load(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	defer f.Close()
	return Decode(f, os.LookupEnv)
}

// Decode reads YAML from r over Default using lookup for ${VAR} expansion.
func Decode(r io.Reader, lookup func(string) (string, bool)) (Config, error) {
	cfg := Default()

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("config: decoding: %w", err)
	}

	if err := cfg.expand(lookup); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) expand(lookup func(string) (string, bool)) error {
	var err error
	if c.Store.Path, err = ExpandEnvStrict(c.Store.Path, lookup); err != nil {
		return fmt.Errorf("store.path: %w", err)
	}
	if c.ExtraWatchPaths, err = expandAll(c.ExtraWatchPaths, lookup); err != nil {
		return fmt.Errorf("extra_watch_paths: %w", err)
	}
	if c.IgnorePrefixes, err = expandAll(c.IgnorePrefixes, lookup); err != nil {
		return fmt.Errorf("ignore_prefixes: %w", err)
	}
	return nil
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case BackendBolt, BackendFile:
		if c.Store.Path == "" {
			return fmt.Errorf("%w for backend %q", ErrMissingStorePath, c.Store.Backend)
		}
	case BackendMemory:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidBackend, c.Store.Backend)
	}
	if c.Store.LockTimeout < 0 {
		return fmt.Errorf("%w: store.lock_timeout", ErrInvalidTimeout)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("%w: timeout", ErrInvalidTimeout)
	}
	if err := c.Observe.Validate(); err != nil {
		return fmt.Errorf("observe: %w", err)
	}
	return nil
}

// OpenStore constructs the configured store backend.
func (c StoreConfig) OpenStore() (cache.Store, error) {
	switch c.Backend {
	case BackendBolt:
		return cache.NewBoltStore(c.Path, c.LockTimeout)
	case BackendFile:
		return cache.NewFileStore(c.Path)
	case BackendMemory:
		return cache.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidBackend, c.Backend)
	}
}

// Fingerprinter returns a fingerprinter honoring MaxHashSize.
func (c *Config) Fingerprinter() *fingerprint.Fingerprinter {
	return &fingerprint.Fingerprinter{MaxHashSize: c.MaxHashSize}
}

// RunOptions converts the per-run settings to runner options.
func (c *Config) RunOptions() runner.Options {
	return runner.Options{
		EnvAllowlist:    append([]string(nil), c.EnvAllowlist...),
		CacheFailures:   c.CacheFailures,
		LogArgs:         c.LogArgs,
		ExtraWatchPaths: append([]string(nil), c.ExtraWatchPaths...),
		IgnorePrefixes:  append([]string(nil), c.IgnorePrefixes...),
		Timeout:         c.Timeout,
	}
}

// Find returns the first existing configuration file. EVALCACHE_CONFIG wins
// when set; then XDG_CONFIG_HOME, APPDATA and HOME are searched in order.
func Find(lookup func(string) (string, bool)) (string, error) {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	if path, ok := lookup("EVALCACHE_CONFIG"); ok && path != "" {
		return path, nil
	}
	var candidates []string
	if dir, ok := lookup("XDG_CONFIG_HOME"); ok && dir != "" {
		candidates = append(candidates, filepath.Join(dir, "evalcache", FileName))
	}
	if dir, ok := lookup("APPDATA"); ok && dir != "" {
		candidates = append(candidates, filepath.Join(dir, "evalcache", FileName))
	}
	if dir, ok := lookup("HOME"); ok && dir != "" {
		candidates = append(candidates, filepath.Join(dir, ".config", "evalcache", FileName))
	}
	for _, file := range candidates {
		if info, err := os.Stat(file); err == nil && !info.IsDir() {
			return file, nil
		}
	}
	return "", ErrNotFound
}
