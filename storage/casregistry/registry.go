package casregistry

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"ledgertx.io/ledgertx/storage"
)

// Backend is a build-time plugin that can open a storage.CAS implementation.
//
// Backends typically register themselves in init():
//
//	casregistry.MustRegister(casregistry.Backend{ ... })
//
// The binary must import the backend package for registration to occur.
type Backend struct {
	Name        string
	Description string
	Usage       Usage

	// Options lists the settings the backend accepts. Settings not listed here
	// are rejected by Open.
	Options []Option

	// Open constructs the CAS. It returns an optional close function.
	Open func(ctx context.Context, env Env) (storage.CAS, func() error, error)
}

// Option documents one backend setting.
type Option struct {
	Key     string
	Default string
	Help    string
}

// Env is what a backend receives when opened.
type Env struct {
	Settings Settings
	Logger   *zap.Logger
}

// Settings holds backend settings as strings, the way they appear in config
// files and on the command line.
type Settings map[string]string

func (s Settings) String(key string) string { return s[key] }

func (s Settings) Int(key string) (int, error) {
	v := s[key]
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("setting %s: %w", key, err)
	}
	return n, nil
}

func (s Settings) Bool(key string) (bool, error) {
	v := s[key]
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("setting %s: %w", key, err)
	}
	return b, nil
}

func (s Settings) Duration(key string) (time.Duration, error) {
	v := s[key]
	if v == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("setting %s: %w", key, err)
	}
	return d, nil
}

var (
	mu       sync.RWMutex
	backends = map[string]Backend{}
)

// Register registers a backend.
func Register(b Backend) error {
	if b.Name == "" {
		return fmt.Errorf("casregistry: backend name is required")
	}
	if b.Open == nil {
		return fmt.Errorf("casregistry: backend %q missing Open", b.Name)
	}
	if b.Usage == 0 {
		return fmt.Errorf("casregistry: backend %q missing Usage", b.Name)
	}

	mu.Lock()
	defer mu.Unlock()
	if _, exists := backends[b.Name]; exists {
		return fmt.Errorf("casregistry: backend %q already registered", b.Name)
	}
	backends[b.Name] = b
	return nil
}

// MustRegister is like Register but panics on error.
func MustRegister(b Backend) {
	if err := Register(b); err != nil {
		panic(err)
	}
}

// List returns backends matching usage, sorted by name.
func List(usage Usage) []Backend {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]Backend, 0, len(backends))
	for _, b := range backends {
		if b.Usage.allows(usage) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Names returns backend names matching usage, sorted.
func Names(usage Usage) []string {
	bs := List(usage)
	n := make([]string, 0, len(bs))
	for _, b := range bs {
		n = append(n, b.Name)
	}
	return n
}

// Open opens the named backend if it exists and matches usage. Option
// defaults fill settings that are absent; unknown settings are an error.
func Open(ctx context.Context, name string, usage Usage, settings map[string]string, log *zap.Logger) (storage.CAS, func() error, error) {
	mu.RLock()
	b, ok := backends[name]
	mu.RUnlock()
	if !ok {
		return nil, nil, fmt.Errorf("unknown backend %q", name)
	}
	if !b.Usage.allows(usage) {
		return nil, nil, fmt.Errorf("backend %q not supported in this binary", name)
	}

	known := make(map[string]Option, len(b.Options))
	merged := make(Settings, len(b.Options))
	for _, o := range b.Options {
		known[o.Key] = o
		if o.Default != "" {
			merged[o.Key] = o.Default
		}
	}
	for k, v := range settings {
		if _, ok := known[k]; !ok {
			return nil, nil, fmt.Errorf("backend %q: unknown setting %q", name, k)
		}
		merged[k] = v
	}
	if log == nil {
		log = zap.NewNop()
	}
	return b.Open(ctx, Env{Settings: merged, Logger: log.With(zap.String("backend", name))})
}
