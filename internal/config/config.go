// Package config loads process-wide VM tuning knobs from the
// environment, the same way the rest of the ambient stack keeps
// operational concerns out of the core interpreter packages.
package config

import "github.com/caarlos0/env/v6"

// Config tunes GC behavior. CLI flags (see internal/maincmd) take
// precedence over the corresponding environment variable when both are
// set; Config only supplies the default when a flag is left unset.
type Config struct {
	// StressGC forces a full collection before every allocation the VM
	// makes at run time (compiler allocations are not preceded by one),
	// the mode the test corpus must survive with no dangling references.
	StressGC bool `env:"WISP_STRESS_GC" envDefault:"false"`

	// InitialHeapBytes sets the byte threshold that triggers the first
	// collection. A small value exercises the collector early in short
	// test programs; zero leaves the VM's built-in default.
	InitialHeapBytes int64 `env:"WISP_INITIAL_HEAP_BYTES" envDefault:"0"`
}

// Load reads Config from the environment.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
