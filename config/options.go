// Package config loads the runtime's operator-facing configuration: the
// toml options file (budgets, fetch/traversal knobs), an optional yaml
// surface-stack override, and the persisted-cache database connector.
//
// Grounded on the teacher's config/configs.go (a single package-level
// config loaded once at startup), generalized from XML/package-globals to
// a struct decoded with go-toml/v2, matching melown-cpp/options.hpp's
// MapOptions field set.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/GrainArc/vtscore/fetch"
	"github.com/GrainArc/vtscore/store"
	"github.com/pelletier/go-toml/v2"
)

// Options is the runtime's tunable knob set, decoded from a toml file.
// Field names mirror melown-cpp/options.hpp's MapOptions where this runtime
// carries an equivalent knob; navigation/render-only fields from that
// struct (autoRotateSpeed, renderWireBoxes, renderSurrogates,
// renderObjectPosition) have no home here since navigation input dynamics
// and GPU rendering are external collaborators (spec.md §1 Non-goals).
type Options struct {
	MaxResourcesRAMBytes int64 `toml:"max_resources_ram_bytes"`
	MaxResourcesGPUBytes int64 `toml:"max_resources_gpu_bytes"`

	MaxConcurrentDownloads      int `toml:"max_concurrent_downloads"`
	MaxResourceProcessesPerTick int `toml:"max_resource_processes_per_tick"`

	RetryBackoffStartSeconds float64 `toml:"retry_backoff_start_seconds"`
	RetryBackoffCapSeconds   float64 `toml:"retry_backoff_cap_seconds"`
	AuthRetryBackoffSeconds  float64 `toml:"auth_retry_backoff_seconds"`
	FetchTimeoutSeconds      float64 `toml:"fetch_timeout_seconds"`

	MaxTexelToPixelScale float64 `toml:"max_texel_to_pixel_scale"`

	PersistedCacheDriver string `toml:"persisted_cache_driver"` // sqlite|mysql|postgres, "" opens sqlite
	PersistedCacheDSN    string `toml:"persisted_cache_dsn"`
	PersistedCacheDir    string `toml:"persisted_cache_dir"`
}

// DefaultOptions mirrors fetch.DefaultConfig's numbers so a missing toml
// file still produces a usable runtime.
func DefaultOptions() Options {
	d := fetch.DefaultConfig()
	return Options{
		MaxResourcesRAMBytes:        512 << 20,
		MaxResourcesGPUBytes:        256 << 20,
		MaxConcurrentDownloads:      d.MaxConcurrentDownloads,
		MaxResourceProcessesPerTick: d.MaxResourceProcessesPerTick,
		RetryBackoffStartSeconds:    d.RetryBackoffStart.Seconds(),
		RetryBackoffCapSeconds:      d.RetryBackoffCap.Seconds(),
		AuthRetryBackoffSeconds:     d.AuthRetryBackoff.Seconds(),
		FetchTimeoutSeconds:         d.FetchTimeout.Seconds(),
		MaxTexelToPixelScale:        2.5,
	}
}

// LoadOptions reads and decodes a toml options file, falling back to
// DefaultOptions for any zero-value field convention isn't applicable to
// (the caller gets DefaultOptions outright if path is empty).
func LoadOptions(path string) (Options, error) {
	opts := DefaultOptions()
	if path == "" {
		return opts, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Options{}, fmt.Errorf("config: read options: %w", err)
	}
	if err := toml.Unmarshal(data, &opts); err != nil {
		return Options{}, fmt.Errorf("config: decode options: %w", err)
	}
	return opts, nil
}

// Budget converts the decoded options into the store's runtime Budget.
func (o Options) Budget() store.Budget {
	return store.Budget{MaxRAMBytes: o.MaxResourcesRAMBytes, MaxGPUBytes: o.MaxResourcesGPUBytes}
}

// FetchConfig converts the decoded options into the fetch pipeline's
// runtime Config.
func (o Options) FetchConfig() fetch.Config {
	return fetch.Config{
		MaxConcurrentDownloads:      o.MaxConcurrentDownloads,
		MaxResourceProcessesPerTick: o.MaxResourceProcessesPerTick,
		RetryBackoffStart:           secondsToDuration(o.RetryBackoffStartSeconds),
		RetryBackoffCap:             secondsToDuration(o.RetryBackoffCapSeconds),
		AuthRetryBackoff:            secondsToDuration(o.AuthRetryBackoffSeconds),
		FetchTimeout:                secondsToDuration(o.FetchTimeoutSeconds),
	}
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
