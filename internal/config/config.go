// Package config loads the cache controller's tunable parameters,
// grounded in confy's generic Loader[T] pattern
// (confy/confy.go): a koanf.Koanf wrapping a file provider and an
// env provider, unmarshalled into a typed struct snapshot held behind
// an atomic.Pointer.
package config

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	mapstructure "github.com/go-viper/mapstructure/v2"

	"github.com/sqlxcache/basecache"
)

// EnvPrefix is the default environment variable prefix tunables are
// read under, e.g. BASECACHE_MAX_BASES_SOFT.
const EnvPrefix = "BASECACHE_"

// Tunables mirrors spec.md §6's tunable parameter list exactly.
type Tunables struct {
	MaxBasesHard       int32         `koanf:"max_bases_hard"`
	MaxBasesSoft       int32         `koanf:"max_bases_soft"`
	TimeoutOpen        time.Duration `koanf:"timeout_open"`
	GraceDelayCool     time.Duration `koanf:"grace_delay_cool"`
	GraceDelayHot      time.Duration `koanf:"grace_delay_hot"`
	CondWaitPeriod     time.Duration `koanf:"cond_wait_period"`
	HeatThreshold      int32         `koanf:"heat_threshold"`
	MinLoadOnHeavyLoad float64       `koanf:"min_load_on_heavy_load"`
	FailOnHeavyLoad    bool          `koanf:"fail_on_heavy_load"`
	AlertOnHeavyLoad   bool          `koanf:"alert_on_heavy_load"`
	MaxRSS             int64         `koanf:"max_rss"`
}

// Defaults returns the tunable values basecache.defaultOptions also
// uses, so a Loader constructed with no file still produces a usable
// Tunables before any env var is applied.
func Defaults() Tunables {
	return Tunables{
		MaxBasesHard:       1024,
		MaxBasesSoft:       1024,
		TimeoutOpen:        20 * time.Second,
		GraceDelayCool:     5 * time.Minute,
		GraceDelayHot:      30 * time.Minute,
		CondWaitPeriod:     time.Second,
		HeatThreshold:      1,
		MinLoadOnHeavyLoad: 1,
		FailOnHeavyLoad:    false,
		AlertOnHeavyLoad:   true,
		MaxRSS:             0,
	}
}

// AsOptions converts a Tunables snapshot into basecache.Option values
// suitable for basecache.Init.
func (t Tunables) AsOptions() []basecache.Option {
	return []basecache.Option{
		basecache.WithMaxBasesHard(t.MaxBasesHard),
		basecache.WithMaxBasesSoft(t.MaxBasesSoft),
		basecache.WithTimeoutOpen(t.TimeoutOpen),
		basecache.WithGraceDelayCool(t.GraceDelayCool),
		basecache.WithGraceDelayHot(t.GraceDelayHot),
		basecache.WithCondWaitPeriod(t.CondWaitPeriod),
		basecache.WithHeatThreshold(t.HeatThreshold),
		basecache.WithMinLoadOnHeavyLoad(t.MinLoadOnHeavyLoad),
		basecache.WithFailOnHeavyLoad(t.FailOnHeavyLoad),
		basecache.WithAlertOnHeavyLoad(t.AlertOnHeavyLoad),
		basecache.WithMaxRSS(t.MaxRSS),
	}
}

// ApplyTo re-reads only the soft limit into an already-running cache,
// matching spec.md §6's reconfigure(cache) ("re-reads the soft
// limit") — every other tunable is immutable for the lifetime of a
// Cache once Init has run.
func (t Tunables) ApplyTo(c *basecache.Cache) {
	c.Reconfigure(t.MaxBasesSoft)
}

// Loader loads Tunables from an optional YAML file plus environment
// variables under prefix, and holds the latest snapshot behind an
// atomic.Pointer so concurrent readers never race with Reload.
type Loader struct {
	k         *koanf.Koanf
	path      string
	envPrefix string
	cur       atomic.Pointer[Tunables]
}

// Load performs the initial load. path may be empty to skip the file
// provider and rely on defaults plus environment variables only.
func Load(path, envPrefix string) (*Loader, error) {
	if envPrefix == "" {
		envPrefix = EnvPrefix
	}
	l := &Loader{k: koanf.New("."), path: path, envPrefix: envPrefix}
	if err := l.reload(); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *Loader) reload() error {
	def := Defaults()
	k := koanf.New(".")
	if err := k.Load(structs.Provider(def, "koanf"), nil); err != nil {
		return fmt.Errorf("config: loading defaults: %w", err)
	}

	if l.path != "" {
		if err := k.Load(file.Provider(l.path), yaml.Parser()); err != nil {
			return fmt.Errorf("config: loading file %s: %w", l.path, err)
		}
	}

	if l.envPrefix != "" {
		provider := env.Provider(l.envPrefix, ".", envKeyMapper(l.envPrefix))
		if err := k.Load(provider, nil); err != nil {
			return fmt.Errorf("config: loading env: %w", err)
		}
	}

	var out Tunables
	decodeConf := koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			Result:           &out,
			WeaklyTypedInput: true,
			DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		},
	}
	if err := k.UnmarshalWithConf("", &out, decodeConf); err != nil {
		return fmt.Errorf("config: unmarshal: %w", err)
	}

	l.k = k
	l.cur.Store(&out)
	return nil
}

// Get returns the current snapshot.
func (l *Loader) Get() Tunables {
	return *l.cur.Load()
}

// Reload re-reads the file and environment and returns the new
// snapshot, intended to be called from a SIGHUP handler.
func (l *Loader) Reload() (Tunables, error) {
	if err := l.reload(); err != nil {
		return Tunables{}, err
	}
	return l.Get(), nil
}

func envKeyMapper(prefix string) func(string) string {
	return func(s string) string {
		key := strings.TrimPrefix(s, prefix)
		key = strings.ToLower(key)
		return strings.ReplaceAll(key, "__", ".")
	}
}
