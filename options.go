package basecache

import "time"

// defaultMaxBasesHard matches the original's default hard cap.
const defaultMaxBasesHard = 1024

// Option configures a Cache at construction time, following the
// functional-options pattern this codebase also uses for error
// construction (errors.go) and config loading (internal/config).
type Option func(*Cache)

// WithMaxBasesHard sets the immutable slot-table capacity. Must be
// called before Init; it has no effect afterwards.
func WithMaxBasesHard(n int32) Option {
	return func(c *Cache) { c.basesMaxHard = n }
}

// WithMaxBasesSoft sets the reconfigurable soft limit. Values above
// basesMaxHard are clamped down at Init/Reconfigure time.
func WithMaxBasesSoft(n int32) Option {
	return func(c *Cache) { c.basesMaxSoft = n }
}

// WithTimeoutOpen bounds every acquisition's effective deadline.
func WithTimeoutOpen(d time.Duration) Option {
	return func(c *Cache) { c.timeoutOpen = d }
}

// WithGraceDelayCool sets the minimum idle time before a cold IDLE
// slot becomes eligible for timed eviction.
func WithGraceDelayCool(d time.Duration) Option {
	return func(c *Cache) { c.graceDelayCool = d }
}

// WithGraceDelayHot is WithGraceDelayCool for IDLE_HOT slots.
func WithGraceDelayHot(d time.Duration) Option {
	return func(c *Cache) { c.graceDelayHot = d }
}

// WithCondWaitPeriod bounds each park-and-recheck iteration while
// contending for a USED or CLOSING slot.
func WithCondWaitPeriod(d time.Duration) Option {
	return func(c *Cache) { c.condWaitPeriod = d }
}

// WithHeatThreshold sets the heat level at or above which a released
// slot is promoted to IDLE_HOT instead of IDLE.
func WithHeatThreshold(n int32) Option {
	return func(c *Cache) { c.heatThreshold = n }
}

// WithMinLoadOnHeavyLoad sets the minimum per-second open rate the
// overload predicate requires before it will trust its average.
func WithMinLoadOnHeavyLoad(n float64) Option {
	return func(c *Cache) { c.minLoadOnHeavyLoad = n }
}

// WithFailOnHeavyLoad toggles whether a detected overload fails the
// caller with CodeExcessiveLoad rather than just warning.
func WithFailOnHeavyLoad(enabled bool) Option {
	return func(c *Cache) { c.failOnHeavyLoad = enabled }
}

// WithAlertOnHeavyLoad toggles whether a detected overload (when not
// failing) logs a warning and continues waiting.
func WithAlertOnHeavyLoad(enabled bool) Option {
	return func(c *Cache) { c.alertOnHeavyLoad = enabled }
}

// WithMaxRSS sets the soft memory ceiling (bytes) consulted
// opportunistically on release. Zero disables the check.
func WithMaxRSS(bytes int64) Option {
	return func(c *Cache) { c.maxRSS.Store(bytes) }
}

// WithUnlockHook registers the engine callback invoked whenever a
// slot transitions out of USED into an IDLE* state.
func WithUnlockHook(hook func(Handle)) Option {
	return func(c *Cache) { c.unlockHook = hook }
}

// WithCloseHook registers the engine callback invoked during
// eviction, with the global lock released.
func WithCloseHook(hook func(Handle)) Option {
	return func(c *Cache) { c.closeHook = hook }
}

func defaultOptions() []Option {
	return []Option{
		WithMaxBasesHard(defaultMaxBasesHard),
		WithMaxBasesSoft(defaultMaxBasesHard),
		WithTimeoutOpen(20 * time.Second),
		WithGraceDelayCool(5 * time.Minute),
		WithGraceDelayHot(30 * time.Minute),
		WithCondWaitPeriod(1 * time.Second),
		WithHeatThreshold(1),
		WithMinLoadOnHeavyLoad(1),
		WithFailOnHeavyLoad(false),
		WithAlertOnHeavyLoad(true),
		WithMaxRSS(0),
	}
}
