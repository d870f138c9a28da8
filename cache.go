package basecache

import (
	"sync"
	"sync/atomic"
	"time"
)

/*
Cache implements the shared-database handle cache.

ARCHITECTURAL OVERVIEW

Cache combines four data structures, all protected by one mutex:

1. Slot table (slots []*Slot) — fixed-size, allocated once at Init.
2. Four beacon lists (free, idle, idleHot, used) threaded through the
   slot table via index-based links (beacon.go).
3. Name index (names) — map[string]int32 from database name to slot
   index (nameindex.go).
4. Tunables plus the two engine hooks (unlockHook, closeHook).

CONCURRENCY MODEL

A single sync.Mutex (mu) guards every field above. Every Slot's two
condition variables are constructed against this same mutex, so a
goroutine parked in OpenAndLock always re-evaluates the full state
machine holding the lock it was signaled under.

OWNERSHIP

Go has no stable, observable thread/goroutine identity, so unlike the
original's pthread-based "owner" this Cache takes an explicit owner
token from the caller (any int64 the caller considers stable for the
duration of a logical session — a connection id, a request id). This
is the idiomatic adaptation: reentrancy is keyed off the token the
caller supplies, not off runtime.Goexit-adjacent introspection.
*/

type Cache struct {
	mu sync.Mutex

	slots []*Slot

	free    beaconList
	idle    beaconList
	idleHot beaconList
	used    beaconList

	names nameIndex

	basesMaxHard int32
	basesMaxSoft int32
	basesUsed    int32

	isRunning bool

	lastMemoryUsage atomic.Int64
	maxRSS          atomic.Int64

	unlockHook func(Handle)
	closeHook  func(Handle)

	timeoutOpen        time.Duration
	graceDelayCool     time.Duration
	graceDelayHot      time.Duration
	condWaitPeriod     time.Duration
	heatThreshold      int32
	minLoadOnHeavyLoad float64
	failOnHeavyLoad    bool
	alertOnHeavyLoad   bool

	logger Logger
}

// Logger is the minimal structured-logging surface the cache needs;
// internal/obs's zerolog-backed logger satisfies it, and tests can
// supply a no-op implementation.
type Logger interface {
	Warnf(format string, args ...any)
	Debugf(format string, args ...any)
	Errorf(format string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Warnf(string, ...any)  {}
func (noopLogger) Debugf(string, ...any) {}
func (noopLogger) Errorf(string, ...any) {}

// Init allocates the slot table and applies opts over the defaults,
// matching the original's sqlx_cache_init.
func Init(opts ...Option) *Cache {
	c := &Cache{
		names:   newNameIndex(),
		free:    newBeaconList(),
		idle:    newBeaconList(),
		idleHot: newBeaconList(),
		used:    newBeaconList(),
		logger:  noopLogger{},
	}

	for _, opt := range defaultOptions() {
		opt(c)
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.basesMaxSoft > c.basesMaxHard {
		c.basesMaxSoft = c.basesMaxHard
	}

	c.slots = make([]*Slot, c.basesMaxHard)
	for i := int32(0); i < c.basesMaxHard; i++ {
		c.slots[i] = newSlot(i, &c.mu)
	}
	// FREE list initialization order: push in reverse index order so
	// low indices are preferred on allocation (spec.md §3).
	for i := c.basesMaxHard - 1; i >= 0; i-- {
		c.beaconPushFront(beaconFree, c.slots[i])
	}

	c.isRunning = true
	return c
}

// SetLogger installs a structured logger, replacing the default no-op.
func (c *Cache) SetLogger(l Logger) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.logger = l
}

// Clean releases every slot unconditionally, invoking closeHook for
// any slot that still holds an open handle. Equivalent to
// sqlx_cache_clean; intended for shutdown only, never call
// concurrently with in-flight OpenAndLock callers.
func (c *Cache) Clean() {
	c.mu.Lock()
	c.isRunning = false
	victims := make([]*Slot, 0, len(c.slots))
	for _, s := range c.slots {
		if s.status != StatusFree {
			victims = append(victims, s)
		}
	}
	c.mu.Unlock()

	for _, s := range victims {
		c.mu.Lock()
		if s.status == StatusFree {
			c.mu.Unlock()
			continue
		}
		if s.status == StatusUsed && s.countOpen > 0 {
			s.countOpen = 0
		}
		handle := s.handle
		s.status = StatusClosing
		c.beaconRemove(s)
		c.mu.Unlock()

		if handle != nil && c.closeHook != nil {
			c.closeHook(handle)
		}

		c.mu.Lock()
		c.names.remove(s.name)
		s.reset()
		s.status = StatusFree
		c.basesUsed--
		c.beaconPushFront(beaconFree, s)
		c.mu.Unlock()
	}
}

// Reconfigure re-reads the soft limit, matching sqlx_cache_reconfigure.
func (c *Cache) Reconfigure(maxBasesSoft int32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if maxBasesSoft > c.basesMaxHard {
		maxBasesSoft = c.basesMaxHard
	}
	c.basesMaxSoft = maxBasesSoft
}

// SetRunning flips the shutdown flag; once false, OpenAndLock fails
// fast with CodeBusy("service exiting").
func (c *Cache) SetRunning(running bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.isRunning = running
}

// SetUnlockHook installs the callback run when a slot leaves USED for
// an IDLE* state.
func (c *Cache) SetUnlockHook(hook func(Handle)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.unlockHook = hook
}

// SetCloseHook installs the callback run during eviction, outside the
// global lock.
func (c *Cache) SetCloseHook(hook func(Handle)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeHook = hook
}

// Count returns a snapshot of the slot table's occupancy.
func (c *Cache) Count() Count {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Count{
		Max:     c.basesMaxHard,
		SoftMax: c.basesMaxSoft,
		Cold:    beaconLen(c, beaconIdle),
		Hot:     beaconLen(c, beaconIdleHot),
		Used:    beaconLen(c, beaconUsed),
	}
}

func beaconLen(c *Cache, kind beaconKind) int32 {
	bl := c.beaconOf(kind)
	var n int32
	for i := bl.first; i != -1; i = c.slots[i].link.next {
		n++
	}
	return n
}

// SetLastMemoryUsage records the externally-measured process memory
// usage, consulted opportunistically by UnlockAndClose. Safe to call
// from any goroutine without holding the global lock (atomic.Int64),
// resolving spec.md §9's Open Question 2.
func (c *Cache) SetLastMemoryUsage(bytes int64) {
	c.lastMemoryUsage.Store(bytes)
}

// GetHandle returns the handle currently stored in slot s. The caller
// must own s (typically the slot just returned by OpenAndLock).
func (c *Cache) GetHandle(s *Slot) Handle {
	c.mu.Lock()
	defer c.mu.Unlock()
	return s.handle
}

// SetHandle stores the handle the engine obtained after a successful
// reservation. The caller must own s.
func (c *Cache) SetHandle(s *Slot, h Handle) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s.handle = h
}

func now() int64 { return time.Now().UnixNano() }
