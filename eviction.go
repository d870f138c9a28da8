package basecache

import (
	"runtime"
	"time"
)

// expireBase evicts slot s, which must be USED, count_open=0, with
// the global lock held on entry. It transitions the slot to CLOSING
// (or CLOSING_FOR_DELETION), releases the lock around closeHook, and
// returns the slot to FREE. When deleted is set, the slot also stays
// CLOSING_FOR_DELETION until every goroutine parked on it has woken
// and seen that status. The lock is held again on return. This is a
// direct port of the original's _expire_base.
func (c *Cache) expireBase(s *Slot, deleted bool) {
	if deleted {
		s.status = StatusClosingForDeletion
	} else {
		s.status = StatusClosing
	}
	c.beaconRemove(s)

	handle := s.handle
	name := s.name
	s.signal()

	c.mu.Unlock()
	if handle != nil && c.closeHook != nil {
		c.closeHook(handle)
	}
	c.mu.Lock()

	for deleted && s.countWaiting > 0 {
		s.condPrio.Broadcast()
		s.cond.Broadcast()
		c.mu.Unlock()
		runtime.Gosched()
		c.mu.Lock()
	}

	c.names.remove(name)
	s.reset()
	s.status = StatusFree
	c.basesUsed--
	c.beaconPushFront(beaconFree, s)
	s.signal()
}

// expireFirstIdle implements sqlx_expire_first_idle_base: it picks a
// victim from the IDLE tail (coolest cold entry) or, failing that,
// the IDLE_HOT tail, subject to grace-delay eligibility unless
// forced. Returns whether an eviction occurred.
func (c *Cache) expireFirstIdle(forced bool) bool {
	nowNanos := now()

	if victim := c.pickEligible(&c.idle, forced, c.graceDelayCool, nowNanos); victim != nil {
		c.evictVictim(victim, false)
		return true
	}
	if victim := c.pickEligible(&c.idleHot, forced, c.graceDelayHot, nowNanos); victim != nil {
		c.evictVictim(victim, false)
		return true
	}
	return false
}

func (c *Cache) pickEligible(bl *beaconList, forced bool, graceDelay time.Duration, nowNanos int64) *Slot {
	idx := bl.last
	if idx == -1 {
		return nil
	}
	s := c.slots[idx]
	if forced || graceDelay <= 0 || s.lastUpdate <= nowNanos-int64(graceDelay) {
		return s
	}
	return nil
}

// evictVictim unlinks the victim and marks it USED with owner 0 and
// count_open=0 before handing it to expireBase, matching the
// original's promotion of the victim prior to _expire_base.
func (c *Cache) evictVictim(s *Slot, deleted bool) {
	c.beaconRemove(s)
	s.status = StatusUsed
	s.owner = 0
	s.countOpen = 0
	c.expireBase(s, deleted)
}

// evictOneIdle is the opportunistic single-victim eviction used by
// the reservation miss path and by UnlockAndClose's memory-pressure
// check. It is forced: grace delays do not apply.
func (c *Cache) evictOneIdle() bool {
	return c.expireFirstIdle(true)
}

// ExpireSpecific forcibly evicts the named slot if present and
// currently idle. Ports _expire_specific_base.
func (c *Cache) ExpireSpecific(name string, deleted bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	idx, found := c.names.lookup(name)
	if !found {
		return false
	}
	s := c.slots[idx]
	if s.status != StatusIdle && s.status != StatusIdleHot {
		return false
	}
	c.evictVictim(s, deleted)
	return true
}

// Expire evicts up to max idle bases, stopping early once duration
// has elapsed (duration<=0 means unbounded). Ports expire(cache, max,
// duration).
func (c *Cache) Expire(max int32, duration time.Duration) int32 {
	c.mu.Lock()
	defer c.mu.Unlock()

	var deadline time.Time
	if duration > 0 {
		deadline = time.Now().Add(duration)
	}

	var n int32
	for n < max {
		if !deadline.IsZero() && !time.Now().Before(deadline) {
			break
		}
		if !c.expireFirstIdle(false) {
			break
		}
		n++
	}
	return n
}

// ExpireAll evicts every idle base with no bound on count or time;
// grace delays do not apply. Ports expire_all(cache).
func (c *Cache) ExpireAll() int32 {
	c.mu.Lock()
	defer c.mu.Unlock()

	var n int32
	for c.expireFirstIdle(true) {
		n++
	}
	return n
}
