package basecache

import (
	"sync"
	"time"
)

// errNoFreeSlot names the "no slot, no error — go evict and retry"
// outcome of spec.md §9's Open Question 1. It is not returned:
// attemptReserve reports that outcome as (nil, true, nil), whose retry
// result keeps it distinct from a reservation that produced a slot.
var errNoFreeSlot = New(CodeInternalError, "no free slot: retry after eviction")

// OpenAndLock reserves or reclaims the slot for name, blocking the
// calling goroutine (but not the caller's context) until it is
// granted, the deadline passes, or a non-retryable condition is
// reached. owner is an opaque token the caller is responsible for
// keeping stable across its own reentrant calls (see Cache doc
// comment on ownership). A zero deadline means "no caller deadline",
// in which case only timeoutOpen bounds the wait.
func (c *Cache) OpenAndLock(name string, owner int64, urgent bool, deadline time.Time) (*Slot, error) {
	start := time.Now()

	c.mu.Lock()
	hard := start.Add(c.timeoutOpen)
	effectiveDeadline := hard
	if !deadline.IsZero() && deadline.Before(hard) {
		effectiveDeadline = deadline
	}
	c.mu.Unlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	attempts := 0
	for {
		attempts++

		if !c.isRunning {
			return nil, busy("service exiting")
		}

		slot, retry, err := c.attemptOnce(name, owner, urgent, effectiveDeadline, start, attempts)
		if err != nil {
			return nil, err
		}
		if slot != nil {
			return slot, nil
		}
		_ = retry

		if !time.Now().Before(effectiveDeadline) {
			return nil, c.deadlineError(name, owner, attempts)
		}
	}
}

// attemptOnce performs one iteration of the open_and_lock state
// machine. It returns (slot, false, nil) on success, (nil, true, nil)
// when the caller should loop again (possibly after having parked),
// or (nil, false, err) on a terminal failure.
func (c *Cache) attemptOnce(name string, owner int64, urgent bool, deadline, start time.Time, attempts int) (*Slot, bool, error) {
	// §4.4 step 3 / cache.c:723-746: the deadline is evaluated before
	// both the reservation and the status switch, so a miss past its
	// deadline gets BUSY without reserving, and a reentrant owner past
	// its deadline gets TIMEOUT rather than a free reentrant acquire.
	if !time.Now().Before(deadline) {
		return nil, false, c.deadlineError(name, owner, attempts)
	}

	idx, found := c.names.lookup(name)
	if !found {
		return c.attemptReserve(name, owner, start, attempts)
	}

	slot := c.slots[idx]

	switch slot.status {
	case StatusFree:
		return nil, false, internalError("name index referenced a FREE slot")

	case StatusIdle, StatusIdleHot:
		c.claim(slot, owner)
		c.finishAcquire(slot, start, attempts)
		return slot, false, nil

	case StatusUsed:
		if slot.owner == owner {
			slot.countOpen++
			return slot, false, nil
		}
		if err := c.parkOnContention(slot, urgent, deadline); err != nil {
			return nil, false, err
		}
		return nil, true, nil

	case StatusClosing:
		c.park(slot, urgent)
		return nil, true, nil

	case StatusClosingForDeletion:
		return nil, false, containerNotFound("Base being deleted")

	default:
		return nil, false, internalError("unknown slot status")
	}
}

// attemptReserve implements the "miss" branch of §4.4: reserve a FREE
// slot under the soft limit, or signal that an eviction is needed.
func (c *Cache) attemptReserve(name string, owner int64, start time.Time, attempts int) (*Slot, bool, error) {
	if c.basesUsed < c.basesMaxSoft {
		if c.free.first != -1 {
			slot := c.slots[c.free.first]
			c.beaconRemove(slot)
			slot.name = name
			slot.owner = owner
			slot.countOpen = 1
			slot.status = StatusUsed
			slot.lastUpdate = now()
			c.beaconPushFront(beaconUsed, slot)
			c.names.insert(name, slot.index)
			c.basesUsed++
			c.finishAcquire(slot, start, attempts)
			return slot, false, nil
		}
		// FREE is empty despite being under the soft limit: transient
		// condition, try one eviction and retry.
		if c.evictOneIdle() {
			return nil, true, nil
		}
		return nil, false, unavailable("No idle base in cache")
	}

	// At or over the soft limit: only proceed if something evictable
	// exists: spec.md says to return with no slot and no error so the
	// controller can evict and retry.
	if !c.idleEmpty() {
		c.evictOneIdle()
		return nil, true, nil
	}
	return nil, false, busy("Max bases reached")
}

func (c *Cache) idleEmpty() bool {
	return c.idle.first == -1 && c.idleHot.first == -1
}

// claim transitions an IDLE/IDLE_HOT slot into USED ownership.
func (c *Cache) claim(slot *Slot, owner int64) {
	c.beaconMove(beaconUsed, slot)
	slot.status = StatusUsed
	slot.owner = owner
	slot.countOpen = 1
	slot.lastUpdate = now()
}

// finishAcquire records RRD telemetry and the fast-cold-path heat
// reset for a slot that was just reserved or claimed, then wakes any
// other waiters so they re-check state.
func (c *Cache) finishAcquire(slot *Slot, start time.Time, attempts int) {
	waitMicros := time.Since(start).Microseconds()
	nowSec := time.Now().Unix()
	slot.openAttempts.incr(nowSec)
	slot.openWaitTime.add(nowSec, waitMicros)

	if attempts == 1 && waitMicros < 1000 && slot.countWaiting < 2 {
		slot.heat = 0
	}

	c.logger.Debugf("db_wait slot=%d name=%q wait_us=%d attempts=%d", slot.index, slot.name, waitMicros, attempts)
	slot.signal()
}

// parkOnContention implements the waiting branch for USED-by-other:
// increments count_waiting, marks heat, evaluates the overload
// predicate for non-urgent callers, then parks on the appropriate
// condition variable for at most condWaitPeriod. If the overload
// predicate trips and fail_on_heavy_load is on, it returns a terminal
// EXCESSIVE_LOAD error instead of parking.
func (c *Cache) parkOnContention(slot *Slot, urgent bool, deadline time.Time) error {
	slot.countWaiting++
	slot.heat = 1
	defer func() { slot.countWaiting-- }()

	if !urgent {
		if err := c.checkOverload(slot, deadline); err != nil {
			return err
		}
	}

	c.park(slot, urgent)
	return nil
}

func (c *Cache) park(slot *Slot, urgent bool) {
	cond := slot.cond
	if urgent {
		cond = slot.condPrio
	}
	waitWithTimeout(&c.mu, cond, c.condWaitPeriod)
}

// waitWithTimeout parks the calling goroutine on cond (whose lock is
// mu) until either cond is signaled or period elapses. sync.Cond has
// no built-in timed wait, so a timer is armed to broadcast the same
// cond if no one else does first; this is the standard Go substitute
// for a POSIX condvar's timed wait.
func waitWithTimeout(mu sync.Locker, cond *sync.Cond, period time.Duration) {
	timer := time.AfterFunc(period, func() {
		mu.Lock()
		cond.Broadcast()
		mu.Unlock()
	})
	cond.Wait()
	timer.Stop()
}

// deadlineError implements §4.4 step 3, choosing the error taxonomy
// entry appropriate to why the deadline was reached.
func (c *Cache) deadlineError(name string, owner int64, attempts int) error {
	if idx, found := c.names.lookup(name); found {
		slot := c.slots[idx]
		if slot.status == StatusUsed && slot.owner == owner {
			return timeoutErr("Deadline reached")
		}
		if attempts < 2 {
			return busy("no attempt to open")
		}
		if c.failOnHeavyLoad {
			if avg, loaded := c.computeAvgWait(slot, 10); loaded {
				return excessiveLoad(avg, true)
			}
		}
		return busy("DB busy (deadline reached)")
	}
	if attempts < 2 {
		return busy("no attempt to open")
	}
	return busy("DB busy (deadline reached)")
}
