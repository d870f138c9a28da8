package basecache

import "time"

// UnlockFlags modify UnlockAndClose's behavior after the final
// release of a slot.
type UnlockFlags int32

const (
	// FlagNone performs a normal release: the slot becomes IDLE or
	// IDLE_HOT for reuse.
	FlagNone UnlockFlags = 0
	// FlagImmediately forces eviction of the slot right after release
	// instead of returning it to the idle pool.
	FlagImmediately UnlockFlags = 1 << 0
	// FlagForDeletion forces eviction and marks the base as deleted, so
	// any caller already parked waiting for it receives
	// CodeContainerNotFound instead of being allowed to reacquire.
	FlagForDeletion UnlockFlags = 1 << 1
)

// heavyHoldFraction is the fraction of timeoutOpen a lock hold must
// exceed before UnlockAndClose logs a warning (spec.md §4.4: "warn if
// it exceeded 75% of timeout_open").
const heavyHoldFraction = 0.75

// UnlockAndClose releases one reentrant hold slot acquired by owner.
// When the hold count reaches zero it either evicts the slot (when
// flags requests it) or returns it to the idle pool, opportunistically
// evicting the coolest idle slot (which can be the one just released)
// if the externally-reported memory usage exceeds the configured
// ceiling.
func (c *Cache) UnlockAndClose(slot *Slot, owner int64, flags UnlockFlags) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if slot.status != StatusUsed {
		return internalError("unlock of a slot that is not USED")
	}
	if slot.owner != owner {
		return internalError("unlock by a goroutine that does not own the slot")
	}
	if slot.countOpen < 1 {
		return internalError("unlock of a slot with count_open=0")
	}

	slot.countOpen--
	if slot.countOpen > 0 {
		return nil
	}

	heldFor := time.Duration(now() - slot.lastUpdate)
	if heldFor > time.Duration(float64(c.timeoutOpen)*heavyHoldFraction) {
		c.logger.Warnf("slot=%d name=%q held %s, over %.0f%% of timeout_open", slot.index, slot.name, heldFor, heavyHoldFraction*100)
	}

	if flags&(FlagImmediately|FlagForDeletion) != 0 {
		c.evictVictim(slot, flags&FlagForDeletion != 0)
		return nil
	}

	if c.unlockHook != nil {
		c.unlockHook(slot.handle)
	}

	slot.owner = 0
	slot.countOpen = 0
	slot.lastUpdate = now()
	if slot.heat >= c.heatThreshold {
		c.beaconMove(beaconIdleHot, slot)
		slot.status = StatusIdleHot
	} else {
		c.beaconMove(beaconIdle, slot)
		slot.status = StatusIdle
	}

	if ceiling := c.maxRSS.Load(); ceiling > 0 && c.lastMemoryUsage.Load() > ceiling {
		c.evictOneIdle()
	}

	slot.signal()
	return nil
}
