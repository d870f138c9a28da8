package basecache

import "time"

// loadWindowSeconds is the window used when deciding whether to fail
// or warn a waiter (spec.md §4.4.1: "10 for load").
const loadWindowSeconds = 10

// accessibilityWindowSeconds is the wider window used to decide
// whether a slot is "accessible" at all (up to 60s).
const accessibilityWindowSeconds = 60

// computeAvgWait returns the average wait time (seconds) a slot's
// recent opens have experienced over windowSeconds, and whether the
// sample size met minLoadOnHeavyLoad so that average can be trusted.
func (c *Cache) computeAvgWait(s *Slot, windowSeconds int) (avgSeconds float64, loaded bool) {
	nowSec := time.Now().Unix()
	dx := s.openAttempts.windowSum(nowSec, windowSeconds)
	if float64(dx) < float64(windowSeconds)*c.minLoadOnHeavyLoad {
		return 0, false
	}
	dt := s.openWaitTime.windowSum(nowSec, windowSeconds)
	avgMicros := float64(dt) / float64(dx)
	return avgMicros / 1e6, true
}

// accessible implements the original's notion of a slot being
// "accessible" over a wide window: enough recent opens occurred that
// its statistics can be trusted at all.
func (c *Cache) accessible(s *Slot) bool {
	nowSec := time.Now().Unix()
	dx := s.openAttempts.windowSum(nowSec, accessibilityWindowSeconds)
	return float64(dx) >= float64(accessibilityWindowSeconds)*c.minLoadOnHeavyLoad
}

// checkOverload is the non-urgent pre-park check of §4.4.1: if the
// slot's recent average wait time would already exceed the caller's
// remaining budget (minus a safety margin), either fail fast or warn
// depending on configuration. A non-nil return is a terminal
// EXCESSIVE_LOAD(avg, deadline_reached=false) error the caller must
// not park after (cache.c:786-790).
func (c *Cache) checkOverload(s *Slot, deadline time.Time) error {
	avg, loaded := c.computeAvgWait(s, loadWindowSeconds)
	if !loaded {
		return nil
	}

	remaining := time.Until(deadline)
	margin := remaining / 2
	if cap2 := 2 * c.condWaitPeriod; cap2 < margin {
		margin = cap2
	}
	budget := remaining - margin

	if avg <= budget.Seconds() {
		return nil
	}

	if c.failOnHeavyLoad {
		c.logger.Warnf("slot=%d overloaded avg_wait=%.6fs budget=%.6fs", s.index, avg, budget.Seconds())
		return excessiveLoad(avg, false)
	}

	if c.alertOnHeavyLoad {
		c.logger.Warnf("slot=%d heavy load avg_wait=%.6fs budget=%.6fs", s.index, avg, budget.Seconds())
	}
	return nil
}
