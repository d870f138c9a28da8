package basecache

import "fmt"

// fmtSlot renders one slot's debug line, grounded in the original's
// sqlx_base_debug: "BASE [idx/name] open=N heat=H STATUS [prev,next]".
func fmtSlot(index int32, name string, countOpen, heat int32, status Status, l link) string {
	return fmt.Sprintf("BASE [%d/%s] open=%d heat=%d %s [%d,%d]",
		index, name, countOpen, heat, status, l.prev, l.next)
}

// DebugSnapshot is a point-in-time dump of the cache's internal
// structure, grounded in the original's sqlx_cache_debug. It takes no
// action on the cache and exists purely for diagnostics and test
// failure messages.
type DebugSnapshot struct {
	Free    [2]int32 // {first, last}
	Idle    [2]int32
	IdleHot [2]int32
	Used    [2]int32
	Slots   []string
}

// Debug returns a DebugSnapshot of the current state.
func (c *Cache) Debug() DebugSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := DebugSnapshot{
		Free:    [2]int32{c.free.first, c.free.last},
		Idle:    [2]int32{c.idle.first, c.idle.last},
		IdleHot: [2]int32{c.idleHot.first, c.idleHot.last},
		Used:    [2]int32{c.used.first, c.used.last},
		Slots:   make([]string, 0, len(c.slots)),
	}
	for _, s := range c.slots {
		if s.status == StatusFree {
			continue
		}
		snap.Slots = append(snap.Slots, s.String())
	}
	return snap
}
