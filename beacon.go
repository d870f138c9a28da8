package basecache

// beaconList is a head/tail index pair identifying an intrusive
// doubly-linked list threaded through the Cache's slot table.
// Insertion is always at the head; the tail therefore holds the
// coolest (least recently touched) entry, matching §4.2.
type beaconList struct {
	first int32 // -1 when empty
	last  int32 // -1 when empty
}

func newBeaconList() beaconList {
	return beaconList{first: -1, last: -1}
}

// beaconOf returns a pointer to the beacon list a given kind
// currently lives on. CLOSING* slots have no backing beacon.
func (c *Cache) beaconOf(kind beaconKind) *beaconList {
	switch kind {
	case beaconFree:
		return &c.free
	case beaconIdle:
		return &c.idle
	case beaconIdleHot:
		return &c.idleHot
	case beaconUsed:
		return &c.used
	default:
		return nil
	}
}

// beaconPushFront unshifts slot s onto the head of kind's list.
func (c *Cache) beaconPushFront(kind beaconKind, s *Slot) {
	bl := c.beaconOf(kind)
	s.beacon = kind
	s.link.prev = -1
	s.link.next = bl.first
	if bl.first != -1 {
		c.slots[bl.first].link.prev = s.index
	} else {
		bl.last = s.index
	}
	bl.first = s.index
}

// beaconRemove unlinks slot s from whichever list it currently
// belongs to, patching its neighbors' link indices and the beacon's
// head/tail as needed. A slot must be removed before being added to
// another list, or transitioned to a CLOSING* state.
func (c *Cache) beaconRemove(s *Slot) {
	if s.beacon == beaconNone {
		return
	}
	bl := c.beaconOf(s.beacon)
	if s.link.prev != -1 {
		c.slots[s.link.prev].link.next = s.link.next
	} else {
		bl.first = s.link.next
	}
	if s.link.next != -1 {
		c.slots[s.link.next].link.prev = s.link.prev
	} else {
		bl.last = s.link.prev
	}
	s.link.prev = -1
	s.link.next = -1
	s.beacon = beaconNone
}

// beaconMove removes s from its current list (if any) and pushes it
// to the head of kind's list.
func (c *Cache) beaconMove(kind beaconKind, s *Slot) {
	c.beaconRemove(s)
	c.beaconPushFront(kind, s)
}

// beaconEmpty reports whether the named list has no members.
func (c *Cache) beaconEmpty(kind beaconKind) bool {
	bl := c.beaconOf(kind)
	return bl == nil || bl.first == -1
}
