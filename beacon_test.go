package basecache

import "testing"

func newBeaconTestCache(n int32) *Cache {
	c := Init(WithMaxBasesHard(n), WithMaxBasesSoft(n))
	return c
}

func TestBeaconPushAndOrder(t *testing.T) {
	c := newBeaconTestCache(3)
	defer c.Clean()

	// after Init, FREE holds all three slots with low indices
	// preferred: pushed in reverse order so index 0 ends up at head.
	if c.free.first != 0 {
		t.Fatalf("expected slot 0 at FREE head, got %d", c.free.first)
	}
	if c.free.last != 2 {
		t.Fatalf("expected slot 2 at FREE tail, got %d", c.free.last)
	}
}

func TestBeaconRemoveMiddle(t *testing.T) {
	c := newBeaconTestCache(3)
	defer c.Clean()

	mid := c.slots[1]
	c.beaconRemove(mid)

	if c.free.first != 0 {
		t.Fatalf("expected head unaffected, got %d", c.free.first)
	}
	if c.slots[0].link.next != 2 {
		t.Fatalf("expected slot 0 to now point to slot 2, got %d", c.slots[0].link.next)
	}
	if c.slots[2].link.prev != 0 {
		t.Fatalf("expected slot 2 to point back to slot 0, got %d", c.slots[2].link.prev)
	}
	if mid.beacon != beaconNone {
		t.Fatalf("expected removed slot to have no beacon, got %s", mid.beacon)
	}
}

func TestBeaconRemoveHeadAndTail(t *testing.T) {
	c := newBeaconTestCache(3)
	defer c.Clean()

	c.beaconRemove(c.slots[0])
	if c.free.first != 1 {
		t.Fatalf("expected new head 1, got %d", c.free.first)
	}

	c.beaconRemove(c.slots[2])
	if c.free.last != 1 {
		t.Fatalf("expected new tail 1, got %d", c.free.last)
	}
	if c.free.first != 1 || c.free.last != 1 {
		t.Fatalf("expected single-element list, got first=%d last=%d", c.free.first, c.free.last)
	}
}

func TestBeaconMoveBetweenLists(t *testing.T) {
	c := newBeaconTestCache(2)
	defer c.Clean()

	s := c.slots[0]
	c.beaconMove(beaconUsed, s)

	if s.beacon != beaconUsed {
		t.Fatalf("expected slot moved to USED beacon, got %s", s.beacon)
	}
	if c.used.first != s.index {
		t.Fatalf("expected USED head to be the moved slot")
	}
	if c.free.first == s.index {
		t.Fatalf("expected slot removed from FREE list")
	}
}
