package basecache

import (
	"sync"
	"testing"
	"time"
)

/*
cache_test.go exercises the end-to-end scenarios and the core
invariants/laws of the slot lifecycle, matching the teacher's plain
testing + t.Fatalf style with no third-party assertion library.
*/

func newTestCache(t *testing.T, opts ...Option) *Cache {
	t.Helper()
	base := []Option{
		WithMaxBasesHard(4),
		WithMaxBasesSoft(4),
		WithTimeoutOpen(2 * time.Second),
		WithCondWaitPeriod(20 * time.Millisecond),
		WithHeatThreshold(1),
	}
	c := Init(append(base, opts...)...)
	t.Cleanup(c.Clean)
	return c
}

func TestReentrantOpenClose(t *testing.T) {
	c := newTestCache(t)

	s1, err := c.OpenAndLock("a", 1, false, time.Time{})
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	s2, err := c.OpenAndLock("a", 1, false, time.Time{})
	if err != nil {
		t.Fatalf("second open: %v", err)
	}
	if s1 != s2 {
		t.Fatalf("expected the same slot on reentrant open")
	}
	if s1.countOpen != 2 {
		t.Fatalf("expected count_open=2, got %d", s1.countOpen)
	}

	if err := c.UnlockAndClose(s1, 1, FlagNone); err != nil {
		t.Fatalf("first close: %v", err)
	}
	if s1.status != StatusUsed {
		t.Fatalf("expected slot to remain USED after first close, got %s", s1.status)
	}
	if err := c.UnlockAndClose(s1, 1, FlagNone); err != nil {
		t.Fatalf("second close: %v", err)
	}
	if s1.status != StatusIdle {
		t.Fatalf("expected IDLE after final close (no heat gained), got %s", s1.status)
	}
	if s1.countOpen != 0 || s1.owner != 0 {
		t.Fatalf("expected owner/count_open cleared, got owner=%d count_open=%d", s1.owner, s1.countOpen)
	}
	if s1.name != "a" {
		t.Fatalf("expected name to survive release, got %q", s1.name)
	}
}

func TestSingleSlotContention(t *testing.T) {
	c := newTestCache(t, WithMaxBasesHard(1), WithMaxBasesSoft(1))

	s1, err := c.OpenAndLock("a", 1, false, time.Time{})
	if err != nil {
		t.Fatalf("T1 open: %v", err)
	}

	_, err = c.OpenAndLock("b", 2, false, time.Now().Add(50*time.Millisecond))
	if !IsCode(err, CodeBusy) {
		t.Fatalf("expected BUSY for T2, got %v", err)
	}

	if err := c.UnlockAndClose(s1, 1, FlagNone); err != nil {
		t.Fatalf("T1 close: %v", err)
	}
}

func TestHotPromotion(t *testing.T) {
	c := newTestCache(t, WithHeatThreshold(1))

	s1, err := c.OpenAndLock("a", 1, false, time.Time{})
	if err != nil {
		t.Fatalf("T1 open: %v", err)
	}

	var wg sync.WaitGroup
	var t2Err error
	var t2Slot *Slot
	wg.Add(1)
	go func() {
		defer wg.Done()
		t2Slot, t2Err = c.OpenAndLock("a", 2, false, time.Now().Add(1*time.Second))
	}()

	time.Sleep(30 * time.Millisecond) // let T2 park and set heat=1

	if err := c.UnlockAndClose(s1, 1, FlagNone); err != nil {
		t.Fatalf("T1 close: %v", err)
	}

	wg.Wait()
	if t2Err != nil {
		t.Fatalf("T2 open: %v", t2Err)
	}
	if err := c.UnlockAndClose(t2Slot, 2, FlagNone); err != nil {
		t.Fatalf("T2 close: %v", err)
	}
	if t2Slot.status != StatusIdleHot {
		t.Fatalf("expected IDLE_HOT after contended release, got %s", t2Slot.status)
	}
}

func TestEvictionUnderMemoryPressure(t *testing.T) {
	c := newTestCache(t, WithMaxBasesHard(3), WithMaxBasesSoft(3), WithMaxRSS(100))

	s1, _ := c.OpenAndLock("a", 1, false, time.Time{})
	s2, _ := c.OpenAndLock("b", 1, false, time.Time{})
	s3, _ := c.OpenAndLock("c", 1, false, time.Time{})

	if err := c.UnlockAndClose(s1, 1, FlagNone); err != nil {
		t.Fatalf("close a: %v", err)
	}
	if err := c.UnlockAndClose(s2, 1, FlagNone); err != nil {
		t.Fatalf("close b: %v", err)
	}

	before := c.Count()
	if before.Used != 1 || before.Cold != 2 {
		t.Fatalf("expected 1 used + 2 idle, got %+v", before)
	}

	c.SetLastMemoryUsage(200)
	if err := c.UnlockAndClose(s3, 1, FlagNone); err != nil {
		t.Fatalf("close c: %v", err)
	}

	after := c.Count()
	if after.Used+after.Cold+after.Hot != 2 {
		t.Fatalf("expected exactly two survivors after pressure eviction, got %+v", after)
	}
}

func TestDeleteInFlight(t *testing.T) {
	c := newTestCache(t)

	s1, err := c.OpenAndLock("a", 1, false, time.Time{})
	if err != nil {
		t.Fatalf("T1 open: %v", err)
	}

	var wg sync.WaitGroup
	var t2Err error
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, t2Err = c.OpenAndLock("a", 2, false, time.Now().Add(1*time.Second))
	}()

	time.Sleep(30 * time.Millisecond)

	if err := c.UnlockAndClose(s1, 1, FlagForDeletion); err != nil {
		t.Fatalf("T1 close for deletion: %v", err)
	}

	wg.Wait()
	if !IsCode(t2Err, CodeContainerNotFound) {
		t.Fatalf("expected CONTAINER_NOTFOUND for T2, got %v", t2Err)
	}
}

func TestDeadlineAlreadyPastOnMiss(t *testing.T) {
	c := newTestCache(t)

	_, err := c.OpenAndLock("a", 1, false, time.Now().Add(-time.Second))
	if !IsCode(err, CodeBusy) {
		t.Fatalf("expected BUSY on a miss with a past deadline, got %v", err)
	}
}

func TestCountInvariant(t *testing.T) {
	c := newTestCache(t)

	names := []string{"a", "b", "c"}
	slots := make([]*Slot, 0, len(names))
	for i, n := range names {
		s, err := c.OpenAndLock(n, int64(i+1), false, time.Time{})
		if err != nil {
			t.Fatalf("open %s: %v", n, err)
		}
		slots = append(slots, s)
	}

	cnt := c.Count()
	if cnt.Used != int32(len(names)) {
		t.Fatalf("expected Used=%d, got %d", len(names), cnt.Used)
	}

	for i, s := range slots {
		if err := c.UnlockAndClose(s, int64(i+1), FlagNone); err != nil {
			t.Fatalf("close %s: %v", names[i], err)
		}
	}

	cnt = c.Count()
	if cnt.Cold+cnt.Hot != int32(len(names)) {
		t.Fatalf("expected all released slots idle, got %+v", cnt)
	}
}
