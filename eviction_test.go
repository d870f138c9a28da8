package basecache

import (
	"testing"
	"time"
)

func TestExpireRespectsGraceDelay(t *testing.T) {
	c := Init(WithMaxBasesHard(2), WithMaxBasesSoft(2), WithGraceDelayCool(time.Hour), WithGraceDelayHot(time.Hour))
	defer c.Clean()

	s, err := c.OpenAndLock("a", 1, false, time.Time{})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := c.UnlockAndClose(s, 1, FlagNone); err != nil {
		t.Fatalf("close: %v", err)
	}

	if n := c.Expire(10, 0); n != 0 {
		t.Fatalf("expected no eviction while within grace delay, evicted %d", n)
	}
}

func TestExpireAllIgnoresMax(t *testing.T) {
	c := Init(WithMaxBasesHard(3), WithMaxBasesSoft(3))
	defer c.Clean()

	names := []string{"a", "b", "c"}
	for i, n := range names {
		s, err := c.OpenAndLock(n, int64(i+1), false, time.Time{})
		if err != nil {
			t.Fatalf("open %s: %v", n, err)
		}
		if err := c.UnlockAndClose(s, int64(i+1), FlagNone); err != nil {
			t.Fatalf("close %s: %v", n, err)
		}
	}

	n := c.ExpireAll()
	if n != int32(len(names)) {
		t.Fatalf("expected all %d idle slots evicted, got %d", len(names), n)
	}
	cnt := c.Count()
	if cnt.Cold != 0 || cnt.Hot != 0 || cnt.Used != 0 {
		t.Fatalf("expected empty cache after ExpireAll, got %+v", cnt)
	}
}

func TestExpireSpecificForDeletion(t *testing.T) {
	c := Init(WithMaxBasesHard(2), WithMaxBasesSoft(2))
	defer c.Clean()

	s, err := c.OpenAndLock("a", 1, false, time.Time{})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := c.UnlockAndClose(s, 1, FlagNone); err != nil {
		t.Fatalf("close: %v", err)
	}

	if !c.ExpireSpecific("a", true) {
		t.Fatalf("expected eviction to succeed")
	}

	_, err = c.OpenAndLock("a", 2, false, time.Now().Add(100*time.Millisecond))
	if err != nil {
		t.Fatalf("expected a fresh reservation after eviction, got %v", err)
	}
}

func TestCloseHookRunsOutsideLock(t *testing.T) {
	var closedWithLockHeld bool
	c := Init(WithMaxBasesHard(1), WithMaxBasesSoft(1))
	c.SetCloseHook(func(h Handle) {
		// If the global lock were still held here, this Count() call
		// would deadlock instead of returning.
		done := make(chan struct{})
		go func() {
			c.Count()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(500 * time.Millisecond):
			closedWithLockHeld = true
		}
	})
	defer c.Clean()

	s, err := c.OpenAndLock("a", 1, false, time.Time{})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := c.UnlockAndClose(s, 1, FlagImmediately); err != nil {
		t.Fatalf("close: %v", err)
	}
	if closedWithLockHeld {
		t.Fatalf("expected close hook to run with the global lock released")
	}
}
