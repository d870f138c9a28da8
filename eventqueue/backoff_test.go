package eventqueue

import (
	"testing"
	"time"
)

func TestBackoffCapsAtFiveAttempts(t *testing.T) {
	b := newBackoff()

	want := []time.Duration{
		200 * time.Millisecond,
		400 * time.Millisecond,
		800 * time.Millisecond,
		1600 * time.Millisecond,
		3200 * time.Millisecond,
		3200 * time.Millisecond, // capped: attempts beyond 5 don't grow further
		3200 * time.Millisecond,
	}
	for i, w := range want {
		if got := b.NextBackOff(); got != w {
			t.Fatalf("attempt %d: expected %s, got %s", i, w, got)
		}
	}
}

func TestBackoffResetsToBase(t *testing.T) {
	b := newBackoff()
	b.NextBackOff()
	b.NextBackOff()
	b.Reset()

	if got := b.NextBackOff(); got != 200*time.Millisecond {
		t.Fatalf("expected reset to restart at the first-attempt delay (200ms), got %s", got)
	}
}
