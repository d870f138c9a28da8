package eventqueue

import (
	"time"

	"github.com/cenkalti/backoff/v4"
)

// maxBackoffAttempts caps the exponent so the ceiling is
// 100ms * 2^5 = 3.2s (spec.md §9: "unbounded backoff would starve
// shutdown drain").
const maxBackoffAttempts = 5

const backoffBase = 100 * time.Millisecond

// cappedExponentialBackoff implements backoff.BackOff with the exact
// cap spec.md §4.6 requires, rather than pulling in the library's own
// jitter/randomization (which the original never had).
type cappedExponentialBackoff struct {
	attempts int
}

var _ backoff.BackOff = (*cappedExponentialBackoff)(nil)

func newBackoff() *cappedExponentialBackoff {
	return &cappedExponentialBackoff{}
}

func (b *cappedExponentialBackoff) NextBackOff() time.Duration {
	b.attempts++
	n := b.attempts
	if n > maxBackoffAttempts {
		n = maxBackoffAttempts
	}
	return backoffBase * time.Duration(uint64(1)<<uint(n))
}

func (b *cappedExponentialBackoff) Reset() {
	b.attempts = 0
}
