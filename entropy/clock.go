package entropy

import "time"

// Clock abstracts the time source sampled for jitter so tests can substitute
// a deterministic one. Implementations must be safe for concurrent use.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

// Now returns the current time.
func (SystemClock) Now() time.Time { return time.Now() }
