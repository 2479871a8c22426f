package service

import (
	"math/rand/v2"
	"time"
)

// Clock supplies the current time. Every time-relative decision goes through it.
type Clock interface {
	Now() time.Time
}

// SystemClock is the wall clock, truncated to the precision PostgreSQL stores.
type SystemClock struct{}

// Now returns the current UTC time at microsecond precision.
func (SystemClock) Now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

// RandomSource yields uniformly distributed integers in [0, n).
type RandomSource interface {
	IntN(n int) int
}

// NewSeededRandom returns a deterministic source for the given seed.
// Not safe for concurrent use; create one per generation.
func NewSeededRandom(seed uint64) RandomSource {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}
