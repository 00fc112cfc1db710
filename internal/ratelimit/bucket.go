// Package ratelimit provides a small token bucket used to cap per-connection
// signaling message rates.
package ratelimit

import (
	"sync"
	"time"
)

// Clock abstracts time.Now so tests can drive the bucket deterministically.
type Clock interface {
	Now() time.Time
}

type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

// Bucket is a token bucket refilling at rate tokens/sec up to burst tokens.
// A rate <= 0 disables limiting (Allow always succeeds).
type Bucket struct {
	mu sync.Mutex

	clock Clock
	rate  float64
	burst float64

	tokens float64
	last   time.Time
}

func NewBucket(clock Clock, rate, burst int) *Bucket {
	if clock == nil {
		clock = RealClock{}
	}
	b := &Bucket{
		clock: clock,
		rate:  float64(rate),
		burst: float64(burst),
	}
	b.tokens = b.burst
	b.last = clock.Now()
	return b
}

// Allow consumes one token if available.
func (b *Bucket) Allow() bool {
	if b.rate <= 0 {
		return true
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.clock.Now()
	if elapsed := now.Sub(b.last); elapsed > 0 {
		b.tokens += elapsed.Seconds() * b.rate
		if b.tokens > b.burst {
			b.tokens = b.burst
		}
	}
	// A clock that moved backwards refills nothing; keep the newer reference
	// point so a later forward step doesn't over-refill.
	b.last = now

	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}
