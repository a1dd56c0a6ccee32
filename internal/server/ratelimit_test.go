package server

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newTestLimiter(rps, burst int) (*rateLimiter, func(time.Duration)) {
	now := time.Unix(1700000000, 0)
	rl := &rateLimiter{
		clients:   make(map[string]*tokenBucket),
		rps:       rps,
		burst:     burst,
		now:       func() time.Time { return now },
		lastSweep: now,
	}
	return rl, func(d time.Duration) { now = now.Add(d) }
}

func TestRateLimiter_BurstThenThrottle(t *testing.T) {
	rl, _ := newTestLimiter(1, 3)

	assert.True(t, rl.take("10.0.0.1"))
	assert.True(t, rl.take("10.0.0.1"))
	assert.True(t, rl.take("10.0.0.1"))
	assert.False(t, rl.take("10.0.0.1"))
}

func TestRateLimiter_Refills(t *testing.T) {
	rl, advance := newTestLimiter(2, 2)

	assert.True(t, rl.take("10.0.0.1"))
	assert.True(t, rl.take("10.0.0.1"))
	assert.False(t, rl.take("10.0.0.1"))

	advance(time.Second)
	assert.True(t, rl.take("10.0.0.1"))
	assert.True(t, rl.take("10.0.0.1"))
	assert.False(t, rl.take("10.0.0.1"))
}

func TestRateLimiter_PerClient(t *testing.T) {
	rl, _ := newTestLimiter(1, 1)

	assert.True(t, rl.take("10.0.0.1"))
	assert.False(t, rl.take("10.0.0.1"))
	assert.True(t, rl.take("10.0.0.2"))
}

func TestRateLimiter_SweepsIdleBuckets(t *testing.T) {
	rl, advance := newTestLimiter(1, 1)

	rl.take("10.0.0.1")
	assert.Len(t, rl.clients, 1)

	advance(11 * time.Minute)
	rl.take("10.0.0.2")
	assert.Len(t, rl.clients, 1)
	_, stale := rl.clients["10.0.0.1"]
	assert.False(t, stale)
}
