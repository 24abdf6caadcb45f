package llm

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiter(t *testing.T) {
	t.Run("burst up to capacity", func(t *testing.T) {
		now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
		rl := newRateLimiter(10)
		rl.now = func() time.Time { return now }
		rl.lastRefill = now

		for i := 0; i < 10; i++ {
			assert.Zero(t, rl.reserve(), "request %d should not wait", i)
		}

		// 10 per minute refills one token every six seconds
		assert.InDelta(t, float64(6*time.Second), float64(rl.reserve()), float64(time.Millisecond))

		now = now.Add(6 * time.Second)
		assert.Zero(t, rl.reserve())
	})

	t.Run("refill is capped", func(t *testing.T) {
		now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
		rl := newRateLimiter(2)
		rl.now = func() time.Time { return now }
		rl.lastRefill = now

		now = now.Add(time.Hour)
		assert.Zero(t, rl.reserve())
		assert.Zero(t, rl.reserve())
		assert.NotZero(t, rl.reserve())
	})

	t.Run("context cancellation", func(t *testing.T) {
		rl := newRateLimiter(1)
		require.NoError(t, rl.wait(context.Background()))

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		err := rl.wait(ctx)
		require.Error(t, err)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("default rate", func(t *testing.T) {
		rl := newRateLimiter(0)
		assert.InDelta(t, 60.0, rl.capacity, 0.001)
	})
}
