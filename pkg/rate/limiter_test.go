package rate

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func TestNoLimiter(t *testing.T) {
	l := &NoLimiter{}
	for i := 0; i < 10000; i++ {
		allowed, err := l.Allow("")
		assert.NoError(t, err)
		assert.True(t, allowed)
	}
	assert.NoError(t, l.Wait(context.Background(), ""))
}

func TestLocalRateLimiter_Allow(t *testing.T) {
	l := NewLocalRateLimiter(rate.Limit(2))

	for _, key := range []string{"getAccountInfo", "sendTransaction"} {
		for i := 0; i < 2; i++ {
			allowed, err := l.Allow(key)
			assert.NoError(t, err)
			assert.True(t, allowed)
		}

		// Keys are limited independently.
		allowed, err := l.Allow(key)
		assert.NoError(t, err)
		assert.False(t, allowed)
	}
}

func TestLocalRateLimiter_Wait(t *testing.T) {
	l := NewLocalRateLimiter(rate.Limit(20))

	start := time.Now()
	for i := 0; i < 21; i++ {
		require.NoError(t, l.Wait(context.Background(), "getSignatureStatuses"))
	}
	// The burst is spent, so the last call waits for a token.
	assert.True(t, time.Since(start) >= 40*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, l.Wait(ctx, "getSignatureStatuses"))
}

func TestLocalRateLimiter_FractionalLimit(t *testing.T) {
	l := NewLocalRateLimiter(rate.Limit(0.5))

	allowed, err := l.Allow("getLatestBlockhash")
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = l.Allow("getLatestBlockhash")
	require.NoError(t, err)
	assert.False(t, allowed)
}
