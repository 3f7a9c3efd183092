package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlidingWindowLimiter_EnforcesLimit(t *testing.T) {
	limiter := NewSlidingWindowLimiter(3, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		allowed, err := limiter.Allow(ctx, "key")
		require.NoError(t, err)
		assert.True(t, allowed)
	}

	allowed, err := limiter.Allow(ctx, "key")
	require.NoError(t, err)
	assert.False(t, allowed, "fourth request in the window is rejected")
}

func TestSlidingWindowLimiter_KeysAreIndependent(t *testing.T) {
	limiter := NewSlidingWindowLimiter(1, time.Minute)
	ctx := context.Background()

	allowed, _ := limiter.Allow(ctx, "a")
	assert.True(t, allowed)
	allowed, _ = limiter.Allow(ctx, "a")
	assert.False(t, allowed)

	allowed, _ = limiter.Allow(ctx, "b")
	assert.True(t, allowed)
}

func TestSlidingWindowLimiter_WindowSlides(t *testing.T) {
	limiter := NewSlidingWindowLimiter(1, 30*time.Millisecond)
	ctx := context.Background()

	allowed, _ := limiter.Allow(ctx, "key")
	assert.True(t, allowed)
	allowed, _ = limiter.Allow(ctx, "key")
	assert.False(t, allowed)

	time.Sleep(40 * time.Millisecond)

	allowed, _ = limiter.Allow(ctx, "key")
	assert.True(t, allowed, "old requests fall out of the window")
}

func TestSlidingWindowLimiter_Reset(t *testing.T) {
	limiter := NewSlidingWindowLimiter(1, time.Minute)
	ctx := context.Background()

	_, _ = limiter.Allow(ctx, "key")
	allowed, _ := limiter.Allow(ctx, "key")
	assert.False(t, allowed)

	require.NoError(t, limiter.Reset(ctx, "key"))

	allowed, _ = limiter.Allow(ctx, "key")
	assert.True(t, allowed)
}

func TestScopedLimitersUseSeparateKeyspaces(t *testing.T) {
	ctx := context.Background()

	ip := NewIPRateLimiter(1)
	device := NewDeviceRateLimiter(1, time.Minute)

	allowed, _ := ip.Allow(ctx, "10.0.0.1")
	assert.True(t, allowed)
	allowed, _ = ip.Allow(ctx, "10.0.0.1")
	assert.False(t, allowed)

	// Same literal key through the device limiter is unaffected
	allowed, _ = device.Allow(ctx, "10.0.0.1")
	assert.True(t, allowed)
}

func TestUserRateLimiter(t *testing.T) {
	ctx := context.Background()
	limiter := NewUserRateLimiter(2)

	allowed, _ := limiter.Allow(ctx, "user-1")
	assert.True(t, allowed)
	allowed, _ = limiter.Allow(ctx, "user-1")
	assert.True(t, allowed)
	allowed, _ = limiter.Allow(ctx, "user-1")
	assert.False(t, allowed)

	allowed, _ = limiter.Allow(ctx, "user-2")
	assert.True(t, allowed)
}
