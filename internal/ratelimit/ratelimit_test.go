package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFirstWaitDoesNotBlock(t *testing.T) {
	r := NewSimpleRateLimiter(time.Hour, 2*time.Hour)

	start := time.Now()
	require.NoError(t, r.Wait(context.Background()))
	assert.Less(t, time.Since(start), time.Second)
}

func TestWaitEnforcesMinimumDelay(t *testing.T) {
	r := NewSimpleRateLimiter(30*time.Millisecond, 40*time.Millisecond)

	require.NoError(t, r.Wait(context.Background()))
	start := time.Now()
	require.NoError(t, r.Wait(context.Background()))
	assert.GreaterOrEqual(t, time.Since(start), 25*time.Millisecond)
}

func TestUnpaced(t *testing.T) {
	r := Unpaced()

	start := time.Now()
	for i := 0; i < 100; i++ {
		require.NoError(t, r.Wait(context.Background()))
	}
	assert.Less(t, time.Since(start), time.Second)
}

func TestWaitHonoursContext(t *testing.T) {
	r := NewSimpleRateLimiter(time.Hour, time.Hour)
	require.NoError(t, r.Wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := r.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestCalculateDelayBounds(t *testing.T) {
	tests := []struct {
		name     string
		min, max time.Duration
	}{
		{"range", 2 * time.Second, 4 * time.Second},
		{"fixed", time.Second, time.Second},
		{"inverted", 3 * time.Second, time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewSimpleRateLimiter(tt.min, tt.max)
			for i := 0; i < 50; i++ {
				d := r.calculateDelay()
				assert.GreaterOrEqual(t, d, tt.min)
				if tt.max > tt.min {
					assert.Less(t, d, tt.max)
				} else {
					assert.Equal(t, tt.min, d)
				}
			}
		})
	}
}

func TestSetDelay(t *testing.T) {
	r := Unpaced()
	r.SetDelay(time.Second, 3*time.Second)

	min, max := r.Bounds()
	assert.Equal(t, time.Second, min)
	assert.Equal(t, 3*time.Second, max)
}
