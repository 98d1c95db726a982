package httpapi

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func TestIPLimiter_EvictsIdleClients(t *testing.T) {
	clock := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	limiter := newIPLimiter(rate.Limit(1), 1)
	limiter.now = func() time.Time { return clock }
	require.Equal(t, minLimiterIdle, limiter.idle)

	require.True(t, limiter.allow("10.0.0.1"))
	require.False(t, limiter.allow("10.0.0.1"))
	require.True(t, limiter.allow("10.0.0.2"))
	require.Len(t, limiter.entries, 2)

	clock = clock.Add(30 * time.Second)
	require.True(t, limiter.allow("10.0.0.2"))
	require.Len(t, limiter.entries, 2)

	clock = clock.Add(45 * time.Second)
	require.True(t, limiter.allow("10.0.0.3"))
	require.Len(t, limiter.entries, 2)
	require.NotContains(t, limiter.entries, "10.0.0.1")
	require.Contains(t, limiter.entries, "10.0.0.2")

	clock = clock.Add(2 * minLimiterIdle)
	require.True(t, limiter.allow("10.0.0.1"))
	require.Len(t, limiter.entries, 1)
}

func TestIPLimiter_IdleCoversBucketRefill(t *testing.T) {
	limiter := newIPLimiter(rate.Limit(0.001), 2)
	require.Equal(t, 2000*time.Second, limiter.idle)

	require.Equal(t, minLimiterIdle, newIPLimiter(rate.Limit(50), 100).idle)
}
