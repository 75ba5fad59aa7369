package fmp

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTokenBucketPacesCalls(t *testing.T) {
	t.Parallel()

	// 600 per minute = one token every 100ms, burst of 1.
	bucket := NewTokenBucket(600, 1)

	start := time.Now()
	require.NoError(t, bucket.Wait(context.Background()))
	require.NoError(t, bucket.Wait(context.Background()))
	elapsed := time.Since(start)

	// First call spends the burst, second must wait for a refill.
	require.GreaterOrEqual(t, elapsed, 80*time.Millisecond)
}

func TestTokenBucketBurst(t *testing.T) {
	t.Parallel()

	bucket := NewTokenBucket(60, 3)

	start := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, bucket.Wait(context.Background()))
	}
	require.Less(t, time.Since(start), 100*time.Millisecond)
}

func TestTokenBucketHonorsContextCancellation(t *testing.T) {
	t.Parallel()

	bucket := NewTokenBucket(1, 1)
	require.NoError(t, bucket.Wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := bucket.Wait(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
