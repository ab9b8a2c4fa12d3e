package ratelimit_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robwilkens/AppStireCopyDesctoNewVersionScript/internal/infra/ratelimit"
)

func TestNew_ZeroRateIsUnlimited(t *testing.T) {
	limiter := ratelimit.New(0, 0)
	assert.IsType(t, ratelimit.Unlimited{}, limiter)

	for i := 0; i < 100; i++ {
		require.NoError(t, limiter.Wait(context.Background()))
	}
}

func TestUnlimited_RespectsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, ratelimit.Unlimited{}.Wait(ctx), context.Canceled)
}

func TestTokenBucket_BurstThenBlocks(t *testing.T) {
	limiter := ratelimit.New(1, 2)

	require.NoError(t, limiter.Wait(context.Background()))
	require.NoError(t, limiter.Wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	assert.Error(t, limiter.Wait(ctx))
}
