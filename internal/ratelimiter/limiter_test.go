package ratelimiter_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notifyhub/lms-notify/internal/domain"
	"github.com/notifyhub/lms-notify/internal/ratelimiter"
)

func TestWait_BurstIsImmediate(t *testing.T) {
	cl := ratelimiter.New(5)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 5; i++ {
		require.NoError(t, cl.Wait(ctx, domain.ChannelEmail))
	}
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestWait_ExhaustedBucketHonoursContext(t *testing.T) {
	cl := ratelimiter.New(1)
	require.NoError(t, cl.Wait(context.Background(), domain.ChannelSMS))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, cl.Wait(ctx, domain.ChannelSMS))
}

func TestWait_ChannelsAreIndependent(t *testing.T) {
	cl := ratelimiter.New(1)
	require.NoError(t, cl.Wait(context.Background(), domain.ChannelPush))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.NoError(t, cl.Wait(ctx, domain.ChannelEmail))
}

func TestWait_InAppAndDisabledAreUnlimited(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.NoError(t, ratelimiter.New(1).Wait(ctx, domain.ChannelInApp))
	assert.NoError(t, ratelimiter.New(0).Wait(ctx, domain.ChannelEmail))

	var nilLimiter *ratelimiter.ChannelLimiters
	assert.NoError(t, nilLimiter.Wait(ctx, domain.ChannelSMS))
}
