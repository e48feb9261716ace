package ratelimiter

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/notifyhub/lms-notify/internal/domain"
)

// ChannelLimiters holds one token bucket per external channel.
// Burst equals the rate so no capacity is saved up above the per-second maximum.
// In-app delivery is a local insert and is never limited.
type ChannelLimiters struct {
	limiters map[domain.Channel]*rate.Limiter
}

// New creates a ChannelLimiters with ratePerSec tokens per second per channel.
// A non-positive rate disables limiting.
func New(ratePerSec int) *ChannelLimiters {
	cl := &ChannelLimiters{limiters: make(map[domain.Channel]*rate.Limiter)}
	if ratePerSec <= 0 {
		return cl
	}

	r := rate.Limit(ratePerSec)
	for _, ch := range []domain.Channel{domain.ChannelEmail, domain.ChannelPush, domain.ChannelSMS} {
		cl.limiters[ch] = rate.NewLimiter(r, ratePerSec)
	}
	return cl
}

// Wait blocks until the channel's limiter grants a token.
// Returns a non-nil error only if ctx is done while waiting.
func (cl *ChannelLimiters) Wait(ctx context.Context, ch domain.Channel) error {
	if cl == nil {
		return nil
	}
	l, ok := cl.limiters[ch]
	if !ok {
		return nil
	}
	return l.Wait(ctx)
}
