package dispatch_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/notifyhub/lms-notify/internal/channel"
	"github.com/notifyhub/lms-notify/internal/clock"
	"github.com/notifyhub/lms-notify/internal/dispatch"
	"github.com/notifyhub/lms-notify/internal/domain"
	"github.com/notifyhub/lms-notify/internal/provider"
	"github.com/notifyhub/lms-notify/internal/repository"
	"github.com/notifyhub/lms-notify/internal/templates"
)

var now = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

type fixture struct {
	users *repository.MockUserRepository
	inapp *repository.MockInAppRepository
	mail  *provider.MockEmailTransport
	push  *provider.MockPushTransport
	sms   *provider.MockSMSTransport
	tmpls *repository.MockTemplateRepository
}

func newFixture() *fixture {
	return &fixture{
		users: repository.NewMockUserRepository(domain.Recipient{
			ID:         "42",
			Email:      "ada@campus.test",
			Phone:      "+254700000001",
			PushTokens: []string{"tok-a"},
		}),
		inapp: repository.NewMockInAppRepository(),
		mail:  &provider.MockEmailTransport{},
		push:  provider.NewMockPushTransport(),
		sms:   &provider.MockSMSTransport{},
		tmpls: repository.NewMockTemplateRepository(),
	}
}

func (f *fixture) senders() []channel.Sender {
	logger := zap.NewNop()
	clk := clock.NewFake(now)
	opts := channel.Options{
		Resolver: templates.NewResolver(templates.NewCachedStore(f.tmpls, time.Minute, clk), logger),
		Timeout:  time.Second,
		Clock:    clk,
		Logger:   logger,
	}
	return []channel.Sender{
		channel.NewInAppSender(f.inapp, nil, 0, opts),
		channel.NewEmailSender(f.mail, opts),
		channel.NewPushSender(f.push, opts),
		channel.NewSMSSender(f.sms, "- Campus", opts),
	}
}

func (f *fixture) dispatcher(flags domain.ChannelFlags, extra ...channel.Sender) *dispatch.Dispatcher {
	return dispatch.NewDispatcher(f.users, append(f.senders(), extra...), flags, zap.NewNop(), dispatch.Hooks{})
}

var allOn = domain.ChannelFlags{Email: true, Push: true, SMS: true}

func request(sel domain.ChannelSelector) domain.NotificationRequest {
	return domain.NotificationRequest{
		RecipientID: "42",
		Title:       "Payment received",
		Body:        "We received your payment of $120",
		Category:    domain.CategorySuccess,
		Channel:     sel,
	}
}

func channelsOf(outcomes []domain.ChannelOutcome) []domain.Channel {
	out := make([]domain.Channel, len(outcomes))
	for i, o := range outcomes {
		out[i] = o.Channel
	}
	return out
}

func TestDispatch_OneOutcomePerEligibleChannel(t *testing.T) {
	tests := []struct {
		sel  domain.ChannelSelector
		want []domain.Channel
	}{
		{"in_app", []domain.Channel{domain.ChannelInApp}},
		{"email", []domain.Channel{domain.ChannelEmail}},
		{"push", []domain.Channel{domain.ChannelPush}},
		{"sms", []domain.Channel{domain.ChannelSMS}},
		{"all", domain.Channels},
	}
	for _, tt := range tests {
		t.Run(string(tt.sel), func(t *testing.T) {
			f := newFixture()
			res, err := f.dispatcher(allOn).Dispatch(context.Background(), "job-1", request(tt.sel))

			require.NoError(t, err)
			assert.False(t, res.OverallFailed)
			assert.Equal(t, tt.want, channelsOf(res.Outcomes))
			for _, o := range res.Outcomes {
				assert.True(t, o.Succeeded, "channel %s: %s", o.Channel, o.Error)
			}
		})
	}
}

func TestDispatch_DisabledChannelsAreNotAttempted(t *testing.T) {
	f := newFixture()
	res, err := f.dispatcher(domain.ChannelFlags{Push: true}).Dispatch(context.Background(), "job-1", request("all"))

	require.NoError(t, err)
	assert.Equal(t, []domain.Channel{domain.ChannelInApp, domain.ChannelPush}, channelsOf(res.Outcomes))
	assert.Empty(t, f.mail.Sent())
	assert.Empty(t, f.sms.Sent())
}

func TestDispatch_BogusSelector(t *testing.T) {
	f := newFixture()
	res, err := f.dispatcher(allOn).Dispatch(context.Background(), "job-1", request("bogus"))

	require.ErrorIs(t, err, domain.ErrInvalidChannelSelector)
	assert.True(t, res.OverallFailed)
	assert.Empty(t, res.Outcomes)
	assert.Empty(t, f.inapp.Records("42"))
}

func TestDispatch_UnknownRecipient(t *testing.T) {
	f := newFixture()
	req := request("all")
	req.RecipientID = "404"

	res, err := f.dispatcher(allOn).Dispatch(context.Background(), "job-1", req)

	require.ErrorIs(t, err, domain.ErrRecipientNotFound)
	assert.True(t, res.OverallFailed)
	assert.Equal(t, domain.ErrRecipientNotFound.Error(), res.Error)
	assert.Empty(t, res.Outcomes)
}

func TestDispatch_LookupFailureIsWrapped(t *testing.T) {
	f := newFixture()
	f.users.GetUserErr = errors.New("connection reset")

	res, err := f.dispatcher(allOn).Dispatch(context.Background(), "job-1", request("all"))

	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrRecipientNotFound)
	assert.True(t, res.OverallFailed)
	assert.Contains(t, res.Error, "connection reset")
}

func TestDispatch_ChannelFailureIsIsolated(t *testing.T) {
	f := newFixture()
	f.mail.Err = errors.New("sendgrid 503")

	res, err := f.dispatcher(allOn).Dispatch(context.Background(), "job-1", request("all"))

	require.NoError(t, err)
	assert.False(t, res.OverallFailed)
	assert.Equal(t, []domain.Channel{domain.ChannelEmail}, res.FailedChannels())
	assert.Len(t, f.sms.Sent(), 1)
	assert.Len(t, f.push.Delivered("tok-a"), 1)
}

func TestDispatch_ZeroPushTokensIsSkipped(t *testing.T) {
	f := newFixture()
	f.users.Put(domain.Recipient{ID: "42", Email: "ada@campus.test"})

	res, err := f.dispatcher(allOn).Dispatch(context.Background(), "job-1", request("push"))

	require.NoError(t, err)
	out, ok := res.Outcome(domain.ChannelPush)
	require.True(t, ok)
	assert.False(t, out.Attempted)
	assert.False(t, out.Failed())
}

func TestDispatch_TwoTokensOneFails(t *testing.T) {
	f := newFixture()
	f.users.Put(domain.Recipient{ID: "42", PushTokens: []string{"tok-a", "tok-b"}})
	f.push.TokenErrs["tok-b"] = errors.New("InvalidRegistration")

	res, err := f.dispatcher(allOn).Dispatch(context.Background(), "job-1", request("push"))

	require.NoError(t, err)
	out, _ := res.Outcome(domain.ChannelPush)
	assert.True(t, out.Attempted)
	assert.True(t, out.Succeeded)
}

type panicSender struct{ ch domain.Channel }

func (p panicSender) Channel() domain.Channel { return p.ch }

func (p panicSender) Send(context.Context, channel.Message) domain.ChannelOutcome {
	panic("nil map write")
}

func TestDispatch_PanickingSenderBecomesFailure(t *testing.T) {
	f := newFixture()
	// Registered last, so it replaces the real SMS sender.
	d := f.dispatcher(allOn, panicSender{ch: domain.ChannelSMS})

	res, err := d.Dispatch(context.Background(), "job-1", request("all"))

	require.NoError(t, err)
	assert.False(t, res.OverallFailed)
	require.Len(t, res.Outcomes, 4)

	sms, _ := res.Outcome(domain.ChannelSMS)
	assert.True(t, sms.Failed())
	assert.Contains(t, sms.Error, "nil map write")

	for _, ch := range []domain.Channel{domain.ChannelInApp, domain.ChannelEmail, domain.ChannelPush} {
		o, _ := res.Outcome(ch)
		assert.True(t, o.Succeeded, "channel %s", ch)
	}
}

func TestDispatch_HooksObserveEveryOutcome(t *testing.T) {
	f := newFixture()
	var (
		mu       sync.Mutex
		observed []domain.Channel
		results  int
	)
	d := dispatch.NewDispatcher(f.users, f.senders(), allOn, zap.NewNop(), dispatch.Hooks{
		OnOutcome: func(o domain.ChannelOutcome, _ time.Duration) {
			mu.Lock()
			defer mu.Unlock()
			observed = append(observed, o.Channel)
		},
		OnDispatch: func(domain.DispatchResult, time.Duration) {
			mu.Lock()
			defer mu.Unlock()
			results++
		},
	})

	_, err := d.Dispatch(context.Background(), "job-1", request("all"))
	require.NoError(t, err)

	assert.ElementsMatch(t, domain.Channels, observed)
	assert.Equal(t, 1, results)
}

func TestDispatch_ConcurrentRecipientsDoNotInterfere(t *testing.T) {
	f := newFixture()
	f.users.Put(domain.Recipient{ID: "7", Email: "grace@campus.test"})
	f.tmpls.Add(domain.Template{
		ID: 1, Category: domain.CategorySuccess, Channel: domain.ChannelInApp,
		Subject: "Hi {user_id}", Body: "{message}", IsActive: true, UpdatedAt: now,
	})
	d := f.dispatcher(allOn)

	const rounds = 25
	var wg sync.WaitGroup
	for i := 0; i < rounds; i++ {
		for _, uid := range []string{"42", "7"} {
			wg.Add(1)
			go func(i int, uid string) {
				defer wg.Done()
				req := request("in_app")
				req.RecipientID = uid
				_, err := d.Dispatch(context.Background(), fmt.Sprintf("job-%s-%d", uid, i), req)
				assert.NoError(t, err)
			}(i, uid)
		}
	}
	wg.Wait()

	for _, uid := range []string{"42", "7"} {
		records := f.inapp.Records(uid)
		require.Len(t, records, rounds)
		for _, r := range records {
			assert.Equal(t, "Hi "+uid, r.Title)
		}
	}
}
