package domain_test

import (
	"strings"
	"testing"
	"time"

	"github.com/notifyhub/lms-notify/internal/domain"
)

func TestNotificationRequest_Validate(t *testing.T) {
	valid := domain.NotificationRequest{
		RecipientID: "42",
		Title:       "Payment received",
		Body:        "Your payment for Go 101 was completed.",
		Category:    domain.CategorySuccess,
		Channel:     domain.SelectAll,
	}

	t.Run("valid request passes", func(t *testing.T) {
		if err := valid.Validate(); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
	})

	t.Run("unknown selector rejected", func(t *testing.T) {
		r := valid
		r.Channel = "bogus"
		if err := r.Validate(); err != domain.ErrInvalidChannelSelector {
			t.Fatalf("expected ErrInvalidChannelSelector, got %v", err)
		}
	})

	t.Run("empty selector rejected", func(t *testing.T) {
		r := valid
		r.Channel = ""
		if err := r.Validate(); err != domain.ErrInvalidChannelSelector {
			t.Fatalf("expected ErrInvalidChannelSelector, got %v", err)
		}
	})

	t.Run("selector checked before other fields", func(t *testing.T) {
		r := domain.NotificationRequest{Channel: "fax"}
		if err := r.Validate(); err != domain.ErrInvalidChannelSelector {
			t.Fatalf("expected ErrInvalidChannelSelector, got %v", err)
		}
	})

	t.Run("empty recipient", func(t *testing.T) {
		r := valid
		r.RecipientID = ""
		if err := r.Validate(); err != domain.ErrInvalidRecipient {
			t.Fatalf("expected ErrInvalidRecipient, got %v", err)
		}
	})

	t.Run("empty title", func(t *testing.T) {
		r := valid
		r.Title = ""
		if err := r.Validate(); err != domain.ErrInvalidTitle {
			t.Fatalf("expected ErrInvalidTitle, got %v", err)
		}
	})

	t.Run("body too long", func(t *testing.T) {
		r := valid
		r.Body = strings.Repeat("x", 4097)
		if err := r.Validate(); err != domain.ErrInvalidBody {
			t.Fatalf("expected ErrInvalidBody, got %v", err)
		}
	})

	t.Run("all valid selectors accepted", func(t *testing.T) {
		for _, sel := range []domain.ChannelSelector{"in_app", "email", "push", "sms", "all"} {
			r := valid
			r.Channel = sel
			if err := r.Validate(); err != nil {
				t.Fatalf("selector %q: expected no error, got %v", sel, err)
			}
		}
	})
}

func TestCategory_Priority(t *testing.T) {
	tests := []struct {
		category domain.Category
		want     domain.Priority
	}{
		{"alert", domain.PriorityHigh},
		{"error", domain.PriorityHigh},
		{"warning", domain.PriorityMedium},
		{"success", domain.PriorityLow},
		{"info", domain.PriorityLow},
		{"banana", domain.PriorityLow},
		{"", domain.PriorityLow},
	}
	for _, tc := range tests {
		if got := tc.category.Priority(); got != tc.want {
			t.Fatalf("category %q: expected %s, got %s", tc.category, tc.want, got)
		}
	}
}

func TestResolveEligibility(t *testing.T) {
	allOn := domain.ChannelFlags{Email: true, Push: true, SMS: true}

	t.Run("all with every flag on", func(t *testing.T) {
		got := domain.ResolveEligibility(domain.SelectAll, allOn).Channels()
		if len(got) != 4 {
			t.Fatalf("expected 4 channels, got %v", got)
		}
		for i, ch := range domain.Channels {
			if got[i] != ch {
				t.Fatalf("expected order %v, got %v", domain.Channels, got)
			}
		}
	})

	t.Run("disabled flags drop channels", func(t *testing.T) {
		got := domain.ResolveEligibility(domain.SelectAll, domain.ChannelFlags{Push: true}).Channels()
		if len(got) != 2 || got[0] != domain.ChannelInApp || got[1] != domain.ChannelPush {
			t.Fatalf("expected [in_app push], got %v", got)
		}
	})

	t.Run("single selector", func(t *testing.T) {
		got := domain.ResolveEligibility("sms", allOn).Channels()
		if len(got) != 1 || got[0] != domain.ChannelSMS {
			t.Fatalf("expected [sms], got %v", got)
		}
	})

	t.Run("single selector on disabled channel", func(t *testing.T) {
		got := domain.ResolveEligibility("email", domain.ChannelFlags{}).Channels()
		if len(got) != 0 {
			t.Fatalf("expected no channels, got %v", got)
		}
	})

	t.Run("in_app ignores flags", func(t *testing.T) {
		got := domain.ResolveEligibility("in_app", domain.ChannelFlags{}).Channels()
		if len(got) != 1 || got[0] != domain.ChannelInApp {
			t.Fatalf("expected [in_app], got %v", got)
		}
	})
}

func TestRecipient_IsOnline(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	seen := now.Add(-4 * time.Minute)
	stale := now.Add(-6 * time.Minute)

	if (&domain.Recipient{}).IsOnline(now, 5*time.Minute) {
		t.Fatal("never-seen recipient must be offline")
	}
	if !(&domain.Recipient{LastSeenAt: &seen}).IsOnline(now, 5*time.Minute) {
		t.Fatal("recipient seen 4m ago must be online")
	}
	if (&domain.Recipient{LastSeenAt: &stale}).IsOnline(now, 5*time.Minute) {
		t.Fatal("recipient seen 6m ago must be offline")
	}
}

func TestChannelOutcome_SkippedIsNotFailure(t *testing.T) {
	o := domain.Skipped(domain.ChannelPush, "no device tokens")
	if o.Attempted || o.Succeeded || o.Error != "" {
		t.Fatalf("skipped outcome must carry no result: %+v", o)
	}
	if o.Failed() {
		t.Fatal("skipped outcome must not count as failed")
	}

	res := domain.DispatchResult{Outcomes: []domain.ChannelOutcome{
		o,
		domain.Success(domain.ChannelInApp),
		domain.Failure(domain.ChannelSMS, nil),
	}}
	failed := res.FailedChannels()
	if len(failed) != 1 || failed[0] != domain.ChannelSMS {
		t.Fatalf("expected [sms] failed, got %v", failed)
	}
}
