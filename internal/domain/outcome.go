package domain

// ChannelOutcome is the result of one channel for one dispatch.
// Attempted=false means the channel was skipped for this recipient; it is not a failure.
type ChannelOutcome struct {
	Channel   Channel `json:"channel"`
	Attempted bool    `json:"attempted"`
	Succeeded bool    `json:"succeeded"`
	Error     string  `json:"error,omitempty"`
	Reason    string  `json:"reason,omitempty"`
}

func Skipped(ch Channel, reason string) ChannelOutcome {
	return ChannelOutcome{Channel: ch, Reason: reason}
}

func Success(ch Channel) ChannelOutcome {
	return ChannelOutcome{Channel: ch, Attempted: true, Succeeded: true}
}

func Failure(ch Channel, err error) ChannelOutcome {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return ChannelOutcome{Channel: ch, Attempted: true, Error: msg}
}

// Failed reports whether the channel was attempted and did not succeed.
func (o ChannelOutcome) Failed() bool {
	return o.Attempted && !o.Succeeded
}

// DispatchResult aggregates the outcomes of a single dispatch.
// OverallFailed is set only when the request could not be dispatched at all
// (invalid selector, unknown recipient); channel failures never set it.
type DispatchResult struct {
	Outcomes      []ChannelOutcome `json:"outcomes"`
	OverallFailed bool             `json:"overall_failed"`
	Error         string           `json:"error,omitempty"`
}

// Outcome returns the outcome recorded for ch, if any.
func (r DispatchResult) Outcome(ch Channel) (ChannelOutcome, bool) {
	for _, o := range r.Outcomes {
		if o.Channel == ch {
			return o, true
		}
	}
	return ChannelOutcome{}, false
}

// FailedChannels returns the channels that were attempted and failed.
func (r DispatchResult) FailedChannels() []Channel {
	var out []Channel
	for _, o := range r.Outcomes {
		if o.Failed() {
			out = append(out, o.Channel)
		}
	}
	return out
}

// ChannelFlags are the per-channel enable switches. In-app is always enabled.
type ChannelFlags struct {
	Email bool
	Push  bool
	SMS   bool
}

// Enabled reports whether ch is switched on.
func (f ChannelFlags) Enabled(ch Channel) bool {
	switch ch {
	case ChannelInApp:
		return true
	case ChannelEmail:
		return f.Email
	case ChannelPush:
		return f.Push
	case ChannelSMS:
		return f.SMS
	}
	return false
}

// ChannelEligibility is the set of channels a single dispatch will attempt,
// resolved once from the selector and the configured flags.
type ChannelEligibility struct {
	channels []Channel
}

// ResolveEligibility combines the selector with the flags. The selector must be valid.
func ResolveEligibility(sel ChannelSelector, flags ChannelFlags) ChannelEligibility {
	var e ChannelEligibility
	for _, ch := range Channels {
		if sel.Includes(ch) && flags.Enabled(ch) {
			e.channels = append(e.channels, ch)
		}
	}
	return e
}

// Channels returns the eligible channels in dispatch order.
func (e ChannelEligibility) Channels() []Channel {
	out := make([]Channel, len(e.channels))
	copy(out, e.channels)
	return out
}
