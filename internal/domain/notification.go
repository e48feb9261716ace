package domain

import (
	"time"
	"unicode/utf8"
)

// Channel is one delivery medium for a notification.
type Channel string

const (
	ChannelInApp Channel = "in_app"
	ChannelEmail Channel = "email"
	ChannelPush  Channel = "push"
	ChannelSMS   Channel = "sms"
)

// Channels lists every channel in dispatch order. Outcomes are reported in this order.
var Channels = []Channel{ChannelInApp, ChannelEmail, ChannelPush, ChannelSMS}

func (c Channel) IsValid() bool {
	switch c {
	case ChannelInApp, ChannelEmail, ChannelPush, ChannelSMS:
		return true
	}
	return false
}

// ChannelSelector picks a single channel or all of them.
type ChannelSelector string

const SelectAll ChannelSelector = "all"

func (s ChannelSelector) IsValid() bool {
	return s == SelectAll || Channel(s).IsValid()
}

// Includes reports whether the selector names ch, either directly or through "all".
func (s ChannelSelector) Includes(ch Channel) bool {
	return s == SelectAll || Channel(s) == ch
}

// Category tags the purpose of a notification. It selects templates and drives priority.
type Category string

const (
	CategorySuccess Category = "success"
	CategoryInfo    Category = "info"
	CategoryWarning Category = "warning"
	CategoryAlert   Category = "alert"
	CategoryError   Category = "error"
)

// Priority controls queue ordering, in-app badge colour and push priority.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

func (p Priority) IsValid() bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

// Priority derives the priority of a category. Unknown categories are low.
func (c Category) Priority() Priority {
	switch c {
	case CategoryAlert, CategoryError:
		return PriorityHigh
	case CategoryWarning:
		return PriorityMedium
	default:
		return PriorityLow
	}
}

// NotificationRequest is produced by an LMS event and consumed once by the dispatcher.
type NotificationRequest struct {
	RecipientID string          `json:"user_id"`
	Title       string          `json:"title"`
	Body        string          `json:"message"`
	Category    Category        `json:"type"`
	Channel     ChannelSelector `json:"channel"`
	Payload     map[string]any  `json:"data,omitempty"`
}

// Validate rejects requests that can never be delivered.
// The channel selector is checked first: an unknown selector is a caller bug.
func (r *NotificationRequest) Validate() error {
	if !r.Channel.IsValid() {
		return ErrInvalidChannelSelector
	}
	if r.RecipientID == "" {
		return ErrInvalidRecipient
	}
	if r.Title == "" || utf8.RuneCountInString(r.Title) > 255 {
		return ErrInvalidTitle
	}
	if r.Body == "" || utf8.RuneCountInString(r.Body) > 4096 {
		return ErrInvalidBody
	}
	return nil
}

// Priority is the priority derived from the request category.
func (r *NotificationRequest) Priority() Priority {
	return r.Category.Priority()
}

// Template is a stored subject/body pattern for one category and channel.
type Template struct {
	ID        int64     `json:"id"`
	Category  Category  `json:"type"`
	Channel   Channel   `json:"channel"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
	IsActive  bool      `json:"is_active"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Recipient holds the delivery addresses of a user.
type Recipient struct {
	ID         string     `json:"id"`
	Email      string     `json:"email,omitempty"`
	Phone      string     `json:"phone,omitempty"`
	PushTokens []string   `json:"push_tokens,omitempty"`
	LastSeenAt *time.Time `json:"last_seen_at,omitempty"`
}

// IsOnline reports whether the user was seen within window of now.
func (r *Recipient) IsOnline(now time.Time, window time.Duration) bool {
	if r.LastSeenAt == nil {
		return false
	}
	return now.Sub(*r.LastSeenAt) <= window
}

// InAppNotification is the persisted record shown in the user's notification inbox.
type InAppNotification struct {
	ID        string         `json:"id"`
	UserID    string         `json:"user_id"`
	Title     string         `json:"title"`
	Body      string         `json:"message"`
	Category  Category       `json:"type"`
	Priority  Priority       `json:"priority"`
	Payload   map[string]any `json:"data,omitempty"`
	ReadAt    *time.Time     `json:"read_at,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// InboxFilter holds query parameters for paginated inbox listing.
type InboxFilter struct {
	UnreadOnly bool
	Page       int
	Limit      int
}

// DeliveryLog is the audit row written by a sender for each transport action.
type DeliveryLog struct {
	JobID     string    `json:"job_id"`
	UserID    string    `json:"user_id"`
	Channel   Channel   `json:"channel"`
	Target    string    `json:"target"`
	Succeeded bool      `json:"succeeded"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
