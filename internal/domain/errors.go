package domain

import "errors"

// Sentinel errors used throughout the application.
// Handlers translate these to HTTP status codes via a single mapError function.
var (
	ErrNotFound               = errors.New("not found")
	ErrRecipientNotFound      = errors.New("recipient not found")
	ErrInvalidChannelSelector = errors.New("invalid channel: must be in_app, email, push, sms, or all")
	ErrInvalidRecipient       = errors.New("recipient id must not be empty")
	ErrInvalidTitle           = errors.New("title must be between 1 and 255 characters")
	ErrInvalidBody            = errors.New("message must be between 1 and 4096 characters")
	ErrBatchTooLarge          = errors.New("batch exceeds maximum of 1000 notifications")
	ErrBatchEmpty             = errors.New("batch must contain at least one notification")
	ErrQueueFull              = errors.New("queue is at capacity, try again later")
	ErrAlreadyRead            = errors.New("notification is already marked as read")
)

// IsInvalidRequest reports whether err means the request itself can never be
// delivered, so trying again cannot help.
func IsInvalidRequest(err error) bool {
	return errors.Is(err, ErrInvalidChannelSelector) ||
		errors.Is(err, ErrInvalidRecipient) ||
		errors.Is(err, ErrInvalidTitle) ||
		errors.Is(err, ErrInvalidBody)
}
