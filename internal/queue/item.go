package queue

import "github.com/notifyhub/lms-notify/internal/domain"

// Item is what sits on the queue. Workers load the full Job by ID, so the
// database stays authoritative and the queue holds no request data.
type Item struct {
	JobID    string
	Priority domain.Priority
}
