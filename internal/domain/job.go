package domain

import "time"

// JobStatus tracks the lifecycle of a dispatch job.
type JobStatus string

const (
	JobPending    JobStatus = "pending"
	JobQueued     JobStatus = "queued"
	JobProcessing JobStatus = "processing"
	JobRetrying   JobStatus = "retrying"
	JobDelivered  JobStatus = "delivered"
	JobFailed     JobStatus = "failed"
)

// Job is the persisted unit of work that carries a NotificationRequest through
// dispatch attempts, retries and escalation.
type Job struct {
	ID          string              `json:"id"`
	BatchID     *string             `json:"batch_id,omitempty"`
	Request     NotificationRequest `json:"request"`
	Status      JobStatus           `json:"status"`
	Attempts    int                 `json:"attempts"`
	MaxAttempts int                 `json:"max_attempts"`
	NextRetryAt *time.Time          `json:"next_retry_at,omitempty"`
	LastError   *string             `json:"last_error,omitempty"`
	Outcomes    []ChannelOutcome    `json:"outcomes,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

// Batch groups jobs submitted together, e.g. a course announcement.
type Batch struct {
	ID        string    `json:"id"`
	Total     int       `json:"total"`
	CreatedAt time.Time `json:"created_at"`
}
