package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/notifyhub/lms-notify/internal/domain"
)

// MockJobRepository is a hand-written, in-memory implementation of
// JobRepository used in unit tests. No mock-generation library needed.
type MockJobRepository struct {
	mu      sync.RWMutex
	jobs    map[string]*domain.Job
	batches map[string]*domain.Batch

	// Optional error overrides, set in tests to simulate failure paths.
	CreateErr  error
	GetByIDErr error
}

func NewMockJobRepository() *MockJobRepository {
	return &MockJobRepository{
		jobs:    make(map[string]*domain.Job),
		batches: make(map[string]*domain.Batch),
	}
}

func (m *MockJobRepository) Create(_ context.Context, j *domain.Job) error {
	if m.CreateErr != nil {
		return m.CreateErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[j.ID] = cloneJob(j)
	return nil
}

func (m *MockJobRepository) CreateBatch(_ context.Context, batchID string, jobs []*domain.Job) (*domain.Batch, error) {
	if m.CreateErr != nil {
		return nil, m.CreateErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	batch := &domain.Batch{ID: batchID, Total: len(jobs), CreatedAt: time.Now().UTC()}
	m.batches[batchID] = batch
	for _, j := range jobs {
		m.jobs[j.ID] = cloneJob(j)
	}
	clone := *batch
	return &clone, nil
}

func (m *MockJobRepository) GetByID(_ context.Context, id string) (*domain.Job, error) {
	if m.GetByIDErr != nil {
		return nil, m.GetByIDErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	j, ok := m.jobs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneJob(j), nil
}

func (m *MockJobRepository) MarkQueued(_ context.Context, id string, from domain.JobStatus, attempts int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok || j.Status != from || j.Attempts != attempts {
		return false, nil
	}
	j.Status = domain.JobQueued
	return true, nil
}

func (m *MockJobRepository) MarkProcessing(_ context.Context, id string, attempts int) error {
	m.update(id, func(j *domain.Job) {
		j.Status = domain.JobProcessing
		j.Attempts = attempts
		j.NextRetryAt = nil
	})
	return nil
}

func (m *MockJobRepository) MarkDelivered(_ context.Context, id string, outcomes []domain.ChannelOutcome) error {
	m.update(id, func(j *domain.Job) {
		j.Status = domain.JobDelivered
		j.Outcomes = outcomes
		j.LastError = nil
		j.NextRetryAt = nil
	})
	return nil
}

func (m *MockJobRepository) ScheduleRetry(_ context.Context, id string, nextRetry time.Time, errMsg string, outcomes []domain.ChannelOutcome) error {
	m.update(id, func(j *domain.Job) {
		j.Status = domain.JobRetrying
		j.NextRetryAt = &nextRetry
		j.LastError = &errMsg
		j.Outcomes = outcomes
	})
	return nil
}

func (m *MockJobRepository) MarkFailed(_ context.Context, id, errMsg string, outcomes []domain.ChannelOutcome) error {
	m.update(id, func(j *domain.Job) {
		j.Status = domain.JobFailed
		j.LastError = &errMsg
		j.Outcomes = outcomes
		j.NextRetryAt = nil
	})
	return nil
}

func (m *MockJobRepository) FindDueRetries(_ context.Context, now time.Time) ([]*domain.Job, error) {
	return m.find(func(j *domain.Job) bool {
		return j.Status == domain.JobRetrying &&
			j.Attempts < j.MaxAttempts &&
			j.NextRetryAt != nil && !j.NextRetryAt.After(now)
	}), nil
}

func (m *MockJobRepository) FindStalePending(_ context.Context, olderThan time.Time) ([]*domain.Job, error) {
	return m.find(func(j *domain.Job) bool {
		return j.Status == domain.JobPending && !j.CreatedAt.After(olderThan)
	}), nil
}

func (m *MockJobRepository) FindStaleProcessing(_ context.Context, olderThan time.Time) ([]*domain.Job, error) {
	return m.find(func(j *domain.Job) bool {
		return j.Status == domain.JobProcessing && !j.UpdatedAt.After(olderThan)
	}), nil
}

func (m *MockJobRepository) update(id string, fn func(*domain.Job)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if j, ok := m.jobs[id]; ok {
		fn(j)
	}
}

func (m *MockJobRepository) find(match func(*domain.Job) bool) []*domain.Job {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.Job
	for _, j := range m.jobs {
		if match(j) {
			out = append(out, cloneJob(j))
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].CreatedAt.Before(out[b].CreatedAt) })
	return out
}

func cloneJob(j *domain.Job) *domain.Job {
	clone := *j
	if j.Outcomes != nil {
		clone.Outcomes = append([]domain.ChannelOutcome(nil), j.Outcomes...)
	}
	return &clone
}
