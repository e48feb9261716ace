package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/notifyhub/lms-notify/internal/domain"
)

// MockUserRepository is an in-memory UserRepository.
type MockUserRepository struct {
	mu    sync.RWMutex
	users map[string]domain.Recipient

	GetUserErr error
}

func NewMockUserRepository(users ...domain.Recipient) *MockUserRepository {
	m := &MockUserRepository{users: make(map[string]domain.Recipient)}
	for _, u := range users {
		m.users[u.ID] = u
	}
	return m
}

func (m *MockUserRepository) Put(u domain.Recipient) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = u
}

func (m *MockUserRepository) GetUser(_ context.Context, id string) (*domain.Recipient, error) {
	if m.GetUserErr != nil {
		return nil, m.GetUserErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	u.PushTokens = append([]string(nil), u.PushTokens...)
	return &u, nil
}

// MockTemplateRepository is an in-memory TemplateRepository that applies the
// same tie-break as the pgx implementation.
type MockTemplateRepository struct {
	mu        sync.RWMutex
	templates []domain.Template
	lookups   int

	FindErr error
}

func NewMockTemplateRepository(templates ...domain.Template) *MockTemplateRepository {
	return &MockTemplateRepository{templates: templates}
}

func (m *MockTemplateRepository) Add(t domain.Template) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.templates = append(m.templates, t)
}

func (m *MockTemplateRepository) FindActiveTemplate(_ context.Context, category domain.Category, channel domain.Channel) (*domain.Template, error) {
	m.mu.Lock()
	m.lookups++
	m.mu.Unlock()
	if m.FindErr != nil {
		return nil, m.FindErr
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	var best *domain.Template
	for i := range m.templates {
		t := m.templates[i]
		if !t.IsActive || t.Category != category || t.Channel != channel {
			continue
		}
		if best == nil || t.UpdatedAt.After(best.UpdatedAt) ||
			(t.UpdatedAt.Equal(best.UpdatedAt) && t.ID > best.ID) {
			best = &t
		}
	}
	return best, nil
}

// Lookups returns how many times FindActiveTemplate was called.
func (m *MockTemplateRepository) Lookups() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lookups
}

// MockInAppRepository is an in-memory InAppRepository.
type MockInAppRepository struct {
	mu      sync.RWMutex
	records map[string]*domain.InAppNotification

	CreateErr error
}

func NewMockInAppRepository() *MockInAppRepository {
	return &MockInAppRepository{records: make(map[string]*domain.InAppNotification)}
}

func (m *MockInAppRepository) Create(_ context.Context, n *domain.InAppNotification) (string, error) {
	if m.CreateErr != nil {
		return "", m.CreateErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	clone := *n
	m.records[n.ID] = &clone
	return n.ID, nil
}

func (m *MockInAppRepository) ListForUser(_ context.Context, userID string, f domain.InboxFilter) ([]*domain.InAppNotification, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var all []*domain.InAppNotification
	for _, n := range m.records {
		if n.UserID != userID || (f.UnreadOnly && n.ReadAt != nil) {
			continue
		}
		clone := *n
		all = append(all, &clone)
	}
	sort.Slice(all, func(a, b int) bool { return all[a].CreatedAt.After(all[b].CreatedAt) })

	total := len(all)
	start := (f.Page - 1) * f.Limit
	if start < 0 || start >= total {
		return nil, total, nil
	}
	end := start + f.Limit
	if end > total {
		end = total
	}
	return all[start:end], total, nil
}

func (m *MockInAppRepository) MarkRead(_ context.Context, userID, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.records[id]
	if !ok || n.UserID != userID {
		return domain.ErrNotFound
	}
	if n.ReadAt != nil {
		return domain.ErrAlreadyRead
	}
	n.ReadAt = &at
	return nil
}

func (m *MockInAppRepository) MarkAllRead(_ context.Context, userID string, at time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, n := range m.records {
		if n.UserID == userID && n.ReadAt == nil {
			n.ReadAt = &at
			count++
		}
	}
	return count, nil
}

// Records returns every stored record for userID.
func (m *MockInAppRepository) Records(userID string) []domain.InAppNotification {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.InAppNotification
	for _, n := range m.records {
		if n.UserID == userID {
			out = append(out, *n)
		}
	}
	return out
}

// MockDeliveryLogRepository collects delivery log entries.
type MockDeliveryLogRepository struct {
	mu      sync.Mutex
	entries []domain.DeliveryLog

	InsertErr error
}

func NewMockDeliveryLogRepository() *MockDeliveryLogRepository {
	return &MockDeliveryLogRepository{}
}

func (m *MockDeliveryLogRepository) Insert(_ context.Context, e domain.DeliveryLog) error {
	if m.InsertErr != nil {
		return m.InsertErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, e)
	return nil
}

func (m *MockDeliveryLogRepository) Entries() []domain.DeliveryLog {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.DeliveryLog(nil), m.entries...)
}

var (
	_ JobRepository         = (*MockJobRepository)(nil)
	_ UserRepository        = (*MockUserRepository)(nil)
	_ TemplateRepository    = (*MockTemplateRepository)(nil)
	_ InAppRepository       = (*MockInAppRepository)(nil)
	_ DeliveryLogRepository = (*MockDeliveryLogRepository)(nil)
)
