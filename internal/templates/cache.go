package templates

import (
	"context"
	"sync"
	"time"

	"github.com/notifyhub/lms-notify/internal/clock"
	"github.com/notifyhub/lms-notify/internal/domain"
)

type cacheKey struct {
	category domain.Category
	channel  domain.Channel
}

type cacheEntry struct {
	tmpl      *domain.Template
	expiresAt time.Time
}

// CachedStore is a read-through cache in front of a Store. Misses are cached
// as well, so a category without templates does not hit the database on every
// dispatch. Entries expire after ttl; Invalidate drops everything at once.
type CachedStore struct {
	next  Store
	ttl   time.Duration
	clock clock.Clock

	mu      sync.RWMutex
	entries map[cacheKey]cacheEntry
}

func NewCachedStore(next Store, ttl time.Duration, clk clock.Clock) *CachedStore {
	return &CachedStore{
		next:    next,
		ttl:     ttl,
		clock:   clk,
		entries: make(map[cacheKey]cacheEntry),
	}
}

func (c *CachedStore) FindActiveTemplate(ctx context.Context, category domain.Category, channel domain.Channel) (*domain.Template, error) {
	key := cacheKey{category: category, channel: channel}
	now := c.clock.Now()

	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if ok && now.Before(e.expiresAt) {
		return cloneTemplate(e.tmpl), nil
	}

	t, err := c.next.FindActiveTemplate(ctx, category, channel)
	if err != nil {
		// errors are not cached; the next dispatch tries again
		return nil, err
	}

	c.mu.Lock()
	c.entries[key] = cacheEntry{tmpl: cloneTemplate(t), expiresAt: now.Add(c.ttl)}
	c.mu.Unlock()

	return t, nil
}

// Invalidate empties the cache.
func (c *CachedStore) Invalidate() {
	c.mu.Lock()
	c.entries = make(map[cacheKey]cacheEntry)
	c.mu.Unlock()
}

// Len returns the number of cached keys, including cached misses.
func (c *CachedStore) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func cloneTemplate(t *domain.Template) *domain.Template {
	if t == nil {
		return nil
	}
	clone := *t
	return &clone
}

var _ Store = (*CachedStore)(nil)
