package queue

import (
	"context"
	"fmt"

	"github.com/notifyhub/lms-notify/internal/domain"
)

// Default tier capacities. Most LMS traffic (grades, enrolments, forum
// replies) is low priority; alerts must never pile up.
const (
	DefaultHighCapacity   = 1000
	DefaultMediumCapacity = 2000
	DefaultLowCapacity    = 5000
)

// PriorityQueue holds one buffered channel per derived priority.
//
// Workers dequeue via the double-select pattern: high-priority jobs are always
// served first, while medium and low compete fairly when high is empty.
type PriorityQueue struct {
	high   chan Item
	medium chan Item
	low    chan Item
}

func New() *PriorityQueue {
	return NewWithCapacity(DefaultHighCapacity, DefaultMediumCapacity, DefaultLowCapacity)
}

func NewWithCapacity(high, medium, low int) *PriorityQueue {
	return &PriorityQueue{
		high:   make(chan Item, high),
		medium: make(chan Item, medium),
		low:    make(chan Item, low),
	}
}

// Enqueue places an item on its tier without blocking.
// A full tier returns domain.ErrQueueFull immediately; the job stays pending
// in the database and the recovery worker picks it up later.
func (q *PriorityQueue) Enqueue(item Item) error {
	var target chan Item
	switch item.Priority {
	case domain.PriorityHigh:
		target = q.high
	case domain.PriorityMedium:
		target = q.medium
	case domain.PriorityLow:
		target = q.low
	default:
		return fmt.Errorf("unknown priority %q", item.Priority)
	}

	select {
	case target <- item:
		return nil
	default:
		return domain.ErrQueueFull
	}
}

// Dequeue blocks until an item is available or ctx is cancelled.
//
//  1. A non-blocking select drains high first.
//  2. Only when high is empty does the worker enter a fair blocking select
//     across all tiers plus ctx.Done, so it sleeps instead of spinning.
//
// Returns (Item{}, false) when ctx is cancelled.
func (q *PriorityQueue) Dequeue(ctx context.Context) (Item, bool) {
	select {
	case item := <-q.high:
		return item, true
	default:
	}

	select {
	case item := <-q.high:
		return item, true
	case item := <-q.medium:
		return item, true
	case item := <-q.low:
		return item, true
	case <-ctx.Done():
		return Item{}, false
	}
}

// Depths returns the number of items waiting in each tier.
func (q *PriorityQueue) Depths() (high, medium, low int) {
	return len(q.high), len(q.medium), len(q.low)
}
