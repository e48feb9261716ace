package queue_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/notifyhub/lms-notify/internal/domain"
	"github.com/notifyhub/lms-notify/internal/queue"
)

func item(id string, p domain.Priority) queue.Item {
	return queue.Item{JobID: id, Priority: p}
}

func TestPriorityQueue_BasicEnqueueDequeue(t *testing.T) {
	q := queue.New()
	ctx := context.Background()

	if err := q.Enqueue(item("1", domain.PriorityMedium)); err != nil {
		t.Fatal(err)
	}

	got, ok := q.Dequeue(ctx)
	if !ok {
		t.Fatal("expected item, got nothing")
	}
	if got.JobID != "1" {
		t.Fatalf("expected id=1, got %s", got.JobID)
	}
}

// An alert enqueued after a forum reply is still served first.
func TestPriorityQueue_HighBeforeLow(t *testing.T) {
	q := queue.New()
	ctx := context.Background()

	_ = q.Enqueue(item("forum-reply", domain.CategoryInfo.Priority()))
	_ = q.Enqueue(item("payment-failed", domain.CategoryAlert.Priority()))

	first, _ := q.Dequeue(ctx)
	if first.JobID != "payment-failed" {
		t.Fatalf("expected high to be dequeued first, got %q", first.JobID)
	}
}

func TestPriorityQueue_ContextCancellation(t *testing.T) {
	q := queue.New()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan bool, 1)
	go func() {
		_, ok := q.Dequeue(ctx)
		done <- ok
	}()

	cancel()

	select {
	case ok := <-done:
		if ok {
			t.Fatal("expected ok=false after context cancellation")
		}
	case <-time.After(time.Second):
		t.Fatal("Dequeue did not return after context cancellation")
	}
}

func TestPriorityQueue_ErrQueueFull(t *testing.T) {
	q := queue.NewWithCapacity(1, 1, 1)

	if err := q.Enqueue(item("a", domain.PriorityLow)); err != nil {
		t.Fatalf("unexpected error on empty queue: %v", err)
	}
	if err := q.Enqueue(item("b", domain.PriorityLow)); !errors.Is(err, domain.ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
	// Other tiers are unaffected.
	if err := q.Enqueue(item("c", domain.PriorityHigh)); err != nil {
		t.Fatalf("unexpected error on high tier: %v", err)
	}
}

func TestPriorityQueue_UnknownPriority(t *testing.T) {
	q := queue.New()
	err := q.Enqueue(item("x", domain.Priority("urgent")))
	if err == nil || errors.Is(err, domain.ErrQueueFull) {
		t.Fatalf("expected unknown priority error, got %v", err)
	}
}

// Multiple producers and a consumer run without races or lost items.
func TestPriorityQueue_ConcurrentEnqueueDequeue(t *testing.T) {
	q := queue.New()

	const producers = 5
	const itemsPerProducer = 100
	const total = producers * itemsPerProducer

	received := make(chan struct{}, total)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var consumerDone sync.WaitGroup
	consumerDone.Add(1)
	go func() {
		defer consumerDone.Done()
		for {
			_, ok := q.Dequeue(ctx)
			if !ok {
				return
			}
			received <- struct{}{}
		}
	}()

	var wg sync.WaitGroup
	for i := 0; i < producers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < itemsPerProducer; j++ {
				_ = q.Enqueue(item("id", domain.PriorityMedium))
			}
		}()
	}
	wg.Wait()

	for i := 0; i < total; i++ {
		select {
		case <-received:
		case <-ctx.Done():
			t.Fatalf("timeout: only received %d/%d items", i, total)
		}
	}
	cancel()
	consumerDone.Wait()
}

func TestPriorityQueue_Depths(t *testing.T) {
	q := queue.New()

	_ = q.Enqueue(item("h", domain.PriorityHigh))
	_ = q.Enqueue(item("m1", domain.PriorityMedium))
	_ = q.Enqueue(item("m2", domain.PriorityMedium))
	_ = q.Enqueue(item("l", domain.PriorityLow))

	high, medium, low := q.Depths()
	if high != 1 || medium != 2 || low != 1 {
		t.Fatalf("unexpected depths: high=%d medium=%d low=%d", high, medium, low)
	}
}
