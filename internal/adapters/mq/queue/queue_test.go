package queue

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/okian/gympulse/internal/domain/model"
)

func lead(id string) model.Event {
	return model.Event{
		ID:         id,
		TenantID:   "gym-1",
		Type:       model.LeadCreated,
		OccurredAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		SubjectID:  "lead-" + id,
		Payload:    model.LeadCreatedPayload{Source: "walk_in"},
	}
}

func TestInMemoryQueue_BasicOperations(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}
	if err := q.Enqueue(ctx, lead("e1")); err != nil {
		t.Fatalf("expected enqueue to succeed: %v", err)
	}
	if l := q.Len(ctx); l != 1 {
		t.Errorf("expected length 1, got %d", l)
	}

	got := <-q.Dequeue(ctx)
	if got.ID != "e1" || got.Payload != (model.LeadCreatedPayload{Source: "walk_in"}) {
		t.Errorf("unexpected event %+v", got)
	}
	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}
}

func TestInMemoryQueue_Capacity(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := q.Enqueue(ctx, lead(fmt.Sprintf("e%d", i))); err != nil {
			t.Fatalf("expected enqueue %d to succeed: %v", i, err)
		}
	}
	if err := q.Enqueue(ctx, lead("e3")); !errors.Is(err, ErrFull) {
		t.Errorf("expected ErrFull, got %v", err)
	}
	if q.Capacity() != 2 {
		t.Errorf("expected capacity 2, got %d", q.Capacity())
	}
}

func TestInMemoryQueue_Close(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(4))
	ctx := context.Background()

	if err := q.Enqueue(ctx, lead("e1")); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if err := q.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := q.Close(); err != nil {
		t.Fatalf("second close should be a no-op: %v", err)
	}
	if !q.IsClosed() {
		t.Error("expected queue to report closed")
	}
	if err := q.Enqueue(ctx, lead("e2")); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}

	// queued events drain before the channel reports closed
	ch := q.Dequeue(ctx)
	if e, ok := <-ch; !ok || e.ID != "e1" {
		t.Errorf("expected to drain e1, got %+v ok=%v", e, ok)
	}
	if _, ok := <-ch; ok {
		t.Error("expected channel to be closed after draining")
	}
}

func TestInMemoryQueue_CancelledContext(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(4))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := q.Enqueue(ctx, lead("e1")); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
