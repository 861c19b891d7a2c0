package worker_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/gympulse/internal/adapters/mq/queue"
	"github.com/okian/gympulse/internal/adapters/mq/worker"
	"github.com/okian/gympulse/internal/domain/model"
	logging "github.com/okian/gympulse/pkg/logger"
)

type mockQueue struct {
	events chan model.Event
}

func newMockQueue() *mockQueue {
	return &mockQueue{events: make(chan model.Event, 10)}
}

func (mq *mockQueue) Dequeue(context.Context) <-chan model.Event { return mq.events }

type mockAppender struct {
	mu     sync.Mutex
	stored map[string]model.Event
	errs   map[string]error
}

func newMockAppender() *mockAppender {
	return &mockAppender{stored: map[string]model.Event{}, errs: map[string]error{}}
}

func (ma *mockAppender) Append(_ context.Context, e model.Event) (bool, error) {
	ma.mu.Lock()
	defer ma.mu.Unlock()
	if err, ok := ma.errs[e.ID]; ok {
		return false, err
	}
	if _, dup := ma.stored[e.ID]; dup {
		return false, nil
	}
	ma.stored[e.ID] = e
	return true, nil
}

func (ma *mockAppender) has(id string) bool {
	ma.mu.Lock()
	defer ma.mu.Unlock()
	_, ok := ma.stored[id]
	return ok
}

func (ma *mockAppender) count() int {
	ma.mu.Lock()
	defer ma.mu.Unlock()
	return len(ma.stored)
}

func booking(id string) model.Event {
	return model.Event{
		ID:         id,
		TenantID:   "gym-1",
		Type:       model.BookingCreated,
		OccurredAt: time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC),
		SubjectID:  "lead-1",
		Payload:    model.BookingCreatedPayload{},
	}
}

func TestInMemoryWorker(t *testing.T) {
	convey.Convey("Given a running worker", t, func() {
		_ = logging.Init()

		q := newMockQueue()
		store := newMockAppender()
		var mu sync.Mutex
		var notified []string
		w := worker.NewInMemoryWorker(q, store,
			worker.WithName("test-worker"),
			worker.WithAppendTimeout(time.Second),
			worker.WithOnStored(func(_ context.Context, e model.Event) {
				mu.Lock()
				notified = append(notified, e.ID)
				mu.Unlock()
			}),
		)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go w.Run(ctx)

		convey.Convey("When an event is queued", func() {
			q.events <- booking("evt-1")

			convey.Convey("Then it is stored and reported", func() {
				convey.So(waitFor(func() bool { return store.has("evt-1") }), convey.ShouldBeTrue)
				convey.So(waitFor(func() bool {
					mu.Lock()
					defer mu.Unlock()
					return len(notified) == 1
				}), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the same event is queued twice", func() {
			q.events <- booking("evt-2")
			q.events <- booking("evt-2")
			q.events <- booking("evt-3")

			convey.Convey("Then only the first copy triggers the callback", func() {
				convey.So(waitFor(func() bool {
					mu.Lock()
					defer mu.Unlock()
					return len(notified) == 2
				}), convey.ShouldBeTrue)
				mu.Lock()
				defer mu.Unlock()
				convey.So(notified, convey.ShouldResemble, []string{"evt-2", "evt-3"})
			})
		})

		convey.Convey("When the store fails", func() {
			store.errs["evt-bad"] = errors.New("disk full")
			q.events <- booking("evt-bad")
			q.events <- booking("evt-after")

			convey.Convey("Then the worker keeps going", func() {
				convey.So(waitFor(func() bool { return store.has("evt-after") }), convey.ShouldBeTrue)
				convey.So(store.has("evt-bad"), convey.ShouldBeFalse)
			})
		})

		convey.Convey("When shutting down", func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
			defer shutdownCancel()

			convey.Convey("Then it stops and a second call is harmless", func() {
				convey.So(w.Shutdown(shutdownCtx), convey.ShouldBeNil)
				convey.So(w.Shutdown(shutdownCtx), convey.ShouldBeNil)
			})
		})
	})
}

func TestPool(t *testing.T) {
	convey.Convey("Given a pool over a real queue", t, func() {
		_ = logging.Init()

		q := queue.NewInMemoryQueue(queue.WithCapacity(500))
		store := newMockAppender()
		store.errs["evt-13"] = errors.New("constraint violation")
		p := worker.NewPool(4, q, store)
		p.Start(context.Background())

		for i := 0; i < 200; i++ {
			convey.So(q.Enqueue(context.Background(), booking(fmt.Sprintf("evt-%d", i))), convey.ShouldBeNil)
		}

		convey.Convey("When the pool shuts down", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			convey.So(p.Shutdown(ctx), convey.ShouldBeNil)

			convey.Convey("Then the queue is drained first", func() {
				convey.So(p.Size(), convey.ShouldEqual, 4)
				convey.So(store.count(), convey.ShouldEqual, 199)
				convey.So(p.Processed(), convey.ShouldEqual, 199)
				convey.So(p.Failed(), convey.ShouldEqual, 1)
				convey.So(q.IsClosed(), convey.ShouldBeTrue)
			})
		})
	})
}

func waitFor(cond func() bool) bool {
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}
