// Package memory is an in-process event store. Events are kept per tenant in
// occurred_at order so a window read is two binary searches and a copy.
package memory

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/gympulse/internal/adapters/repository"
	"github.com/okian/gympulse/internal/domain/model"
	"github.com/okian/gympulse/pkg/metrics"
)

type tenant struct {
	events   []model.Event // sorted by OccurredAt, stable on arrival
	ids      map[string]struct{}
	subjects map[string]model.Subject
	reps     []model.Representative
	repIndex map[string]int
}

func newTenant() *tenant {
	return &tenant{
		ids:      make(map[string]struct{}),
		subjects: make(map[string]model.Subject),
		repIndex: make(map[string]int),
	}
}

// Store implements repository.Store in memory.
type Store struct {
	mu      sync.RWMutex
	tenants map[string]*tenant
	total   atomic.Int64
	closed  atomic.Bool
}

var _ repository.Store = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{tenants: make(map[string]*tenant)}
}

// Append implements repository.Appender.
func (s *Store) Append(_ context.Context, e model.Event) (bool, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreAppendLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	if s.closed.Load() {
		return false, repository.ErrClosed
	}
	if err := repository.CheckEvent(e); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tenants[e.TenantID]
	if !ok {
		t = newTenant()
		s.tenants[e.TenantID] = t
	}
	if _, dup := t.ids[e.ID]; dup {
		return false, nil
	}
	t.ids[e.ID] = struct{}{}

	// Insert after every event with the same or an earlier timestamp.
	i := sort.Search(len(t.events), func(i int) bool {
		return t.events[i].OccurredAt.After(e.OccurredAt)
	})
	t.events = append(t.events, model.Event{})
	copy(t.events[i+1:], t.events[i:])
	t.events[i] = e
	s.total.Add(1)

	t.project(repository.Project(e))
	return true, nil
}

func (t *tenant) project(p repository.Projection) {
	if c := p.Subject; c != nil {
		t.subjects[c.ID] = c.Apply(t.subjects[c.ID])
	}
	if r := p.Representative; r != nil {
		if i, ok := t.repIndex[r.ID]; ok {
			if r.DisplayName != "" {
				t.reps[i].DisplayName = r.DisplayName
			}
			return
		}
		t.repIndex[r.ID] = len(t.reps)
		t.reps = append(t.reps, *r)
	}
}

// Fetch implements repository.EventSource.
func (s *Store) Fetch(ctx context.Context, tenantID string, start, end time.Time) ([]model.Event, error) {
	began := time.Now()
	defer func() {
		metrics.RecordStoreFetchLatency(float64(time.Since(began).Microseconds()) / 1000)
	}()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.closed.Load() {
		return nil, repository.ErrClosed
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tenants[tenantID]
	if !ok || !end.After(start) {
		return []model.Event{}, nil
	}
	lo := sort.Search(len(t.events), func(i int) bool {
		return !t.events[i].OccurredAt.Before(start)
	})
	hi := sort.Search(len(t.events), func(i int) bool {
		return !t.events[i].OccurredAt.Before(end)
	})
	out := make([]model.Event, hi-lo)
	copy(out, t.events[lo:hi])
	return out, nil
}

// Subjects implements repository.Directory.
func (s *Store) Subjects(_ context.Context, tenantID string) (map[string]model.Subject, error) {
	if s.closed.Load() {
		return nil, repository.ErrClosed
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]model.Subject)
	if t, ok := s.tenants[tenantID]; ok {
		for id, subj := range t.subjects {
			out[id] = subj
		}
	}
	return out, nil
}

// ResolveSubject implements repository.Directory.
func (s *Store) ResolveSubject(_ context.Context, tenantID, id string) (model.Subject, bool, error) {
	if s.closed.Load() {
		return model.Subject{}, false, repository.ErrClosed
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tenants[tenantID]
	if !ok {
		return model.Subject{}, false, nil
	}
	subj, ok := t.subjects[id]
	return subj, ok, nil
}

// Representatives implements repository.Directory.
func (s *Store) Representatives(_ context.Context, tenantID string) ([]model.Representative, error) {
	if s.closed.Load() {
		return nil, repository.ErrClosed
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tenants[tenantID]
	if !ok {
		return []model.Representative{}, nil
	}
	out := make([]model.Representative, len(t.reps))
	copy(out, t.reps)
	return out, nil
}

// Len implements repository.Store.
func (s *Store) Len(context.Context) (int64, error) {
	return s.total.Load(), nil
}

// Close makes every later call fail with repository.ErrClosed.
func (s *Store) Close() error {
	s.closed.Store(true)
	return nil
}
