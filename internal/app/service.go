// Package app wires the event store, the ingestion pipeline and the KPI
// engine into the operations the HTTP API and the Kafka consumer call.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/okian/gympulse/internal/adapters/mq/queue"
	"github.com/okian/gympulse/internal/adapters/mq/worker"
	"github.com/okian/gympulse/internal/adapters/repository"
	"github.com/okian/gympulse/internal/adapters/repository/memory"
	"github.com/okian/gympulse/internal/domain/access"
	"github.com/okian/gympulse/internal/domain/dedupe"
	"github.com/okian/gympulse/internal/domain/kpi"
	"github.com/okian/gympulse/internal/domain/model"
	"github.com/okian/gympulse/internal/domain/types"
	"github.com/okian/gympulse/pkg/logger"
	"github.com/okian/gympulse/pkg/metrics"
)

// SnapshotCache stores computed snapshots per tenant, window and visibility.
// Entries live under a per-tenant generation that Invalidate advances.
type SnapshotCache interface {
	Generation(ctx context.Context, tenantID string) (int64, error)
	Get(ctx context.Context, tenantID string, gen int64, start, end time.Time, visibility string) (types.Snapshot, bool, error)
	Set(ctx context.Context, snap types.Snapshot, gen int64, visibility string) error
	Invalidate(ctx context.Context, tenantID string) error
}

// IngestStatus tells a stored submission from a repeated one.
type IngestStatus string

// Ingest outcomes.
const (
	IngestAccepted  IngestStatus = "accepted"
	IngestDuplicate IngestStatus = "duplicate"
)

// IngestResult is what Ingest reports back to the submitter.
type IngestResult struct {
	EventID string       `json:"event_id"`
	Status  IngestStatus `json:"status"`
}

// Stats is the service's operational state for /stats.
type Stats struct {
	Started       bool  `json:"started"`
	Workers       int   `json:"workers"`
	QueueCapacity int   `json:"queue_capacity"`
	QueueLength   int   `json:"queue_length"`
	DedupeKeys    int64 `json:"dedupe_keys"`
	StoredEvents  int64 `json:"stored_events"`
	Processed     int64 `json:"processed"`
	Failed        int64 `json:"failed"`
	CacheEnabled  bool  `json:"cache_enabled"`

	// Consumers reports each watched event consumer's health by name.
	Consumers map[string]bool `json:"consumers,omitempty"`
}

// HealthChecker is an event source that knows whether it is keeping up.
type HealthChecker interface {
	Healthy() bool
}

// Service computes snapshots and accepts events.
type Service struct {
	mu sync.RWMutex

	store      repository.Store
	ownsStore  bool
	cache      SnapshotCache
	deduper    dedupe.Deduper
	eventQueue *queue.InMemoryQueue
	workerPool *worker.Pool
	engine     *kpi.Engine
	table      *access.Table
	validator  *EnvelopeValidator

	workerCount  int
	queueSize    int
	dedupeSize   int
	fetchTimeout time.Duration

	consumers map[string]HealthChecker

	started bool
	logger  logger.Logger
}

// New constructs a Service. Without WithStore it keeps events in memory.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:  8,
		queueSize:    10_000,
		dedupeSize:   100_000,
		fetchTimeout: 5 * time.Second,
		validator:    NewEnvelopeValidator(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.store == nil {
		s.store = memory.New()
		s.ownsStore = true
	}
	if s.engine == nil {
		s.engine = kpi.NewEngine()
	}
	if s.table == nil {
		s.table = access.DefaultTable()
	}
	if s.deduper == nil {
		s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	}
	return s
}

// Start creates the queue and starts the workers.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	s.eventQueue = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	s.workerPool = worker.NewPool(s.workerCount, s.eventQueue, s.store,
		worker.WithOnStored(s.invalidate),
	)
	s.workerPool.Start(context.WithoutCancel(ctx))

	s.started = true
	s.logger.Info(ctx, "kpi service started",
		logger.Int("workers", s.workerPool.Size()),
		logger.Int("queue_size", s.queueSize),
		logger.Bool("cache", s.cache != nil),
	)
	return nil
}

// Stop drains the queue into the store, waiting at most until ctx expires.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}
	s.started = false

	var errs []error
	if err := s.workerPool.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	if s.ownsStore {
		if err := s.store.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	s.logger.Info(ctx, "kpi service stopped")
	return errors.Join(errs...)
}

// invalidate drops cached snapshots of a tenant that just received an event.
func (s *Service) invalidate(ctx context.Context, e model.Event) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, e.TenantID); err != nil {
		s.logger.Warn(logger.WithTenant(ctx, e.TenantID), "snapshot cache invalidation failed", logger.Error(err))
	}
}

// Ingest validates env and queues it for storage. Resubmitting an id that
// was already accepted is reported as a duplicate, not an error.
func (s *Service) Ingest(ctx context.Context, env Envelope) (IngestResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.started {
		return IngestResult{}, ErrNotStarted
	}
	if env.EventID == "" {
		env.EventID = uuid.NewString()
	}
	if err := s.validator.Validate(env); err != nil {
		metrics.RecordEventRejected("invalid")
		return IngestResult{}, err
	}
	e, err := env.Event()
	if err != nil {
		metrics.RecordEventRejected("invalid")
		return IngestResult{}, err
	}

	key := dedupe.Key(e.TenantID, e.ID)
	if s.deduper.SeenAndRecord(ctx, key) {
		metrics.RecordEventDuplicate()
		return IngestResult{EventID: e.ID, Status: IngestDuplicate}, nil
	}
	if err := s.eventQueue.Enqueue(ctx, e); err != nil {
		s.deduper.Unrecord(ctx, key)
		if errors.Is(err, queue.ErrFull) {
			metrics.RecordEventRejected("queue_full")
			return IngestResult{}, ErrQueueFull
		}
		metrics.RecordEventRejected("unavailable")
		return IngestResult{}, fmt.Errorf("enqueue: %w", err)
	}
	metrics.RecordEventIngested(string(e.Type))
	return IngestResult{EventID: e.ID, Status: IngestAccepted}, nil
}

// Compute returns the snapshot of tenantID for [start, end) as the caller
// may see it. When the window is invalid or the inputs cannot be fetched
// it returns the zero snapshot marked scope_unavailable together with an
// error wrapping ErrScopeUnavailable.
func (s *Service) Compute(ctx context.Context, tenantID string, start, end time.Time, caller access.Caller) (types.Snapshot, error) {
	began := time.Now()
	defer func() {
		metrics.RecordSnapshotLatency(float64(time.Since(began).Microseconds()) / 1000)
	}()

	scope := kpi.Scope{TenantID: tenantID, Start: start, End: end}
	grant := s.grant(tenantID, caller)
	ctx = logger.WithTenant(ctx, tenantID)

	if err := scope.Validate(); err != nil {
		return s.unavailable(ctx, scope, grant, err)
	}
	if !anyVisible(grant) {
		metrics.RecordSnapshot(string(types.StatusComputed))
		return s.engine.Compute(scope, nil, kpi.Directory{}, grant), nil
	}

	visibility := grant.Key()
	cached := s.cache != nil
	var gen int64
	if cached {
		var err error
		if gen, err = s.cache.Generation(ctx, tenantID); err != nil {
			s.log().Warn(ctx, "snapshot cache generation read failed", logger.Error(err))
			cached = false
		}
	}
	if cached {
		snap, ok, err := s.cache.Get(ctx, tenantID, gen, start, end, visibility)
		if err != nil {
			s.log().Warn(ctx, "snapshot cache read failed", logger.Error(err))
		}
		if ok {
			metrics.RecordSnapshot(string(snap.Status))
			return snap, nil
		}
	}

	events, dir, err := s.fetch(ctx, scope)
	if err != nil {
		return s.unavailable(ctx, scope, grant, err)
	}
	metrics.RecordSnapshotEventsScanned(len(events))

	snap := s.engine.Compute(scope, events, dir, grant)
	metrics.RecordSnapshot(string(snap.Status))

	if cached {
		if err := s.cache.Set(ctx, snap, gen, visibility); err != nil {
			s.log().Warn(ctx, "snapshot cache write failed", logger.Error(err))
		}
	}
	return snap, nil
}

// grant resolves caller for tenantID. Callers of another tenant see nothing.
func (s *Service) grant(tenantID string, caller access.Caller) access.Grant {
	if caller.TenantID != "" && caller.TenantID != tenantID {
		return access.Grant{}
	}
	return s.table.Resolve(caller)
}

// Subject resolves one lead or client of tenantID. Its source is attribution
// data, so the caller must be allowed to see attribution.
func (s *Service) Subject(ctx context.Context, tenantID, id string, caller access.Caller) (model.Subject, error) {
	if !s.grant(tenantID, caller).Allows(types.GroupAttribution) {
		return model.Subject{}, ErrNoPermission
	}
	fctx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	defer cancel()

	subj, ok, err := s.store.ResolveSubject(fctx, tenantID, id)
	if err != nil {
		return model.Subject{}, fmt.Errorf("resolve subject %s: %w", id, err)
	}
	if !ok {
		return model.Subject{}, fmt.Errorf("%w: %s", ErrSubjectNotFound, id)
	}
	return subj, nil
}

// fetch reads the events and the directory concurrently under one timeout.
func (s *Service) fetch(ctx context.Context, scope kpi.Scope) ([]model.Event, kpi.Directory, error) {
	fctx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	defer cancel()

	var (
		events   []model.Event
		subjects map[string]model.Subject
		reps     []model.Representative
	)
	g, gctx := errgroup.WithContext(fctx)
	g.Go(func() error {
		var err error
		events, err = s.store.Fetch(gctx, scope.TenantID, scope.Start, scope.End)
		if err != nil {
			return fmt.Errorf("fetch events: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		subjects, err = s.store.Subjects(gctx, scope.TenantID)
		if err != nil {
			return fmt.Errorf("fetch subjects: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		reps, err = s.store.Representatives(gctx, scope.TenantID)
		if err != nil {
			return fmt.Errorf("fetch representatives: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, kpi.Directory{}, err
	}
	return events, kpi.NewDirectory(subjects, reps), nil
}

func (s *Service) unavailable(ctx context.Context, scope kpi.Scope, grant access.Grant, cause error) (types.Snapshot, error) {
	s.log().Warn(ctx, "snapshot unavailable", logger.Error(cause))
	metrics.RecordSnapshot(string(types.StatusScopeUnavailable))
	return s.engine.Unavailable(scope, grant), fmt.Errorf("%w: %w", ErrScopeUnavailable, cause)
}

func (s *Service) log() logger.Logger {
	if s.logger == nil {
		return logger.Get().Named("service")
	}
	return s.logger
}

func anyVisible(g access.Grant) bool {
	for _, group := range types.AllGroups() {
		if g.Allows(group) {
			return true
		}
	}
	return false
}

// WatchConsumer adds c to the stats under name.
func (s *Service) WatchConsumer(name string, c HealthChecker) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.consumers == nil {
		s.consumers = make(map[string]HealthChecker)
	}
	s.consumers[name] = c
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats(ctx context.Context) Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Stats{
		Started:      s.started,
		Workers:      s.workerCount,
		DedupeKeys:   s.deduper.Size(),
		CacheEnabled: s.cache != nil,
	}
	if n, err := s.store.Len(ctx); err == nil {
		st.StoredEvents = n
	}
	if len(s.consumers) > 0 {
		st.Consumers = make(map[string]bool, len(s.consumers))
		for name, c := range s.consumers {
			st.Consumers[name] = c.Healthy()
		}
	}
	if s.started {
		st.Workers = s.workerPool.Size()
		st.QueueCapacity = s.eventQueue.Capacity()
		st.QueueLength = s.eventQueue.Len(ctx)
		st.Processed = s.workerPool.Processed()
		st.Failed = s.workerPool.Failed()
	}
	return st
}
