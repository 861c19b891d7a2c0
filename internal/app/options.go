package app

import (
	"time"

	"github.com/okian/gympulse/internal/adapters/repository"
	"github.com/okian/gympulse/internal/domain/access"
	"github.com/okian/gympulse/internal/domain/dedupe"
	"github.com/okian/gympulse/internal/domain/kpi"
	"github.com/okian/gympulse/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore sets the event store. The caller keeps ownership of it.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithSnapshotCache enables snapshot caching.
func WithSnapshotCache(c SnapshotCache) Option {
	return func(s *Service) {
		s.cache = c
	}
}

// WithDeduper replaces the in-memory deduper.
func WithDeduper(d dedupe.Deduper) Option {
	return func(s *Service) {
		if d != nil {
			s.deduper = d
		}
	}
}

// WithEngine sets the KPI engine, e.g. one built with a custom vocabulary.
func WithEngine(e *kpi.Engine) Option {
	return func(s *Service) {
		if e != nil {
			s.engine = e
		}
	}
}

// WithPermissions sets the role permission table.
func WithPermissions(t *access.Table) Option {
	return func(s *Service) {
		if t != nil {
			s.table = t
		}
	}
}

// WithWorkerCount sets the number of worker goroutines.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum size of the event queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets the size of the in-memory deduplication cache.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithFetchTimeout bounds the store reads behind one snapshot.
func WithFetchTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.fetchTimeout = d
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
