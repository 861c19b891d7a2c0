// Package repository defines where events and the entity directory live and
// how ingested events project into subject and representative lookups.
package repository

import (
	"context"
	"time"

	"github.com/okian/gympulse/internal/domain/model"
)

// EventSource reads the immutable events of one tenant.
type EventSource interface {
	// Fetch returns the tenant's events with start <= occurred_at < end, in
	// no guaranteed order.
	Fetch(ctx context.Context, tenantID string, start, end time.Time) ([]model.Event, error)
}

// Directory resolves leads, clients and representatives of one tenant.
type Directory interface {
	// Subjects returns every known subject keyed by id.
	Subjects(ctx context.Context, tenantID string) (map[string]model.Subject, error)

	// ResolveSubject looks up a single subject. ok is false when unknown.
	ResolveSubject(ctx context.Context, tenantID, id string) (s model.Subject, ok bool, err error)

	// Representatives lists the tenant's representatives in the order they
	// joined.
	Representatives(ctx context.Context, tenantID string) ([]model.Representative, error)
}

// Appender stores events.
type Appender interface {
	// Append stores e and applies its directory projection. It reports
	// false without error when the tenant already has an event with e.ID.
	Append(ctx context.Context, e model.Event) (bool, error)
}

// Store is a complete event store.
type Store interface {
	EventSource
	Directory
	Appender

	// Len returns the number of stored events across tenants.
	Len(ctx context.Context) (int64, error)

	Close() error
}

// CheckEvent rejects events a store cannot key or index.
func CheckEvent(e model.Event) error {
	switch {
	case e.TenantID == "":
		return ErrMissingTenant
	case e.ID == "":
		return ErrMissingID
	case !e.Type.Valid():
		return ErrUnknownType
	case e.OccurredAt.IsZero():
		return ErrMissingTimestamp
	}
	return nil
}
