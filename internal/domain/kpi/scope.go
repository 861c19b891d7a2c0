package kpi

import (
	"fmt"
	"strings"
	"time"

	"github.com/okian/gympulse/internal/domain/model"
)

// Scope is one tenant and one half-open window [Start, End).
type Scope struct {
	TenantID string
	Start    time.Time
	End      time.Time
}

// Validate rejects an empty tenant or a window that is empty or inverted.
func (s Scope) Validate() error {
	if strings.TrimSpace(s.TenantID) == "" {
		return fmt.Errorf("%w: missing tenant", ErrInvalidScope)
	}
	if s.Start.IsZero() || s.End.IsZero() {
		return fmt.Errorf("%w: missing window bound", ErrInvalidScope)
	}
	if !s.End.After(s.Start) {
		return fmt.Errorf("%w: end %s is not after start %s", ErrInvalidScope,
			s.End.Format(time.RFC3339), s.Start.Format(time.RFC3339))
	}
	return nil
}

// Contains reports whether e belongs to the tenant and falls inside the window.
func (s Scope) Contains(e model.Event) bool {
	return e.TenantID == s.TenantID && !e.OccurredAt.Before(s.Start) && e.OccurredAt.Before(s.End)
}
