package seedevents

import (
	"errors"
	"fmt"

	"github.com/okian/gympulse/internal/domain/types"
)

// ErrMismatch reports a snapshot that does not add up to what was generated.
var ErrMismatch = errors.New("snapshot does not match generated events")

// Verify compares the snapshot funnel with the generated one.
func Verify(snap types.Snapshot, exp Expected) error {
	if snap.Status != types.StatusComputed {
		return fmt.Errorf("%w: status %s", ErrMismatch, snap.Status)
	}
	var errs []error
	check := func(name string, got, want int) {
		if got != want {
			errs = append(errs, fmt.Errorf("%s: got %d, want %d", name, got, want))
		}
	}
	check("leads", snap.Funnel.Leads, exp.Leads)
	check("bookings", snap.Funnel.Bookings, exp.Bookings)
	check("shows", snap.Funnel.Shows, exp.Shows)
	check("no_shows", snap.Funnel.NoShows, exp.NoShows)
	check("closes", snap.Funnel.Closes, exp.Closes)
	check("paid_leads", snap.Attribution.PaidLeads, exp.PaidLeads)
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrMismatch, errors.Join(errs...))
	}
	return nil
}
