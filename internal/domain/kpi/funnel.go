package kpi

import (
	"github.com/samber/lo"

	"github.com/okian/gympulse/internal/domain/model"
	"github.com/okian/gympulse/internal/domain/types"
)

func computeFunnel(in *input) types.Funnel {
	shows := in.parts.Of(model.ShowRecorded)
	f := types.Funnel{
		Leads:    in.parts.Count(model.LeadCreated),
		Bookings: in.parts.Count(model.BookingCreated),
		Shows:    lo.CountBy(shows, in.attended),
		NoShows:  lo.CountBy(shows, in.noShow),
		Closes:   in.parts.Count(model.SaleRecorded),
	}
	f.BookedPct = Percent(f.Bookings, f.Leads)
	f.LeadToShowPct = Percent(f.Shows, f.Bookings)
	f.LeadToSalePct = Percent(f.Closes, f.Leads)
	f.ShowToClosePct = Percent(f.Closes, f.Shows)
	return f
}
