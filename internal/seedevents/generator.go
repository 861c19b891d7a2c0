package seedevents

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/okian/gympulse/internal/app"
	"github.com/okian/gympulse/internal/domain/model"
)

// Funnel probabilities of the synthetic gym.
const (
	bookingRate = 0.6
	showRate    = 0.7
	closeRate   = 0.5
	refundRate  = 0.1
	followRate  = 0.3
)

var (
	sources      = []string{"facebook_ads", "instagram_ads", "google_ads", "walk_in", "referral", ""}
	paidSources  = map[string]bool{"facebook_ads": true, "instagram_ads": true, "google_ads": true}
	adPlatforms  = []string{"Meta", "Google"}
	paymentTypes = []string{"paid_in_full", "installment-plan"}
)

// Generate builds a month of events for one synthetic gym. Every event
// falls inside cfg.Window and the returned Expected is the funnel they add
// up to.
func Generate(cfg *Config) ([]app.Envelope, Expected) {
	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15))
	start, end := cfg.Window()
	span := end.Sub(start)

	var (
		events []app.Envelope
		exp    Expected
		seq    int
	)
	add := func(typ model.EventType, at time.Time, subject string, attrs model.Attributes) {
		seq++
		events = append(events, app.Envelope{
			EventID:    fmt.Sprintf("%s-%06d", cfg.TenantID, seq),
			TenantID:   cfg.TenantID,
			Type:       string(typ),
			OccurredAt: at,
			SubjectID:  subject,
			Attributes: attrs,
		})
	}
	// within returns a time after from that stays in the window.
	within := func(from time.Time, maxDays int) time.Time {
		at := from.Add(time.Duration(rng.IntN(maxDays*24)+1) * time.Hour)
		if !at.Before(end) {
			at = end.Add(-time.Minute)
		}
		return at
	}

	reps := max(cfg.Reps, 1)
	for i := range reps {
		add(model.RepresentativeJoined, start, fmt.Sprintf("rep-%d", i+1),
			model.Attributes{model.AttrDisplayName: fmt.Sprintf("Rep %d", i+1)})
	}
	for week := 0; week < 4; week++ {
		for _, platform := range adPlatforms {
			add(model.AdSpend, start.AddDate(0, 0, week*7), "",
				model.Attributes{model.AttrAmount: 150 + rng.IntN(350), model.AttrPlatform: platform})
		}
	}

	for i := range cfg.Leads {
		lead := fmt.Sprintf("lead-%d", i+1)
		source := sources[rng.IntN(len(sources))]
		created := start.Add(time.Duration(rng.Int64N(int64(span / 2))))
		attrs := model.Attributes{model.AttrAssignedRepID: fmt.Sprintf("rep-%d", rng.IntN(reps)+1)}
		if source != "" {
			attrs[model.AttrSource] = source
		}
		add(model.LeadCreated, created, lead, attrs)
		exp.Leads++
		if paidSources[source] {
			exp.PaidLeads++
		}

		if rng.Float64() < followRate {
			add(model.FollowUpSet, within(created, 3), lead, nil)
		}
		if rng.Float64() >= bookingRate {
			continue
		}
		booked := within(created, 5)
		add(model.BookingCreated, booked, lead, nil)
		exp.Bookings++

		shown := within(booked, 3)
		if rng.Float64() >= showRate {
			add(model.ShowRecorded, shown, lead, model.Attributes{model.AttrOutcome: "No show"})
			exp.NoShows++
			continue
		}
		add(model.ShowRecorded, shown, lead, model.Attributes{model.AttrOutcome: "Showed"})
		exp.Shows++

		if rng.Float64() >= closeRate {
			continue
		}
		sold := within(shown, 2)
		paid := 100 + rng.IntN(1400)
		add(model.SaleRecorded, sold, lead, model.Attributes{
			model.AttrTotalPaid:   paid,
			model.AttrPaymentType: paymentTypes[rng.IntN(len(paymentTypes))],
		})
		exp.Closes++

		if rng.Float64() < refundRate {
			add(model.RefundIssued, within(sold, 2), lead, model.Attributes{model.AttrAmount: paid / 2})
		}
	}
	return events, exp
}
