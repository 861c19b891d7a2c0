package kpi

import (
	"time"

	"github.com/okian/gympulse/internal/domain/model"
	"github.com/okian/gympulse/internal/domain/types"
)

// milestones are the earliest funnel timestamps seen for one subject.
type milestones struct {
	lead, booking, close time.Time
}

func computeTiming(in *input) types.Timing {
	bySubject := make(map[string]*milestones)
	at := func(id string) *milestones {
		m, ok := bySubject[id]
		if !ok {
			m = &milestones{}
			bySubject[id] = m
		}
		return m
	}

	for _, e := range in.parts.Of(model.LeadCreated) {
		if e.SubjectID != "" {
			earliest(&at(e.SubjectID).lead, e.OccurredAt)
		}
	}
	for _, e := range in.parts.Of(model.BookingCreated) {
		if e.SubjectID != "" {
			earliest(&at(e.SubjectID).booking, e.OccurredAt)
		}
	}
	for _, e := range in.parts.Of(model.SaleRecorded) {
		if e.SubjectID == "" {
			continue
		}
		closed := e.OccurredAt
		if sale, ok := e.Payload.(model.SaleRecordedPayload); ok && !sale.CloseDate.IsZero() {
			closed = sale.CloseDate
		}
		earliest(&at(e.SubjectID).close, closed)
	}

	var toBook, cycle []time.Duration
	for _, m := range bySubject {
		if m.lead.IsZero() {
			continue
		}
		if d, ok := span(m.lead, m.booking); ok {
			toBook = append(toBook, d)
		}
		if d, ok := span(m.lead, m.close); ok {
			cycle = append(cycle, d)
		}
	}

	return types.Timing{
		SalesCycleDays:    AverageDays(cycle),
		TimeToBookDays:    AverageDays(toBook),
		SalesCycleSamples: len(cycle),
		TimeToBookSamples: len(toBook),
	}
}

func earliest(slot *time.Time, t time.Time) {
	if slot.IsZero() || t.Before(*slot) {
		*slot = t
	}
}

// span is to-from when both are set and to is not before from.
func span(from, to time.Time) (time.Duration, bool) {
	if to.IsZero() || to.Before(from) {
		return 0, false
	}
	return to.Sub(from), true
}
