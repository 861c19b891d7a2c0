package kpi

import (
	"sort"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/okian/gympulse/internal/domain/model"
	"github.com/okian/gympulse/internal/domain/types"
)

func computeAttribution(in *input) types.Attribution {
	var out types.Attribution

	// Leads resolved through the directory. Unresolved leads stay out of
	// every paid figure.
	paid := make(map[string]struct{})
	organic := make(map[string]struct{})
	leadPlatform := make(map[string]string)
	for _, e := range in.parts.Of(model.LeadCreated) {
		subj, ok := in.dir.Subject(e.SubjectID)
		if !ok {
			out.UnattributedLeads++
			continue
		}
		leadPlatform[subj.ID] = in.vocab.Platform(subj.Source)
		if in.vocab.IsPaid(subj.Source) {
			paid[subj.ID] = struct{}{}
		} else {
			organic[subj.ID] = struct{}{}
		}
	}
	out.PaidLeads = len(paid)
	out.OrganicLeads = len(organic)

	isPaid := func(id string) bool { _, ok := paid[id]; return ok }
	out.PaidBookings = len(lo.Filter(in.parts.subjectIDs(model.BookingCreated, nil), ignoreIndex(isPaid)))
	out.PaidShows = len(lo.Filter(in.parts.subjectIDs(model.ShowRecorded, in.attended), ignoreIndex(isPaid)))
	out.PaidCloses = len(lo.Filter(in.parts.subjectIDs(model.SaleRecorded, nil), ignoreIndex(isPaid)))

	paidRevenue := decimal.Zero
	platformRevenue := make(map[string]decimal.Decimal)
	for _, e := range in.parts.Of(model.SaleRecorded) {
		sale, _ := e.Payload.(model.SaleRecordedPayload)
		if isPaid(e.SubjectID) {
			paidRevenue = paidRevenue.Add(sale.TotalPaid)
		}
		if p, ok := leadPlatform[e.SubjectID]; ok && p != OtherPlatform {
			platformRevenue[p] = platformRevenue[p].Add(sale.TotalPaid)
		}
	}

	adSpend := decimal.Zero
	platformSpend := make(map[string]decimal.Decimal)
	for _, e := range in.parts.Of(model.AdSpend) {
		spend, _ := e.Payload.(model.AdSpendPayload)
		adSpend = adSpend.Add(spend.Amount)
		if p := in.vocab.CanonicalPlatform(spend.Platform); p != OtherPlatform {
			platformSpend[p] = platformSpend[p].Add(spend.Amount)
		}
	}

	out.AdSpend = Whole(adSpend)
	out.PaidRevenue = Whole(paidRevenue)
	out.ROAS = Multiplier(paidRevenue, adSpend)
	out.CAC = PerUnit(adSpend, out.PaidCloses)
	out.CPB = PerUnit(adSpend, out.PaidBookings)
	out.CPL = PerUnit(adSpend, out.PaidLeads)
	out.CPS = PerUnit(adSpend, out.PaidShows)
	out.Platforms = platformRows(in.vocab, platformSpend, platformRevenue)
	return out
}

// platformRows lists vocabulary platforms in order, then any platform that
// only appears on spend entries, alphabetically.
func platformRows(v Vocabulary, spend, revenue map[string]decimal.Decimal) []types.PlatformROAS {
	names := v.Platforms()
	known := lo.SliceToMap(names, func(p string) (string, struct{}) { return p, struct{}{} })
	extra := lo.Filter(lo.Keys(spend), func(p string, _ int) bool {
		_, ok := known[p]
		return !ok
	})
	sort.Strings(extra)
	names = append(names, extra...)

	rows := make([]types.PlatformROAS, 0, len(names))
	for _, p := range names {
		s, r := spend[p], revenue[p]
		rows = append(rows, types.PlatformROAS{
			Platform: p,
			AdSpend:  Whole(s),
			Revenue:  Whole(r),
			ROAS:     Multiplier(r, s),
		})
	}
	return rows
}

func ignoreIndex[T any](fn func(T) bool) func(T, int) bool {
	return func(v T, _ int) bool { return fn(v) }
}
