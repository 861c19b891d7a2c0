package kpi

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/okian/gympulse/internal/domain/model"
	"github.com/okian/gympulse/internal/domain/types"
)

// standing is a leaderboard row with its exact revenue for ordering.
type standing struct {
	row     types.RepRow
	revenue decimal.Decimal
}

func computeLeaderboard(in *input) types.Leaderboard {
	reps := in.dir.Representatives()
	board := make([]standing, len(reps))
	index := make(map[string]int, len(reps))
	for i, r := range reps {
		board[i].row = types.RepRow{RepID: r.ID, DisplayName: r.DisplayName}
		index[r.ID] = i
	}

	// owner resolves the representative a subject is assigned to.
	owner := func(subjectID string) (*standing, bool) {
		subj, ok := in.dir.Subject(subjectID)
		if !ok || subj.AssignedRepID == "" {
			return nil, false
		}
		i, ok := index[subj.AssignedRepID]
		if !ok {
			return nil, false
		}
		return &board[i], true
	}

	for _, e := range in.parts.Of(model.BookingCreated) {
		if s, ok := owner(e.SubjectID); ok {
			s.row.Bookings++
		}
	}
	for _, e := range in.parts.Of(model.ShowRecorded) {
		if !in.attended(e) {
			continue
		}
		if s, ok := owner(e.SubjectID); ok {
			s.row.Shows++
		}
	}
	for _, e := range in.parts.Of(model.SaleRecorded) {
		s, ok := owner(e.SubjectID)
		if !ok {
			continue
		}
		sale, _ := e.Payload.(model.SaleRecordedPayload)
		s.row.Closes++
		s.revenue = s.revenue.Add(sale.TotalPaid)
	}

	sort.SliceStable(board, func(i, j int) bool {
		if c := board[i].revenue.Cmp(board[j].revenue); c != 0 {
			return c > 0
		}
		return board[i].row.Closes > board[j].row.Closes
	})

	closingRevenue := decimal.Zero
	closers := 0
	rows := make([]types.RepRow, 0, len(board))
	for i := range board {
		s := &board[i]
		s.row.Rank = i + 1
		s.row.Revenue = Whole(s.revenue)
		s.row.ShowRatePct = Percent(s.row.Shows, s.row.Bookings)
		s.row.CloseRatePct = Percent(s.row.Closes, s.row.Shows)
		if s.row.Closes > 0 {
			closingRevenue = closingRevenue.Add(s.revenue)
			closers++
		}
		rows = append(rows, s.row)
	}

	if repID, self := selfOnly(in.vis); self {
		mine := rows[:0]
		for _, r := range rows {
			if r.RepID == repID {
				mine = append(mine, r)
			}
		}
		rows = mine
	}
	if len(rows) == 0 {
		rows = types.PlaceholderRows()
	}

	return types.Leaderboard{
		Rows:          rows,
		RevenuePerRep: PerUnit(closingRevenue, max(1, closers)),
	}
}

func selfOnly(vis Visibility) (string, bool) {
	if vis == nil {
		return "", false
	}
	return vis.SelfOnly()
}
