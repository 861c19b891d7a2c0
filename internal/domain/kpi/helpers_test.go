package kpi_test

import (
	"fmt"
	"time"

	"github.com/okian/gympulse/internal/domain/kpi"
	"github.com/okian/gympulse/internal/domain/model"
	"github.com/okian/gympulse/internal/domain/types"
)

const tenant = "gym-1"

var (
	t0     = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	window = kpi.Scope{TenantID: tenant, Start: t0, End: t0.AddDate(0, 1, 0)}
	seq    int
)

func day(n int) time.Time { return t0.AddDate(0, 0, n) }

func event(t model.EventType, subject string, at time.Time, attrs model.Attributes) model.Event {
	seq++
	e, err := model.DecodeEvent(fmt.Sprintf("e-%d", seq), tenant, t, at, subject, attrs)
	if err != nil {
		panic(err)
	}
	return e
}

func repeat(n int, t model.EventType, attrs model.Attributes) []model.Event {
	out := make([]model.Event, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, event(t, fmt.Sprintf("s-%d", i), day(1), attrs))
	}
	return out
}

func sale(subject string, paid float64) model.Event {
	return event(model.SaleRecorded, subject, day(2), model.Attributes{"total_paid": paid})
}

func subject(id, source, rep string) model.Subject {
	return model.Subject{ID: id, TenantID: tenant, Source: source, AssignedRepID: rep}
}

func directory(subjects []model.Subject, reps ...model.Representative) kpi.Directory {
	m := make(map[string]model.Subject, len(subjects))
	for _, s := range subjects {
		m[s.ID] = s
	}
	return kpi.NewDirectory(m, reps)
}

func rep(id, name string) model.Representative {
	return model.Representative{ID: id, TenantID: tenant, DisplayName: name}
}

// everything sees every group and the whole leaderboard.
type everything struct{}

func (everything) Allows(types.Group) bool  { return true }
func (everything) SelfOnly() (string, bool) { return "", false }

// only sees the listed groups; a non-empty self limits the leaderboard.
type only struct {
	groups []types.Group
	self   string
}

func (o only) Allows(g types.Group) bool {
	for _, allowed := range o.groups {
		if allowed == g {
			return true
		}
	}
	return false
}

func (o only) SelfOnly() (string, bool) { return o.self, o.self != "" }
