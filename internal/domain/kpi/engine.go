// Package kpi turns one tenant's events for one window into a metric
// snapshot. The engine does no I/O: callers fetch the events and the
// entity directory and hand them over already materialized.
package kpi

import (
	"golang.org/x/sync/errgroup"

	"github.com/okian/gympulse/internal/domain/model"
	"github.com/okian/gympulse/internal/domain/types"
)

// Visibility is the caller's permission token. The engine only asks which
// groups may be returned and whether the leaderboard is limited to the
// caller's own representative row.
type Visibility interface {
	Allows(g types.Group) bool
	SelfOnly() (repID string, ok bool)
}

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithVocabulary sets the source and platform vocabulary.
func WithVocabulary(v Vocabulary) Option {
	return func(e *Engine) {
		e.vocab = v
	}
}

// WithOutcomeClassifier replaces the attendance reading of show outcomes.
func WithOutcomeClassifier(fn OutcomeClassifier) Option {
	return func(e *Engine) {
		if fn != nil {
			e.outcome = fn
		}
	}
}

// Engine computes metric snapshots. It is safe for concurrent use.
type Engine struct {
	vocab   Vocabulary
	outcome OutcomeClassifier
}

// NewEngine creates an Engine with the default vocabulary and outcome rule.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		vocab:   DefaultVocabulary(),
		outcome: ClassifyOutcome,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// input is what every calculator reads. Nothing in it is written after
// construction.
type input struct {
	parts   Partitions
	dir     Directory
	vocab   Vocabulary
	outcome OutcomeClassifier
	vis     Visibility
}

func (in *input) attended(e model.Event) bool {
	show, _ := e.Payload.(model.ShowRecordedPayload)
	return in.outcome(show.Outcome) == OutcomeShowed
}

func (in *input) noShow(e model.Event) bool {
	show, _ := e.Payload.(model.ShowRecordedPayload)
	return in.outcome(show.Outcome) == OutcomeNoShow
}

// Compute builds the snapshot for scope. Events outside the tenant or the
// window [Start, End) are ignored. An invalid scope yields the zeroed
// snapshot with StatusScopeUnavailable.
func (e *Engine) Compute(scope Scope, events []model.Event, dir Directory, vis Visibility) types.Snapshot {
	if err := scope.Validate(); err != nil {
		return e.Unavailable(scope, vis)
	}

	scoped := make([]model.Event, 0, len(events))
	for _, ev := range events {
		if scope.Contains(ev) {
			scoped = append(scoped, ev)
		}
	}
	snap := e.run(scope, scoped, dir.scoped(scope.TenantID), vis)
	snap.Status = types.StatusComputed
	return snap
}

// Unavailable returns the zeroed snapshot used when the scope could not be
// read, with the caller's visibility applied.
func (e *Engine) Unavailable(scope Scope, vis Visibility) types.Snapshot {
	snap := e.run(scope, nil, Directory{}, vis)
	snap.Status = types.StatusScopeUnavailable
	return snap
}

func (e *Engine) run(scope Scope, events []model.Event, dir Directory, vis Visibility) types.Snapshot {
	in := &input{
		parts:   Classify(events),
		dir:     dir,
		vocab:   e.vocab,
		outcome: e.outcome,
		vis:     vis,
	}
	snap := types.Snapshot{
		TenantID: scope.TenantID,
		Start:    scope.Start,
		End:      scope.End,
		Groups:   []types.Group{},
		Attribution: types.Attribution{
			Platforms: []types.PlatformROAS{},
		},
		Leaderboard: types.Leaderboard{
			Rows: []types.RepRow{},
		},
	}

	// Each calculator writes its own field only.
	var g errgroup.Group
	for _, group := range types.AllGroups() {
		if vis == nil || !vis.Allows(group) {
			continue
		}
		snap.Groups = append(snap.Groups, group)
		switch group {
		case types.GroupFunnel:
			g.Go(func() error { snap.Funnel = computeFunnel(in); return nil })
		case types.GroupAttribution:
			g.Go(func() error { snap.Attribution = computeAttribution(in); return nil })
		case types.GroupRevenue:
			g.Go(func() error { snap.Revenue = computeRevenue(in); return nil })
		case types.GroupTiming:
			g.Go(func() error { snap.Timing = computeTiming(in); return nil })
		case types.GroupFollowUp:
			g.Go(func() error { snap.FollowUp = computeFollowUp(in); return nil })
		case types.GroupLeaderboard:
			g.Go(func() error { snap.Leaderboard = computeLeaderboard(in); return nil })
		}
	}
	_ = g.Wait()
	return snap
}
