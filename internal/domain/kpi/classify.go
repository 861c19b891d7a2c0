package kpi

import "github.com/okian/gympulse/internal/domain/model"

// Partitions groups scoped events by type, keeping input order and every
// event, duplicates included.
type Partitions map[model.EventType][]model.Event

// Classify partitions events by their type tag.
func Classify(events []model.Event) Partitions {
	p := make(Partitions)
	for _, e := range events {
		p[e.Type] = append(p[e.Type], e)
	}
	return p
}

// Of returns the events of type t.
func (p Partitions) Of(t model.EventType) []model.Event {
	return p[t]
}

// Count returns the number of events of type t.
func (p Partitions) Count(t model.EventType) int {
	return len(p[t])
}

// subjectIDs returns the distinct non-empty subject ids of events of type t
// that satisfy keep, in first-seen order. A nil keep accepts every event.
func (p Partitions) subjectIDs(t model.EventType, keep func(model.Event) bool) []string {
	seen := make(map[string]struct{})
	var ids []string
	for _, e := range p[t] {
		if e.SubjectID == "" {
			continue
		}
		if keep != nil && !keep(e) {
			continue
		}
		if _, ok := seen[e.SubjectID]; ok {
			continue
		}
		seen[e.SubjectID] = struct{}{}
		ids = append(ids, e.SubjectID)
	}
	return ids
}
