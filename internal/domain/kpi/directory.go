package kpi

import "github.com/okian/gympulse/internal/domain/model"

// Directory is the read-only entity lookup the engine joins events against.
type Directory struct {
	subjects map[string]model.Subject
	reps     []model.Representative
	repIndex map[string]int
}

// NewDirectory builds a Directory. Representatives keep their order;
// repeated ids keep the first entry.
func NewDirectory(subjects map[string]model.Subject, reps []model.Representative) Directory {
	d := Directory{
		subjects: subjects,
		repIndex: make(map[string]int, len(reps)),
	}
	for _, r := range reps {
		if r.ID == "" {
			continue
		}
		if _, dup := d.repIndex[r.ID]; dup {
			continue
		}
		d.repIndex[r.ID] = len(d.reps)
		d.reps = append(d.reps, r)
	}
	return d
}

// Subject resolves a lead or client id.
func (d Directory) Subject(id string) (model.Subject, bool) {
	if id == "" {
		return model.Subject{}, false
	}
	s, ok := d.subjects[id]
	return s, ok
}

// Representative resolves a representative id.
func (d Directory) Representative(id string) (model.Representative, bool) {
	i, ok := d.repIndex[id]
	if !ok {
		return model.Representative{}, false
	}
	return d.reps[i], true
}

// Representatives lists the registered representatives in registry order.
func (d Directory) Representatives() []model.Representative {
	return d.reps
}

// scoped drops entries that belong to another tenant. Entries without a
// tenant are kept.
func (d Directory) scoped(tenantID string) Directory {
	subjects := make(map[string]model.Subject, len(d.subjects))
	for id, s := range d.subjects {
		if s.TenantID == "" || s.TenantID == tenantID {
			subjects[id] = s
		}
	}
	var reps []model.Representative
	for _, r := range d.reps {
		if r.TenantID == "" || r.TenantID == tenantID {
			reps = append(reps, r)
		}
	}
	return NewDirectory(subjects, reps)
}
