package repository

import "github.com/okian/gympulse/internal/domain/model"

// SubjectChange is how one event alters a subject record. Empty fields leave
// the stored value alone.
type SubjectChange struct {
	TenantID      string
	ID            string
	Source        string
	AssignedRepID string
	// KeepAssigned leaves an existing assignment in place, so a late
	// LeadCreated cannot undo an explicit RepAssigned.
	KeepAssigned bool
}

// Apply folds the change into s.
func (c SubjectChange) Apply(s model.Subject) model.Subject {
	s.ID = c.ID
	s.TenantID = c.TenantID
	if c.Source != "" {
		s.Source = c.Source
	}
	if c.AssignedRepID != "" && (!c.KeepAssigned || s.AssignedRepID == "") {
		s.AssignedRepID = c.AssignedRepID
	}
	return s
}

// Projection is the directory side effect of one event.
type Projection struct {
	Subject        *SubjectChange
	Representative *model.Representative
}

// Empty reports whether the event leaves the directory untouched.
func (p Projection) Empty() bool {
	return p.Subject == nil && p.Representative == nil
}

// Project derives the directory change carried by e.
func Project(e model.Event) Projection {
	switch p := e.Payload.(type) {
	case model.LeadCreatedPayload:
		if e.SubjectID == "" {
			return Projection{}
		}
		return Projection{Subject: &SubjectChange{
			TenantID:      e.TenantID,
			ID:            e.SubjectID,
			Source:        p.Source,
			AssignedRepID: p.AssignedRepID,
			KeepAssigned:  true,
		}}
	case model.RepAssignedPayload:
		if e.SubjectID == "" || p.RepID == "" {
			return Projection{}
		}
		return Projection{Subject: &SubjectChange{
			TenantID:      e.TenantID,
			ID:            e.SubjectID,
			AssignedRepID: p.RepID,
		}}
	case model.SubjectSourceChangedPayload:
		if e.SubjectID == "" || p.Source == "" {
			return Projection{}
		}
		return Projection{Subject: &SubjectChange{
			TenantID: e.TenantID,
			ID:       e.SubjectID,
			Source:   p.Source,
		}}
	case model.RepresentativeJoinedPayload:
		if e.SubjectID == "" {
			return Projection{}
		}
		return Projection{Representative: &model.Representative{
			ID:          e.SubjectID,
			TenantID:    e.TenantID,
			DisplayName: p.DisplayName,
		}}
	}
	return Projection{}
}
