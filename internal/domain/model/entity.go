package model

// Subject is a lead or client as seen by the KPI engine.
type Subject struct {
	ID            string
	TenantID      string
	Source        string // acquisition source from the tenant vocabulary
	AssignedRepID string // empty when unassigned
}

// Representative is a sales representative registered with a tenant.
type Representative struct {
	ID          string
	TenantID    string
	DisplayName string
}
