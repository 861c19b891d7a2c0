package seedevents

import "time"

// Config holds configuration for a seeding run.
type Config struct {
	BaseURL       string        // Base URL of the service
	TenantID      string        // Tenant the synthetic gym belongs to
	Leads         int           // Number of leads to generate
	Reps          int           // Number of sales representatives
	Start         time.Time     // First day of the generated month
	Seed          uint64        // Seed for the generator; equal seeds give equal events
	Workers       int           // Number of concurrent submitters
	Timeout       time.Duration // HTTP request timeout
	SettleTimeout time.Duration // How long to wait for the snapshot to catch up
	JWTSecret     string        // Signs event and snapshot requests when set
	OutputFile    string        // Writes the generated events as JSON when set
	Verbose       bool          // Enable per-event logging
}

// Window is the half-open month the generated events fall into.
func (c *Config) Window() (time.Time, time.Time) {
	start := c.Start.UTC()
	return start, start.AddDate(0, 1, 0)
}

// Expected is the funnel the generated events must produce.
type Expected struct {
	Leads     int
	Bookings  int
	Shows     int
	NoShows   int
	Closes    int
	PaidLeads int
}

// Stats holds run statistics.
type Stats struct {
	EventsGenerated  int
	EventsSubmitted  int
	EventsAccepted   int
	EventsDuplicate  int
	EventsRetried    int
	EventsFailed     int
	SnapshotAttempts int
	StartTime        time.Time
	EndTime          time.Time
	Duration         time.Duration
}
