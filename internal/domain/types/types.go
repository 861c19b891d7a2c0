// Package types contains the metric snapshot shapes returned to callers.
package types

import "time"

// Group names one section of the snapshot that a caller may be allowed to see.
type Group string

// Metric groups.
const (
	GroupFunnel      Group = "funnel"
	GroupAttribution Group = "attribution"
	GroupRevenue     Group = "revenue"
	GroupTiming      Group = "timing"
	GroupFollowUp    Group = "followup"
	GroupLeaderboard Group = "leaderboard"
)

var allGroups = []Group{
	GroupFunnel, GroupAttribution, GroupRevenue, GroupTiming, GroupFollowUp, GroupLeaderboard,
}

// AllGroups returns every metric group in presentation order.
func AllGroups() []Group {
	out := make([]Group, len(allGroups))
	copy(out, allGroups)
	return out
}

// ParseGroup maps a name onto a Group.
func ParseGroup(name string) (Group, bool) {
	for _, g := range allGroups {
		if string(g) == name {
			return g, true
		}
	}
	return "", false
}

// Status tells a computed snapshot apart from one that could not be computed.
type Status string

// Snapshot statuses.
const (
	StatusComputed         Status = "computed"
	StatusScopeUnavailable Status = "scope_unavailable"
)

// Snapshot is the full KPI bundle for one tenant and one window.
// Percentages are integers in [0,100]; currency is whole units.
type Snapshot struct {
	TenantID    string      `json:"tenant_id"`
	Start       time.Time   `json:"start"`
	End         time.Time   `json:"end"`
	Status      Status      `json:"status"`
	Groups      []Group     `json:"groups"`
	Funnel      Funnel      `json:"funnel"`
	Attribution Attribution `json:"attribution"`
	Revenue     Revenue     `json:"revenue"`
	Timing      Timing      `json:"timing"`
	FollowUp    FollowUp    `json:"followup"`
	Leaderboard Leaderboard `json:"leaderboard"`
}

// Funnel holds lead to close counts and stage conversion rates.
type Funnel struct {
	Leads          int `json:"leads"`
	Bookings       int `json:"bookings"`
	Shows          int `json:"shows"`
	NoShows        int `json:"no_shows"`
	Closes         int `json:"closes"`
	BookedPct      int `json:"booked_pct"`
	LeadToShowPct  int `json:"lead_to_show_pct"`
	LeadToSalePct  int `json:"lead_to_sale_pct"`
	ShowToClosePct int `json:"show_to_close_pct"`
}

// Attribution holds paid acquisition costs and return on ad spend.
type Attribution struct {
	AdSpend           int64          `json:"ad_spend"`
	PaidLeads         int            `json:"paid_leads"`
	OrganicLeads      int            `json:"organic_leads"`
	UnattributedLeads int            `json:"unattributed_leads"`
	PaidBookings      int            `json:"paid_bookings"`
	PaidShows         int            `json:"paid_shows"`
	PaidCloses        int            `json:"paid_closes"`
	PaidRevenue       int64          `json:"paid_revenue"`
	ROAS              float64        `json:"roas"`
	CAC               int64          `json:"cac"`
	CPB               int64          `json:"cpb"`
	CPL               int64          `json:"cpl"`
	CPS               int64          `json:"cps"`
	Platforms         []PlatformROAS `json:"platforms"`
}

// PlatformROAS is the return on ad spend for one ad platform.
type PlatformROAS struct {
	Platform string  `json:"platform"`
	AdSpend  int64   `json:"ad_spend"`
	Revenue  int64   `json:"revenue"`
	ROAS     float64 `json:"roas"`
}

// Revenue holds money in, money out and payment risk rates.
type Revenue struct {
	TotalRevenue         int64 `json:"total_revenue"`
	RefundAmount         int64 `json:"refund_amount"`
	NetRevenue           int64 `json:"net_revenue"`
	AOV                  int64 `json:"aov"`
	MRR                  int64 `json:"mrr"`
	RevenuePerLead       int64 `json:"revenue_per_lead"`
	Refunds              int   `json:"refunds"`
	FailedPayments       int   `json:"failed_payments"`
	InstallmentSales     int   `json:"installment_sales"`
	DepositOnly          int   `json:"deposit_only"`
	TrialsStarted        int   `json:"trials_started"`
	TrialsConverted      int   `json:"trials_converted"`
	RefundRatePct        int   `json:"refund_rate_pct"`
	FailedPaymentRatePct int   `json:"failed_payment_rate_pct"`
	DepositOnlyRatePct   int   `json:"deposit_only_rate_pct"`
	TrialConversionPct   int   `json:"trial_conversion_pct"`
}

// Timing holds average funnel durations in days.
type Timing struct {
	SalesCycleDays    float64 `json:"sales_cycle_days"`
	TimeToBookDays    float64 `json:"time_to_book_days"`
	SalesCycleSamples int     `json:"sales_cycle_samples"`
	TimeToBookSamples int     `json:"time_to_book_samples"`
}

// FollowUp holds the conversion of leads that got a follow-up.
type FollowUp struct {
	LeadsWithFollowUp        int `json:"leads_with_followup"`
	LeadsWithFollowUpAndSale int `json:"leads_with_followup_and_sale"`
	ConversionPct            int `json:"followup_conversion_pct"`
}

// Leaderboard holds ranked representative rows.
type Leaderboard struct {
	Rows          []RepRow `json:"rows"`
	RevenuePerRep int64    `json:"revenue_per_rep"`
}

// RepRow is one representative's results. Rank is 1-based; the zero
// placeholder row has rank 0.
type RepRow struct {
	Rank         int    `json:"rank"`
	RepID        string `json:"rep_id"`
	DisplayName  string `json:"display_name"`
	Bookings     int    `json:"bookings"`
	Shows        int    `json:"shows"`
	Closes       int    `json:"closes"`
	Revenue      int64  `json:"revenue"`
	ShowRatePct  int    `json:"show_rate_pct"`
	CloseRatePct int    `json:"close_rate_pct"`
}

// PlaceholderRows is the leaderboard shown when no representative qualifies.
func PlaceholderRows() []RepRow {
	return []RepRow{{}}
}
