// Package model contains domain models passed between layers.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// EventType tags an Event with the kind of business fact it records.
type EventType string

// Closed set of event types.
const (
	LeadCreated          EventType = "LeadCreated"
	BookingCreated       EventType = "BookingCreated"
	ShowRecorded         EventType = "ShowRecorded"
	SaleRecorded         EventType = "SaleRecorded"
	RefundIssued         EventType = "RefundIssued"
	PaymentFailed        EventType = "PaymentFailed"
	DepositOnly          EventType = "DepositOnly"
	AdSpend              EventType = "AdSpend"
	TrialStarted         EventType = "TrialStarted"
	TrialConverted       EventType = "TrialConverted"
	RecurringPayment     EventType = "RecurringPayment"
	FollowUpSet          EventType = "FollowUpSet"
	RepAssigned          EventType = "RepAssigned"
	RepresentativeJoined EventType = "RepresentativeJoined"
	SubjectSourceChanged EventType = "SubjectSourceChanged"
)

var eventTypes = []EventType{
	LeadCreated, BookingCreated, ShowRecorded, SaleRecorded, RefundIssued,
	PaymentFailed, DepositOnly, AdSpend, TrialStarted, TrialConverted,
	RecurringPayment, FollowUpSet, RepAssigned, RepresentativeJoined,
	SubjectSourceChanged,
}

// EventTypes returns every known event type in declaration order.
func EventTypes() []EventType {
	out := make([]EventType, len(eventTypes))
	copy(out, eventTypes)
	return out
}

// Valid reports whether t belongs to the closed set.
func (t EventType) Valid() bool {
	for _, known := range eventTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Event is an immutable business fact scoped to one tenant.
type Event struct {
	ID         string
	TenantID   string
	Type       EventType
	OccurredAt time.Time
	SubjectID  string // lead/client reference, may be empty
	Payload    Payload
}

// Payload is the typed attribute set of an Event. Implemented only by the
// variants in this package.
type Payload interface {
	EventType() EventType
	sealed()
}

// LeadCreatedPayload records a captured lead.
type LeadCreatedPayload struct {
	Source        string
	AssignedRepID string
}

// BookingCreatedPayload records a scheduled consultation.
type BookingCreatedPayload struct{}

// ShowRecordedPayload records the outcome of a booked consultation.
type ShowRecordedPayload struct {
	Outcome string
}

// SaleRecordedPayload records a closed sale.
type SaleRecordedPayload struct {
	Outcome     string
	TotalPaid   decimal.Decimal
	PaymentType string
	CloseDate   time.Time // zero when absent
}

// RefundIssuedPayload records money returned to a client.
type RefundIssuedPayload struct {
	Amount decimal.Decimal
}

// PaymentFailedPayload records a failed installment charge.
type PaymentFailedPayload struct {
	Amount decimal.Decimal
}

// DepositOnlyPayload records a sale that stalled after the deposit.
type DepositOnlyPayload struct {
	Amount decimal.Decimal
}

// AdSpendPayload records money spent on an ad platform.
type AdSpendPayload struct {
	Amount   decimal.Decimal
	Platform string
}

// TrialStartedPayload records the start of a trial membership.
type TrialStartedPayload struct{}

// TrialConvertedPayload records a trial turning into a paid membership.
type TrialConvertedPayload struct{}

// RecurringPaymentPayload records a subscription charge.
type RecurringPaymentPayload struct {
	RecurringAmount decimal.Decimal
}

// FollowUpSetPayload records a scheduled follow-up with a lead.
type FollowUpSetPayload struct {
	DueAt time.Time // zero when absent
}

// RepAssignedPayload moves a subject to a representative.
type RepAssignedPayload struct {
	RepID string
}

// RepresentativeJoinedPayload registers a representative with the tenant.
// The event's SubjectID carries the representative id.
type RepresentativeJoinedPayload struct {
	DisplayName string
}

// SubjectSourceChangedPayload corrects a subject's acquisition source.
type SubjectSourceChangedPayload struct {
	Source string
}

func (LeadCreatedPayload) EventType() EventType          { return LeadCreated }
func (BookingCreatedPayload) EventType() EventType       { return BookingCreated }
func (ShowRecordedPayload) EventType() EventType         { return ShowRecorded }
func (SaleRecordedPayload) EventType() EventType         { return SaleRecorded }
func (RefundIssuedPayload) EventType() EventType         { return RefundIssued }
func (PaymentFailedPayload) EventType() EventType        { return PaymentFailed }
func (DepositOnlyPayload) EventType() EventType          { return DepositOnly }
func (AdSpendPayload) EventType() EventType              { return AdSpend }
func (TrialStartedPayload) EventType() EventType         { return TrialStarted }
func (TrialConvertedPayload) EventType() EventType       { return TrialConverted }
func (RecurringPaymentPayload) EventType() EventType     { return RecurringPayment }
func (FollowUpSetPayload) EventType() EventType          { return FollowUpSet }
func (RepAssignedPayload) EventType() EventType          { return RepAssigned }
func (RepresentativeJoinedPayload) EventType() EventType { return RepresentativeJoined }
func (SubjectSourceChangedPayload) EventType() EventType { return SubjectSourceChanged }

func (LeadCreatedPayload) sealed()          {}
func (BookingCreatedPayload) sealed()       {}
func (ShowRecordedPayload) sealed()         {}
func (SaleRecordedPayload) sealed()         {}
func (RefundIssuedPayload) sealed()         {}
func (PaymentFailedPayload) sealed()        {}
func (DepositOnlyPayload) sealed()          {}
func (AdSpendPayload) sealed()              {}
func (TrialStartedPayload) sealed()         {}
func (TrialConvertedPayload) sealed()       {}
func (RecurringPaymentPayload) sealed()     {}
func (FollowUpSetPayload) sealed()          {}
func (RepAssignedPayload) sealed()          {}
func (RepresentativeJoinedPayload) sealed() {}
func (SubjectSourceChangedPayload) sealed() {}
