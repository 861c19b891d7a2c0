package model

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Attribute keys shared by the wire format and storage.
const (
	AttrSource          = "source"
	AttrAssignedRepID   = "assigned_rep_id"
	AttrOutcome         = "outcome"
	AttrTotalPaid       = "total_paid"
	AttrPaymentType     = "payment_type"
	AttrCloseDate       = "close_date"
	AttrAmount          = "amount"
	AttrPlatform        = "platform"
	AttrRecurringAmount = "recurring_amount"
	AttrDueAt           = "due_at"
	AttrRepID           = "rep_id"
	AttrDisplayName     = "display_name"
)

const dateLayout = "2006-01-02"

// Attributes is the untyped key/value bag an event travels with outside
// the domain (HTTP bodies, Kafka messages, JSONB columns).
type Attributes map[string]any

// DecodePayload builds the typed payload for t from attrs. Missing or
// malformed numeric attributes decode as zero; only an unknown type fails.
func DecodePayload(t EventType, attrs Attributes) (Payload, error) {
	switch t {
	case LeadCreated:
		return LeadCreatedPayload{
			Source:        attrs.Text(AttrSource),
			AssignedRepID: attrs.Text(AttrAssignedRepID),
		}, nil
	case BookingCreated:
		return BookingCreatedPayload{}, nil
	case ShowRecorded:
		return ShowRecordedPayload{Outcome: attrs.Text(AttrOutcome)}, nil
	case SaleRecorded:
		return SaleRecordedPayload{
			Outcome:     attrs.Text(AttrOutcome),
			TotalPaid:   attrs.Decimal(AttrTotalPaid),
			PaymentType: attrs.Text(AttrPaymentType),
			CloseDate:   attrs.Time(AttrCloseDate),
		}, nil
	case RefundIssued:
		return RefundIssuedPayload{Amount: attrs.Decimal(AttrAmount)}, nil
	case PaymentFailed:
		return PaymentFailedPayload{Amount: attrs.Decimal(AttrAmount)}, nil
	case DepositOnly:
		return DepositOnlyPayload{Amount: attrs.Decimal(AttrAmount)}, nil
	case AdSpend:
		return AdSpendPayload{
			Amount:   attrs.Decimal(AttrAmount),
			Platform: attrs.Text(AttrPlatform),
		}, nil
	case TrialStarted:
		return TrialStartedPayload{}, nil
	case TrialConverted:
		return TrialConvertedPayload{}, nil
	case RecurringPayment:
		return RecurringPaymentPayload{RecurringAmount: attrs.Decimal(AttrRecurringAmount)}, nil
	case FollowUpSet:
		return FollowUpSetPayload{DueAt: attrs.Time(AttrDueAt)}, nil
	case RepAssigned:
		return RepAssignedPayload{RepID: attrs.Text(AttrRepID)}, nil
	case RepresentativeJoined:
		return RepresentativeJoinedPayload{DisplayName: attrs.Text(AttrDisplayName)}, nil
	case SubjectSourceChanged:
		return SubjectSourceChangedPayload{Source: attrs.Text(AttrSource)}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownEventType, t)
}

// EncodePayload flattens p back into an attribute bag. Empty values are omitted.
func EncodePayload(p Payload) Attributes {
	a := Attributes{}
	switch v := p.(type) {
	case LeadCreatedPayload:
		a.setString(AttrSource, v.Source)
		a.setString(AttrAssignedRepID, v.AssignedRepID)
	case ShowRecordedPayload:
		a.setString(AttrOutcome, v.Outcome)
	case SaleRecordedPayload:
		a.setString(AttrOutcome, v.Outcome)
		a[AttrTotalPaid] = v.TotalPaid.String()
		a.setString(AttrPaymentType, v.PaymentType)
		a.setTime(AttrCloseDate, v.CloseDate)
	case RefundIssuedPayload:
		a[AttrAmount] = v.Amount.String()
	case PaymentFailedPayload:
		a[AttrAmount] = v.Amount.String()
	case DepositOnlyPayload:
		a[AttrAmount] = v.Amount.String()
	case AdSpendPayload:
		a[AttrAmount] = v.Amount.String()
		a.setString(AttrPlatform, v.Platform)
	case RecurringPaymentPayload:
		a[AttrRecurringAmount] = v.RecurringAmount.String()
	case FollowUpSetPayload:
		a.setTime(AttrDueAt, v.DueAt)
	case RepAssignedPayload:
		a.setString(AttrRepID, v.RepID)
	case RepresentativeJoinedPayload:
		a.setString(AttrDisplayName, v.DisplayName)
	case SubjectSourceChangedPayload:
		a.setString(AttrSource, v.Source)
	}
	return a
}

// Text returns the trimmed string value under key, or "".
func (a Attributes) Text(key string) string {
	if s, ok := a[key].(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

// Decimal returns the numeric value under key. Anything that is not a
// finite number (or a string holding one) yields zero.
func (a Attributes) Decimal(key string) decimal.Decimal {
	switch v := a[key].(type) {
	case float64:
		return finite(v)
	case float32:
		return finite(float64(v))
	case int:
		return decimal.NewFromInt(int64(v))
	case int32:
		return decimal.NewFromInt32(v)
	case int64:
		return decimal.NewFromInt(v)
	case decimal.Decimal:
		return v
	case json.Number:
		return parseDecimal(v.String())
	case string:
		return parseDecimal(v)
	}
	return decimal.Zero
}

// Time returns the timestamp under key. Accepts RFC 3339 and plain dates.
func (a Attributes) Time(key string) time.Time {
	switch v := a[key].(type) {
	case time.Time:
		return v
	case string:
		s := strings.TrimSpace(v)
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			return t
		}
		if t, err := time.Parse(dateLayout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

func finite(f float64) decimal.Decimal {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(f)
}

func (a Attributes) setString(key, v string) {
	if v != "" {
		a[key] = v
	}
}

func (a Attributes) setTime(key string, t time.Time) {
	if !t.IsZero() {
		a[key] = t.UTC().Format(time.RFC3339Nano)
	}
}

func parseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero
	}
	return d
}

// DecodeEvent assembles an Event from its header and attribute bag.
func DecodeEvent(id, tenantID string, t EventType, occurredAt time.Time, subjectID string, attrs Attributes) (Event, error) {
	p, err := DecodePayload(t, attrs)
	if err != nil {
		return Event{}, err
	}
	return Event{
		ID:         id,
		TenantID:   tenantID,
		Type:       t,
		OccurredAt: occurredAt,
		SubjectID:  subjectID,
		Payload:    p,
	}, nil
}

// Attributes returns the event payload as an attribute bag.
func (e Event) Attributes() Attributes {
	if e.Payload == nil {
		return Attributes{}
	}
	return EncodePayload(e.Payload)
}
