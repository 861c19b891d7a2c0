package app

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/okian/gympulse/internal/domain/model"
)

// Envelope is the wire form of one event, shared by POST /events and the
// Kafka topic.
type Envelope struct {
	EventID    string           `json:"event_id,omitempty" validate:"max=128"`
	TenantID   string           `json:"tenant_id" validate:"required,max=128"`
	Type       string           `json:"type" validate:"required,eventtype"`
	OccurredAt time.Time        `json:"occurred_at" validate:"required"`
	SubjectID  string           `json:"subject_id,omitempty" validate:"max=128"`
	Attributes model.Attributes `json:"attributes,omitempty"`
}

// NewEnvelope is the inverse of Event: it renders e for the wire.
func NewEnvelope(e model.Event) Envelope {
	return Envelope{
		EventID:    e.ID,
		TenantID:   e.TenantID,
		Type:       string(e.Type),
		OccurredAt: e.OccurredAt,
		SubjectID:  e.SubjectID,
		Attributes: e.Attributes(),
	}
}

// DecodeEnvelope reads one JSON envelope. Numbers are kept as json.Number
// so amounts are not rounded through float64.
func DecodeEnvelope(r io.Reader) (Envelope, error) {
	var env Envelope
	dec := json.NewDecoder(r)
	dec.UseNumber()
	if err := dec.Decode(&env); err != nil {
		return Envelope{}, fmt.Errorf("%w: %w", ErrInvalidEvent, err)
	}
	return env, nil
}

// DecodeEnvelopeBytes is DecodeEnvelope over a byte slice.
func DecodeEnvelopeBytes(b []byte) (Envelope, error) {
	return DecodeEnvelope(bytes.NewReader(b))
}

// EnvelopeValidator checks envelopes against their validate tags.
type EnvelopeValidator struct {
	v *validator.Validate
}

// NewEnvelopeValidator registers the event type rule.
func NewEnvelopeValidator() *EnvelopeValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("eventtype", func(fl validator.FieldLevel) bool {
		return model.EventType(fl.Field().String()).Valid()
	})
	return &EnvelopeValidator{v: v}
}

// Validate reports every failing field in one error wrapping ErrInvalidEvent.
func (ev *EnvelopeValidator) Validate(env Envelope) error {
	err := ev.v.Struct(env)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %w", ErrInvalidEvent, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %s", jsonName(fe.Field()), fe.Tag()))
	}
	return fmt.Errorf("%w: %s", ErrInvalidEvent, strings.Join(msgs, "; "))
}

// Event decodes env into a typed event. env must already be valid and carry
// an id.
func (env Envelope) Event() (model.Event, error) {
	e, err := model.DecodeEvent(env.EventID, env.TenantID, model.EventType(env.Type), env.OccurredAt.UTC(), env.SubjectID, env.Attributes)
	if err != nil {
		return model.Event{}, fmt.Errorf("%w: %w", ErrInvalidEvent, err)
	}
	return e, nil
}

func jsonName(field string) string {
	switch field {
	case "EventID":
		return "event_id"
	case "TenantID":
		return "tenant_id"
	case "OccurredAt":
		return "occurred_at"
	case "SubjectID":
		return "subject_id"
	}
	return strings.ToLower(field)
}
