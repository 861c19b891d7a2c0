package app_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/gympulse/internal/app"
	"github.com/okian/gympulse/internal/domain/model"
)

func TestDecodeEnvelope(t *testing.T) {
	convey.Convey("Given a sale posted as JSON", t, func() {
		body := `{"event_id":"sale-1","tenant_id":"gym-1","type":"SaleRecorded",
			"occurred_at":"2024-03-05T10:00:00+02:00","subject_id":"lead-7",
			"attributes":{"total_paid":1299.995,"payment_type":"installment-plan"}}`

		env, err := app.DecodeEnvelope(strings.NewReader(body))
		convey.So(err, convey.ShouldBeNil)
		convey.So(app.NewEnvelopeValidator().Validate(env), convey.ShouldBeNil)

		convey.Convey("When it becomes an event", func() {
			e, err := env.Event()

			convey.Convey("Then the amount keeps its precision and the time is UTC", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(e.Type, convey.ShouldEqual, model.SaleRecorded)
				convey.So(e.OccurredAt.Location().String(), convey.ShouldEqual, "UTC")
				convey.So(e.OccurredAt.Hour(), convey.ShouldEqual, 8)
				sale := e.Payload.(model.SaleRecordedPayload)
				convey.So(sale.TotalPaid.Equal(decimal.RequireFromString("1299.995")), convey.ShouldBeTrue)
				convey.So(sale.PaymentType, convey.ShouldEqual, "installment-plan")
			})

			convey.Convey("Then it renders back to the same envelope fields", func() {
				back := app.NewEnvelope(e)
				convey.So(back.EventID, convey.ShouldEqual, "sale-1")
				convey.So(back.SubjectID, convey.ShouldEqual, "lead-7")
				convey.So(back.Type, convey.ShouldEqual, "SaleRecorded")
			})
		})
	})

	convey.Convey("Given a body that is not JSON", t, func() {
		_, err := app.DecodeEnvelopeBytes([]byte("{not json"))

		convey.Convey("Then the error is an invalid event", func() {
			convey.So(errors.Is(err, app.ErrInvalidEvent), convey.ShouldBeTrue)
		})
	})

	convey.Convey("Given an over-long subject id", t, func() {
		env := app.Envelope{
			TenantID:   "gym-1",
			Type:       "LeadCreated",
			OccurredAt: t0,
			SubjectID:  strings.Repeat("x", 129),
		}

		convey.Convey("Then validation names the field", func() {
			err := app.NewEnvelopeValidator().Validate(env)
			convey.So(errors.Is(err, app.ErrInvalidEvent), convey.ShouldBeTrue)
			convey.So(err.Error(), convey.ShouldContainSubstring, "subject_id failed max")
		})
	})
}
