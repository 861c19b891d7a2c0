package model_test

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	model "github.com/okian/gympulse/internal/domain/model"
	"github.com/shopspring/decimal"
	"github.com/smartystreets/goconvey/convey"
)

func TestEventTypes(t *testing.T) {
	convey.Convey("Given the closed set of event types", t, func() {
		convey.Convey("Then every listed type is valid", func() {
			for _, et := range model.EventTypes() {
				convey.So(et.Valid(), convey.ShouldBeTrue)
			}
		})

		convey.Convey("And an unlisted type is not", func() {
			convey.So(model.EventType("LeadDeleted").Valid(), convey.ShouldBeFalse)
		})

		convey.Convey("And every payload reports its own type", func() {
			for _, et := range model.EventTypes() {
				p, err := model.DecodePayload(et, model.Attributes{})
				convey.So(err, convey.ShouldBeNil)
				convey.So(p.EventType(), convey.ShouldEqual, et)
			}
		})
	})
}

func TestDecodePayload(t *testing.T) {
	convey.Convey("Given attribute bags", t, func() {
		convey.Convey("When decoding a sale with numeric and date attributes", func() {
			p, err := model.DecodePayload(model.SaleRecorded, model.Attributes{
				"outcome":      " closed ",
				"total_paid":   500.0,
				"payment_type": "installment-plan",
				"close_date":   "2024-03-10",
			})

			convey.So(err, convey.ShouldBeNil)
			sale, ok := p.(model.SaleRecordedPayload)
			convey.So(ok, convey.ShouldBeTrue)
			convey.So(sale.Outcome, convey.ShouldEqual, "closed")
			convey.So(sale.TotalPaid.Equal(decimal.NewFromInt(500)), convey.ShouldBeTrue)
			convey.So(sale.PaymentType, convey.ShouldEqual, "installment-plan")
			convey.So(sale.CloseDate.Equal(time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)), convey.ShouldBeTrue)
		})

		convey.Convey("When a numeric attribute is missing or malformed", func() {
			missing, err := model.DecodePayload(model.RefundIssued, model.Attributes{})
			convey.So(err, convey.ShouldBeNil)
			bad, err := model.DecodePayload(model.AdSpend, model.Attributes{"amount": "lots", "platform": "Meta"})
			convey.So(err, convey.ShouldBeNil)
			wrongType, err := model.DecodePayload(model.RecurringPayment, model.Attributes{"recurring_amount": []int{1}})
			convey.So(err, convey.ShouldBeNil)

			convey.Convey("Then it decodes as zero", func() {
				convey.So(missing.(model.RefundIssuedPayload).Amount.IsZero(), convey.ShouldBeTrue)
				convey.So(bad.(model.AdSpendPayload).Amount.IsZero(), convey.ShouldBeTrue)
				convey.So(bad.(model.AdSpendPayload).Platform, convey.ShouldEqual, "Meta")
				convey.So(wrongType.(model.RecurringPaymentPayload).RecurringAmount.IsZero(), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When numbers arrive as JSON numbers or strings", func() {
			var attrs model.Attributes
			dec := json.NewDecoder(strings.NewReader(`{"amount": 120.5}`))
			dec.UseNumber()
			convey.So(dec.Decode(&attrs), convey.ShouldBeNil)

			convey.So(attrs.Decimal("amount").String(), convey.ShouldEqual, "120.5")
			convey.So(model.Attributes{"amount": "75"}.Decimal("amount").IntPart(), convey.ShouldEqual, 75)
			convey.So(model.Attributes{"amount": 3}.Decimal("amount").IntPart(), convey.ShouldEqual, 3)
		})

		convey.Convey("When the type is unknown", func() {
			_, err := model.DecodePayload(model.EventType("Bogus"), model.Attributes{})

			convey.So(errors.Is(err, model.ErrUnknownEventType), convey.ShouldBeTrue)
		})
	})
}

func TestEncodePayload(t *testing.T) {
	convey.Convey("Given a decoded event", t, func() {
		at := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
		ev, err := model.DecodeEvent("e-1", "gym-1", model.SaleRecorded, at, "lead-1", model.Attributes{
			"total_paid": "1200",
			"close_date": "2024-05-02T10:00:00Z",
		})
		convey.So(err, convey.ShouldBeNil)

		convey.Convey("When encoding and decoding its attributes again", func() {
			attrs := ev.Attributes()
			again, err := model.DecodePayload(ev.Type, attrs)

			convey.Convey("Then the payload survives", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(attrs, convey.ShouldNotContainKey, "outcome")
				sale := again.(model.SaleRecordedPayload)
				convey.So(sale.TotalPaid.IntPart(), convey.ShouldEqual, 1200)
				convey.So(sale.CloseDate.Equal(time.Date(2024, 5, 2, 10, 0, 0, 0, time.UTC)), convey.ShouldBeTrue)
			})
		})

		convey.Convey("Then the header is kept", func() {
			convey.So(ev.ID, convey.ShouldEqual, "e-1")
			convey.So(ev.TenantID, convey.ShouldEqual, "gym-1")
			convey.So(ev.SubjectID, convey.ShouldEqual, "lead-1")
			convey.So(ev.OccurredAt, convey.ShouldEqual, at)
		})
	})
}
