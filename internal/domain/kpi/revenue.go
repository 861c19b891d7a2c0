package kpi

import (
	"strings"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/okian/gympulse/internal/domain/model"
	"github.com/okian/gympulse/internal/domain/types"
)

// installmentPlan is the payment type whose sales can later fail a charge.
const installmentPlan = "installment-plan"

func computeRevenue(in *input) types.Revenue {
	sales := in.parts.Of(model.SaleRecorded)
	closes := len(sales)

	total := lo.Reduce(sales, func(acc decimal.Decimal, e model.Event, _ int) decimal.Decimal {
		sale, _ := e.Payload.(model.SaleRecordedPayload)
		return acc.Add(sale.TotalPaid)
	}, decimal.Zero)
	refunded := lo.Reduce(in.parts.Of(model.RefundIssued), func(acc decimal.Decimal, e model.Event, _ int) decimal.Decimal {
		refund, _ := e.Payload.(model.RefundIssuedPayload)
		return acc.Add(refund.Amount)
	}, decimal.Zero)
	mrr := lo.Reduce(in.parts.Of(model.RecurringPayment), func(acc decimal.Decimal, e model.Event, _ int) decimal.Decimal {
		rp, _ := e.Payload.(model.RecurringPaymentPayload)
		return acc.Add(rp.RecurringAmount)
	}, decimal.Zero)

	// Only installment sales in this same window count as the base for
	// failed charges, even when the failing plan was sold earlier.
	installments := lo.CountBy(sales, func(e model.Event) bool {
		sale, _ := e.Payload.(model.SaleRecordedPayload)
		return normalizePaymentType(sale.PaymentType) == installmentPlan
	})

	r := types.Revenue{
		TotalRevenue:     Whole(total),
		RefundAmount:     Whole(refunded),
		NetRevenue:       Whole(total.Sub(refunded)),
		AOV:              PerUnit(total, closes),
		MRR:              Whole(mrr),
		RevenuePerLead:   PerUnit(total, in.parts.Count(model.LeadCreated)),
		Refunds:          in.parts.Count(model.RefundIssued),
		FailedPayments:   in.parts.Count(model.PaymentFailed),
		InstallmentSales: installments,
		DepositOnly:      in.parts.Count(model.DepositOnly),
		TrialsStarted:    in.parts.Count(model.TrialStarted),
		TrialsConverted:  in.parts.Count(model.TrialConverted),
	}
	r.RefundRatePct = Percent(r.Refunds, closes)
	r.FailedPaymentRatePct = Percent(r.FailedPayments, installments)
	r.DepositOnlyRatePct = Percent(r.DepositOnly, closes)
	r.TrialConversionPct = Percent(r.TrialsConverted, r.TrialsStarted)
	return r
}

func normalizePaymentType(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer("_", "-", " ", "-").Replace(s)
}
