package services

import (
	"time"

	"github.com/shopspring/decimal"

	"tickethub/config"
	"tickethub/models"
)

// PriceBreakdown is the priced form of a validated booking request.
type PriceBreakdown struct {
	Lines      []models.TicketDetail `json:"lines"`
	Quantity   int                   `json:"quantity"`
	Subtotal   int64                 `json:"subtotal"`    // minor units
	ServiceFee int64                 `json:"service_fee"` // minor units
	Total      int64                 `json:"total"`       // minor units
	Free       bool                  `json:"free"`
}

// CalculateTotals prices a multi-tier request. A booking is free iff the
// subtotal is exactly zero, regardless of tier count; paid bookings incur a
// platform fee of feePercent of the subtotal, rounded up to the next minor
// unit so that any paid booking carries a positive fee.
func CalculateTotals(lines []models.TicketDetail, feePercent float64) PriceBreakdown {
	br := PriceBreakdown{Lines: lines}

	subtotal := decimal.Zero
	for _, l := range lines {
		br.Quantity += l.Quantity
		subtotal = subtotal.Add(decimal.NewFromInt(l.UnitPrice).Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	br.Subtotal = subtotal.IntPart()

	if br.Subtotal == 0 {
		br.Free = true
		br.Total = 0
		return br
	}

	fee := subtotal.
		Mul(decimal.NewFromFloat(feePercent)).
		Div(decimal.NewFromInt(100)).
		Ceil()
	br.ServiceFee = fee.IntPart()
	br.Total = subtotal.Add(fee).IntPart()

	return br
}

// RefundPercent returns the refundable percentage for a policy at the given
// time-to-event. The partial ladder is evaluated at cancellation time.
func RefundPercent(policy string, timeToEvent time.Duration, ladder config.RefundLadder) float64 {
	switch policy {
	case models.RefundPolicyNoRefund:
		return 0
	case models.RefundPolicyFull:
		return 100
	case models.RefundPolicyPartial:
		switch {
		case timeToEvent.Hours() > 7*24:
			return ladder.Over7Days
		case timeToEvent.Hours() > 3*24:
			return ladder.Over3Days
		case timeToEvent.Hours() > 24:
			return ladder.Over1Day
		default:
			return ladder.Under1Day
		}
	default:
		return 0
	}
}

// ApplyRefundPercent scales a minor-unit amount by pct, rounding down: the
// platform never refunds more than the ladder promises.
func ApplyRefundPercent(amount int64, pct float64) int64 {
	if pct <= 0 || amount <= 0 {
		return 0
	}
	if pct >= 100 {
		return amount
	}
	return decimal.NewFromInt(amount).
		Mul(decimal.NewFromFloat(pct)).
		Div(decimal.NewFromInt(100)).
		Floor().
		IntPart()
}
