package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"tickethub/config"
	"tickethub/internal/services/gateway"
	"tickethub/internal/status"
	"tickethub/models"
	"tickethub/monitoring"
	"tickethub/utils"
)

// CancellationResult reports what a cancellation did and what the buyer gets
// back.
type CancellationResult struct {
	Booking          *models.Booking `json:"booking"`
	CancelledTickets int             `json:"cancelled_tickets"`
	RefundAmount     int64           `json:"refund_amount"` // minor units
	RefundPercent    float64         `json:"refund_percent"`
	RefundReference  string          `json:"refund_reference,omitempty"`
}

// CancellationService cancels confirmed bookings, returns unused inventory
// and computes the refund per the event's policy. The refund itself settles
// asynchronously: the gateway call here only initiates it, and the refund
// webhook finalizes the money movement.
type CancellationService struct {
	store     Store
	inventory *InventoryService
	gw        gateway.Gateway
	breaker   *utils.CircuitBreaker
	notifier  Publisher
	cfg       *config.Config
}

func NewCancellationService(
	store Store,
	inventory *InventoryService,
	gw gateway.Gateway,
	notifier Publisher,
	cfg *config.Config,
) *CancellationService {
	return &CancellationService{
		store:     store,
		inventory: inventory,
		gw:        gw,
		breaker:   utils.NewCircuitBreaker("payment-gateway-refund"),
		notifier:  notifier,
		cfg:       cfg,
	}
}

// Cancel cancels a confirmed booking. Already checked-in tickets stay used
// and earn no refund; when every ticket is still unused the refund base is
// the full amount paid, service fee included.
func (s *CancellationService) Cancel(ctx context.Context, bookingID, callerID string) (*CancellationResult, error) {
	booking, err := s.store.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.BuyerID != callerID && booking.OrganizerID != callerID {
		return nil, status.ErrAuthorization
	}
	if booking.Status != models.BookingConfirmed {
		return nil, status.Conflictf("booking %s is %s, only confirmed bookings can be cancelled", bookingID, booking.Status)
	}

	event, err := s.store.GetEvent(ctx, booking.EventID)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	timeToEvent := event.StartTime.Sub(now)
	if timeToEvent <= 0 {
		return nil, status.Conflictf("event %s already started", event.ID)
	}
	cutoff := time.Duration(s.cfg.CancelCutoffHours) * time.Hour
	if timeToEvent < cutoff {
		return nil, status.Conflictf("cancellation closes %d hours before the event", s.cfg.CancelCutoffHours)
	}

	pct := RefundPercent(event.RefundPolicy, timeToEvent, s.cfg.RefundLadder)

	result := &CancellationResult{Booking: booking, RefundPercent: pct}
	var completedTxn *models.Transaction

	err = s.store.WithinTx(ctx, func(tx Tx) error {
		tickets, err := tx.ListTicketsByBooking(ctx, bookingID)
		if err != nil {
			return err
		}

		refundState := models.RefundNone
		if !booking.IsFree() && pct > 0 {
			refundState = models.RefundRequested
		}

		// Cancel every still-unused ticket; used ones are excluded from the
		// refund base and their inventory is not returned.
		var refundBase int64
		released := map[string]models.TicketDetail{}
		usedCount := 0

		for i := range tickets {
			t := &tickets[i]
			if t.Status == models.TicketUsed {
				usedCount++
				continue
			}
			won, err := tx.MarkTicketCancelled(ctx, t.ID, refundState)
			if err != nil {
				return err
			}
			if !won {
				continue
			}
			result.CancelledTickets++
			refundBase += t.Price

			d := released[t.Tier]
			d.Tier = t.Tier
			d.Quantity++
			d.UnitPrice = t.Price
			released[t.Tier] = d
		}

		if result.CancelledTickets == 0 {
			return status.Conflictf("booking %s has no cancellable tickets", bookingID)
		}

		if !booking.IsFree() && pct > 0 {
			if usedCount == 0 {
				// Nothing consumed: refund against the full amount paid,
				// service fee included.
				refundBase = booking.TotalAmount
			}
			result.RefundAmount = ApplyRefundPercent(refundBase, pct)
		}

		paymentStatus := ""
		if result.RefundAmount > 0 {
			paymentStatus = models.PaymentRefundRequested
		}
		won, err := tx.MarkBookingCancelled(ctx, bookingID, paymentStatus)
		if err != nil {
			return err
		}
		if !won {
			return status.Conflictf("booking %s was cancelled concurrently", bookingID)
		}
		booking.Status = models.BookingCancelled
		if paymentStatus != "" {
			booking.PaymentStatus = paymentStatus
		}

		details := make([]models.TicketDetail, 0, len(released))
		for _, d := range released {
			details = append(details, d)
		}
		if err := s.inventory.Release(ctx, tx, booking.EventID, details); err != nil {
			return err
		}

		if err := tx.ApplyAggregates(ctx, booking.EventID, models.AggregateDelta{
			Attendees: -result.CancelledTickets,
			Bookings:  -1,
			Revenue:   -result.RefundAmount,
		}); err != nil {
			return err
		}

		if result.RefundAmount > 0 {
			completedTxn, err = tx.FindCompletedTransaction(ctx, bookingID)
			if err != nil {
				return err
			}
			if completedTxn == nil {
				return fmt.Errorf("cancel: booking %s has no completed transaction to refund against", bookingID)
			}
			if err := tx.MarkRefundRequested(ctx, completedTxn.Reference, result.RefundAmount); err != nil {
				return err
			}
			result.RefundReference = completedTxn.Reference
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	monitoring.TrackBooking("cancel", "cancelled")
	monitoring.TrackReservationReleased("cancelled")

	if completedTxn != nil {
		s.initiateRefund(ctx, completedTxn.Reference, result.RefundAmount)
	}
	s.notifier.BookingCancelled(ctx, booking, result.RefundAmount)

	return result, nil
}

// initiateRefund asks the gateway to start the refund. Best effort: on
// failure the transaction stays refund-requested and an operator (or a
// retry) re-initiates; the refund webhook is what finalizes state either
// way.
func (s *CancellationService) initiateRefund(ctx context.Context, reference string, amount int64) {
	started := time.Now()
	_, err := s.breaker.Execute(ctx, func() (interface{}, error) {
		return nil, s.gw.Refund(ctx, &gateway.RefundRequest{
			Reference: reference,
			Amount:    amount,
		})
	})
	monitoring.TrackGatewayCall("refund", err, time.Since(started))
	if err != nil {
		slog.Error("cancel: refund initiation failed, staying refund-requested",
			"reference", reference, "amount", amount, "error", err)
	}
}
