package services

import (
	"context"
	"errors"
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

// Webhook event types delivered by the gateway.
const (
	WebhookChargeSuccess   = "charge.success"
	WebhookChargeFailed    = "charge.failed"
	WebhookRefundProcessed = "refund.processed"
)

// Reconciliation outcomes.
const (
	OutcomeConfirmed      = "confirmed"
	OutcomeFailed         = "failed"
	OutcomeAlreadySettled = "already_settled"
	OutcomeRefunded       = "refunded"
	OutcomeStillPending   = "pending"
)

// WebhookEvent is the parsed gateway notification.
type WebhookEvent struct {
	Type      string
	Reference string
	Amount    int64
	Channel   string
	Response  string
	PaidAt    time.Time
}

// ReconcileResult reports what a reconciliation attempt did. AlreadySettled
// outcomes carry the transaction's existing terminal state, so redundant
// verify calls and webhook redeliveries return the same answer as the first.
type ReconcileResult struct {
	Reference string          `json:"reference"`
	Outcome   string          `json:"outcome"`
	Booking   *models.Booking `json:"booking,omitempty"`
	Tickets   []models.Ticket `json:"tickets,omitempty"`
}

// ReconcileService settles pending transactions. Two independent triggers
// race for every payment: the buyer's redirect hitting verify, and the
// gateway's webhook. Both funnel into the same compare-and-swap on the
// transaction row, so exactly one trigger applies the side effects and the
// other observes an already-settled transaction.
type ReconcileService struct {
	store     Store
	gw        gateway.Gateway
	breaker   *utils.CircuitBreaker
	inventory *InventoryService
	issuer    *TicketIssuer
	notifier  Publisher
	reserved  *ReservationIndex
	cfg       *config.Config
}

func NewReconcileService(
	store Store,
	gw gateway.Gateway,
	inventory *InventoryService,
	issuer *TicketIssuer,
	notifier Publisher,
	reserved *ReservationIndex,
	cfg *config.Config,
) *ReconcileService {
	return &ReconcileService{
		store:     store,
		gw:        gw,
		breaker:   utils.NewCircuitBreaker("payment-gateway-verify"),
		inventory: inventory,
		issuer:    issuer,
		notifier:  notifier,
		reserved:  reserved,
		cfg:       cfg,
	}
}

// VerifyByReference asks the gateway for the charge outcome and applies it.
// A gateway outage leaves the transaction pending: unknown is not failure,
// and a later verify or webhook will settle it.
func (s *ReconcileService) VerifyByReference(ctx context.Context, reference string) (*ReconcileResult, error) {
	txn, err := s.store.GetTransactionByReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	if txn.Terminal() {
		monitoring.TrackReconciliation("verify", OutcomeAlreadySettled)
		return s.settledResult(ctx, txn)
	}

	started := time.Now()
	result, err := s.breaker.Execute(ctx, func() (interface{}, error) {
		return s.gw.Verify(ctx, reference)
	})
	monitoring.TrackGatewayCall("verify", err, time.Since(started))
	if err != nil {
		slog.Warn("reconcile: verify unavailable, transaction stays pending",
			"reference", reference, "error", err)
		monitoring.TrackReconciliation("verify", OutcomeStillPending)
		if errors.Is(err, status.ErrGateway) || errors.Is(err, status.ErrUnknownReference) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", status.ErrGateway, err)
	}
	charge := result.(*gateway.ChargeResult)

	paidAt, _ := time.Parse(time.RFC3339, charge.PaidAt)
	res, err := s.apply(ctx, "verify", WebhookEvent{
		Type:      chargeEventType(charge.Status),
		Reference: charge.Reference,
		Amount:    charge.Amount,
		Channel:   charge.Channel,
		Response:  charge.GatewayResponse,
		PaidAt:    paidAt,
	})
	return res, err
}

// HandleWebhook applies a signature-verified gateway notification. Unknown
// references are reported as such; the transport layer still acknowledges
// them so the gateway stops retrying deliveries we can never match.
func (s *ReconcileService) HandleWebhook(ctx context.Context, ev WebhookEvent) (*ReconcileResult, error) {
	switch ev.Type {
	case WebhookChargeSuccess, WebhookChargeFailed:
		res, err := s.apply(ctx, "webhook", ev)
		monitoring.TrackWebhookEvent(ev.Type, webhookResult(res, err))
		return res, err
	case WebhookRefundProcessed:
		res, err := s.finalizeRefund(ctx, ev)
		monitoring.TrackWebhookEvent(ev.Type, webhookResult(res, err))
		return res, err
	default:
		monitoring.TrackWebhookEvent(ev.Type, "ignored")
		slog.Info("reconcile: ignoring webhook event", "type", ev.Type, "reference", ev.Reference)
		return &ReconcileResult{Reference: ev.Reference, Outcome: "ignored"}, nil
	}
}

// apply runs the settlement transaction. The transaction row is re-read
// inside the unit of work and the pending -> terminal move is a conditional
// write, so concurrent verify and webhook callers cannot both win.
func (s *ReconcileService) apply(ctx context.Context, source string, ev WebhookEvent) (*ReconcileResult, error) {
	var (
		res       *ReconcileResult
		confirmed *models.Booking
		failed    *models.Booking
		tickets   []models.Ticket
	)

	err := s.store.WithinTx(ctx, func(tx Tx) error {
		txn, err := tx.GetTransactionByReference(ctx, ev.Reference)
		if err != nil {
			return err
		}
		if txn.Terminal() {
			res = &ReconcileResult{Reference: ev.Reference, Outcome: OutcomeAlreadySettled}
			return nil
		}

		settle := TxSettle{
			Channel:         ev.Channel,
			GatewayResponse: ev.Response,
			SettledAt:       settledAt(ev),
		}

		if ev.Type == WebhookChargeSuccess && ev.Amount != txn.Amount {
			// The gateway settled a different amount than we asked for.
			// Never confirm on a mismatch; fail the attempt loudly.
			slog.Error("reconcile: amount mismatch",
				"reference", ev.Reference, "expected", txn.Amount, "settled", ev.Amount)
			settle.GatewayResponse = fmt.Sprintf("amount mismatch: expected %d, settled %d", txn.Amount, ev.Amount)
			ev.Type = WebhookChargeFailed
		}

		if ev.Type == WebhookChargeSuccess {
			won, err := tx.CompleteTransaction(ctx, ev.Reference, settle)
			if err != nil {
				return err
			}
			if !won {
				res = &ReconcileResult{Reference: ev.Reference, Outcome: OutcomeAlreadySettled}
				return nil
			}

			booking, err := tx.GetBooking(ctx, txn.BookingID)
			if err != nil {
				return err
			}
			if _, err := tx.MarkBookingConfirmedPaid(ctx, booking.ID); err != nil {
				return err
			}
			booking.Status = models.BookingConfirmed
			booking.PaymentStatus = models.PaymentCompleted

			tickets, err = s.issuer.Issue(ctx, tx, booking)
			if err != nil {
				return err
			}

			if err := tx.ApplyAggregates(ctx, booking.EventID, models.AggregateDelta{
				Attendees: booking.TotalQuantity(),
				Bookings:  1,
				Revenue:   booking.TotalAmount,
			}); err != nil {
				return err
			}

			confirmed = booking
			res = &ReconcileResult{
				Reference: ev.Reference,
				Outcome:   OutcomeConfirmed,
				Booking:   booking,
				Tickets:   tickets,
			}
			return nil
		}

		// Charge failed.
		won, err := tx.FailTransaction(ctx, ev.Reference, settle)
		if err != nil {
			return err
		}
		if !won {
			res = &ReconcileResult{Reference: ev.Reference, Outcome: OutcomeAlreadySettled}
			return nil
		}

		booking, err := tx.GetBooking(ctx, txn.BookingID)
		if err != nil {
			return err
		}
		if _, err := tx.MarkBookingPaymentFailed(ctx, booking.ID); err != nil {
			return err
		}
		booking.PaymentStatus = models.PaymentFailed

		if err := s.inventory.Release(ctx, tx, booking.EventID, booking.TicketDetails); err != nil {
			return err
		}

		failed = booking
		res = &ReconcileResult{
			Reference: ev.Reference,
			Outcome:   OutcomeFailed,
			Booking:   booking,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Side effects only after the winning settlement committed.
	switch {
	case confirmed != nil:
		s.reserved.Forget(ctx, confirmed.ID)
		monitoring.TrackReconciliation(source, OutcomeConfirmed)
		monitoring.TrackBooking("paid", "confirmed")
		s.notifier.BookingConfirmed(ctx, confirmed, tickets)
	case failed != nil:
		s.reserved.Forget(ctx, failed.ID)
		monitoring.TrackReconciliation(source, OutcomeFailed)
		monitoring.TrackReservationReleased("payment_failed")
		s.notifier.PaymentFailed(ctx, failed, ev.Reference)
	default:
		monitoring.TrackReconciliation(source, OutcomeAlreadySettled)
	}

	return res, nil
}

// finalizeRefund settles a previously requested refund: the transaction moves
// completed -> refunded and the booking's cancelled tickets flip to refund
// settled. Redelivered refund webhooks lose the conditional write and no-op.
func (s *ReconcileService) finalizeRefund(ctx context.Context, ev WebhookEvent) (*ReconcileResult, error) {
	var res *ReconcileResult

	err := s.store.WithinTx(ctx, func(tx Tx) error {
		txn, err := tx.GetTransactionByReference(ctx, ev.Reference)
		if err != nil {
			return err
		}

		amount := ev.Amount
		if amount == 0 {
			amount = txn.RefundAmount
		}

		won, err := tx.RefundTransaction(ctx, ev.Reference, amount)
		if err != nil {
			return err
		}
		if !won {
			res = &ReconcileResult{Reference: ev.Reference, Outcome: OutcomeAlreadySettled}
			return nil
		}

		if err := tx.MarkTicketsRefundSettled(ctx, txn.BookingID); err != nil {
			return err
		}

		res = &ReconcileResult{Reference: ev.Reference, Outcome: OutcomeRefunded}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// settledResult reconstructs the caller-facing answer for a transaction that
// settled on an earlier attempt.
func (s *ReconcileService) settledResult(ctx context.Context, txn *models.Transaction) (*ReconcileResult, error) {
	booking, err := s.store.GetBooking(ctx, txn.BookingID)
	if err != nil {
		return nil, err
	}

	res := &ReconcileResult{
		Reference: txn.Reference,
		Outcome:   OutcomeAlreadySettled,
		Booking:   booking,
	}
	if txn.Status == models.TxCompleted || txn.Status == models.TxRefunded {
		if tickets, err := s.store.ListTicketsByBooking(ctx, booking.ID); err == nil {
			res.Tickets = tickets
		}
	}
	return res, nil
}

func chargeEventType(chargeStatus string) string {
	if chargeStatus == gateway.ChargeSuccess {
		return WebhookChargeSuccess
	}
	return WebhookChargeFailed
}

func settledAt(ev WebhookEvent) time.Time {
	if !ev.PaidAt.IsZero() {
		return ev.PaidAt
	}
	return time.Now()
}

func webhookResult(res *ReconcileResult, err error) string {
	if err != nil {
		return "error"
	}
	if res == nil {
		return "error"
	}
	return res.Outcome
}
