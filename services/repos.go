package services

import (
	"context"
	"time"

	"tickethub/models"
)

// EventStore reads events and applies relative counter deltas.
type EventStore interface {
	GetEvent(ctx context.Context, id string) (*models.Event, error)

	// ApplyAggregates adds d to the event counters. Negative deltas floor
	// at zero.
	ApplyAggregates(ctx context.Context, eventID string, d models.AggregateDelta) error
}

// InventoryStore mutates per-tier capacity. All mutations are relative
// deltas applied as atomic conditional writes at the storage layer; there is
// deliberately no read-modify-write entry point.
type InventoryStore interface {
	ListTiers(ctx context.Context, eventID string) ([]models.TicketTier, error)
	GetTierByName(ctx context.Context, eventID, name string) (*models.TicketTier, error)

	// Reserve decrements remaining by qty iff remaining >= qty. Returns
	// false without mutating anything when the tier is short. An empty tier
	// name addresses the event's legacy single-price inventory.
	Reserve(ctx context.Context, eventID, tier string, qty int) (bool, error)

	// Release increments remaining by qty, capped at capacity.
	Release(ctx context.Context, eventID, tier string, qty int) error
}

// BookingStore persists the order aggregate. Status moves are compare-and-
// swap: they report false when the record was not in the expected state, and
// callers treat a lost swap as "someone else already did this".
type BookingStore interface {
	CreateBooking(ctx context.Context, b *models.Booking) error
	GetBooking(ctx context.Context, id string) (*models.Booking, error)
	ListBookingsByBuyer(ctx context.Context, buyerID string, limit int) ([]models.Booking, error)

	// ListExpiredPending returns pending bookings created before the cutoff.
	ListExpiredPending(ctx context.Context, before time.Time, limit int) ([]models.Booking, error)

	// MarkBookingConfirmedPaid: status pending -> confirmed, payment
	// pending -> completed.
	MarkBookingConfirmedPaid(ctx context.Context, id string) (bool, error)

	// MarkBookingPaymentFailed: payment pending -> failed; status stays
	// pending so the buyer can retry.
	MarkBookingPaymentFailed(ctx context.Context, id string) (bool, error)

	// MarkBookingPaymentPending: payment failed -> pending (pay-again).
	MarkBookingPaymentPending(ctx context.Context, id string) (bool, error)

	// MarkBookingCancelled: status confirmed -> cancelled; paymentStatus is
	// set when non-empty.
	MarkBookingCancelled(ctx context.Context, id, paymentStatus string) (bool, error)

	// MarkBookingExpired: status pending -> cancelled after the reservation
	// window lapsed.
	MarkBookingExpired(ctx context.Context, id string) (bool, error)
}

// TicketStore persists admission units.
type TicketStore interface {
	CreateTicket(ctx context.Context, t *models.Ticket) error
	GetTicket(ctx context.Context, id string) (*models.Ticket, error)
	ListTicketsByBooking(ctx context.Context, bookingID string) ([]models.Ticket, error)

	// ListLegacyByOwner returns pre-booking single tickets for the history
	// listing union.
	ListLegacyByOwner(ctx context.Context, ownerID string, limit int) ([]models.Ticket, error)

	// MarkTicketUsed: status confirmed -> used, recording check-in metadata.
	MarkTicketUsed(ctx context.Context, id string, ci models.CheckIn) (bool, error)

	// MarkTicketCancelled: status confirmed -> cancelled with the given
	// refund sub-state.
	MarkTicketCancelled(ctx context.Context, id, refundState string) (bool, error)

	// MarkTicketsRefundSettled flips refund state requested -> settled for
	// every cancelled ticket of the booking.
	MarkTicketsRefundSettled(ctx context.Context, bookingID string) error

	// ExpireTickets moves confirmed tickets of events finished before the
	// given time to expired. Returns the number of tickets flipped.
	ExpireTickets(ctx context.Context, before time.Time) (int, error)
}

// TxSettle carries the gateway's terminal details for a transaction.
type TxSettle struct {
	Channel         string
	GatewayResponse string
	SettledAt       time.Time
}

// TransactionStore persists payment attempts. CompleteTransaction and
// FailTransaction are the reconciler's compare-and-swap: exactly one caller
// wins the pending -> terminal move per reference.
type TransactionStore interface {
	CreateTransaction(ctx context.Context, t *models.Transaction) error
	GetTransactionByReference(ctx context.Context, reference string) (*models.Transaction, error)

	// FindPendingTransaction returns the booking's pending transaction, or
	// nil when there is none.
	FindPendingTransaction(ctx context.Context, bookingID string) (*models.Transaction, error)

	// FindCompletedTransaction returns the booking's completed transaction,
	// or nil when there is none. A booking has at most one.
	FindCompletedTransaction(ctx context.Context, bookingID string) (*models.Transaction, error)

	CompleteTransaction(ctx context.Context, reference string, s TxSettle) (bool, error)
	FailTransaction(ctx context.Context, reference string, s TxSettle) (bool, error)

	// MarkRefundRequested records the refund ask on a completed transaction.
	MarkRefundRequested(ctx context.Context, reference string, amount int64) error

	// RefundTransaction: status completed -> refunded, once.
	RefundTransaction(ctx context.Context, reference string, amount int64) (bool, error)
}

// Tx is the unit-of-work view over every store: all writes made through one
// Tx commit or abort together.
type Tx interface {
	EventStore
	InventoryStore
	BookingStore
	TicketStore
	TransactionStore
}

// UnitOfWork runs fn inside a single multi-document transaction. The Tx
// value makes the atomicity boundary explicit in the signature rather than
// implicit in call order.
type UnitOfWork interface {
	WithinTx(ctx context.Context, fn func(tx Tx) error) error
}

// Store is the full storage surface: direct (auto-commit) access plus the
// transaction entry point.
type Store interface {
	Tx
	UnitOfWork
}
