package models

import (
	"time"
)

// Booking lifecycle statuses.
const (
	BookingPending   = "pending"
	BookingConfirmed = "confirmed"
	BookingCancelled = "cancelled"
)

// Booking payment statuses.
const (
	PaymentFree            = "free"
	PaymentPending         = "pending"
	PaymentCompleted       = "completed"
	PaymentFailed          = "failed"
	PaymentRefundRequested = "refund-requested"
)

// TicketDetail is one line of the ordered tier/quantity/unit-price breakdown.
type TicketDetail struct {
	Tier      string `json:"tier"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"unit_price"` // minor units
}

// EventSnapshot is the immutable copy of event metadata taken at booking
// time, so later event edits never retroactively change a receipt.
type EventSnapshot struct {
	Name      string    `json:"name"`
	Venue     string    `json:"venue"`
	StartTime time.Time `json:"start_time"`
	Currency  string    `json:"currency"`
}

// Booking is the order aggregate: one per purchase attempt. Created by the
// orchestrator, mutated only by the reconciler or the cancellation workflow,
// never deleted.
type Booking struct {
	ID            string         `json:"id"`
	Code          string         `json:"code"` // human-facing order identifier
	BuyerID       string         `json:"buyer_id"`
	OrganizerID   string         `json:"organizer_id"`
	EventID       string         `json:"event_id"`
	TicketDetails []TicketDetail `json:"ticket_details"`
	Subtotal      int64          `json:"subtotal"`     // minor units
	ServiceFee    int64          `json:"service_fee"`  // minor units
	TotalAmount   int64          `json:"total_amount"` // minor units
	Currency      string         `json:"currency"`
	Status        string         `json:"status"`
	PaymentStatus string         `json:"payment_status"`
	EventSnapshot EventSnapshot  `json:"event_snapshot"`
	CreatedAt     time.Time      `json:"created_at"`
}

// TotalQuantity sums the ordered units across tiers.
func (b *Booking) TotalQuantity() int {
	n := 0
	for _, d := range b.TicketDetails {
		n += d.Quantity
	}
	return n
}

// IsFree reports whether the booking took the free path.
func (b *Booking) IsFree() bool {
	return b.PaymentStatus == PaymentFree
}

// ListingKind discriminates the records merged into a buyer's history
// listing.
type ListingKind string

const (
	ListingBooking      ListingKind = "booking"
	ListingLegacyTicket ListingKind = "legacy_ticket"
)

// ListingEntry is the normalized variant returned by history endpoints: a
// modern multi-ticket booking or a pre-tier single ticket record, tagged with
// an explicit discriminant instead of field-by-field coalescing.
type ListingEntry struct {
	Kind        ListingKind `json:"kind"`
	ID          string      `json:"id"`
	EventID     string      `json:"event_id"`
	EventName   string      `json:"event_name"`
	Quantity    int         `json:"quantity"`
	TotalAmount int64       `json:"total_amount"`
	Status      string      `json:"status"`
	CreatedAt   time.Time   `json:"created_at"`
}
