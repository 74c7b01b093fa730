package models

import (
	"time"
)

// Ticket statuses.
const (
	TicketConfirmed = "confirmed"
	TicketUsed      = "used"
	TicketCancelled = "cancelled"
	TicketExpired   = "expired"
)

// Ticket refund sub-states.
const (
	RefundNone      = ""
	RefundRequested = "requested"
	RefundSettled   = "settled"
)

// CheckIn records who validated a ticket, when and where.
type CheckIn struct {
	ValidatorID string    `json:"validator_id"`
	At          time.Time `json:"at"`
	Location    string    `json:"location,omitempty"`
}

// Ticket is the unit of admission: one per purchased seat, owned by exactly
// one booking, each independently check-in-able.
type Ticket struct {
	ID        string `json:"id"`
	Number    string `json:"number"`
	BookingID string `json:"booking_id"`
	OwnerID   string `json:"owner_id"`
	EventID   string `json:"event_id"`
	Tier      string `json:"tier"`
	Price     int64  `json:"price"` // minor units
	Status    string `json:"status"`

	// QRPayload is handed to the buyer; SecretHash is the bcrypt hash of the
	// secret embedded in it. The plain secret is never stored.
	QRPayload  string `json:"qr_payload"`
	SecretHash string `json:"-"`

	RefundState string    `json:"refund_state,omitempty"`
	CheckIn     *CheckIn  `json:"check_in,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Checkable reports whether the ticket can still be checked in.
func (t *Ticket) Checkable() bool {
	return t.Status == TicketConfirmed
}
