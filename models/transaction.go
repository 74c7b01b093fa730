package models

import (
	"time"
)

// Transaction statuses. The only legal transitions out of pending are
// performed by the reconciler, exactly once per reference.
const (
	TxPending   = "pending"
	TxCompleted = "completed"
	TxFailed    = "failed"
	TxRefunded  = "refunded"
)

// Transaction is one payment attempt against a paid booking. Reference is
// globally unique, client-generated, and the idempotency boundary between
// the local system and the external gateway.
type Transaction struct {
	ID        string `json:"id"`
	Reference string `json:"reference"`
	BookingID string `json:"booking_id"`
	Amount    int64  `json:"amount"` // minor units
	Currency  string `json:"currency"`
	Status    string `json:"status"`

	AuthorizationURL string `json:"authorization_url,omitempty"`
	AccessCode       string `json:"access_code,omitempty"`
	Channel          string `json:"channel,omitempty"`
	GatewayResponse  string `json:"gateway_response,omitempty"`

	RefundAmount int64     `json:"refund_amount,omitempty"` // minor units
	CreatedAt    time.Time `json:"created_at"`
	SettledAt    time.Time `json:"settled_at,omitempty"`
}

// Terminal reports whether the transaction reached a state from which no
// further automatic transition occurs.
func (t *Transaction) Terminal() bool {
	switch t.Status {
	case TxCompleted, TxFailed, TxRefunded:
		return true
	}
	return false
}
