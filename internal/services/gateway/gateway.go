package gateway

import (
	"context"
)

// Provider identifies a payment gateway implementation.
type Provider string

const (
	ProviderPaystack Provider = "paystack"
)

// Charge outcomes reported by the gateway.
const (
	ChargeSuccess = "success"
	ChargeFailed  = "failed"
)

// InitializeRequest starts a hosted checkout for a booking.
type InitializeRequest struct {
	Email       string            `json:"email"`
	Amount      int64             `json:"amount"` // minor units
	Currency    string            `json:"currency"`
	Reference   string            `json:"reference"`
	CallbackURL string            `json:"callback_url"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// InitializeResult is the authorization handed back to the buyer's client.
type InitializeResult struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
}

// ChargeResult is the gateway's authoritative outcome for a reference.
type ChargeResult struct {
	Reference       string `json:"reference"`
	Status          string `json:"status"` // success, failed
	Amount          int64  `json:"amount"` // minor units
	Channel         string `json:"channel"`
	GatewayResponse string `json:"gateway_response"`
	PaidAt          string `json:"paid_at,omitempty"`
}

// RefundRequest asks the gateway to return money for a settled charge.
// Amount zero means a full refund.
type RefundRequest struct {
	Reference string `json:"transaction"`
	Amount    int64  `json:"amount,omitempty"` // minor units
}

// Gateway is the contract every payment provider adapter satisfies. All
// calls carry a bounded timeout; a timeout is an unknown outcome, never an
// assumed failure.
type Gateway interface {
	// GetProvider returns the gateway provider type.
	GetProvider() Provider

	// Initialize creates a payment session for the reference.
	Initialize(ctx context.Context, req *InitializeRequest) (*InitializeResult, error)

	// Verify fetches the authoritative charge outcome for a reference.
	Verify(ctx context.Context, reference string) (*ChargeResult, error)

	// Refund initiates an asynchronous refund for a completed charge.
	Refund(ctx context.Context, req *RefundRequest) error

	// ValidWebhook reports whether signature matches the raw webhook body.
	ValidWebhook(body []byte, signature string) bool
}
