package paystack

import (
	"context"
	"time"

	"tickethub/internal/services/gateway"
)

type Config struct {
	BaseURL       string `json:"baseUrl" mapstructure:"base_url"`
	SecretKey     string `json:"secretKey" mapstructure:"secret_key"`
	WebhookSecret string `json:"webhookSecret" mapstructure:"webhook_secret"`

	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`
}

// Paystack adapts the Paystack HTTP API to the gateway contract.
type Paystack struct {
	webhookSecret string

	client *Client
}

// New returns a new Paystack instance.
func New(_ context.Context, cfg *Config) (*Paystack, error) {
	client := newClient(&ClientConfig{
		BaseURL:   cfg.BaseURL,
		SecretKey: cfg.SecretKey,
		Timeout:   cfg.Timeout,
	})

	webhookSecret := cfg.WebhookSecret
	if webhookSecret == "" {
		// Paystack signs webhooks with the account secret key.
		webhookSecret = cfg.SecretKey
	}

	return &Paystack{
		webhookSecret: webhookSecret,
		client:        client,
	}, nil
}

func (p *Paystack) GetProvider() gateway.Provider {
	return gateway.ProviderPaystack
}

func (p *Paystack) Initialize(ctx context.Context, req *gateway.InitializeRequest) (*gateway.InitializeResult, error) {
	return p.client.initializeTransaction(ctx, req)
}

func (p *Paystack) Verify(ctx context.Context, reference string) (*gateway.ChargeResult, error) {
	return p.client.verifyTransaction(ctx, reference)
}

func (p *Paystack) Refund(ctx context.Context, req *gateway.RefundRequest) error {
	return p.client.createRefund(ctx, req)
}

// ValidWebhook verifies the x-paystack-signature header: HMAC-SHA512 of the
// raw JSON body with the shared secret, hex encoded.
func (p *Paystack) ValidWebhook(body []byte, signature string) bool {
	return VerifySignature(body, signature, []byte(p.webhookSecret))
}
