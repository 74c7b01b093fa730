package paystack

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"tickethub/internal/services/gateway"
	"tickethub/internal/status"
)

type ClientConfig struct {
	BaseURL   string        `json:"baseUrl" mapstructure:"base_url"`
	SecretKey string        `json:"secretKey" mapstructure:"secret_key"`
	Timeout   time.Duration `json:"timeout" mapstructure:"timeout"`
}

type Client struct {
	// baseURL is the base url of the Paystack backend.
	baseURL string

	// secretKey authenticates every call as a bearer token.
	secretKey string

	// hc is the http client.
	hc *http.Client
}

// newClient creates new instance of Paystack client.
func newClient(c *ClientConfig) *Client {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	return &Client{
		baseURL:   c.BaseURL,
		secretKey: c.SecretKey,

		// set http client with bounded timeout; a timeout is an unknown
		// outcome and must leave the local transaction pending.
		hc: &http.Client{
			Timeout: timeout,
		},
	}
}

// initializeTransaction calls Paystack's transaction/initialize endpoint.
func (c *Client) initializeTransaction(ctx context.Context, f *gateway.InitializeRequest) (*gateway.InitializeResult, error) {
	body, err := json.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("initializeTransaction: json.Marshal: %w", err)
	}

	var reply struct {
		Status  bool   `json:"status"`
		Message string `json:"message"`
		Data    struct {
			AuthorizationURL string `json:"authorization_url"`
			AccessCode       string `json:"access_code"`
			Reference        string `json:"reference"`
		} `json:"data"`
	}
	if err := c.do(ctx, http.MethodPost, "/transaction/initialize", body, &reply); err != nil {
		return nil, err
	}
	if !reply.Status {
		return nil, fmt.Errorf("%w: initializeTransaction: %s", status.ErrGateway, reply.Message)
	}

	return &gateway.InitializeResult{
		AuthorizationURL: reply.Data.AuthorizationURL,
		AccessCode:       reply.Data.AccessCode,
	}, nil
}

// verifyTransaction calls Paystack's transaction/verify endpoint.
func (c *Client) verifyTransaction(ctx context.Context, reference string) (*gateway.ChargeResult, error) {
	path := fmt.Sprintf("/transaction/verify/%s", url.PathEscape(reference))

	var reply struct {
		Status  bool   `json:"status"`
		Message string `json:"message"`
		Data    struct {
			Reference       string `json:"reference"`
			Status          string `json:"status"`
			Amount          int64  `json:"amount"`
			Channel         string `json:"channel"`
			GatewayResponse string `json:"gateway_response"`
			PaidAt          string `json:"paid_at"`
		} `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &reply); err != nil {
		return nil, err
	}
	if !reply.Status {
		return nil, fmt.Errorf("%w: verifyTransaction: %s", status.ErrGateway, reply.Message)
	}

	result := &gateway.ChargeResult{
		Reference:       reply.Data.Reference,
		Amount:          reply.Data.Amount,
		Channel:         reply.Data.Channel,
		GatewayResponse: reply.Data.GatewayResponse,
		PaidAt:          reply.Data.PaidAt,
	}
	switch reply.Data.Status {
	case "success":
		result.Status = gateway.ChargeSuccess
	default:
		// abandoned, failed, reversed: anything that is not success is a
		// failed charge from the reconciler's point of view.
		result.Status = gateway.ChargeFailed
	}

	return result, nil
}

// createRefund calls Paystack's refund endpoint. Refunds settle
// asynchronously; the refund webhook event finalizes local state.
func (c *Client) createRefund(ctx context.Context, f *gateway.RefundRequest) error {
	body, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("createRefund: json.Marshal: %w", err)
	}

	var reply struct {
		Status  bool   `json:"status"`
		Message string `json:"message"`
	}
	if err := c.do(ctx, http.MethodPost, "/refund", body, &reply); err != nil {
		return err
	}
	if !reply.Status {
		return fmt.Errorf("%w: createRefund: %s", status.ErrGateway, reply.Message)
	}

	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, reply any) error {
	_baseURL, err := url.Parse(c.baseURL)
	if err != nil {
		return fmt.Errorf("paystack: url.Parse: %w", err)
	}

	var reader *bytes.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, fmt.Sprintf("%s%s", _baseURL.String(), path), reader)
	if err != nil {
		return fmt.Errorf("paystack: http.NewReq: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.secretKey))

	resp, err := c.hc.Do(req)
	if err != nil {
		// Timeouts and transport failures are unknown outcomes.
		return fmt.Errorf("%w: %s %s: %v", status.ErrGateway, method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("%w: %s %s: 401 Unauthorized", status.ErrGateway, method, path)
	}
	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %s %s", status.ErrUnknownReference, method, path)
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("%w: %s %s: status %d", status.ErrGateway, method, path, resp.StatusCode)
	}

	dec := json.NewDecoder(resp.Body)
	if err := dec.Decode(reply); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%w: %s %s: %v", status.ErrGateway, method, path, err)
		}
		return fmt.Errorf("paystack: json.Decode: %w", err)
	}

	return nil
}
