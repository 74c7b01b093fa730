package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"

	"tickethub/internal/services/gateway"
	"tickethub/internal/status"
	"tickethub/services"
)

type TransactionHandler struct {
	app       *pocketbase.PocketBase
	reconcile *services.ReconcileService
	gw        gateway.Gateway
}

func NewTransactionHandler(app *pocketbase.PocketBase, reconcile *services.ReconcileService, gw gateway.Gateway) *TransactionHandler {
	return &TransactionHandler{
		app:       app,
		reconcile: reconcile,
		gw:        gw,
	}
}

// Verify - GET /api/v1/transactions/verify/{reference}
//
// Public: the buyer lands here from the gateway redirect, possibly in a
// fresh browser session. The reference alone identifies the transaction and
// leaks nothing actionable.
func (h *TransactionHandler) Verify(e *core.RequestEvent) error {
	reference := e.Request.PathValue("reference")
	if reference == "" {
		return apis.NewBadRequestError("Missing reference", nil)
	}

	res, err := h.reconcile.VerifyByReference(e.Request.Context(), reference)
	if err != nil {
		return apiError(err)
	}
	return e.JSON(http.StatusOK, res)
}

// webhookPayload is the gateway's delivery envelope.
type webhookPayload struct {
	Event string `json:"event"`
	Data  struct {
		Reference       string `json:"reference"`
		Status          string `json:"status"`
		Amount          int64  `json:"amount"`
		Channel         string `json:"channel"`
		GatewayResponse string `json:"gateway_response"`
		PaidAt          string `json:"paid_at"`
		Transaction     struct {
			Reference string `json:"reference"`
		} `json:"transaction"`
	} `json:"data"`
}

// Webhook - POST /api/v1/webhooks/paystack
//
// The signature covers the raw body, so the body is read before any JSON
// decoding. Deliveries for references this system never issued are
// acknowledged with 200 to stop the gateway's retry loop.
func (h *TransactionHandler) Webhook(e *core.RequestEvent) error {
	body, err := io.ReadAll(e.Request.Body)
	if err != nil {
		return apis.NewBadRequestError("Unreadable body", err)
	}

	signature := e.Request.Header.Get("x-paystack-signature")
	if !h.gw.ValidWebhook(body, signature) {
		slog.Warn("webhook: rejected invalid signature", "remote", e.Request.RemoteAddr)
		return apis.NewForbiddenError("Invalid signature", nil)
	}

	var payload webhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return apis.NewBadRequestError("Invalid payload", err)
	}

	ev := services.WebhookEvent{
		Type:      payload.Event,
		Reference: payload.Data.Reference,
		Amount:    payload.Data.Amount,
		Channel:   payload.Data.Channel,
		Response:  payload.Data.GatewayResponse,
	}
	if payload.Event == services.WebhookRefundProcessed && payload.Data.Transaction.Reference != "" {
		// Refund events carry the original charge under data.transaction.
		ev.Reference = payload.Data.Transaction.Reference
	}
	if t, err := time.Parse(time.RFC3339, payload.Data.PaidAt); err == nil {
		ev.PaidAt = t
	}

	res, err := h.reconcile.HandleWebhook(e.Request.Context(), ev)
	if err != nil {
		slog.Error("webhook: reconcile failed", "event", payload.Event, "reference", ev.Reference, "error", err)
		// Unknown references are final: acknowledge so the gateway stops
		// redelivering. Transient failures get a retry via 500.
		if res == nil && isFinalWebhookError(err) {
			return e.JSON(http.StatusOK, map[string]any{"status": "ignored"})
		}
		return apiError(err)
	}

	return e.JSON(http.StatusOK, res)
}

func isFinalWebhookError(err error) bool {
	return errors.Is(err, status.ErrUnknownReference)
}

func parsePositiveInt(raw string) (int, error) {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, strconv.ErrRange
	}
	return n, nil
}
