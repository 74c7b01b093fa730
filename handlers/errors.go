package handlers

import (
	"errors"
	"net/http"

	"github.com/pocketbase/pocketbase/apis"

	"tickethub/internal/status"
)

// apiError maps the service error taxonomy onto HTTP responses. Inventory
// shortages carry the full per-tier breakdown so clients can re-render
// availability without a second call.
func apiError(err error) error {
	var short *status.InsufficientInventoryError
	if errors.As(err, &short) {
		return apis.NewApiError(http.StatusConflict, "insufficient inventory", map[string]any{
			"shortages": short.Shortages,
		})
	}

	switch {
	case errors.Is(err, status.ErrValidation):
		return apis.NewBadRequestError(err.Error(), nil)
	case errors.Is(err, status.ErrAuthorization):
		return apis.NewForbiddenError("access denied", nil)
	case errors.Is(err, status.ErrNotFound), errors.Is(err, status.ErrUnknownReference):
		return apis.NewNotFoundError(err.Error(), nil)
	case errors.Is(err, status.ErrConflict):
		return apis.NewApiError(http.StatusConflict, err.Error(), nil)
	case errors.Is(err, status.ErrGateway):
		return apis.NewApiError(http.StatusBadGateway, "payment gateway unavailable", nil)
	default:
		return apis.NewApiError(http.StatusInternalServerError, "something went wrong", nil)
	}
}
