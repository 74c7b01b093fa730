package handlers

import (
	"net/http"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"

	"tickethub/services"
)

type BookingHandler struct {
	app            *pocketbase.PocketBase
	bookingService *services.BookingService
	cancelService  *services.CancellationService
}

func NewBookingHandler(app *pocketbase.PocketBase, bookingService *services.BookingService, cancelService *services.CancellationService) *BookingHandler {
	return &BookingHandler{
		app:            app,
		bookingService: bookingService,
		cancelService:  cancelService,
	}
}

// Book - POST /api/v1/events/{eventId}/book
func (h *BookingHandler) Book(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	var req struct {
		Lines []services.BookingLine `json:"lines"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}

	res, err := h.bookingService.CreateBooking(e.Request.Context(), services.CreateBookingRequest{
		BuyerID:    e.Auth.Id,
		BuyerEmail: e.Auth.GetString("email"),
		EventID:    e.Request.PathValue("eventId"),
		Lines:      req.Lines,
	})
	if err != nil {
		return apiError(err)
	}

	code := http.StatusCreated
	if res.RequiresPayment {
		// Payment still outstanding: the client must follow the
		// authorization URL before the reservation window closes.
		code = http.StatusAccepted
	}
	return e.JSON(code, res)
}

// PayAgain - POST /api/v1/bookings/{bookingId}/pay
func (h *BookingHandler) PayAgain(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	res, err := h.bookingService.PayAgain(
		e.Request.Context(),
		e.Request.PathValue("bookingId"),
		e.Auth.Id,
		e.Auth.GetString("email"),
	)
	if err != nil {
		return apiError(err)
	}
	return e.JSON(http.StatusOK, res)
}

// GetBooking - GET /api/v1/bookings/{bookingId}
func (h *BookingHandler) GetBooking(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	booking, tickets, err := h.bookingService.GetBooking(
		e.Request.Context(),
		e.Request.PathValue("bookingId"),
		e.Auth.Id,
	)
	if err != nil {
		return apiError(err)
	}

	return e.JSON(http.StatusOK, map[string]any{
		"booking": booking,
		"tickets": tickets,
	})
}

// Cancel - DELETE /api/v1/bookings/{bookingId}
func (h *BookingHandler) Cancel(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	res, err := h.cancelService.Cancel(
		e.Request.Context(),
		e.Request.PathValue("bookingId"),
		e.Auth.Id,
	)
	if err != nil {
		return apiError(err)
	}
	return e.JSON(http.StatusOK, res)
}

// History - GET /api/v1/booking/history
func (h *BookingHandler) History(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	limit := 20
	if raw := e.Request.URL.Query().Get("limit"); raw != "" {
		if n, err := parsePositiveInt(raw); err == nil {
			limit = n
		}
	}

	entries, err := h.bookingService.History(e.Request.Context(), e.Auth.Id, limit)
	if err != nil {
		return apiError(err)
	}
	return e.JSON(http.StatusOK, map[string]any{"entries": entries})
}
