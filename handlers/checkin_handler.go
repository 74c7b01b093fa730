package handlers

import (
	"net/http"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"

	"tickethub/services"
)

type CheckInHandler struct {
	app     *pocketbase.PocketBase
	checkin *services.CheckInService
}

func NewCheckInHandler(app *pocketbase.PocketBase, checkin *services.CheckInService) *CheckInHandler {
	return &CheckInHandler{app: app, checkin: checkin}
}

// CheckIn - POST /api/v1/events/{eventId}/check-in/{ticketId}
func (h *CheckInHandler) CheckIn(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	var req struct {
		Secret   string `json:"secret"`
		Location string `json:"location"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}

	ticket, err := h.checkin.CheckIn(e.Request.Context(), services.CheckInRequest{
		EventID:     e.Request.PathValue("eventId"),
		TicketID:    e.Request.PathValue("ticketId"),
		Secret:      req.Secret,
		ValidatorID: e.Auth.Id,
		Location:    req.Location,
	})
	if err != nil {
		return apiError(err)
	}

	return e.JSON(http.StatusOK, map[string]any{
		"admitted": true,
		"ticket":   ticket,
	})
}
