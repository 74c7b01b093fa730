package handlers

import (
	"net/http"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"

	"tickethub/services"
)

type EventHandler struct {
	app       *pocketbase.PocketBase
	inventory *services.InventoryService
}

func NewEventHandler(app *pocketbase.PocketBase, inventory *services.InventoryService) *EventHandler {
	return &EventHandler{app: app, inventory: inventory}
}

// GetAvailability - GET /api/v1/events/{eventId}/availability
//
// Public and cache-backed; the numbers are advisory, booking is what
// allocates.
func (h *EventHandler) GetAvailability(e *core.RequestEvent) error {
	eventID := e.Request.PathValue("eventId")

	tiers, err := h.inventory.GetAvailability(e.Request.Context(), eventID)
	if err != nil {
		return apiError(err)
	}

	return e.JSON(http.StatusOK, map[string]any{
		"event_id": eventID,
		"tiers":    tiers,
	})
}
