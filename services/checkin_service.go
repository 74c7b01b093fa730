package services

import (
	"context"
	"strings"
	"time"

	"tickethub/internal/status"
	"tickethub/models"
	"tickethub/monitoring"
)

// CheckInRequest carries what the gate scanner presents.
type CheckInRequest struct {
	EventID     string `json:"event_id"`
	TicketID    string `json:"ticket_id"`
	Secret      string `json:"secret"`
	ValidatorID string `json:"validator_id"`
	Location    string `json:"location,omitempty"`
}

// CheckInService validates tickets at the door. A ticket admits exactly one
// entry: the used flip is a conditional write, and losing it is reported
// loudly so the gate operator sees the duplicate scan.
type CheckInService struct {
	store Store
}

func NewCheckInService(store Store) *CheckInService {
	return &CheckInService{store: store}
}

// CheckIn marks the ticket used. Only the event's organizer may validate, and
// only while the event is not over.
func (s *CheckInService) CheckIn(ctx context.Context, req CheckInRequest) (*models.Ticket, error) {
	ticket, err := s.store.GetTicket(ctx, req.TicketID)
	if err != nil {
		monitoring.TrackCheckIn("not_found")
		return nil, err
	}
	if ticket.EventID != req.EventID {
		monitoring.TrackCheckIn("wrong_event")
		return nil, status.Validationf("ticket %s does not belong to event %s", req.TicketID, req.EventID)
	}

	event, err := s.store.GetEvent(ctx, ticket.EventID)
	if err != nil {
		return nil, err
	}
	if event.OrganizerID != req.ValidatorID {
		monitoring.TrackCheckIn("unauthorized")
		return nil, status.ErrAuthorization
	}
	if event.Finished(time.Now()) {
		monitoring.TrackCheckIn("event_over")
		return nil, status.Conflictf("event %s is over, check-in closed", event.ID)
	}

	if !ticket.Checkable() {
		monitoring.TrackCheckIn("not_checkable")
		if ticket.Status == models.TicketUsed {
			return nil, alreadyUsed(ticket)
		}
		return nil, status.Conflictf("ticket %s is %s", ticket.Number, ticket.Status)
	}

	if !VerifySecret(ticket, qrSecret(req.Secret)) {
		monitoring.TrackCheckIn("bad_secret")
		return nil, status.Validationf("ticket secret does not match")
	}

	ci := models.CheckIn{
		ValidatorID: req.ValidatorID,
		At:          time.Now(),
		Location:    req.Location,
	}
	won, err := s.store.MarkTicketUsed(ctx, ticket.ID, ci)
	if err != nil {
		return nil, err
	}
	if !won {
		// Lost the race to a concurrent scan of the same ticket.
		monitoring.TrackCheckIn("already_used")
		current, err := s.store.GetTicket(ctx, ticket.ID)
		if err != nil {
			return nil, err
		}
		return nil, alreadyUsed(current)
	}

	monitoring.TrackCheckIn("admitted")
	ticket.Status = models.TicketUsed
	ticket.CheckIn = &ci
	return ticket, nil
}

func alreadyUsed(t *models.Ticket) error {
	if t.CheckIn != nil {
		return status.Conflictf("ticket %s already used at %s", t.Number, t.CheckIn.At.Format(time.RFC3339))
	}
	return status.Conflictf("ticket %s already used", t.Number)
}

// qrSecret accepts either the bare secret or the full "number.secret" QR
// payload.
func qrSecret(presented string) string {
	if i := strings.LastIndex(presented, "."); i >= 0 {
		return presented[i+1:]
	}
	return presented
}
