package services

import (
	"context"
	"fmt"
	"log/slog"

	pubnub "github.com/pubnub/go/v7"

	"tickethub/models"
)

// Publisher is the injected realtime publish interface the orchestrator and
// reconciler call after confirmed state transitions. Implementations are
// fire-and-forget: failures are logged and swallowed, they never roll back a
// booking or payment confirmation.
type Publisher interface {
	BookingConfirmed(ctx context.Context, b *models.Booking, tickets []models.Ticket)
	PaymentFailed(ctx context.Context, b *models.Booking, reference string)
	BookingCancelled(ctx context.Context, b *models.Booking, refundAmount int64)
}

// PubNubPublisher pushes booking lifecycle messages to per-user and
// per-organizer channels.
type PubNubPublisher struct {
	pn *pubnub.PubNub
}

func NewPubNubPublisher(pn *pubnub.PubNub) *PubNubPublisher {
	return &PubNubPublisher{pn: pn}
}

func (p *PubNubPublisher) BookingConfirmed(ctx context.Context, b *models.Booking, tickets []models.Ticket) {
	numbers := make([]string, 0, len(tickets))
	for _, t := range tickets {
		numbers = append(numbers, t.Number)
	}

	p.publish(fmt.Sprintf("user-%s", b.BuyerID), map[string]any{
		"type":       "booking_confirmed",
		"booking_id": b.ID,
		"event_id":   b.EventID,
		"tickets":    numbers,
	})
	p.publish(fmt.Sprintf("organizer-%s", b.OrganizerID), map[string]any{
		"type":       "booking_confirmed",
		"booking_id": b.ID,
		"event_id":   b.EventID,
		"quantity":   b.TotalQuantity(),
	})
}

func (p *PubNubPublisher) PaymentFailed(ctx context.Context, b *models.Booking, reference string) {
	p.publish(fmt.Sprintf("user-%s", b.BuyerID), map[string]any{
		"type":       "payment_failed",
		"booking_id": b.ID,
		"reference":  reference,
	})
}

func (p *PubNubPublisher) BookingCancelled(ctx context.Context, b *models.Booking, refundAmount int64) {
	p.publish(fmt.Sprintf("user-%s", b.BuyerID), map[string]any{
		"type":          "booking_cancelled",
		"booking_id":    b.ID,
		"refund_amount": refundAmount,
	})
	p.publish(fmt.Sprintf("organizer-%s", b.OrganizerID), map[string]any{
		"type":       "booking_cancelled",
		"booking_id": b.ID,
		"event_id":   b.EventID,
	})
}

func (p *PubNubPublisher) publish(channel string, message map[string]any) {
	_, st, err := p.pn.Publish().
		Channel(channel).
		Message(message).
		Execute()
	if err != nil {
		slog.Error("notifier: publish failed", "channel", channel, "status", st.StatusCode, "error", err)
	}
}

// NoopPublisher drops every notification. Used in tests and when PubNub is
// not configured.
type NoopPublisher struct{}

func (NoopPublisher) BookingConfirmed(context.Context, *models.Booking, []models.Ticket) {}
func (NoopPublisher) PaymentFailed(context.Context, *models.Booking, string)             {}
func (NoopPublisher) BookingCancelled(context.Context, *models.Booking, int64)           {}
