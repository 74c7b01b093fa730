package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/core"

	"tickethub/models"
)

func (s *PBStore) CreateTicket(ctx context.Context, t *models.Ticket) error {
	collection, err := s.app.FindCollectionByNameOrId(collTickets)
	if err != nil {
		return fmt.Errorf("store: tickets collection: %w", err)
	}

	record := core.NewRecord(collection)
	record.Set("number", t.Number)
	record.Set("booking", t.BookingID)
	record.Set("owner", t.OwnerID)
	record.Set("event", t.EventID)
	record.Set("tier", t.Tier)
	record.Set("price", t.Price)
	record.Set("status", t.Status)
	record.Set("secret_hash", t.SecretHash)
	record.Set("refund_state", t.RefundState)

	if err := s.app.SaveWithContext(ctx, record); err != nil {
		return fmt.Errorf("store: create ticket %s: %w", t.Number, err)
	}

	t.ID = record.Id
	t.CreatedAt = record.GetDateTime("created").Time()
	return nil
}

func (s *PBStore) GetTicket(ctx context.Context, id string) (*models.Ticket, error) {
	record, err := s.app.FindRecordById(collTickets, id)
	if err != nil {
		return nil, notFound(err, "ticket", id)
	}
	return ticketFromRecord(record), nil
}

func (s *PBStore) ListTicketsByBooking(ctx context.Context, bookingID string) ([]models.Ticket, error) {
	records, err := s.app.FindRecordsByFilter(
		collTickets,
		"booking = {:bookingId}",
		"number",
		-1,
		0,
		dbx.Params{"bookingId": bookingID},
	)
	if err != nil {
		return nil, fmt.Errorf("store: list tickets: %w", err)
	}

	tickets := make([]models.Ticket, 0, len(records))
	for _, r := range records {
		tickets = append(tickets, *ticketFromRecord(r))
	}
	return tickets, nil
}

// ListLegacyByOwner returns pre-booking tickets: owned directly, with no
// booking relation.
func (s *PBStore) ListLegacyByOwner(ctx context.Context, ownerID string, limit int) ([]models.Ticket, error) {
	records, err := s.app.FindRecordsByFilter(
		collTickets,
		"owner = {:ownerId} && booking = ''",
		"-created",
		limit,
		0,
		dbx.Params{"ownerId": ownerID},
	)
	if err != nil {
		return nil, fmt.Errorf("store: list legacy tickets: %w", err)
	}

	tickets := make([]models.Ticket, 0, len(records))
	for _, r := range records {
		tickets = append(tickets, *ticketFromRecord(r))
	}
	return tickets, nil
}

func (s *PBStore) MarkTicketUsed(ctx context.Context, id string, ci models.CheckIn) (bool, error) {
	raw, err := json.Marshal(ci)
	if err != nil {
		return false, fmt.Errorf("store: marshal check-in: %w", err)
	}

	res, err := s.app.DB().NewQuery(`
		UPDATE tickets SET status = 'used', check_in = {:checkIn}
		WHERE id = {:id} AND status = 'confirmed'
	`).Bind(dbx.Params{"id": id, "checkIn": string(raw)}).Execute()
	if err != nil {
		return false, fmt.Errorf("store: mark ticket used: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (s *PBStore) MarkTicketCancelled(ctx context.Context, id, refundState string) (bool, error) {
	res, err := s.app.DB().NewQuery(`
		UPDATE tickets SET status = 'cancelled', refund_state = {:refundState}
		WHERE id = {:id} AND status = 'confirmed'
	`).Bind(dbx.Params{"id": id, "refundState": refundState}).Execute()
	if err != nil {
		return false, fmt.Errorf("store: mark ticket cancelled: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (s *PBStore) MarkTicketsRefundSettled(ctx context.Context, bookingID string) error {
	_, err := s.app.DB().NewQuery(`
		UPDATE tickets SET refund_state = 'settled'
		WHERE booking = {:bookingId} AND status = 'cancelled' AND refund_state = 'requested'
	`).Bind(dbx.Params{"bookingId": bookingID}).Execute()
	if err != nil {
		return fmt.Errorf("store: settle ticket refunds: %w", err)
	}
	return nil
}

// ExpireTickets retires confirmed tickets whose event ended before the given
// time. Events without an end time get a day past their start.
func (s *PBStore) ExpireTickets(ctx context.Context, before time.Time) (int, error) {
	res, err := s.app.DB().NewQuery(`
		UPDATE tickets SET status = 'expired'
		WHERE status = 'confirmed' AND event IN (
			SELECT id FROM events
			WHERE COALESCE(NULLIF(end_time, ''), datetime(start_time, '+1 day')) < {:before}
		)
	`).Bind(dbx.Params{
		"before": before.UTC().Format("2006-01-02 15:04:05.000Z"),
	}).Execute()
	if err != nil {
		return 0, fmt.Errorf("store: expire tickets: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func ticketFromRecord(r *core.Record) *models.Ticket {
	t := &models.Ticket{
		ID:          r.Id,
		Number:      r.GetString("number"),
		BookingID:   r.GetString("booking"),
		OwnerID:     r.GetString("owner"),
		EventID:     r.GetString("event"),
		Tier:        r.GetString("tier"),
		Price:       int64(r.GetFloat("price")),
		Status:      r.GetString("status"),
		SecretHash:  r.GetString("secret_hash"),
		RefundState: r.GetString("refund_state"),
		CreatedAt:   r.GetDateTime("created").Time(),
	}

	if raw := r.GetString("check_in"); raw != "" {
		var ci models.CheckIn
		if err := json.Unmarshal([]byte(raw), &ci); err != nil {
			slog.Warn("store: ticket check_in unreadable", "ticket_id", r.Id, "error", err)
		} else if !ci.At.IsZero() {
			t.CheckIn = &ci
		}
	}

	return t
}
