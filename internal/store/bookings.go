package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/core"

	"tickethub/models"
)

func (s *PBStore) CreateBooking(ctx context.Context, b *models.Booking) error {
	collection, err := s.app.FindCollectionByNameOrId(collBookings)
	if err != nil {
		return fmt.Errorf("store: bookings collection: %w", err)
	}

	record := core.NewRecord(collection)
	record.Set("code", b.Code)
	record.Set("buyer", b.BuyerID)
	record.Set("organizer", b.OrganizerID)
	record.Set("event", b.EventID)
	record.Set("ticket_details", b.TicketDetails)
	record.Set("subtotal", b.Subtotal)
	record.Set("service_fee", b.ServiceFee)
	record.Set("total_amount", b.TotalAmount)
	record.Set("currency", b.Currency)
	record.Set("status", b.Status)
	record.Set("payment_status", b.PaymentStatus)
	record.Set("event_snapshot", b.EventSnapshot)

	if err := s.app.SaveWithContext(ctx, record); err != nil {
		return fmt.Errorf("store: create booking: %w", err)
	}

	b.ID = record.Id
	b.CreatedAt = record.GetDateTime("created").Time()
	return nil
}

func (s *PBStore) GetBooking(ctx context.Context, id string) (*models.Booking, error) {
	record, err := s.app.FindRecordById(collBookings, id)
	if err != nil {
		return nil, notFound(err, "booking", id)
	}
	return bookingFromRecord(record), nil
}

func (s *PBStore) ListBookingsByBuyer(ctx context.Context, buyerID string, limit int) ([]models.Booking, error) {
	records, err := s.app.FindRecordsByFilter(
		collBookings,
		"buyer = {:buyerId}",
		"-created",
		limit,
		0,
		dbx.Params{"buyerId": buyerID},
	)
	if err != nil {
		return nil, fmt.Errorf("store: list bookings: %w", err)
	}

	bookings := make([]models.Booking, 0, len(records))
	for _, r := range records {
		bookings = append(bookings, *bookingFromRecord(r))
	}
	return bookings, nil
}

func (s *PBStore) ListExpiredPending(ctx context.Context, before time.Time, limit int) ([]models.Booking, error) {
	records, err := s.app.FindRecordsByFilter(
		collBookings,
		"status = 'pending' && created < {:before}",
		"created",
		limit,
		0,
		dbx.Params{"before": before.UTC().Format("2006-01-02 15:04:05.000Z")},
	)
	if err != nil {
		return nil, fmt.Errorf("store: list expired pending: %w", err)
	}

	bookings := make([]models.Booking, 0, len(records))
	for _, r := range records {
		bookings = append(bookings, *bookingFromRecord(r))
	}
	return bookings, nil
}

// casBooking runs a conditional status update and reports whether this caller
// performed it.
func (s *PBStore) casBooking(query string, params dbx.Params) (bool, error) {
	res, err := s.app.DB().NewQuery(query).Bind(params).Execute()
	if err != nil {
		return false, fmt.Errorf("store: booking status move: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (s *PBStore) MarkBookingConfirmedPaid(ctx context.Context, id string) (bool, error) {
	return s.casBooking(`
		UPDATE bookings SET status = 'confirmed', payment_status = 'completed'
		WHERE id = {:id} AND status = 'pending' AND payment_status = 'pending'
	`, dbx.Params{"id": id})
}

func (s *PBStore) MarkBookingPaymentFailed(ctx context.Context, id string) (bool, error) {
	return s.casBooking(`
		UPDATE bookings SET payment_status = 'failed'
		WHERE id = {:id} AND payment_status = 'pending'
	`, dbx.Params{"id": id})
}

func (s *PBStore) MarkBookingPaymentPending(ctx context.Context, id string) (bool, error) {
	return s.casBooking(`
		UPDATE bookings SET payment_status = 'pending'
		WHERE id = {:id} AND payment_status = 'failed'
	`, dbx.Params{"id": id})
}

func (s *PBStore) MarkBookingCancelled(ctx context.Context, id, paymentStatus string) (bool, error) {
	if paymentStatus == "" {
		return s.casBooking(`
			UPDATE bookings SET status = 'cancelled'
			WHERE id = {:id} AND status = 'confirmed'
		`, dbx.Params{"id": id})
	}
	return s.casBooking(`
		UPDATE bookings SET status = 'cancelled', payment_status = {:paymentStatus}
		WHERE id = {:id} AND status = 'confirmed'
	`, dbx.Params{"id": id, "paymentStatus": paymentStatus})
}

func (s *PBStore) MarkBookingExpired(ctx context.Context, id string) (bool, error) {
	return s.casBooking(`
		UPDATE bookings SET status = 'cancelled'
		WHERE id = {:id} AND status = 'pending'
	`, dbx.Params{"id": id})
}

func bookingFromRecord(r *core.Record) *models.Booking {
	b := &models.Booking{
		ID:            r.Id,
		Code:          r.GetString("code"),
		BuyerID:       r.GetString("buyer"),
		OrganizerID:   r.GetString("organizer"),
		EventID:       r.GetString("event"),
		Subtotal:      int64(r.GetFloat("subtotal")),
		ServiceFee:    int64(r.GetFloat("service_fee")),
		TotalAmount:   int64(r.GetFloat("total_amount")),
		Currency:      r.GetString("currency"),
		Status:        r.GetString("status"),
		PaymentStatus: r.GetString("payment_status"),
		CreatedAt:     r.GetDateTime("created").Time(),
	}

	if err := r.UnmarshalJSONField("ticket_details", &b.TicketDetails); err != nil {
		slog.Warn("store: booking ticket_details unreadable", "booking_id", r.Id, "error", err)
	}
	if err := r.UnmarshalJSONField("event_snapshot", &b.EventSnapshot); err != nil {
		slog.Warn("store: booking event_snapshot unreadable", "booking_id", r.Id, "error", err)
	}

	return b
}
