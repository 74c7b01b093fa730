// Package store implements the persistence contracts on top of PocketBase
// collections. Inventory decrements and status moves are conditional SQL
// updates so that concurrent writers can never observe or produce an
// oversold or double-settled state.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/core"

	"tickethub/internal/status"
	"tickethub/models"
	"tickethub/services"
)

// Collection names.
const (
	collEvents       = "events"
	collTiers        = "ticket_tiers"
	collBookings     = "bookings"
	collTickets      = "tickets"
	collTransactions = "transactions"
)

// PBStore is the PocketBase-backed services.Store. The zero value is not
// usable; construct with New.
type PBStore struct {
	app core.App
}

func New(app core.App) *PBStore {
	return &PBStore{app: app}
}

// WithinTx runs fn inside one database transaction. The Tx handed to fn is a
// store bound to the transactional app, so every read and write in fn shares
// the same commit-or-abort fate.
func (s *PBStore) WithinTx(ctx context.Context, fn func(tx services.Tx) error) error {
	return s.app.RunInTransaction(func(txApp core.App) error {
		return fn(&PBStore{app: txApp})
	})
}

func notFound(err error, kind, id string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s %s", status.ErrNotFound, kind, id)
	}
	return err
}

// GetEvent loads one event with its aggregate counters.
func (s *PBStore) GetEvent(ctx context.Context, id string) (*models.Event, error) {
	record, err := s.app.FindRecordById(collEvents, id)
	if err != nil {
		return nil, notFound(err, "event", id)
	}
	return eventFromRecord(record), nil
}

// ApplyAggregates adds the delta to the event counters in one statement,
// flooring each at zero.
func (s *PBStore) ApplyAggregates(ctx context.Context, eventID string, d models.AggregateDelta) error {
	_, err := s.app.DB().NewQuery(`
		UPDATE events SET
			attendee_count = MAX(0, attendee_count + {:attendees}),
			booking_count  = MAX(0, booking_count + {:bookings}),
			revenue        = MAX(0, revenue + {:revenue})
		WHERE id = {:id}
	`).Bind(dbx.Params{
		"attendees": d.Attendees,
		"bookings":  d.Bookings,
		"revenue":   d.Revenue,
		"id":        eventID,
	}).Execute()
	if err != nil {
		return fmt.Errorf("store: apply aggregates: %w", err)
	}
	return nil
}

func (s *PBStore) ListTiers(ctx context.Context, eventID string) ([]models.TicketTier, error) {
	records, err := s.app.FindRecordsByFilter(
		collTiers,
		"event = {:eventId}",
		"name",
		-1,
		0,
		dbx.Params{"eventId": eventID},
	)
	if err != nil {
		return nil, fmt.Errorf("store: list tiers: %w", err)
	}

	tiers := make([]models.TicketTier, 0, len(records))
	for _, r := range records {
		tiers = append(tiers, *tierFromRecord(r))
	}
	return tiers, nil
}

func (s *PBStore) GetTierByName(ctx context.Context, eventID, name string) (*models.TicketTier, error) {
	record, err := s.app.FindFirstRecordByFilter(
		collTiers,
		"event = {:eventId} && name = {:name}",
		dbx.Params{"eventId": eventID, "name": name},
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("store: get tier: %w", err)
	}
	return tierFromRecord(record), nil
}

// Reserve is the atomic conditional decrement: the WHERE clause refuses the
// write when remaining is short, and the affected-row count reports who won.
// An empty tier addresses the event's legacy single-price columns.
func (s *PBStore) Reserve(ctx context.Context, eventID, tier string, qty int) (bool, error) {
	var res sql.Result
	var err error

	if tier == "" {
		res, err = s.app.DB().NewQuery(`
			UPDATE events SET remaining = remaining - {:qty}
			WHERE id = {:id} AND remaining >= {:qty}
		`).Bind(dbx.Params{"qty": qty, "id": eventID}).Execute()
	} else {
		res, err = s.app.DB().NewQuery(`
			UPDATE ticket_tiers SET remaining = remaining - {:qty}
			WHERE event = {:eventId} AND name = {:name} AND remaining >= {:qty}
		`).Bind(dbx.Params{"qty": qty, "eventId": eventID, "name": tier}).Execute()
	}
	if err != nil {
		return false, fmt.Errorf("store: reserve: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("store: reserve rows affected: %w", err)
	}
	return n == 1, nil
}

// Release returns units to the pool, capped at capacity.
func (s *PBStore) Release(ctx context.Context, eventID, tier string, qty int) error {
	var err error

	if tier == "" {
		_, err = s.app.DB().NewQuery(`
			UPDATE events SET remaining = MIN(capacity, remaining + {:qty})
			WHERE id = {:id}
		`).Bind(dbx.Params{"qty": qty, "id": eventID}).Execute()
	} else {
		_, err = s.app.DB().NewQuery(`
			UPDATE ticket_tiers SET remaining = MIN(capacity, remaining + {:qty})
			WHERE event = {:eventId} AND name = {:name}
		`).Bind(dbx.Params{"qty": qty, "eventId": eventID, "name": tier}).Execute()
	}
	if err != nil {
		return fmt.Errorf("store: release: %w", err)
	}
	return nil
}

func eventFromRecord(r *core.Record) *models.Event {
	return &models.Event{
		ID:            r.Id,
		Name:          r.GetString("name"),
		Description:   r.GetString("description"),
		Venue:         r.GetString("venue"),
		OrganizerID:   r.GetString("organizer"),
		StartTime:     r.GetDateTime("start_time").Time(),
		EndTime:       r.GetDateTime("end_time").Time(),
		Status:        r.GetString("status"),
		Currency:      r.GetString("currency"),
		RefundPolicy:  r.GetString("refund_policy"),
		Price:         int64(r.GetFloat("price")),
		Capacity:      r.GetInt("capacity"),
		Remaining:     r.GetInt("remaining"),
		AttendeeCount: r.GetInt("attendee_count"),
		BookingCount:  r.GetInt("booking_count"),
		Revenue:       int64(r.GetFloat("revenue")),
	}
}

func tierFromRecord(r *core.Record) *models.TicketTier {
	return &models.TicketTier{
		ID:        r.Id,
		EventID:   r.GetString("event"),
		Name:      r.GetString("name"),
		Price:     int64(r.GetFloat("price")),
		Capacity:  r.GetInt("capacity"),
		Remaining: r.GetInt("remaining"),
	}
}
