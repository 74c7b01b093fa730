package models

import (
	"time"
)

// Refund policies an organizer can attach to an event.
const (
	RefundPolicyFull     = "full"
	RefundPolicyPartial  = "partial"
	RefundPolicyNoRefund = "no-refund"
)

type Event struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	Venue        string    `json:"venue"`
	OrganizerID  string    `json:"organizer_id"`
	StartTime    time.Time `json:"start_time"`
	EndTime      time.Time `json:"end_time"`
	Status       string    `json:"status"` // draft, published, ended
	Currency     string    `json:"currency"`
	RefundPolicy string    `json:"refund_policy"`

	// Legacy single-price events have no tiers; price and capacity live
	// directly on the event record.
	Price     int64 `json:"price"` // minor units
	Capacity  int   `json:"capacity"`
	Remaining int   `json:"remaining"`

	// Aggregate counters, floored at zero on decrement.
	AttendeeCount int   `json:"attendee_count"`
	BookingCount  int   `json:"booking_count"`
	Revenue       int64 `json:"revenue"` // minor units
}

// HasLegacyInventory reports whether the event sells through the single-price
// fallback instead of named tiers.
func (e *Event) HasLegacyInventory() bool {
	return e.Capacity > 0
}

// Started reports whether the event start time has passed.
func (e *Event) Started(now time.Time) bool {
	return !now.Before(e.StartTime)
}

// Finished reports whether the event is over. Events without an end time are
// considered finished once they start plus a day, so check-in keeps working
// through the doors-open window.
func (e *Event) Finished(now time.Time) bool {
	end := e.EndTime
	if end.IsZero() {
		end = e.StartTime.Add(24 * time.Hour)
	}
	return now.After(end)
}

// TicketTier is a named ticket category with its own price and capacity.
// Invariant: 0 <= Remaining <= Capacity under all concurrent access; the
// store enforces it with conditional updates.
type TicketTier struct {
	ID        string `json:"id"`
	EventID   string `json:"event_id"`
	Name      string `json:"name"`
	Price     int64  `json:"price"` // minor units
	Capacity  int    `json:"capacity"`
	Remaining int    `json:"remaining"`
}

// AggregateDelta is a relative change to an event's counters. Negative values
// are floored at zero by the store.
type AggregateDelta struct {
	Attendees int
	Bookings  int
	Revenue   int64
}
