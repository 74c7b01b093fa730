package services

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"tickethub/config"
	"tickethub/models"
	"tickethub/monitoring"
)

const reservationIndexKey = "reservation:expiry"

// ReservationIndex is a redis sorted set of pending paid bookings scored by
// reservation deadline. It is the sweeper's fast path only: the database scan
// below catches anything redis lost.
type ReservationIndex struct {
	redis *redis.Client
}

func NewReservationIndex(redisClient *redis.Client) *ReservationIndex {
	return &ReservationIndex{redis: redisClient}
}

func (r *ReservationIndex) Track(ctx context.Context, bookingID string, deadline time.Time) {
	if r.redis == nil {
		return
	}
	err := r.redis.ZAdd(ctx, reservationIndexKey, redis.Z{
		Score:  float64(deadline.Unix()),
		Member: bookingID,
	}).Err()
	if err != nil {
		slog.Warn("sweeper: track reservation failed", "booking_id", bookingID, "error", err)
	}
}

// Due returns booking IDs whose deadline passed.
func (r *ReservationIndex) Due(ctx context.Context, now time.Time, limit int64) []string {
	if r.redis == nil {
		return nil
	}
	ids, err := r.redis.ZRangeByScore(ctx, reservationIndexKey, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   formatUnix(now),
		Count: limit,
	}).Result()
	if err != nil {
		slog.Warn("sweeper: read reservation index failed", "error", err)
		return nil
	}
	return ids
}

func (r *ReservationIndex) Forget(ctx context.Context, bookingID string) {
	if r.redis == nil {
		return
	}
	if err := r.redis.ZRem(ctx, reservationIndexKey, bookingID).Err(); err != nil {
		slog.Warn("sweeper: forget reservation failed", "booking_id", bookingID, "error", err)
	}
}

func formatUnix(t time.Time) string {
	return strconv.FormatInt(t.Unix(), 10)
}

// Sweeper expires bookings whose reservation window lapsed without payment
// and returns their inventory to the pool. It also retires tickets of events
// long finished.
type Sweeper struct {
	store     Store
	inventory *InventoryService
	reserved  *ReservationIndex
	cfg       *config.Config
}

func NewSweeper(store Store, inventory *InventoryService, reserved *ReservationIndex, cfg *config.Config) *Sweeper {
	return &Sweeper{
		store:     store,
		inventory: inventory,
		reserved:  reserved,
		cfg:       cfg,
	}
}

// Run sweeps on the configured interval until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.SweepInterval)
	defer ticker.Stop()

	slog.Info("sweeper started", "interval", s.cfg.SweepInterval, "reservation_ttl", s.cfg.ReservationTTL)

	for {
		select {
		case <-ctx.Done():
			slog.Info("sweeper stopped")
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep runs one pass: redis-indexed due reservations first, then a database
// scan for pending bookings older than the window (the catch-up for anything
// the index missed), then old-ticket retirement.
func (s *Sweeper) Sweep(ctx context.Context) {
	now := time.Now()

	for _, id := range s.reserved.Due(ctx, now, 100) {
		s.Expire(ctx, id)
	}

	cutoff := now.Add(-s.cfg.ReservationTTL)
	stale, err := s.store.ListExpiredPending(ctx, cutoff, 100)
	if err != nil {
		slog.Error("sweeper: list expired pending failed", "error", err)
	} else {
		for i := range stale {
			s.Expire(ctx, stale[i].ID)
		}
	}

	expired, err := s.store.ExpireTickets(ctx, now)
	if err != nil {
		slog.Error("sweeper: expire tickets failed", "error", err)
	} else if expired > 0 {
		slog.Info("sweeper: retired tickets for finished events", "count", expired)
	}
}

// Expire cancels one lapsed pending booking. The pending -> cancelled move is
// conditional: if payment settled between the scan and this call, the
// reconciler already won and this is a no-op.
func (s *Sweeper) Expire(ctx context.Context, bookingID string) {
	var expired *models.Booking
	var released bool

	err := s.store.WithinTx(ctx, func(tx Tx) error {
		booking, err := tx.GetBooking(ctx, bookingID)
		if err != nil {
			return err
		}
		if booking.Status != models.BookingPending {
			return nil
		}

		won, err := tx.MarkBookingExpired(ctx, bookingID)
		if err != nil {
			return err
		}
		if !won {
			return nil
		}

		// Fail the open payment attempt so a late webhook loses its
		// conditional write instead of confirming a dead booking.
		pending, err := tx.FindPendingTransaction(ctx, bookingID)
		if err != nil {
			return err
		}
		if pending != nil {
			if _, err := tx.FailTransaction(ctx, pending.Reference, TxSettle{
				GatewayResponse: "reservation expired",
				SettledAt:       time.Now(),
			}); err != nil {
				return err
			}
		}

		// A booking whose charge already failed holds no inventory: the
		// settlement's failure path released it. Returning it again would
		// inflate remaining and oversell against other live reservations.
		if booking.PaymentStatus != models.PaymentFailed {
			if err := s.inventory.Release(ctx, tx, booking.EventID, booking.TicketDetails); err != nil {
				return err
			}
			released = true
		}

		expired = booking
		return nil
	})
	if err != nil {
		slog.Error("sweeper: expire booking failed", "booking_id", bookingID, "error", err)
		return
	}

	s.reserved.Forget(ctx, bookingID)
	if expired != nil {
		if released {
			monitoring.TrackReservationReleased("expired")
		}
		monitoring.TrackBooking("paid", "expired")
		slog.Info("sweeper: expired booking", "booking_id", bookingID, "event_id", expired.EventID)
	}
}
