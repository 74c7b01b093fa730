package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"tickethub/models"
	"tickethub/internal/status"
)

// BookingLine is one requested (tier, quantity) pair.
type BookingLine struct {
	Tier     string `json:"tier"`
	Quantity int    `json:"quantity"`
}

// LegacyTierName labels the implicit tier of events configured with a single
// price instead of named tiers.
const LegacyTierName = "general"

// InventoryService validates requested quantities against remaining
// inventory and applies reserve/release deltas. The availability check alone
// never mutates anything; the race between check and commit is closed by the
// store's conditional decrement inside the orchestrator's transaction.
type InventoryService struct {
	store Store
	redis *redis.Client
	ttl   time.Duration
}

func NewInventoryService(store Store, redisClient *redis.Client, availabilityTTL time.Duration) *InventoryService {
	return &InventoryService{
		store: store,
		redis: redisClient,
		ttl:   availabilityTTL,
	}
}

// ResolveAndCheck resolves every requested line against the event's tiers
// (or the legacy single-price fallback) and compares quantities against
// remaining inventory. It fails with every violating tier listed; no partial
// result is returned.
func (s *InventoryService) ResolveAndCheck(ctx context.Context, event *models.Event, lines []BookingLine) ([]models.TicketDetail, error) {
	if len(lines) == 0 {
		return nil, status.Validationf("no ticket lines requested")
	}

	seen := map[string]bool{}
	for _, l := range lines {
		if l.Quantity <= 0 {
			return nil, status.Validationf("tier %q: quantity must be positive", l.Tier)
		}
		if seen[l.Tier] {
			return nil, status.Validationf("tier %q requested twice", l.Tier)
		}
		seen[l.Tier] = true
	}

	tiers, err := s.store.ListTiers(ctx, event.ID)
	if err != nil {
		return nil, fmt.Errorf("inventory: list tiers: %w", err)
	}

	byName := make(map[string]models.TicketTier, len(tiers))
	for _, t := range tiers {
		byName[t.Name] = t
	}

	details := make([]models.TicketDetail, 0, len(lines))
	var shortages []status.TierShortage

	for _, l := range lines {
		var price int64
		var remaining int

		if len(tiers) == 0 {
			// Legacy single-price fallback.
			if !event.HasLegacyInventory() {
				return nil, status.Validationf("event has no ticket inventory")
			}
			if l.Tier != "" && l.Tier != LegacyTierName {
				return nil, status.Validationf("unknown tier %q", l.Tier)
			}
			price = event.Price
			remaining = event.Remaining
		} else {
			tier, ok := byName[l.Tier]
			if !ok {
				return nil, status.Validationf("unknown tier %q", l.Tier)
			}
			price = tier.Price
			remaining = tier.Remaining
		}

		if l.Quantity > remaining {
			shortages = append(shortages, status.TierShortage{
				Tier:      displayTier(l.Tier),
				Requested: l.Quantity,
				Remaining: remaining,
			})
			continue
		}

		details = append(details, models.TicketDetail{
			Tier:      displayTier(l.Tier),
			Quantity:  l.Quantity,
			UnitPrice: price,
		})
	}

	if len(shortages) > 0 {
		return nil, &status.InsufficientInventoryError{Shortages: shortages}
	}

	return details, nil
}

// Reserve applies the conditional decrement for every line inside tx. Any
// shortage aborts the whole reservation: the caller's transaction rolls back
// and no partial state is observable.
func (s *InventoryService) Reserve(ctx context.Context, tx Tx, eventID string, details []models.TicketDetail) error {
	var shortages []status.TierShortage

	for _, d := range details {
		ok, err := tx.Reserve(ctx, eventID, storageTier(d.Tier), d.Quantity)
		if err != nil {
			return fmt.Errorf("inventory: reserve %s: %w", d.Tier, err)
		}
		if !ok {
			remaining := 0
			if storageTier(d.Tier) == "" {
				if ev, err := tx.GetEvent(ctx, eventID); err == nil {
					remaining = ev.Remaining
				}
			} else if t, err := tx.GetTierByName(ctx, eventID, storageTier(d.Tier)); err == nil && t != nil {
				remaining = t.Remaining
			}
			shortages = append(shortages, status.TierShortage{
				Tier:      d.Tier,
				Requested: d.Quantity,
				Remaining: remaining,
			})
		}
	}

	if len(shortages) > 0 {
		return &status.InsufficientInventoryError{Shortages: shortages}
	}

	s.invalidate(ctx, eventID)
	return nil
}

// Release returns reserved units to their tiers, capped at capacity by the
// store.
func (s *InventoryService) Release(ctx context.Context, tx Tx, eventID string, details []models.TicketDetail) error {
	for _, d := range details {
		if err := tx.Release(ctx, eventID, storageTier(d.Tier), d.Quantity); err != nil {
			return fmt.Errorf("inventory: release %s: %w", d.Tier, err)
		}
	}

	s.invalidate(ctx, eventID)
	return nil
}

// TierAvailability is the public availability view of one tier.
type TierAvailability struct {
	Tier      string `json:"tier"`
	Price     int64  `json:"price"`
	Remaining int    `json:"remaining"`
	Capacity  int    `json:"capacity"`
}

// GetAvailability returns per-tier remaining counts, served from a short
// redis cache when possible. The cache is advisory only; reservations always
// go through the conditional writes.
func (s *InventoryService) GetAvailability(ctx context.Context, eventID string) ([]TierAvailability, error) {
	cacheKey := availabilityKey(eventID)

	if s.redis != nil {
		if raw, err := s.redis.Get(ctx, cacheKey).Result(); err == nil {
			var cached []TierAvailability
			if err := json.Unmarshal([]byte(raw), &cached); err == nil {
				return cached, nil
			}
		}
	}

	event, err := s.store.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}

	tiers, err := s.store.ListTiers(ctx, eventID)
	if err != nil {
		return nil, err
	}

	var out []TierAvailability
	if len(tiers) == 0 && event.HasLegacyInventory() {
		out = append(out, TierAvailability{
			Tier:      LegacyTierName,
			Price:     event.Price,
			Remaining: event.Remaining,
			Capacity:  event.Capacity,
		})
	}
	for _, t := range tiers {
		out = append(out, TierAvailability{
			Tier:      t.Name,
			Price:     t.Price,
			Remaining: t.Remaining,
			Capacity:  t.Capacity,
		})
	}

	if s.redis != nil {
		if raw, err := json.Marshal(out); err == nil {
			if err := s.redis.Set(ctx, cacheKey, raw, s.ttl).Err(); err != nil {
				slog.Warn("inventory: availability cache set failed", "event_id", eventID, "error", err)
			}
		}
	}

	return out, nil
}

func (s *InventoryService) invalidate(ctx context.Context, eventID string) {
	if s.redis == nil {
		return
	}
	if err := s.redis.Del(ctx, availabilityKey(eventID)).Err(); err != nil {
		slog.Warn("inventory: availability cache invalidate failed", "event_id", eventID, "error", err)
	}
}

func availabilityKey(eventID string) string {
	return fmt.Sprintf("availability:%s", eventID)
}

// storageTier maps the display name of the legacy tier back to the empty
// storage key addressing the event's own columns.
func storageTier(name string) string {
	if name == LegacyTierName {
		return ""
	}
	return name
}

func displayTier(name string) string {
	if name == "" {
		return LegacyTierName
	}
	return name
}
