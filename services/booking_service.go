package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"tickethub/config"
	"tickethub/internal/services/gateway"
	"tickethub/internal/status"
	"tickethub/models"
	"tickethub/monitoring"
	"tickethub/utils"
)

type CreateBookingRequest struct {
	BuyerID    string        `json:"buyer_id"`
	BuyerEmail string        `json:"buyer_email"`
	EventID    string        `json:"event_id"`
	Lines      []BookingLine `json:"lines"`
}

// BookingResult is returned by both orchestrator paths. RequiresPayment
// discriminates: free bookings carry tickets, paid ones carry the payment
// authorization.
type BookingResult struct {
	Booking         *models.Booking `json:"booking"`
	Tickets         []models.Ticket `json:"tickets,omitempty"`
	RequiresPayment bool            `json:"requires_payment"`
	Payment         *PaymentInit    `json:"payment,omitempty"`
}

// PaymentInit is the payload the buyer's client needs to complete checkout.
type PaymentInit struct {
	Reference        string `json:"reference"`
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Amount           int64  `json:"amount"`
	Currency         string `json:"currency"`
}

// BookingService drives the booking state machine: the free completion path
// and the paid initialization path both allocate inventory, differing in
// when confirmation and ticket issuance happen.
type BookingService struct {
	store     Store
	inventory *InventoryService
	issuer    *TicketIssuer
	gw        gateway.Gateway
	breaker   *utils.CircuitBreaker
	notifier  Publisher
	reserved  *ReservationIndex
	cfg       *config.Config
}

func NewBookingService(
	store Store,
	inventory *InventoryService,
	issuer *TicketIssuer,
	gw gateway.Gateway,
	notifier Publisher,
	reserved *ReservationIndex,
	cfg *config.Config,
) *BookingService {
	return &BookingService{
		store:     store,
		inventory: inventory,
		issuer:    issuer,
		gw:        gw,
		breaker:   utils.NewCircuitBreaker("payment-gateway"),
		notifier:  notifier,
		reserved:  reserved,
		cfg:       cfg,
	}
}

// CreateBooking validates and prices the request, then runs the free or paid
// path. Validation and availability failures happen before any state change.
func (s *BookingService) CreateBooking(ctx context.Context, req CreateBookingRequest) (*BookingResult, error) {
	if req.BuyerID == "" || req.EventID == "" {
		return nil, status.Validationf("buyer and event are required")
	}

	event, err := s.store.GetEvent(ctx, req.EventID)
	if err != nil {
		return nil, err
	}
	if event.Started(time.Now()) {
		return nil, status.Conflictf("event %s already started", event.ID)
	}

	details, err := s.inventory.ResolveAndCheck(ctx, event, req.Lines)
	if err != nil {
		if status.IsInsufficientInventory(err) {
			monitoring.TrackOversellRejection(event.ID)
		}
		return nil, err
	}

	totals := CalculateTotals(details, s.cfg.ServiceFeePercent)
	if totals.Quantity > s.cfg.MaxTicketsPerOrder {
		return nil, status.Validationf("at most %d tickets per order", s.cfg.MaxTicketsPerOrder)
	}

	booking, err := s.newBooking(event, req, totals)
	if err != nil {
		return nil, err
	}

	if totals.Free {
		return s.completeFree(ctx, event, booking)
	}
	return s.initializePaid(ctx, event, booking, req.BuyerEmail)
}

func (s *BookingService) newBooking(event *models.Event, req CreateBookingRequest, totals PriceBreakdown) (*models.Booking, error) {
	code, err := utils.GenerateCode(4)
	if err != nil {
		return nil, fmt.Errorf("booking: generate code: %w", err)
	}

	return &models.Booking{
		Code:          code,
		BuyerID:       req.BuyerID,
		OrganizerID:   event.OrganizerID,
		EventID:       event.ID,
		TicketDetails: totals.Lines,
		Subtotal:      totals.Subtotal,
		ServiceFee:    totals.ServiceFee,
		TotalAmount:   totals.Total,
		Currency:      event.Currency,
		EventSnapshot: models.EventSnapshot{
			Name:      event.Name,
			Venue:     event.Venue,
			StartTime: event.StartTime,
			Currency:  event.Currency,
		},
		CreatedAt: time.Now(),
	}, nil
}

// completeFree runs the single-transaction free path: booking, tickets,
// inventory decrement and aggregate counters commit or abort together.
func (s *BookingService) completeFree(ctx context.Context, event *models.Event, booking *models.Booking) (*BookingResult, error) {
	booking.Status = models.BookingConfirmed
	booking.PaymentStatus = models.PaymentFree

	var tickets []models.Ticket
	err := s.store.WithinTx(ctx, func(tx Tx) error {
		if err := tx.CreateBooking(ctx, booking); err != nil {
			return fmt.Errorf("create booking: %w", err)
		}

		var err error
		tickets, err = s.issuer.Issue(ctx, tx, booking)
		if err != nil {
			return err
		}

		if err := s.inventory.Reserve(ctx, tx, event.ID, booking.TicketDetails); err != nil {
			return err
		}

		return tx.ApplyAggregates(ctx, event.ID, models.AggregateDelta{
			Attendees: booking.TotalQuantity(),
			Bookings:  1,
		})
	})
	if err != nil {
		if status.IsInsufficientInventory(err) {
			monitoring.TrackOversellRejection(event.ID)
		}
		return nil, err
	}

	monitoring.TrackBooking("free", "confirmed")
	s.notifier.BookingConfirmed(ctx, booking, tickets)

	return &BookingResult{Booking: booking, Tickets: tickets}, nil
}

// initializePaid commits the reservation first (transaction A), then calls
// the gateway outside any transaction. A gateway failure leaves the booking
// pending with inventory reserved; the pay-again entry point or the sweeper
// resolves it.
func (s *BookingService) initializePaid(ctx context.Context, event *models.Event, booking *models.Booking, buyerEmail string) (*BookingResult, error) {
	if buyerEmail == "" {
		return nil, status.Validationf("buyer email is required for paid bookings")
	}

	booking.Status = models.BookingPending
	booking.PaymentStatus = models.PaymentPending

	err := s.store.WithinTx(ctx, func(tx Tx) error {
		if err := tx.CreateBooking(ctx, booking); err != nil {
			return fmt.Errorf("create booking: %w", err)
		}
		return s.inventory.Reserve(ctx, tx, event.ID, booking.TicketDetails)
	})
	if err != nil {
		if status.IsInsufficientInventory(err) {
			monitoring.TrackOversellRejection(event.ID)
		}
		return nil, err
	}

	s.reserved.Track(ctx, booking.ID, time.Now().Add(s.cfg.ReservationTTL))
	monitoring.TrackBooking("paid", "pending")

	payment, err := s.startPayment(ctx, booking, buyerEmail)
	if err != nil {
		// Recognized failure window: booking pending, inventory reserved,
		// no payment URL. Surface the gateway error with the booking so the
		// client can retry via the pay endpoint.
		return nil, err
	}

	return &BookingResult{
		Booking:         booking,
		RequiresPayment: true,
		Payment:         payment,
	}, nil
}

// PayAgain re-initializes payment for an existing pending booking whose
// earlier attempt failed or never produced a payment URL. At most one
// pending transaction may exist per booking.
func (s *BookingService) PayAgain(ctx context.Context, bookingID, callerID, callerEmail string) (*BookingResult, error) {
	booking, err := s.store.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.BuyerID != callerID {
		return nil, status.ErrAuthorization
	}
	if booking.Status != models.BookingPending {
		return nil, status.Conflictf("booking %s is %s, not pending", bookingID, booking.Status)
	}

	pending, err := s.store.FindPendingTransaction(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if pending != nil {
		return nil, status.Conflictf("booking %s already has a pending payment %s", bookingID, pending.Reference)
	}

	if booking.PaymentStatus == models.PaymentFailed {
		// The failed charge already released this booking's inventory, so the
		// retry must win it back before the buyer pays. The conditional
		// decrement refuses when another buyer claimed the units in between.
		err := s.store.WithinTx(ctx, func(tx Tx) error {
			won, err := tx.MarkBookingPaymentPending(ctx, bookingID)
			if err != nil {
				return err
			}
			if !won {
				return status.Conflictf("booking %s payment was retried concurrently", bookingID)
			}
			return s.inventory.Reserve(ctx, tx, booking.EventID, booking.TicketDetails)
		})
		if err != nil {
			if status.IsInsufficientInventory(err) {
				monitoring.TrackOversellRejection(booking.EventID)
			}
			return nil, err
		}
		booking.PaymentStatus = models.PaymentPending
		s.reserved.Track(ctx, booking.ID, time.Now().Add(s.cfg.ReservationTTL))
	}

	payment, err := s.startPayment(ctx, booking, callerEmail)
	if err != nil {
		return nil, err
	}

	return &BookingResult{
		Booking:         booking,
		RequiresPayment: true,
		Payment:         payment,
	}, nil
}

// startPayment calls the gateway initialize operation with a fresh reference
// and persists the authorization onto a new pending transaction.
func (s *BookingService) startPayment(ctx context.Context, booking *models.Booking, buyerEmail string) (*PaymentInit, error) {
	reference, err := newReference()
	if err != nil {
		return nil, fmt.Errorf("booking: generate reference: %w", err)
	}

	started := time.Now()
	result, err := s.breaker.Execute(ctx, func() (interface{}, error) {
		return s.gw.Initialize(ctx, &gateway.InitializeRequest{
			Email:       buyerEmail,
			Amount:      booking.TotalAmount,
			Currency:    booking.Currency,
			Reference:   reference,
			CallbackURL: fmt.Sprintf("%s/api/v1/transactions/verify/%s", s.cfg.PublicURL, reference),
			Metadata: map[string]string{
				"booking_id": booking.ID,
				"event_id":   booking.EventID,
			},
		})
	})
	monitoring.TrackGatewayCall("initialize", err, time.Since(started))
	if err != nil {
		slog.Error("booking: gateway initialize failed", "booking_id", booking.ID, "reference", reference, "error", err)
		if errors.Is(err, status.ErrGateway) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", status.ErrGateway, err)
	}
	auth := result.(*gateway.InitializeResult)

	txn := &models.Transaction{
		Reference:        reference,
		BookingID:        booking.ID,
		Amount:           booking.TotalAmount,
		Currency:         booking.Currency,
		Status:           models.TxPending,
		AuthorizationURL: auth.AuthorizationURL,
		AccessCode:       auth.AccessCode,
		CreatedAt:        time.Now(),
	}
	if err := s.store.CreateTransaction(ctx, txn); err != nil {
		return nil, fmt.Errorf("booking: persist transaction: %w", err)
	}

	return &PaymentInit{
		Reference:        reference,
		AuthorizationURL: auth.AuthorizationURL,
		AccessCode:       auth.AccessCode,
		Amount:           booking.TotalAmount,
		Currency:         booking.Currency,
	}, nil
}

// GetBooking returns a booking with its tickets, restricted to the buyer or
// the event organizer.
func (s *BookingService) GetBooking(ctx context.Context, bookingID, callerID string) (*models.Booking, []models.Ticket, error) {
	booking, err := s.store.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, nil, err
	}
	if booking.BuyerID != callerID && booking.OrganizerID != callerID {
		return nil, nil, status.ErrAuthorization
	}

	tickets, err := s.store.ListTicketsByBooking(ctx, bookingID)
	if err != nil {
		return nil, nil, err
	}

	return booking, tickets, nil
}

// History merges modern bookings and pre-tier legacy tickets into one
// normalized, explicitly tagged listing.
func (s *BookingService) History(ctx context.Context, buyerID string, limit int) ([]models.ListingEntry, error) {
	if limit <= 0 {
		limit = 20
	}

	bookings, err := s.store.ListBookingsByBuyer(ctx, buyerID, limit)
	if err != nil {
		return nil, err
	}
	legacy, err := s.store.ListLegacyByOwner(ctx, buyerID, limit)
	if err != nil {
		return nil, err
	}

	entries := make([]models.ListingEntry, 0, len(bookings)+len(legacy))
	for i := range bookings {
		entries = append(entries, normalizeBooking(&bookings[i]))
	}
	for i := range legacy {
		entries = append(entries, normalizeLegacyTicket(&legacy[i]))
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].CreatedAt.After(entries[j].CreatedAt)
	})
	if len(entries) > limit {
		entries = entries[:limit]
	}

	return entries, nil
}

// normalizeBooking and normalizeLegacyTicket are the single normalization
// point for the two record shapes the listing can contain.
func normalizeBooking(b *models.Booking) models.ListingEntry {
	return models.ListingEntry{
		Kind:        models.ListingBooking,
		ID:          b.ID,
		EventID:     b.EventID,
		EventName:   b.EventSnapshot.Name,
		Quantity:    b.TotalQuantity(),
		TotalAmount: b.TotalAmount,
		Status:      b.Status,
		CreatedAt:   b.CreatedAt,
	}
}

func normalizeLegacyTicket(t *models.Ticket) models.ListingEntry {
	return models.ListingEntry{
		Kind:        models.ListingLegacyTicket,
		ID:          t.ID,
		EventID:     t.EventID,
		Quantity:    1,
		TotalAmount: t.Price,
		Status:      t.Status,
		CreatedAt:   t.CreatedAt,
	}
}

func newReference() (string, error) {
	code, err := utils.GenerateCode(6)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("THB-%d-%s", time.Now().Unix(), code), nil
}
