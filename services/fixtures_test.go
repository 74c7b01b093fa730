package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"tickethub/config"
	"tickethub/internal/services/gateway"
	"tickethub/internal/status"
	"tickethub/models"
)

func testConfig() *config.Config {
	return &config.Config{
		PublicURL:          "http://localhost:8090",
		Currency:           "NGN",
		ServiceFeePercent:  3,
		CancelCutoffHours:  24,
		ReservationTTL:     30 * time.Minute,
		SweepInterval:      time.Minute,
		AvailabilityTTL:    5 * time.Second,
		MaxTicketsPerOrder: 10,
		RefundLadder: config.RefundLadder{
			Over7Days: 90,
			Over3Days: 70,
			Over1Day:  50,
			Under1Day: 30,
		},
	}
}

// fakeGateway is a scriptable in-process gateway. Verify outcomes are keyed
// by reference; unset references report a gateway outage.
type fakeGateway struct {
	mu            sync.Mutex
	initErr       error
	verifyErr     error
	refundErr     error
	verifyResults map[string]*gateway.ChargeResult
	initCalls     int
	verifyCalls   int
	refundCalls   int
	refunds       []gateway.RefundRequest
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{verifyResults: map[string]*gateway.ChargeResult{}}
}

func (g *fakeGateway) GetProvider() gateway.Provider { return gateway.ProviderPaystack }

func (g *fakeGateway) Initialize(ctx context.Context, req *gateway.InitializeRequest) (*gateway.InitializeResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.initCalls++
	if g.initErr != nil {
		return nil, g.initErr
	}
	return &gateway.InitializeResult{
		AuthorizationURL: "https://checkout.test/" + req.Reference,
		AccessCode:       "ac_" + req.Reference,
	}, nil
}

func (g *fakeGateway) Verify(ctx context.Context, reference string) (*gateway.ChargeResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.verifyCalls++
	if g.verifyErr != nil {
		return nil, g.verifyErr
	}
	res, ok := g.verifyResults[reference]
	if !ok {
		return nil, fmt.Errorf("%w: verify unavailable", status.ErrGateway)
	}
	return res, nil
}

func (g *fakeGateway) Refund(ctx context.Context, req *gateway.RefundRequest) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.refundCalls++
	if g.refundErr != nil {
		return g.refundErr
	}
	g.refunds = append(g.refunds, *req)
	return nil
}

func (g *fakeGateway) ValidWebhook(body []byte, signature string) bool { return true }

func (g *fakeGateway) scriptSuccess(reference string, amount int64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.verifyResults[reference] = &gateway.ChargeResult{
		Reference:       reference,
		Status:          gateway.ChargeSuccess,
		Amount:          amount,
		Channel:         "card",
		GatewayResponse: "Approved",
		PaidAt:          time.Now().UTC().Format(time.RFC3339),
	}
}

func (g *fakeGateway) scriptFailure(reference string, amount int64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.verifyResults[reference] = &gateway.ChargeResult{
		Reference:       reference,
		Status:          gateway.ChargeFailed,
		Amount:          amount,
		GatewayResponse: "Declined",
	}
}

// recordingPublisher captures notifications for assertions.
type recordingPublisher struct {
	mu         sync.Mutex
	confirmed  []string
	failed     []string
	cancelled  []string
	refundAmts []int64
}

func (p *recordingPublisher) BookingConfirmed(ctx context.Context, b *models.Booking, tickets []models.Ticket) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.confirmed = append(p.confirmed, b.ID)
}

func (p *recordingPublisher) PaymentFailed(ctx context.Context, b *models.Booking, reference string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failed = append(p.failed, b.ID)
}

func (p *recordingPublisher) BookingCancelled(ctx context.Context, b *models.Booking, refundAmount int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cancelled = append(p.cancelled, b.ID)
	p.refundAmts = append(p.refundAmts, refundAmount)
}

// env bundles the wired services most tests need.
type env struct {
	store     *memStore
	gw        *fakeGateway
	pub       *recordingPublisher
	cfg       *config.Config
	inventory *InventoryService
	booking   *BookingService
	reconcile *ReconcileService
	cancel    *CancellationService
	checkin   *CheckInService
	sweeper   *Sweeper
}

func newEnv() *env {
	store := newMemStore()
	gw := newFakeGateway()
	pub := &recordingPublisher{}
	cfg := testConfig()

	inventory := NewInventoryService(store, nil, cfg.AvailabilityTTL)
	issuer := NewTicketIssuer()
	reserved := NewReservationIndex(nil)

	return &env{
		store:     store,
		gw:        gw,
		pub:       pub,
		cfg:       cfg,
		inventory: inventory,
		booking:   NewBookingService(store, inventory, issuer, gw, pub, reserved, cfg),
		reconcile: NewReconcileService(store, gw, inventory, issuer, pub, reserved, cfg),
		cancel:    NewCancellationService(store, inventory, gw, pub, cfg),
		checkin:   NewCheckInService(store),
		sweeper:   NewSweeper(store, inventory, reserved, cfg),
	}
}

func (e *env) addTieredEvent(start time.Time, tiers ...models.TicketTier) *models.Event {
	event := e.store.addEvent(models.Event{
		Name:         "GopherFest",
		Venue:        "Main Hall",
		OrganizerID:  "org1",
		StartTime:    start,
		Status:       "published",
		Currency:     "NGN",
		RefundPolicy: models.RefundPolicyPartial,
	})
	for _, t := range tiers {
		t.EventID = event.ID
		e.store.addTier(t)
	}
	return event
}

func (e *env) addLegacyEvent(start time.Time, price int64, capacity int) *models.Event {
	return e.store.addEvent(models.Event{
		Name:         "Old Meetup",
		OrganizerID:  "org1",
		StartTime:    start,
		Status:       "published",
		Currency:     "NGN",
		RefundPolicy: models.RefundPolicyFull,
		Price:        price,
		Capacity:     capacity,
		Remaining:    capacity,
	})
}

// bookPaid runs the paid initialization path and returns the booking plus
// its pending payment reference.
func (e *env) bookPaid(t testingT, eventID string, lines ...BookingLine) (*models.Booking, string) {
	res, err := e.booking.CreateBooking(context.Background(), CreateBookingRequest{
		BuyerID:    "buyer1",
		BuyerEmail: "buyer1@example.com",
		EventID:    eventID,
		Lines:      lines,
	})
	if err != nil {
		t.Fatalf("paid booking failed: %v", err)
	}
	if !res.RequiresPayment {
		t.Fatalf("expected a paid booking, got free")
	}
	return res.Booking, res.Payment.Reference
}

// confirmPaid drives a paid booking to confirmed through the verify path.
func (e *env) confirmPaid(t testingT, eventID string, lines ...BookingLine) *models.Booking {
	booking, ref := e.bookPaid(t, eventID, lines...)
	e.gw.scriptSuccess(ref, booking.TotalAmount)
	if _, err := e.reconcile.VerifyByReference(context.Background(), ref); err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	confirmed, err := e.store.GetBooking(context.Background(), booking.ID)
	if err != nil {
		t.Fatalf("reload booking: %v", err)
	}
	return confirmed
}

// testingT is the subset of *testing.T the fixtures use.
type testingT interface {
	Fatalf(format string, args ...any)
}
