package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"tickethub/internal/status"
	"tickethub/models"
)

// memStore is an in-memory Store used by the service tests. It reproduces
// the storage contract exactly: conditional decrements that refuse to go
// negative, compare-and-swap status moves, and a WithinTx that rolls every
// write back on error.
type memStore struct {
	mu       sync.Mutex
	events   map[string]*models.Event
	tiers    map[string]*models.TicketTier // eventID + "/" + name
	bookings map[string]*models.Booking
	tickets  map[string]*models.Ticket
	txns     map[string]*models.Transaction // by reference
	seq      int
}

func newMemStore() *memStore {
	return &memStore{
		events:   map[string]*models.Event{},
		tiers:    map[string]*models.TicketTier{},
		bookings: map[string]*models.Booking{},
		tickets:  map[string]*models.Ticket{},
		txns:     map[string]*models.Transaction{},
	}
}

func (s *memStore) nextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s%04d", prefix, s.seq)
}

func (s *memStore) addEvent(e models.Event) *models.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.ID == "" {
		e.ID = s.nextID("evt")
	}
	s.events[e.ID] = &e
	return &e
}

func (s *memStore) addTier(t models.TicketTier) *models.TicketTier {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.ID == "" {
		t.ID = s.nextID("tier")
	}
	s.tiers[t.EventID+"/"+t.Name] = &t
	return &t
}

// snapshot and restore give WithinTx its rollback.
type memSnapshot struct {
	events   map[string]*models.Event
	tiers    map[string]*models.TicketTier
	bookings map[string]*models.Booking
	tickets  map[string]*models.Ticket
	txns     map[string]*models.Transaction
	seq      int
}

func cloneMap[V any](src map[string]*V) map[string]*V {
	dst := make(map[string]*V, len(src))
	for k, v := range src {
		c := *v
		dst[k] = &c
	}
	return dst
}

func (s *memStore) snapshot() memSnapshot {
	return memSnapshot{
		events:   cloneMap(s.events),
		tiers:    cloneMap(s.tiers),
		bookings: cloneMap(s.bookings),
		tickets:  cloneMap(s.tickets),
		txns:     cloneMap(s.txns),
		seq:      s.seq,
	}
}

func (s *memStore) restore(snap memSnapshot) {
	s.events = snap.events
	s.tiers = snap.tiers
	s.bookings = snap.bookings
	s.tickets = snap.tickets
	s.txns = snap.txns
	s.seq = snap.seq
}

// WithinTx serializes transactions under the store mutex and restores the
// pre-transaction state when fn fails.
func (s *memStore) WithinTx(ctx context.Context, fn func(tx Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.snapshot()
	if err := fn(memTx{s}); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

// Direct (auto-commit) methods lock per call; memTx reuses the unlocked
// implementations under the transaction's lock.

func (s *memStore) GetEvent(ctx context.Context, id string) (*models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getEvent(id)
}

func (s *memStore) ApplyAggregates(ctx context.Context, eventID string, d models.AggregateDelta) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.applyAggregates(eventID, d)
}

func (s *memStore) ListTiers(ctx context.Context, eventID string) ([]models.TicketTier, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listTiers(eventID)
}

func (s *memStore) GetTierByName(ctx context.Context, eventID, name string) (*models.TicketTier, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getTierByName(eventID, name)
}

func (s *memStore) Reserve(ctx context.Context, eventID, tier string, qty int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reserve(eventID, tier, qty)
}

func (s *memStore) Release(ctx context.Context, eventID, tier string, qty int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.release(eventID, tier, qty)
}

func (s *memStore) CreateBooking(ctx context.Context, b *models.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createBooking(b)
}

func (s *memStore) GetBooking(ctx context.Context, id string) (*models.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getBooking(id)
}

func (s *memStore) ListBookingsByBuyer(ctx context.Context, buyerID string, limit int) ([]models.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listBookingsByBuyer(buyerID, limit)
}

func (s *memStore) ListExpiredPending(ctx context.Context, before time.Time, limit int) ([]models.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listExpiredPending(before, limit)
}

func (s *memStore) MarkBookingConfirmedPaid(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.markBookingConfirmedPaid(id)
}

func (s *memStore) MarkBookingPaymentFailed(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.markBookingPaymentFailed(id)
}

func (s *memStore) MarkBookingPaymentPending(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.markBookingPaymentPending(id)
}

func (s *memStore) MarkBookingCancelled(ctx context.Context, id, paymentStatus string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.markBookingCancelled(id, paymentStatus)
}

func (s *memStore) MarkBookingExpired(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.markBookingExpired(id)
}

func (s *memStore) CreateTicket(ctx context.Context, t *models.Ticket) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createTicket(t)
}

func (s *memStore) GetTicket(ctx context.Context, id string) (*models.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getTicket(id)
}

func (s *memStore) ListTicketsByBooking(ctx context.Context, bookingID string) ([]models.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listTicketsByBooking(bookingID)
}

func (s *memStore) ListLegacyByOwner(ctx context.Context, ownerID string, limit int) ([]models.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listLegacyByOwner(ownerID, limit)
}

func (s *memStore) MarkTicketUsed(ctx context.Context, id string, ci models.CheckIn) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.markTicketUsed(id, ci)
}

func (s *memStore) MarkTicketCancelled(ctx context.Context, id, refundState string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.markTicketCancelled(id, refundState)
}

func (s *memStore) MarkTicketsRefundSettled(ctx context.Context, bookingID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.markTicketsRefundSettled(bookingID)
}

func (s *memStore) ExpireTickets(ctx context.Context, before time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.expireTickets(before)
}

func (s *memStore) CreateTransaction(ctx context.Context, t *models.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createTransaction(t)
}

func (s *memStore) GetTransactionByReference(ctx context.Context, reference string) (*models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getTransactionByReference(reference)
}

func (s *memStore) FindPendingTransaction(ctx context.Context, bookingID string) (*models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.findTransaction(bookingID, models.TxPending)
}

func (s *memStore) FindCompletedTransaction(ctx context.Context, bookingID string) (*models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.findTransaction(bookingID, models.TxCompleted)
}

func (s *memStore) CompleteTransaction(ctx context.Context, reference string, settle TxSettle) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settleTransaction(reference, models.TxCompleted, settle)
}

func (s *memStore) FailTransaction(ctx context.Context, reference string, settle TxSettle) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settleTransaction(reference, models.TxFailed, settle)
}

func (s *memStore) MarkRefundRequested(ctx context.Context, reference string, amount int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.markRefundRequested(reference, amount)
}

func (s *memStore) RefundTransaction(ctx context.Context, reference string, amount int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refundTransaction(reference, amount)
}

// memTx is the unit-of-work view: the transaction already holds the store
// lock, so it calls the unlocked implementations directly.
type memTx struct{ s *memStore }

func (t memTx) GetEvent(ctx context.Context, id string) (*models.Event, error) {
	return t.s.getEvent(id)
}
func (t memTx) ApplyAggregates(ctx context.Context, eventID string, d models.AggregateDelta) error {
	return t.s.applyAggregates(eventID, d)
}
func (t memTx) ListTiers(ctx context.Context, eventID string) ([]models.TicketTier, error) {
	return t.s.listTiers(eventID)
}
func (t memTx) GetTierByName(ctx context.Context, eventID, name string) (*models.TicketTier, error) {
	return t.s.getTierByName(eventID, name)
}
func (t memTx) Reserve(ctx context.Context, eventID, tier string, qty int) (bool, error) {
	return t.s.reserve(eventID, tier, qty)
}
func (t memTx) Release(ctx context.Context, eventID, tier string, qty int) error {
	return t.s.release(eventID, tier, qty)
}
func (t memTx) CreateBooking(ctx context.Context, b *models.Booking) error {
	return t.s.createBooking(b)
}
func (t memTx) GetBooking(ctx context.Context, id string) (*models.Booking, error) {
	return t.s.getBooking(id)
}
func (t memTx) ListBookingsByBuyer(ctx context.Context, buyerID string, limit int) ([]models.Booking, error) {
	return t.s.listBookingsByBuyer(buyerID, limit)
}
func (t memTx) ListExpiredPending(ctx context.Context, before time.Time, limit int) ([]models.Booking, error) {
	return t.s.listExpiredPending(before, limit)
}
func (t memTx) MarkBookingConfirmedPaid(ctx context.Context, id string) (bool, error) {
	return t.s.markBookingConfirmedPaid(id)
}
func (t memTx) MarkBookingPaymentFailed(ctx context.Context, id string) (bool, error) {
	return t.s.markBookingPaymentFailed(id)
}
func (t memTx) MarkBookingPaymentPending(ctx context.Context, id string) (bool, error) {
	return t.s.markBookingPaymentPending(id)
}
func (t memTx) MarkBookingCancelled(ctx context.Context, id, paymentStatus string) (bool, error) {
	return t.s.markBookingCancelled(id, paymentStatus)
}
func (t memTx) MarkBookingExpired(ctx context.Context, id string) (bool, error) {
	return t.s.markBookingExpired(id)
}
func (t memTx) CreateTicket(ctx context.Context, tk *models.Ticket) error {
	return t.s.createTicket(tk)
}
func (t memTx) GetTicket(ctx context.Context, id string) (*models.Ticket, error) {
	return t.s.getTicket(id)
}
func (t memTx) ListTicketsByBooking(ctx context.Context, bookingID string) ([]models.Ticket, error) {
	return t.s.listTicketsByBooking(bookingID)
}
func (t memTx) ListLegacyByOwner(ctx context.Context, ownerID string, limit int) ([]models.Ticket, error) {
	return t.s.listLegacyByOwner(ownerID, limit)
}
func (t memTx) MarkTicketUsed(ctx context.Context, id string, ci models.CheckIn) (bool, error) {
	return t.s.markTicketUsed(id, ci)
}
func (t memTx) MarkTicketCancelled(ctx context.Context, id, refundState string) (bool, error) {
	return t.s.markTicketCancelled(id, refundState)
}
func (t memTx) MarkTicketsRefundSettled(ctx context.Context, bookingID string) error {
	return t.s.markTicketsRefundSettled(bookingID)
}
func (t memTx) ExpireTickets(ctx context.Context, before time.Time) (int, error) {
	return t.s.expireTickets(before)
}
func (t memTx) CreateTransaction(ctx context.Context, txn *models.Transaction) error {
	return t.s.createTransaction(txn)
}
func (t memTx) GetTransactionByReference(ctx context.Context, reference string) (*models.Transaction, error) {
	return t.s.getTransactionByReference(reference)
}
func (t memTx) FindPendingTransaction(ctx context.Context, bookingID string) (*models.Transaction, error) {
	return t.s.findTransaction(bookingID, models.TxPending)
}
func (t memTx) FindCompletedTransaction(ctx context.Context, bookingID string) (*models.Transaction, error) {
	return t.s.findTransaction(bookingID, models.TxCompleted)
}
func (t memTx) CompleteTransaction(ctx context.Context, reference string, settle TxSettle) (bool, error) {
	return t.s.settleTransaction(reference, models.TxCompleted, settle)
}
func (t memTx) FailTransaction(ctx context.Context, reference string, settle TxSettle) (bool, error) {
	return t.s.settleTransaction(reference, models.TxFailed, settle)
}
func (t memTx) MarkRefundRequested(ctx context.Context, reference string, amount int64) error {
	return t.s.markRefundRequested(reference, amount)
}
func (t memTx) RefundTransaction(ctx context.Context, reference string, amount int64) (bool, error) {
	return t.s.refundTransaction(reference, amount)
}

// Unlocked implementations. Callers hold s.mu.

func (s *memStore) getEvent(id string) (*models.Event, error) {
	e, ok := s.events[id]
	if !ok {
		return nil, fmt.Errorf("%w: event %s", status.ErrNotFound, id)
	}
	c := *e
	return &c, nil
}

func (s *memStore) applyAggregates(eventID string, d models.AggregateDelta) error {
	e, ok := s.events[eventID]
	if !ok {
		return fmt.Errorf("%w: event %s", status.ErrNotFound, eventID)
	}
	e.AttendeeCount = floorZero(e.AttendeeCount + d.Attendees)
	e.BookingCount = floorZero(e.BookingCount + d.Bookings)
	e.Revenue = floorZero64(e.Revenue + d.Revenue)
	return nil
}

func (s *memStore) listTiers(eventID string) ([]models.TicketTier, error) {
	var out []models.TicketTier
	for _, t := range s.tiers {
		if t.EventID == eventID {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *memStore) getTierByName(eventID, name string) (*models.TicketTier, error) {
	t, ok := s.tiers[eventID+"/"+name]
	if !ok {
		return nil, nil
	}
	c := *t
	return &c, nil
}

func (s *memStore) reserve(eventID, tier string, qty int) (bool, error) {
	if tier == "" {
		e, ok := s.events[eventID]
		if !ok {
			return false, fmt.Errorf("%w: event %s", status.ErrNotFound, eventID)
		}
		if e.Remaining < qty {
			return false, nil
		}
		e.Remaining -= qty
		return true, nil
	}

	t, ok := s.tiers[eventID+"/"+tier]
	if !ok {
		return false, fmt.Errorf("%w: tier %s/%s", status.ErrNotFound, eventID, tier)
	}
	if t.Remaining < qty {
		return false, nil
	}
	t.Remaining -= qty
	return true, nil
}

func (s *memStore) release(eventID, tier string, qty int) error {
	if tier == "" {
		e, ok := s.events[eventID]
		if !ok {
			return fmt.Errorf("%w: event %s", status.ErrNotFound, eventID)
		}
		e.Remaining += qty
		if e.Remaining > e.Capacity {
			e.Remaining = e.Capacity
		}
		return nil
	}

	t, ok := s.tiers[eventID+"/"+tier]
	if !ok {
		return fmt.Errorf("%w: tier %s/%s", status.ErrNotFound, eventID, tier)
	}
	t.Remaining += qty
	if t.Remaining > t.Capacity {
		t.Remaining = t.Capacity
	}
	return nil
}

func (s *memStore) createBooking(b *models.Booking) error {
	if b.ID == "" {
		b.ID = s.nextID("bkg")
	}
	c := *b
	s.bookings[b.ID] = &c
	return nil
}

func (s *memStore) getBooking(id string) (*models.Booking, error) {
	b, ok := s.bookings[id]
	if !ok {
		return nil, fmt.Errorf("%w: booking %s", status.ErrNotFound, id)
	}
	c := *b
	return &c, nil
}

func (s *memStore) listBookingsByBuyer(buyerID string, limit int) ([]models.Booking, error) {
	var out []models.Booking
	for _, b := range s.bookings {
		if b.BuyerID == buyerID {
			out = append(out, *b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *memStore) listExpiredPending(before time.Time, limit int) ([]models.Booking, error) {
	var out []models.Booking
	for _, b := range s.bookings {
		if b.Status == models.BookingPending && b.CreatedAt.Before(before) {
			out = append(out, *b)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *memStore) markBookingConfirmedPaid(id string) (bool, error) {
	b, ok := s.bookings[id]
	if !ok {
		return false, fmt.Errorf("%w: booking %s", status.ErrNotFound, id)
	}
	if b.Status != models.BookingPending || b.PaymentStatus != models.PaymentPending {
		return false, nil
	}
	b.Status = models.BookingConfirmed
	b.PaymentStatus = models.PaymentCompleted
	return true, nil
}

func (s *memStore) markBookingPaymentFailed(id string) (bool, error) {
	b, ok := s.bookings[id]
	if !ok {
		return false, fmt.Errorf("%w: booking %s", status.ErrNotFound, id)
	}
	if b.PaymentStatus != models.PaymentPending {
		return false, nil
	}
	b.PaymentStatus = models.PaymentFailed
	return true, nil
}

func (s *memStore) markBookingPaymentPending(id string) (bool, error) {
	b, ok := s.bookings[id]
	if !ok {
		return false, fmt.Errorf("%w: booking %s", status.ErrNotFound, id)
	}
	if b.PaymentStatus != models.PaymentFailed {
		return false, nil
	}
	b.PaymentStatus = models.PaymentPending
	return true, nil
}

func (s *memStore) markBookingCancelled(id, paymentStatus string) (bool, error) {
	b, ok := s.bookings[id]
	if !ok {
		return false, fmt.Errorf("%w: booking %s", status.ErrNotFound, id)
	}
	if b.Status != models.BookingConfirmed {
		return false, nil
	}
	b.Status = models.BookingCancelled
	if paymentStatus != "" {
		b.PaymentStatus = paymentStatus
	}
	return true, nil
}

func (s *memStore) markBookingExpired(id string) (bool, error) {
	b, ok := s.bookings[id]
	if !ok {
		return false, fmt.Errorf("%w: booking %s", status.ErrNotFound, id)
	}
	if b.Status != models.BookingPending {
		return false, nil
	}
	b.Status = models.BookingCancelled
	return true, nil
}

func (s *memStore) createTicket(t *models.Ticket) error {
	if t.ID == "" {
		t.ID = s.nextID("tkt")
	}
	c := *t
	s.tickets[t.ID] = &c
	return nil
}

func (s *memStore) getTicket(id string) (*models.Ticket, error) {
	t, ok := s.tickets[id]
	if !ok {
		return nil, fmt.Errorf("%w: ticket %s", status.ErrNotFound, id)
	}
	c := *t
	return &c, nil
}

func (s *memStore) listTicketsByBooking(bookingID string) ([]models.Ticket, error) {
	var out []models.Ticket
	for _, t := range s.tickets {
		if t.BookingID == bookingID {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

func (s *memStore) listLegacyByOwner(ownerID string, limit int) ([]models.Ticket, error) {
	var out []models.Ticket
	for _, t := range s.tickets {
		if t.OwnerID == ownerID && t.BookingID == "" {
			out = append(out, *t)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *memStore) markTicketUsed(id string, ci models.CheckIn) (bool, error) {
	t, ok := s.tickets[id]
	if !ok {
		return false, fmt.Errorf("%w: ticket %s", status.ErrNotFound, id)
	}
	if t.Status != models.TicketConfirmed {
		return false, nil
	}
	t.Status = models.TicketUsed
	t.CheckIn = &ci
	return true, nil
}

func (s *memStore) markTicketCancelled(id, refundState string) (bool, error) {
	t, ok := s.tickets[id]
	if !ok {
		return false, fmt.Errorf("%w: ticket %s", status.ErrNotFound, id)
	}
	if t.Status != models.TicketConfirmed {
		return false, nil
	}
	t.Status = models.TicketCancelled
	t.RefundState = refundState
	return true, nil
}

func (s *memStore) markTicketsRefundSettled(bookingID string) error {
	for _, t := range s.tickets {
		if t.BookingID == bookingID && t.Status == models.TicketCancelled && t.RefundState == models.RefundRequested {
			t.RefundState = models.RefundSettled
		}
	}
	return nil
}

func (s *memStore) expireTickets(before time.Time) (int, error) {
	n := 0
	for _, t := range s.tickets {
		if t.Status != models.TicketConfirmed {
			continue
		}
		e, ok := s.events[t.EventID]
		if !ok || !e.Finished(before) {
			continue
		}
		t.Status = models.TicketExpired
		n++
	}
	return n, nil
}

func (s *memStore) createTransaction(t *models.Transaction) error {
	if t.ID == "" {
		t.ID = s.nextID("txn")
	}
	if _, exists := s.txns[t.Reference]; exists {
		return fmt.Errorf("%w: reference %s already exists", status.ErrConflict, t.Reference)
	}
	c := *t
	s.txns[t.Reference] = &c
	return nil
}

func (s *memStore) getTransactionByReference(reference string) (*models.Transaction, error) {
	t, ok := s.txns[reference]
	if !ok {
		return nil, fmt.Errorf("%w: reference %s", status.ErrUnknownReference, reference)
	}
	c := *t
	return &c, nil
}

func (s *memStore) findTransaction(bookingID, wantStatus string) (*models.Transaction, error) {
	for _, t := range s.txns {
		if t.BookingID == bookingID && t.Status == wantStatus {
			c := *t
			return &c, nil
		}
	}
	return nil, nil
}

func (s *memStore) settleTransaction(reference, terminal string, settle TxSettle) (bool, error) {
	t, ok := s.txns[reference]
	if !ok {
		return false, fmt.Errorf("%w: reference %s", status.ErrUnknownReference, reference)
	}
	if t.Status != models.TxPending {
		return false, nil
	}
	t.Status = terminal
	t.Channel = settle.Channel
	t.GatewayResponse = settle.GatewayResponse
	t.SettledAt = settle.SettledAt
	return true, nil
}

func (s *memStore) markRefundRequested(reference string, amount int64) error {
	t, ok := s.txns[reference]
	if !ok {
		return fmt.Errorf("%w: reference %s", status.ErrUnknownReference, reference)
	}
	t.RefundAmount = amount
	return nil
}

func (s *memStore) refundTransaction(reference string, amount int64) (bool, error) {
	t, ok := s.txns[reference]
	if !ok {
		return false, fmt.Errorf("%w: reference %s", status.ErrUnknownReference, reference)
	}
	if t.Status != models.TxCompleted {
		return false, nil
	}
	t.Status = models.TxRefunded
	t.RefundAmount = amount
	return true, nil
}

func floorZero(n int) int {
	if n < 0 {
		return 0
	}
	return n
}

func floorZero64(n int64) int64 {
	if n < 0 {
		return 0
	}
	return n
}
