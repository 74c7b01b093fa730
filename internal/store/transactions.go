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

func (s *PBStore) CreateTransaction(ctx context.Context, t *models.Transaction) error {
	collection, err := s.app.FindCollectionByNameOrId(collTransactions)
	if err != nil {
		return fmt.Errorf("store: transactions collection: %w", err)
	}

	record := core.NewRecord(collection)
	record.Set("reference", t.Reference)
	record.Set("booking", t.BookingID)
	record.Set("amount", t.Amount)
	record.Set("currency", t.Currency)
	record.Set("status", t.Status)
	record.Set("authorization_url", t.AuthorizationURL)
	record.Set("access_code", t.AccessCode)

	if err := s.app.SaveWithContext(ctx, record); err != nil {
		// The unique index on reference makes duplicate submissions a
		// conflict, not a second transaction.
		return fmt.Errorf("%w: create transaction %s: %v", status.ErrConflict, t.Reference, err)
	}

	t.ID = record.Id
	t.CreatedAt = record.GetDateTime("created").Time()
	return nil
}

func (s *PBStore) GetTransactionByReference(ctx context.Context, reference string) (*models.Transaction, error) {
	record, err := s.app.FindFirstRecordByFilter(
		collTransactions,
		"reference = {:reference}",
		dbx.Params{"reference": reference},
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: reference %s", status.ErrUnknownReference, reference)
		}
		return nil, fmt.Errorf("store: get transaction: %w", err)
	}
	return transactionFromRecord(record), nil
}

func (s *PBStore) FindPendingTransaction(ctx context.Context, bookingID string) (*models.Transaction, error) {
	return s.findTransactionByStatus(bookingID, models.TxPending)
}

func (s *PBStore) FindCompletedTransaction(ctx context.Context, bookingID string) (*models.Transaction, error) {
	return s.findTransactionByStatus(bookingID, models.TxCompleted)
}

func (s *PBStore) findTransactionByStatus(bookingID, wantStatus string) (*models.Transaction, error) {
	record, err := s.app.FindFirstRecordByFilter(
		collTransactions,
		"booking = {:bookingId} && status = {:status}",
		dbx.Params{"bookingId": bookingID, "status": wantStatus},
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("store: find %s transaction: %w", wantStatus, err)
	}
	return transactionFromRecord(record), nil
}

// settle performs the pending -> terminal compare-and-swap.
func (s *PBStore) settle(reference, terminal string, settle services.TxSettle) (bool, error) {
	res, err := s.app.DB().NewQuery(`
		UPDATE transactions SET
			status = {:terminal},
			channel = {:channel},
			gateway_response = {:gatewayResponse},
			settled_at = {:settledAt}
		WHERE reference = {:reference} AND status = 'pending'
	`).Bind(dbx.Params{
		"terminal":        terminal,
		"channel":         settle.Channel,
		"gatewayResponse": settle.GatewayResponse,
		"settledAt":       settle.SettledAt.UTC().Format("2006-01-02 15:04:05.000Z"),
		"reference":       reference,
	}).Execute()
	if err != nil {
		return false, fmt.Errorf("store: settle transaction: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (s *PBStore) CompleteTransaction(ctx context.Context, reference string, st services.TxSettle) (bool, error) {
	return s.settle(reference, models.TxCompleted, st)
}

func (s *PBStore) FailTransaction(ctx context.Context, reference string, st services.TxSettle) (bool, error) {
	return s.settle(reference, models.TxFailed, st)
}

func (s *PBStore) MarkRefundRequested(ctx context.Context, reference string, amount int64) error {
	_, err := s.app.DB().NewQuery(`
		UPDATE transactions SET refund_amount = {:amount}
		WHERE reference = {:reference}
	`).Bind(dbx.Params{"amount": amount, "reference": reference}).Execute()
	if err != nil {
		return fmt.Errorf("store: mark refund requested: %w", err)
	}
	return nil
}

func (s *PBStore) RefundTransaction(ctx context.Context, reference string, amount int64) (bool, error) {
	res, err := s.app.DB().NewQuery(`
		UPDATE transactions SET status = 'refunded', refund_amount = {:amount}
		WHERE reference = {:reference} AND status = 'completed'
	`).Bind(dbx.Params{"amount": amount, "reference": reference}).Execute()
	if err != nil {
		return false, fmt.Errorf("store: refund transaction: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func transactionFromRecord(r *core.Record) *models.Transaction {
	return &models.Transaction{
		ID:               r.Id,
		Reference:        r.GetString("reference"),
		BookingID:        r.GetString("booking"),
		Amount:           int64(r.GetFloat("amount")),
		Currency:         r.GetString("currency"),
		Status:           r.GetString("status"),
		AuthorizationURL: r.GetString("authorization_url"),
		AccessCode:       r.GetString("access_code"),
		Channel:          r.GetString("channel"),
		GatewayResponse:  r.GetString("gateway_response"),
		RefundAmount:     int64(r.GetFloat("refund_amount")),
		CreatedAt:        r.GetDateTime("created").Time(),
		SettledAt:        r.GetDateTime("settled_at").Time(),
	}
}
