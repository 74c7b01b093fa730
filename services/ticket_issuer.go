package services

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"tickethub/internal/status"
	"tickethub/models"
	"tickethub/utils"
)

// TicketIssuer creates one ticket record per purchased unit. It is shared by
// the free path (issue at confirmation) and the reconciler (issue when the
// payment settles). The QR payload embeds a random secret whose bcrypt hash
// is the only thing persisted.
type TicketIssuer struct{}

func NewTicketIssuer() *TicketIssuer {
	return &TicketIssuer{}
}

// Issue creates the booking's tickets inside tx. The returned tickets carry
// the plaintext QR payloads for the buyer; they are not reconstructible
// later.
func (i *TicketIssuer) Issue(ctx context.Context, tx Tx, b *models.Booking) ([]models.Ticket, error) {
	if b.TotalQuantity() == 0 {
		return nil, status.Validationf("booking %s has no ticket lines", b.ID)
	}

	tickets := make([]models.Ticket, 0, b.TotalQuantity())
	seq := 0

	for _, d := range b.TicketDetails {
		for n := 0; n < d.Quantity; n++ {
			seq++

			secret, err := utils.GenerateCode(8)
			if err != nil {
				return nil, fmt.Errorf("issuer: generate secret: %w", err)
			}
			hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
			if err != nil {
				return nil, fmt.Errorf("issuer: hash secret: %w", err)
			}

			number := fmt.Sprintf("TKT-%s-%03d", b.Code, seq)
			t := models.Ticket{
				Number:     number,
				BookingID:  b.ID,
				OwnerID:    b.BuyerID,
				EventID:    b.EventID,
				Tier:       d.Tier,
				Price:      d.UnitPrice,
				Status:     models.TicketConfirmed,
				QRPayload:  fmt.Sprintf("%s.%s", number, secret),
				SecretHash: string(hash),
				CreatedAt:  time.Now(),
			}

			if err := tx.CreateTicket(ctx, &t); err != nil {
				return nil, fmt.Errorf("issuer: create ticket %s: %w", number, err)
			}
			tickets = append(tickets, t)
		}
	}

	return tickets, nil
}

// VerifySecret checks a presented QR secret against the stored hash.
func VerifySecret(t *models.Ticket, secret string) bool {
	if t.SecretHash == "" {
		return true // legacy tickets predate QR secrets
	}
	return bcrypt.CompareHashAndPassword([]byte(t.SecretHash), []byte(secret)) == nil
}
