package reconcile

import (
	"context"

	"courseledger/internal/domain"
)

type ledgerStore interface {
	GetByEmail(ctx context.Context, email string) (*domain.StudentLedger, error)
	Upsert(ctx context.Context, l *domain.StudentLedger) error
}

type pendingWriter interface {
	UpdateStatus(ctx context.Context, referenceID string, status domain.PendingPaymentStatus, failureReason string) error
}

// Confirmation is handed to the Notifier after a payment is applied.
type Confirmation struct {
	Email            string `json:"email"`
	Name             string `json:"name"`
	Course           string `json:"course"`
	Amount           string `json:"amount"`
	Currency         string `json:"currency"`
	GatewayPaymentID string `json:"gateway_payment_id"`
}

// Notifier triggers the confirmation side effect. Best effort: the
// reconciler logs and swallows its errors, they never affect the Outcome.
type Notifier interface {
	NotifyPaymentConfirmed(ctx context.Context, c Confirmation) error
}
