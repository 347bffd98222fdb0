package admin

import (
	"context"

	"courseledger/internal/domain"
)

type ledgerReader interface {
	GetByEmail(ctx context.Context, email string) (*domain.StudentLedger, error)
	List(ctx context.Context, limit, offset int) ([]domain.StudentLedger, int64, error)
}
