package admin

import (
	"context"
	"strings"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// Service is the operator-facing read surface over the ledger store.
type Service struct {
	ledgers ledgerReader
}

func NewService(ledgers ledgerReader) *Service {
	return &Service{ledgers: ledgers}
}

func (s *Service) GetLedger(ctx context.Context, email string) (LedgerResponse, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	l, err := s.ledgers.GetByEmail(ctx, email)
	if err != nil {
		return LedgerResponse{}, err
	}
	if l == nil {
		return LedgerResponse{}, ErrLedgerNotFound
	}
	return toLedgerResponse(l), nil
}

func (s *Service) ListLedgers(ctx context.Context, limit, offset int) (LedgerListResponse, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	if offset < 0 {
		offset = 0
	}

	ledgers, total, err := s.ledgers.List(ctx, limit, offset)
	if err != nil {
		return LedgerListResponse{}, err
	}

	resp := LedgerListResponse{
		Ledgers: make([]LedgerResponse, 0, len(ledgers)),
		Total:   total,
		Limit:   limit,
		Offset:  offset,
	}
	for i := range ledgers {
		resp.Ledgers = append(resp.Ledgers, toLedgerResponse(&ledgers[i]))
	}
	return resp, nil
}
