package repository

import (
	"context"

	"courseledger/internal/domain"

	"gorm.io/gorm"
)

type PendingPaymentRepository struct {
	db *gorm.DB
}

func NewPendingPaymentRepository(db *gorm.DB) *PendingPaymentRepository {
	return &PendingPaymentRepository{db: db}
}

func (r *PendingPaymentRepository) Create(ctx context.Context, p *domain.PendingPayment) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *PendingPaymentRepository) GetByReferenceID(ctx context.Context, referenceID string) (*domain.PendingPayment, error) {
	var p domain.PendingPayment
	if err := r.db.WithContext(ctx).Where("reference_id = ?", referenceID).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// UpdateStatus forwards a gateway verdict onto the pending record.
// failureReason is only written when non-empty.
func (r *PendingPaymentRepository) UpdateStatus(ctx context.Context, referenceID string, status domain.PendingPaymentStatus, failureReason string) error {
	updates := map[string]interface{}{
		"status": status,
	}
	if failureReason != "" {
		updates["failure_reason"] = failureReason
	}
	res := r.db.WithContext(ctx).
		Model(&domain.PendingPayment{}).
		Where("reference_id = ?", referenceID).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
