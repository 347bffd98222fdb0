package repository

import (
	"context"

	"courseledger/internal/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type StudentLedgerRepository struct {
	db *gorm.DB
}

func NewStudentLedgerRepository(db *gorm.DB) *StudentLedgerRepository {
	return &StudentLedgerRepository{db: db}
}

// GetByEmail returns (nil, nil) when no ledger exists for the email yet.
func (r *StudentLedgerRepository) GetByEmail(ctx context.Context, email string) (*domain.StudentLedger, error) {
	var l domain.StudentLedger
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&l).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &l, nil
}

// Upsert writes the ledger keyed on email. A concurrent create for the
// same email collapses into an update on the unique-key conflict.
func (r *StudentLedgerRepository) Upsert(ctx context.Context, l *domain.StudentLedger) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "email"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"name", "mobile", "current_course_name",
			"payment1_amount", "payment1_date", "payment1_payment_id",
			"payment2_amount", "payment2_date", "payment2_payment_id",
			"payment3_amount", "payment3_date", "payment3_payment_id",
			"payment4_amount", "payment4_date", "payment4_payment_id",
			"total_amount_paid", "total_payments_count",
			"last_payment_date", "updated_at",
		}),
	}).Create(l).Error
}

func (r *StudentLedgerRepository) List(ctx context.Context, limit, offset int) ([]domain.StudentLedger, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&domain.StudentLedger{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var ledgers []domain.StudentLedger
	err := r.db.WithContext(ctx).
		Order("last_payment_date DESC").
		Limit(limit).
		Offset(offset).
		Find(&ledgers).Error
	if err != nil {
		return nil, 0, err
	}
	return ledgers, total, nil
}
