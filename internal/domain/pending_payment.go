package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PendingPaymentStatus tracks a payment attempt from checkout redirect
// to its gateway verdict.
type PendingPaymentStatus string

const (
	PendingStatusCreated PendingPaymentStatus = "created"
	PendingStatusPending PendingPaymentStatus = "pending"
	PendingStatusPaid    PendingPaymentStatus = "paid"
	PendingStatusFailed  PendingPaymentStatus = "failed"
)

// PendingPayment is created before the student is redirected to the
// gateway and correlated back via reference_id carried in webhook notes.
type PendingPayment struct {
	ID          int64  `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	ReferenceID string `gorm:"column:reference_id;uniqueIndex" json:"reference_id"`

	Email      string          `gorm:"column:email" json:"email"`
	Name       string          `gorm:"column:name" json:"name"`
	Mobile     string          `gorm:"column:mobile" json:"mobile"`
	CourseName string          `gorm:"column:course_name" json:"course_name"`
	Amount     decimal.Decimal `gorm:"column:amount;type:numeric(12,2)" json:"amount"`
	Currency   string          `gorm:"column:currency" json:"currency"`

	Status        PendingPaymentStatus `gorm:"column:status" json:"status"`
	FailureReason string               `gorm:"column:failure_reason" json:"failure_reason,omitempty"`

	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (PendingPayment) TableName() string { return "pending_payments" }
