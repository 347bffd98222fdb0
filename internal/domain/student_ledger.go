package domain

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
)

// LedgerSlotCount is a fixed business rule: at most four payments are
// tracked per student. Payments beyond the fourth only bump
// last_payment_date.
const LedgerSlotCount = 4

// PaymentSlot holds one recorded payment inside a StudentLedger.
// A slot is filled iff GatewayPaymentID is non-null; amount and date are
// always co-assigned with it.
type PaymentSlot struct {
	Amount           decimal.NullDecimal `gorm:"column:amount;type:numeric(12,2)"`
	Date             sql.NullTime        `gorm:"column:date"`
	GatewayPaymentID sql.NullString      `gorm:"column:payment_id"`
}

// Filled reports whether the slot already holds a payment.
func (s PaymentSlot) Filled() bool {
	return s.GatewayPaymentID.Valid
}

// Fill records a payment into the slot.
func (s *PaymentSlot) Fill(gatewayPaymentID string, amount decimal.Decimal, date time.Time) {
	s.GatewayPaymentID = sql.NullString{String: gatewayPaymentID, Valid: true}
	s.Amount = decimal.NullDecimal{Decimal: amount, Valid: true}
	s.Date = sql.NullTime{Time: date, Valid: true}
}

// StudentLedger is the per-student master record of enrollment and
// payment history. Keyed by email; one record per student.
type StudentLedger struct {
	ID     int64  `gorm:"column:id;primaryKey;autoIncrement"`
	Email  string `gorm:"column:email;uniqueIndex"`
	Name   string `gorm:"column:name"`
	Mobile string `gorm:"column:mobile"`

	// Most recent non-renewal course; renewal payments leave it untouched.
	CurrentCourseName string `gorm:"column:current_course_name"`

	Slot1 PaymentSlot `gorm:"embedded;embeddedPrefix:payment1_"`
	Slot2 PaymentSlot `gorm:"embedded;embeddedPrefix:payment2_"`
	Slot3 PaymentSlot `gorm:"embedded;embeddedPrefix:payment3_"`
	Slot4 PaymentSlot `gorm:"embedded;embeddedPrefix:payment4_"`

	// Derived from the slots after every write, never incremented.
	TotalAmountPaid    decimal.Decimal `gorm:"column:total_amount_paid;type:numeric(12,2)"`
	TotalPaymentsCount int             `gorm:"column:total_payments_count"`

	EnrollmentDate  time.Time `gorm:"column:enrollment_date"`
	LastPaymentDate time.Time `gorm:"column:last_payment_date"`

	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (StudentLedger) TableName() string { return "student_ledgers" }

// Slots exposes the four payment slots as an ordered array so callers
// iterate positions instead of naming columns.
func (l *StudentLedger) Slots() [LedgerSlotCount]*PaymentSlot {
	return [LedgerSlotCount]*PaymentSlot{&l.Slot1, &l.Slot2, &l.Slot3, &l.Slot4}
}
