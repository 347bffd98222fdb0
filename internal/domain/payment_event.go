package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentEventStatus is the normalized state of a gateway notification.
type PaymentEventStatus string

const (
	PaymentEventPending PaymentEventStatus = "pending"
	PaymentEventSuccess PaymentEventStatus = "success"
	PaymentEventFailed  PaymentEventStatus = "failed"
)

// RenewalCourseName marks recurring-fee payments that must never change
// the student's recorded course.
const RenewalCourseName = "Renewal Fee (Existing Student Only)"

// PaymentEvent is a normalized gateway notification. It is built once by
// the gateway transport and consumed by the reconciler; redelivery of the
// same GatewayPaymentID is expected and must be a no-op.
type PaymentEvent struct {
	GatewayPaymentID string
	ReferenceID      string
	Status           PaymentEventStatus
	Amount           decimal.Decimal
	Currency         string
	Email            string
	Name             string
	Mobile           string
	CourseName       string
	PaymentDate      time.Time
	FailureReason    string
}

// IsRenewal reports whether the event is a renewal-fee payment.
func (e PaymentEvent) IsRenewal() bool {
	return e.CourseName == RenewalCourseName
}
