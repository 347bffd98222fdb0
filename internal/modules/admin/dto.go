package admin

import (
	"time"

	"courseledger/internal/domain"

	"github.com/shopspring/decimal"
)

type SlotResponse struct {
	Amount           *decimal.Decimal `json:"amount"`
	Date             *time.Time       `json:"date"`
	GatewayPaymentID *string          `json:"gateway_payment_id"`
}

type LedgerResponse struct {
	Email              string          `json:"email"`
	Name               string          `json:"name"`
	Mobile             string          `json:"mobile"`
	CurrentCourseName  string          `json:"current_course_name"`
	Slots              []SlotResponse  `json:"slots"`
	TotalAmountPaid    decimal.Decimal `json:"total_amount_paid"`
	TotalPaymentsCount int             `json:"total_payments_count"`
	EnrollmentDate     time.Time       `json:"enrollment_date"`
	LastPaymentDate    time.Time       `json:"last_payment_date"`
}

type LedgerListResponse struct {
	Ledgers []LedgerResponse `json:"ledgers"`
	Total   int64            `json:"total"`
	Limit   int              `json:"limit"`
	Offset  int              `json:"offset"`
}

func toLedgerResponse(l *domain.StudentLedger) LedgerResponse {
	resp := LedgerResponse{
		Email:              l.Email,
		Name:               l.Name,
		Mobile:             l.Mobile,
		CurrentCourseName:  l.CurrentCourseName,
		TotalAmountPaid:    l.TotalAmountPaid,
		TotalPaymentsCount: l.TotalPaymentsCount,
		EnrollmentDate:     l.EnrollmentDate,
		LastPaymentDate:    l.LastPaymentDate,
	}
	for _, slot := range l.Slots() {
		sr := SlotResponse{}
		if slot.Amount.Valid {
			a := slot.Amount.Decimal
			sr.Amount = &a
		}
		if slot.Date.Valid {
			d := slot.Date.Time
			sr.Date = &d
		}
		if slot.GatewayPaymentID.Valid {
			id := slot.GatewayPaymentID.String
			sr.GatewayPaymentID = &id
		}
		resp.Slots = append(resp.Slots, sr)
	}
	return resp
}
