package gateway

import "github.com/shopspring/decimal"

// webhookEnvelope is the raw gateway notification shape.
type webhookEnvelope struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity paymentEntity `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

// paymentEntity carries the gateway's view of one payment attempt.
// Amount is in minor units (paise/cents).
type paymentEntity struct {
	ID               string            `json:"id"`
	OrderID          string            `json:"order_id"`
	Status           string            `json:"status"`
	Amount           int64             `json:"amount"`
	Currency         string            `json:"currency"`
	Email            string            `json:"email"`
	Contact          string            `json:"contact"`
	ErrorDescription string            `json:"error_description"`
	CreatedAt        int64             `json:"created_at"`
	Notes            map[string]string `json:"notes"`
}

type InitiatePaymentRequest struct {
	Name       string          `json:"name" binding:"required" validate:"required"`
	Email      string          `json:"email" binding:"required,email" validate:"required,email"`
	Mobile     string          `json:"mobile" binding:"required" validate:"required"`
	CourseName string          `json:"course_name" binding:"required" validate:"required"`
	Amount     decimal.Decimal `json:"amount" binding:"required" validate:"required"`
	Currency   string          `json:"currency" binding:"required" validate:"required,len=3"`
}

type InitiatePaymentResponse struct {
	ReferenceID string `json:"reference_id"`
	Status      string `json:"status"`
}
