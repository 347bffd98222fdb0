package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"courseledger/internal/domain"
	"courseledger/internal/modules/reconcile"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type reconciler interface {
	Reconcile(ctx context.Context, ev domain.PaymentEvent) (reconcile.Outcome, error)
}

type pendingRepo interface {
	Create(ctx context.Context, p *domain.PendingPayment) error
	GetByReferenceID(ctx context.Context, referenceID string) (*domain.PendingPayment, error)
}

// Service is the gateway-facing transport layer: it authenticates and
// normalizes webhook deliveries before the reconciler sees them, and
// creates the pending-payment record ahead of the checkout redirect.
type Service struct {
	pendings      pendingRepo
	reconciler    reconciler
	webhookSecret string
	loggerf       func(format string, args ...interface{})

	now func() time.Time
}

func NewService(pendings pendingRepo, rec reconciler, webhookSecret string, loggerf func(format string, args ...interface{})) *Service {
	if loggerf == nil {
		loggerf = func(string, ...interface{}) {}
	}
	return &Service{
		pendings:      pendings,
		reconciler:    rec,
		webhookSecret: webhookSecret,
		loggerf:       loggerf,
		now:           time.Now,
	}
}

// HandleWebhook authenticates the raw delivery, normalizes it and hands
// it to the reconciler. Unsigned or mismatched requests never reach the
// engine.
func (s *Service) HandleWebhook(ctx context.Context, rawBody []byte, signature string) (reconcile.Outcome, error) {
	if s.webhookSecret != "" {
		if signature == "" || !verifySignature(rawBody, signature, s.webhookSecret) {
			return reconcile.Outcome{Status: reconcile.OutcomeError}, ErrSignatureInvalid
		}
	}

	var envelope webhookEnvelope
	if err := json.Unmarshal(rawBody, &envelope); err != nil {
		return reconcile.Outcome{Status: reconcile.OutcomeError}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	entity := envelope.Payload.Payment.Entity
	if entity.ID == "" {
		return reconcile.Outcome{Status: reconcile.OutcomeError}, fmt.Errorf("%w: missing payment id", ErrMalformedPayload)
	}

	ev := s.normalizeEvent(entity)
	s.loggerf("msg=webhook normalized event=%s payment_id=%s status=%s amount=%s %s",
		envelope.Event, ev.GatewayPaymentID, ev.Status, ev.Amount, ev.Currency)
	return s.reconciler.Reconcile(ctx, ev)
}

// normalizeEvent maps the gateway entity onto the internal event type.
// Notes take precedence over entity fields; amounts arrive in minor
// units and are converted to major units here.
func (s *Service) normalizeEvent(entity paymentEntity) domain.PaymentEvent {
	status := domain.PaymentEventPending
	switch entity.Status {
	case "captured":
		status = domain.PaymentEventSuccess
	case "failed":
		status = domain.PaymentEventFailed
	}

	email := entity.Notes["email"]
	if email == "" {
		email = entity.Email
	}
	mobile := entity.Notes["mobile"]
	if mobile == "" {
		mobile = entity.Contact
	}
	referenceID := entity.Notes["reference_id"]
	if referenceID == "" {
		referenceID = entity.OrderID
	}

	paymentDate := s.now().UTC()
	if entity.CreatedAt > 0 {
		paymentDate = time.Unix(entity.CreatedAt, 0).UTC()
	}

	return domain.PaymentEvent{
		GatewayPaymentID: entity.ID,
		ReferenceID:      referenceID,
		Status:           status,
		Amount:           decimal.New(entity.Amount, -2),
		Currency:         strings.ToUpper(entity.Currency),
		Email:            email,
		Name:             entity.Notes["name"],
		Mobile:           mobile,
		CourseName:       entity.Notes["course"],
		PaymentDate:      paymentDate,
		FailureReason:    entity.ErrorDescription,
	}
}

// InitiatePayment records a pending payment before the student is sent
// to the gateway; its reference id rides along in the checkout notes.
func (s *Service) InitiatePayment(ctx context.Context, req InitiatePaymentRequest) (*domain.PendingPayment, error) {
	p := &domain.PendingPayment{
		ReferenceID: uuid.NewString(),
		Email:       strings.ToLower(strings.TrimSpace(req.Email)),
		Name:        req.Name,
		Mobile:      req.Mobile,
		CourseName:  req.CourseName,
		Amount:      req.Amount,
		Currency:    strings.ToUpper(req.Currency),
		Status:      domain.PendingStatusCreated,
	}
	if err := s.pendings.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("save pending payment failed: %w", err)
	}
	s.loggerf("msg=pending payment created reference_id=%s course=%s amount=%s %s", p.ReferenceID, p.CourseName, p.Amount, p.Currency)
	return p, nil
}

func (s *Service) GetPendingPayment(ctx context.Context, referenceID string) (*domain.PendingPayment, error) {
	return s.pendings.GetByReferenceID(ctx, referenceID)
}
