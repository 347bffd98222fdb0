package reconcile

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"courseledger/internal/domain"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

// Significance thresholds: payments below these never touch the ledger,
// which only tracks substantive course enrollments (masterclass and
// trial fees stay out).
var (
	usdSignificanceThreshold     = decimal.NewFromInt(100)
	defaultSignificanceThreshold = decimal.NewFromInt(2000)
)

const defaultStoreTimeout = 5 * time.Second

// Service applies gateway payment events onto student ledgers. One call
// per webhook delivery; redelivery is made safe by the duplicate guard,
// not by retries inside the service.
type Service struct {
	ledgers  ledgerStore
	pendings pendingWriter
	notifier Notifier
	loggerf  func(format string, args ...interface{})

	locks        *emailLocks
	storeTimeout time.Duration
	onOutcome    func(outcome string)
}

func NewService(ledgers ledgerStore, pendings pendingWriter, notifier Notifier, loggerf func(format string, args ...interface{})) *Service {
	if loggerf == nil {
		loggerf = func(string, ...interface{}) {}
	}
	return &Service{
		ledgers:      ledgers,
		pendings:     pendings,
		notifier:     notifier,
		loggerf:      loggerf,
		locks:        newEmailLocks(),
		storeTimeout: defaultStoreTimeout,
	}
}

// SetStoreTimeout bounds every ledger read/write; a timeout surfaces as
// ErrStoreUnavailable.
func (s *Service) SetStoreTimeout(d time.Duration) {
	if d > 0 {
		s.storeTimeout = d
	}
}

// SetOutcomeHook installs a counter callback invoked once per reconcile.
func (s *Service) SetOutcomeHook(fn func(outcome string)) {
	s.onOutcome = fn
}

// Reconcile applies one PaymentEvent and reports what happened.
// Skips are not errors; a non-nil error always comes with OutcomeError.
func (s *Service) Reconcile(ctx context.Context, ev domain.PaymentEvent) (Outcome, error) {
	out, err := s.reconcile(ctx, ev)
	if s.onOutcome != nil {
		s.onOutcome(out.Metric())
	}
	return out, err
}

func (s *Service) reconcile(ctx context.Context, ev domain.PaymentEvent) (Outcome, error) {
	if ev.Status != domain.PaymentEventSuccess {
		s.forwardPendingStatus(ctx, ev)
		return Outcome{Status: OutcomeSkipped, Reason: ReasonNotCaptured}, nil
	}

	if !significant(ev.Amount, ev.Currency) {
		s.loggerf("msg=payment below significance threshold payment_id=%s amount=%s currency=%s", ev.GatewayPaymentID, ev.Amount, ev.Currency)
		return Outcome{Status: OutcomeSkipped, Reason: ReasonNotSignificant}, nil
	}

	email := normalizeEmail(ev.Email)
	unlock := s.locks.lock(email)
	defer unlock()

	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	ledger, err := s.ledgers.GetByEmail(ctx, email)
	if err != nil {
		return Outcome{Status: OutcomeError, Reason: ReasonStoreUnavailable}, s.storeError("ledger lookup", err)
	}

	if isDuplicate(ledger, ev.GatewayPaymentID) {
		s.loggerf("msg=duplicate webhook delivery ignored payment_id=%s email=%s", ev.GatewayPaymentID, email)
		return Outcome{Status: OutcomeSkipped, Reason: ReasonAlreadyProcessed}, nil
	}

	var out Outcome
	switch {
	case ledger == nil && ev.IsRenewal():
		return Outcome{Status: OutcomeError, Reason: ReasonRenewalWithoutEnrollment},
			fmt.Errorf("email=%s payment_id=%s: %w", email, ev.GatewayPaymentID, ErrRenewalWithoutEnrollment)

	case ledger == nil:
		ledger = newLedgerFromEvent(email, ev)
		out = Outcome{Status: OutcomeApplied, Slot: 1}

	default:
		out = s.applyToExisting(ledger, ev)
	}

	if err := s.ledgers.Upsert(ctx, ledger); err != nil {
		return Outcome{Status: OutcomeError, Reason: ReasonStoreUnavailable}, s.storeError("ledger write", err)
	}
	s.loggerf("msg=payment reconciled email=%s payment_id=%s slot=%d total=%s count=%d",
		email, ev.GatewayPaymentID, out.Slot, ledger.TotalAmountPaid, ledger.TotalPaymentsCount)

	// Post-commit side effects: never roll back or fail the ledger write.
	s.markPendingPaid(ctx, ev)
	s.notify(ev)

	return out, nil
}

func (s *Service) applyToExisting(ledger *domain.StudentLedger, ev domain.PaymentEvent) Outcome {
	if !ev.IsRenewal() {
		ledger.CurrentCourseName = ev.CourseName
	}

	slot, ok := assignSlot(ledger)
	if !ok {
		// All four slots taken; only last_payment_date moves.
		s.loggerf("msg=ledger overflow, all payment slots filled email=%s payment_id=%s", ledger.Email, ev.GatewayPaymentID)
		ledger.LastPaymentDate = ev.PaymentDate
		return Outcome{Status: OutcomeApplied, Slot: 0}
	}

	ledger.Slots()[slot-1].Fill(ev.GatewayPaymentID, ev.Amount, ev.PaymentDate)
	recomputeAggregates(ledger)
	ledger.LastPaymentDate = ev.PaymentDate
	return Outcome{Status: OutcomeApplied, Slot: slot}
}

// forwardPendingStatus pushes a non-success verdict onto the pending
// payment record; the ledger is never touched.
func (s *Service) forwardPendingStatus(ctx context.Context, ev domain.PaymentEvent) {
	if ev.ReferenceID == "" {
		return
	}
	status := domain.PendingStatusPending
	if ev.Status == domain.PaymentEventFailed {
		status = domain.PendingStatusFailed
	}
	if err := s.pendings.UpdateStatus(ctx, ev.ReferenceID, status, ev.FailureReason); err != nil {
		s.loggerf("msg=failed to forward gateway status to pending payment reference_id=%s status=%s err=%v", ev.ReferenceID, status, err)
	}
}

func (s *Service) markPendingPaid(ctx context.Context, ev domain.PaymentEvent) {
	if ev.ReferenceID == "" {
		return
	}
	if err := s.pendings.UpdateStatus(ctx, ev.ReferenceID, domain.PendingStatusPaid, ""); err != nil {
		s.loggerf("msg=failed to mark pending payment paid reference_id=%s err=%v", ev.ReferenceID, err)
	}
}

func (s *Service) notify(ev domain.PaymentEvent) {
	if s.notifier == nil {
		return
	}
	c := Confirmation{
		Email:            normalizeEmail(ev.Email),
		Name:             ev.Name,
		Course:           ev.CourseName,
		Amount:           ev.Amount.String(),
		Currency:         ev.Currency,
		GatewayPaymentID: ev.GatewayPaymentID,
	}
	if err := s.notifier.NotifyPaymentConfirmed(context.Background(), c); err != nil {
		s.loggerf("msg=confirmation notification failed payment_id=%s err=%v", ev.GatewayPaymentID, err)
	}
}

func (s *Service) storeError(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s: %v: %w", op, err, ErrStoreUnavailable)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%s: %v: %w", op, err, ErrStoreConflict)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// significant reports whether the amount clears the currency threshold
// (USD >= 100, everything else >= 2000).
func significant(amount decimal.Decimal, currency string) bool {
	if strings.EqualFold(currency, "USD") {
		return amount.Cmp(usdSignificanceThreshold) >= 0
	}
	return amount.Cmp(defaultSignificanceThreshold) >= 0
}

// isDuplicate reports whether the gateway payment id is already recorded
// in any slot of the ledger. A missing ledger is never a duplicate.
func isDuplicate(ledger *domain.StudentLedger, gatewayPaymentID string) bool {
	if ledger == nil {
		return false
	}
	for _, slot := range ledger.Slots() {
		if slot.GatewayPaymentID.Valid && slot.GatewayPaymentID.String == gatewayPaymentID {
			return true
		}
	}
	return false
}

// assignSlot returns the 1-based index of the first empty slot. Strictly
// first-empty: if an earlier slot is empty while a later one is filled
// (a data anomaly), the earlier slot is used next.
func assignSlot(ledger *domain.StudentLedger) (int, bool) {
	for i, slot := range ledger.Slots() {
		if !slot.Filled() {
			return i + 1, true
		}
	}
	return 0, false
}

// recomputeAggregates rebuilds the totals from the full slot set. Always
// recomputed, never incremented, so a prior partial write self-corrects.
func recomputeAggregates(ledger *domain.StudentLedger) {
	total := decimal.Zero
	count := 0
	for _, slot := range ledger.Slots() {
		if !slot.Filled() {
			continue
		}
		count++
		if slot.Amount.Valid {
			total = total.Add(slot.Amount.Decimal)
		}
	}
	ledger.TotalAmountPaid = total
	ledger.TotalPaymentsCount = count
}

func newLedgerFromEvent(email string, ev domain.PaymentEvent) *domain.StudentLedger {
	l := &domain.StudentLedger{
		Email:             email,
		Name:              ev.Name,
		Mobile:            ev.Mobile,
		CurrentCourseName: ev.CourseName,
		EnrollmentDate:    ev.PaymentDate,
		LastPaymentDate:   ev.PaymentDate,
	}
	l.Slot1.Fill(ev.GatewayPaymentID, ev.Amount, ev.PaymentDate)
	recomputeAggregates(l)
	return l
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
