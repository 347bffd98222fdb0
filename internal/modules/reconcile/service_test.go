package reconcile

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"courseledger/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLedgerStore struct {
	mu      sync.Mutex
	records map[string]domain.StudentLedger
	getErr  error
	putErr  error
	writes  int
}

func newFakeLedgerStore() *fakeLedgerStore {
	return &fakeLedgerStore{records: make(map[string]domain.StudentLedger)}
}

func (f *fakeLedgerStore) GetByEmail(ctx context.Context, email string) (*domain.StudentLedger, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	l, ok := f.records[email]
	if !ok {
		return nil, nil
	}
	cp := l
	return &cp, nil
}

func (f *fakeLedgerStore) Upsert(ctx context.Context, l *domain.StudentLedger) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.putErr != nil {
		return f.putErr
	}
	f.writes++
	f.records[l.Email] = *l
	return nil
}

func (f *fakeLedgerStore) get(email string) domain.StudentLedger {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.records[email]
}

type fakePendingWriter struct {
	mu       sync.Mutex
	statuses map[string]domain.PendingPaymentStatus
	reasons  map[string]string
	err      error
}

func newFakePendingWriter() *fakePendingWriter {
	return &fakePendingWriter{
		statuses: make(map[string]domain.PendingPaymentStatus),
		reasons:  make(map[string]string),
	}
}

func (f *fakePendingWriter) UpdateStatus(ctx context.Context, referenceID string, status domain.PendingPaymentStatus, failureReason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.statuses[referenceID] = status
	if failureReason != "" {
		f.reasons[referenceID] = failureReason
	}
	return nil
}

type fakeNotifier struct {
	mu    sync.Mutex
	calls []Confirmation
	err   error
}

func (f *fakeNotifier) NotifyPaymentConfirmed(ctx context.Context, c Confirmation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, c)
	return f.err
}

func (f *fakeNotifier) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func newTestService(store *fakeLedgerStore, pendings *fakePendingWriter, notifier *fakeNotifier) *Service {
	return NewService(store, pendings, notifier, func(string, ...interface{}) {})
}

func successEvent(id, email, course string, amount int64, day time.Time) domain.PaymentEvent {
	return domain.PaymentEvent{
		GatewayPaymentID: id,
		ReferenceID:      "ref-" + id,
		Status:           domain.PaymentEventSuccess,
		Amount:           decimal.NewFromInt(amount),
		Currency:         "INR",
		Email:            email,
		Name:             "Test Student",
		Mobile:           "9999999999",
		CourseName:       course,
		PaymentDate:      day,
	}
}

var day1 = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

func TestReconcile_CreatesLedgerOnFirstPayment(t *testing.T) {
	store := newFakeLedgerStore()
	pendings := newFakePendingWriter()
	notifier := &fakeNotifier{}
	svc := newTestService(store, pendings, notifier)

	out, err := svc.Reconcile(context.Background(), successEvent("pay_1", "a@x.com", "Agentic AI", 2999, day1))
	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, out.Status)
	assert.Equal(t, 1, out.Slot)

	l := store.get("a@x.com")
	assert.Equal(t, "Agentic AI", l.CurrentCourseName)
	assert.True(t, l.Slot1.Filled())
	assert.Equal(t, "pay_1", l.Slot1.GatewayPaymentID.String)
	assert.True(t, l.TotalAmountPaid.Equal(decimal.NewFromInt(2999)))
	assert.Equal(t, 1, l.TotalPaymentsCount)
	assert.Equal(t, day1, l.EnrollmentDate)
	assert.Equal(t, day1, l.LastPaymentDate)

	assert.Equal(t, domain.PendingStatusPaid, pendings.statuses["ref-pay_1"])
	assert.Equal(t, 1, notifier.count())
}

func TestReconcile_IdempotentRedelivery(t *testing.T) {
	store := newFakeLedgerStore()
	svc := newTestService(store, newFakePendingWriter(), &fakeNotifier{})
	ev := successEvent("pay_1", "a@x.com", "Agentic AI", 2999, day1)

	out, err := svc.Reconcile(context.Background(), ev)
	require.NoError(t, err)
	require.Equal(t, OutcomeApplied, out.Status)
	after1 := store.get("a@x.com")

	for i := 0; i < 3; i++ {
		out, err = svc.Reconcile(context.Background(), ev)
		require.NoError(t, err)
		assert.Equal(t, OutcomeSkipped, out.Status)
		assert.Equal(t, ReasonAlreadyProcessed, out.Reason)
	}

	afterN := store.get("a@x.com")
	assert.Equal(t, after1, afterN, "ledger must be identical after 1 or N deliveries")
	assert.Equal(t, 1, store.writes)
}

func TestReconcile_SlotOrdering(t *testing.T) {
	store := newFakeLedgerStore()
	svc := newTestService(store, newFakePendingWriter(), &fakeNotifier{})

	for i, id := range []string{"pay_1", "pay_2", "pay_3"} {
		out, err := svc.Reconcile(context.Background(), successEvent(id, "a@x.com", "Agentic AI", 2999, day1.AddDate(0, 0, i)))
		require.NoError(t, err)
		assert.Equal(t, i+1, out.Slot)
	}

	l := store.get("a@x.com")
	slots := l.Slots()
	assert.Equal(t, "pay_1", slots[0].GatewayPaymentID.String)
	assert.Equal(t, "pay_2", slots[1].GatewayPaymentID.String)
	assert.Equal(t, "pay_3", slots[2].GatewayPaymentID.String)
	assert.False(t, slots[3].Filled())
	assert.True(t, l.TotalAmountPaid.Equal(decimal.NewFromInt(3*2999)))
	assert.Equal(t, 3, l.TotalPaymentsCount)
}

func TestReconcile_AnomalyUsesEarliestEmptySlot(t *testing.T) {
	store := newFakeLedgerStore()
	ledger := domain.StudentLedger{
		Email:             "a@x.com",
		CurrentCourseName: "Agentic AI",
		EnrollmentDate:    day1,
		LastPaymentDate:   day1,
	}
	// Slot 2 left empty while slot 3 is filled: a partial history.
	ledger.Slot1.Fill("pay_1", decimal.NewFromInt(2999), day1)
	ledger.Slot3.Fill("pay_3", decimal.NewFromInt(2999), day1)
	recomputeAggregates(&ledger)
	store.records["a@x.com"] = ledger

	svc := newTestService(store, newFakePendingWriter(), &fakeNotifier{})
	out, err := svc.Reconcile(context.Background(), successEvent("pay_4", "a@x.com", "Agentic AI", 2999, day1))
	require.NoError(t, err)
	assert.Equal(t, 2, out.Slot)

	l := store.get("a@x.com")
	assert.Equal(t, "pay_4", l.Slot2.GatewayPaymentID.String)
	assert.Equal(t, 3, l.TotalPaymentsCount)
}

func TestReconcile_RenewalPreservesCourseName(t *testing.T) {
	store := newFakeLedgerStore()
	svc := newTestService(store, newFakePendingWriter(), &fakeNotifier{})

	_, err := svc.Reconcile(context.Background(), successEvent("pay_1", "a@x.com", "Agentic AI", 2999, day1))
	require.NoError(t, err)

	out, err := svc.Reconcile(context.Background(), successEvent("pay_2", "a@x.com", domain.RenewalCourseName, 2999, day1.AddDate(0, 1, 0)))
	require.NoError(t, err)
	assert.Equal(t, 2, out.Slot)

	l := store.get("a@x.com")
	assert.Equal(t, "Agentic AI", l.CurrentCourseName)
}

func TestReconcile_RenewalWithoutEnrollment(t *testing.T) {
	store := newFakeLedgerStore()
	svc := newTestService(store, newFakePendingWriter(), &fakeNotifier{})

	out, err := svc.Reconcile(context.Background(), successEvent("pay_1", "new@x.com", domain.RenewalCourseName, 2999, day1))
	assert.ErrorIs(t, err, ErrRenewalWithoutEnrollment)
	assert.Equal(t, OutcomeError, out.Status)
	assert.Equal(t, ReasonRenewalWithoutEnrollment, out.Reason)

	_, exists := store.records["new@x.com"]
	assert.False(t, exists, "no synthetic record may be created")
}

func TestReconcile_SignificanceThresholds(t *testing.T) {
	cases := []struct {
		name     string
		amount   decimal.Decimal
		currency string
		applied  bool
	}{
		{"inr below", decimal.NewFromInt(1999), "INR", false},
		{"inr boundary", decimal.NewFromInt(2000), "INR", true},
		{"usd below", decimal.RequireFromString("99.99"), "USD", false},
		{"usd boundary", decimal.NewFromInt(100), "USD", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := newFakeLedgerStore()
			svc := newTestService(store, newFakePendingWriter(), &fakeNotifier{})
			ev := successEvent("pay_1", "a@x.com", "Agentic AI", 0, day1)
			ev.Amount = tc.amount
			ev.Currency = tc.currency

			out, err := svc.Reconcile(context.Background(), ev)
			require.NoError(t, err)
			if tc.applied {
				assert.Equal(t, OutcomeApplied, out.Status)
			} else {
				assert.Equal(t, OutcomeSkipped, out.Status)
				assert.Equal(t, ReasonNotSignificant, out.Reason)
				assert.Empty(t, store.records)
			}
		})
	}
}

func TestReconcile_OverflowUpdatesLastPaymentDateOnly(t *testing.T) {
	store := newFakeLedgerStore()
	svc := newTestService(store, newFakePendingWriter(), &fakeNotifier{})

	for i, id := range []string{"pay_1", "pay_2", "pay_3", "pay_4"} {
		_, err := svc.Reconcile(context.Background(), successEvent(id, "a@x.com", "Agentic AI", 2999, day1.AddDate(0, 0, i)))
		require.NoError(t, err)
	}
	before := store.get("a@x.com")

	day5 := day1.AddDate(0, 0, 10)
	out, err := svc.Reconcile(context.Background(), successEvent("pay_5", "a@x.com", "Agentic AI", 2999, day5))
	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, out.Status)
	assert.Equal(t, 0, out.Slot)

	after := store.get("a@x.com")
	assert.Equal(t, day5, after.LastPaymentDate)
	assert.True(t, before.TotalAmountPaid.Equal(after.TotalAmountPaid))
	assert.Equal(t, before.TotalPaymentsCount, after.TotalPaymentsCount)
	for i, slot := range after.Slots() {
		assert.Equal(t, before.Slots()[i].GatewayPaymentID, slot.GatewayPaymentID)
	}
}

func TestReconcile_FailedEventForwardsToPendingOnly(t *testing.T) {
	store := newFakeLedgerStore()
	pendings := newFakePendingWriter()
	svc := newTestService(store, pendings, &fakeNotifier{})

	ev := successEvent("pay_1", "a@x.com", "Agentic AI", 2999, day1)
	ev.Status = domain.PaymentEventFailed
	ev.FailureReason = "card declined"

	out, err := svc.Reconcile(context.Background(), ev)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSkipped, out.Status)
	assert.Equal(t, ReasonNotCaptured, out.Reason)
	assert.Equal(t, domain.PendingStatusFailed, pendings.statuses["ref-pay_1"])
	assert.Equal(t, "card declined", pendings.reasons["ref-pay_1"])
	assert.Empty(t, store.records)
}

// The three-payment enrollment scenario: two course payments followed by
// a renewal, checked slot by slot.
func TestReconcile_EnrollmentScenario(t *testing.T) {
	store := newFakeLedgerStore()
	svc := newTestService(store, newFakePendingWriter(), &fakeNotifier{})
	ctx := context.Background()

	_, err := svc.Reconcile(ctx, successEvent("id1", "a@x.com", "Agentic AI", 2999, day1))
	require.NoError(t, err)
	l := store.get("a@x.com")
	require.True(t, l.TotalAmountPaid.Equal(decimal.NewFromInt(2999)))
	require.Equal(t, 1, l.TotalPaymentsCount)

	day31 := day1.AddDate(0, 0, 30)
	_, err = svc.Reconcile(ctx, successEvent("id2", "a@x.com", "Agentic AI", 2999, day31))
	require.NoError(t, err)
	l = store.get("a@x.com")
	require.Equal(t, "id2", l.Slot2.GatewayPaymentID.String)
	require.True(t, l.TotalAmountPaid.Equal(decimal.NewFromInt(5998)))
	require.Equal(t, 2, l.TotalPaymentsCount)

	day61 := day1.AddDate(0, 0, 60)
	_, err = svc.Reconcile(ctx, successEvent("id3", "a@x.com", domain.RenewalCourseName, 2999, day61))
	require.NoError(t, err)
	l = store.get("a@x.com")
	assert.Equal(t, "id3", l.Slot3.GatewayPaymentID.String)
	assert.Equal(t, "Agentic AI", l.CurrentCourseName)
	assert.True(t, l.TotalAmountPaid.Equal(decimal.NewFromInt(8997)))
	assert.Equal(t, 3, l.TotalPaymentsCount)
	assert.Equal(t, day61, l.LastPaymentDate)
	assert.Equal(t, day1, l.EnrollmentDate)
}

func TestReconcile_ConcurrentDuplicateDelivery(t *testing.T) {
	store := newFakeLedgerStore()
	svc := newTestService(store, newFakePendingWriter(), &fakeNotifier{})
	ev := successEvent("pay_1", "a@x.com", "Agentic AI", 2999, day1)

	const deliveries = 16
	outcomes := make([]Outcome, deliveries)
	errs := make([]error, deliveries)
	var wg sync.WaitGroup
	for i := 0; i < deliveries; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			outcomes[i], errs[i] = svc.Reconcile(context.Background(), ev)
		}(i)
	}
	wg.Wait()

	applied := 0
	for i, out := range outcomes {
		require.NoError(t, errs[i])
		if out.Status == OutcomeApplied {
			applied++
		} else {
			assert.Equal(t, ReasonAlreadyProcessed, out.Reason)
		}
	}
	assert.Equal(t, 1, applied)
	assert.Equal(t, 1, store.writes)

	l := store.get("a@x.com")
	assert.Equal(t, 1, l.TotalPaymentsCount)
}

func TestReconcile_StoreTimeoutSurfacesAsUnavailable(t *testing.T) {
	store := newFakeLedgerStore()
	store.getErr = context.DeadlineExceeded
	svc := newTestService(store, newFakePendingWriter(), &fakeNotifier{})

	out, err := svc.Reconcile(context.Background(), successEvent("pay_1", "a@x.com", "Agentic AI", 2999, day1))
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.Equal(t, OutcomeError, out.Status)
}

func TestReconcile_NotifierFailureDoesNotAffectOutcome(t *testing.T) {
	store := newFakeLedgerStore()
	notifier := &fakeNotifier{err: errors.New("broker down")}
	svc := newTestService(store, newFakePendingWriter(), notifier)

	out, err := svc.Reconcile(context.Background(), successEvent("pay_1", "a@x.com", "Agentic AI", 2999, day1))
	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, out.Status)
	assert.Equal(t, 1, notifier.count())
}

func TestReconcile_PendingWriterFailureDoesNotAffectOutcome(t *testing.T) {
	store := newFakeLedgerStore()
	pendings := newFakePendingWriter()
	pendings.err = errors.New("db down")
	svc := newTestService(store, pendings, &fakeNotifier{})

	out, err := svc.Reconcile(context.Background(), successEvent("pay_1", "a@x.com", "Agentic AI", 2999, day1))
	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, out.Status)
}

func TestReconcile_EmailNormalization(t *testing.T) {
	store := newFakeLedgerStore()
	svc := newTestService(store, newFakePendingWriter(), &fakeNotifier{})

	_, err := svc.Reconcile(context.Background(), successEvent("pay_1", "A@X.com ", "Agentic AI", 2999, day1))
	require.NoError(t, err)

	out, err := svc.Reconcile(context.Background(), successEvent("pay_2", "a@x.com", "Agentic AI", 2999, day1))
	require.NoError(t, err)
	assert.Equal(t, 2, out.Slot, "case-variant emails must land in the same ledger")
}
