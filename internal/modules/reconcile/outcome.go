package reconcile

// OutcomeStatus classifies what a reconcile call did.
type OutcomeStatus string

const (
	OutcomeApplied OutcomeStatus = "applied"
	OutcomeSkipped OutcomeStatus = "skipped"
	OutcomeError   OutcomeStatus = "error"
)

// SkipReason explains a skipped or failed reconcile.
type SkipReason string

const (
	ReasonAlreadyProcessed         SkipReason = "already_processed"
	ReasonNotSignificant           SkipReason = "not_significant"
	ReasonNotCaptured              SkipReason = "not_captured"
	ReasonRenewalWithoutEnrollment SkipReason = "renewal_without_enrollment"
	ReasonStoreUnavailable         SkipReason = "store_unavailable"
	ReasonStoreConflict            SkipReason = "store_conflict"
)

// Outcome is the result of reconciling one PaymentEvent. Slot is 1..4
// when a slot was filled and 0 when the event was applied as overflow
// (all four slots already taken, only last_payment_date moved).
type Outcome struct {
	Status OutcomeStatus `json:"status"`
	Slot   int           `json:"slot,omitempty"`
	Reason SkipReason    `json:"reason,omitempty"`
}

// Metric returns a single label value for outcome counters.
func (o Outcome) Metric() string {
	if o.Reason != "" {
		return string(o.Status) + "_" + string(o.Reason)
	}
	return string(o.Status)
}
