package reconcile

import "errors"

var (
	// ErrRenewalWithoutEnrollment: a renewal event for an email with no
	// ledger record. Data-integrity error, never creates a record.
	ErrRenewalWithoutEnrollment = errors.New("renewal payment without existing enrollment")

	// ErrStoreUnavailable wraps store timeouts; the transport should map
	// it to a retryable status so the gateway redelivers.
	ErrStoreUnavailable = errors.New("ledger store unavailable")

	// ErrStoreConflict wraps unique-key conflicts that survived the
	// per-email serialization (e.g. a concurrent writer on another node).
	ErrStoreConflict = errors.New("ledger store conflict")
)
