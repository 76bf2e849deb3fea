package domain

import (
	"errors"
	"fmt"
)

var (
	ErrValidation           = errors.New("validation error")
	ErrInsufficientBalance  = errors.New("insufficient balance")
	ErrLedgerConflict       = errors.New("ledger conflict: idempotency key reused with a different payload")
	ErrVersionConflict      = errors.New("balance version conflict")
	ErrNotFound             = errors.New("not found")
	ErrInvalidTransition    = errors.New("invalid status transition")
	ErrSalesManagerNotFound = errors.New("sales manager not found")
	ErrReconcileInProgress  = errors.New("reconciliation already in progress")

	ErrGatewayUnavailable   = errors.New("gateway unavailable")
	ErrPayoutOutcomeUnknown = errors.New("payout outcome unknown")
	ErrPayoutRejected       = errors.New("payout rejected by gateway")
	ErrPayoutNotFound       = errors.New("payout not found at gateway")
)

func NewValidationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// IsBusinessError reports errors that retrying the same input cannot fix. A
// joined error is a business error only if every part of it is.
func IsBusinessError(err error) bool {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		errs := joined.Unwrap()
		for _, e := range errs {
			if !IsBusinessError(e) {
				return false
			}
		}
		return len(errs) > 0
	}
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInsufficientBalance) ||
		errors.Is(err, ErrLedgerConflict) ||
		errors.Is(err, ErrInvalidTransition) ||
		errors.Is(err, ErrSalesManagerNotFound) ||
		errors.Is(err, ErrNotFound)
}
