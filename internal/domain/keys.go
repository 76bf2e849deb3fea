package domain

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Idempotency keys. Each money event has exactly one key per payee.

func EarningKey(orderID string) string {
	return orderID + ":earning"
}

func EarningReversalKey(orderID string) string {
	return orderID + ":earning:reversal"
}

func CommissionKey(orderID string) string {
	return "commission:" + orderID
}

func CommissionReversalKey(orderID string) string {
	return "commission:" + orderID + ":reversal"
}

func WithdrawalReserveKey(id uuid.UUID) string {
	return "withdrawal:" + id.String() + ":reserve"
}

func WithdrawalSettleKey(id uuid.UUID) string {
	return "withdrawal:" + id.String() + ":settle"
}

// WithdrawalReleaseKey is shared by FAILED and CANCELLED, only one of them can happen.
func WithdrawalReleaseKey(id uuid.UUID) string {
	return "withdrawal:" + id.String() + ":release"
}

// ValidateAmount accepts positive amounts with at most two decimal places.
func ValidateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return NewValidationError("amount must be positive, got %s", amount.String())
	}
	if !amount.Equal(amount.Round(2)) {
		return NewValidationError("amount %s has more than two decimal places", amount.String())
	}
	return nil
}
