package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/GlebRadaev/payee-ledger/internal/domain"
)

type WithdrawalRequestDTO struct {
	// Optional client generated id, retrying with the same id is safe.
	ID                 string          `json:"id,omitempty" validate:"omitempty,uuid" example:"1b4e28ba-2fa1-11d2-883f-0016d3cca427"`
	Amount             decimal.Decimal `json:"amount" swaggertype:"string" example:"90.50"`
	DestinationAccount string          `json:"destinationAccount" validate:"required,max=32" example:"4111111111111111"`
}

type WithdrawalResponseDTO struct {
	ID                 uuid.UUID       `json:"id" swaggertype:"string" example:"1b4e28ba-2fa1-11d2-883f-0016d3cca427"`
	PayeeID            int             `json:"payeeId" example:"7"`
	Amount             decimal.Decimal `json:"amount" swaggertype:"string" example:"90.50"`
	DestinationAccount string          `json:"destinationAccount" example:"4111111111111111"`
	Status             string          `json:"status" example:"PENDING"`
	Processing         bool            `json:"processing" example:"true"`
	ExternalRef        string          `json:"externalRef,omitempty" example:"po_123"`
	FailureReason      string          `json:"failureReason,omitempty"`
	RequestedAt        time.Time       `json:"requestedAt" example:"2024-03-01T10:00:00Z"`
	DispatchedAt       *time.Time      `json:"dispatchedAt,omitempty"`
	SettledAt          *time.Time      `json:"settledAt,omitempty"`
}

func NewWithdrawalResponse(w *domain.Withdrawal) WithdrawalResponseDTO {
	return WithdrawalResponseDTO{
		ID:                 w.ID,
		PayeeID:            w.PayeeID,
		Amount:             w.Amount,
		DestinationAccount: w.DestinationAccount,
		Status:             string(w.Status),
		Processing:         w.Status == domain.WithdrawalPending,
		ExternalRef:        w.ExternalRef,
		FailureReason:      w.FailureReason,
		RequestedAt:        w.RequestedAt,
		DispatchedAt:       w.DispatchedAt,
		SettledAt:          w.SettledAt,
	}
}

func NewWithdrawalsResponse(ws []domain.Withdrawal) []WithdrawalResponseDTO {
	resp := make([]WithdrawalResponseDTO, 0, len(ws))
	for i := range ws {
		resp = append(resp, NewWithdrawalResponse(&ws[i]))
	}
	return resp
}

// PayoutCallbackDTO is the body the payment gateway posts on a status change.
type PayoutCallbackDTO struct {
	ExternalRef    string `json:"externalRef" example:"po_123"`
	IdempotencyRef string `json:"idempotencyRef" example:"1b4e28ba-2fa1-11d2-883f-0016d3cca427"`
	Status         string `json:"status" validate:"required,oneof=pending completed failed" example:"completed"`
	Reason         string `json:"reason,omitempty"`
}

func (d PayoutCallbackDTO) ToDomain() *domain.Payout {
	return &domain.Payout{
		ExternalRef: d.ExternalRef,
		Status:      domain.PayoutStatus(d.Status),
		Reason:      d.Reason,
	}
}
