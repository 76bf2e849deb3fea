package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/GlebRadaev/payee-ledger/internal/domain"
)

type BalanceResponseDTO struct {
	PayeeID            int             `json:"payeeId" example:"7"`
	TotalEarnings      decimal.Decimal `json:"totalEarnings" swaggertype:"string" example:"500.50"`
	TotalWithdrawn     decimal.Decimal `json:"totalWithdrawn" swaggertype:"string" example:"42.00"`
	PendingWithdrawals decimal.Decimal `json:"pendingWithdrawals" swaggertype:"string" example:"10.00"`
	Available          decimal.Decimal `json:"available" swaggertype:"string" example:"448.50"`
	UpdatedAt          *time.Time      `json:"updatedAt,omitempty" example:"2024-03-01T10:00:00Z"`
}

func NewBalanceResponse(b *domain.Balance) BalanceResponseDTO {
	resp := BalanceResponseDTO{
		PayeeID:            b.PayeeID,
		TotalEarnings:      b.TotalEarnings,
		TotalWithdrawn:     b.TotalWithdrawn,
		PendingWithdrawals: b.PendingWithdrawals,
		Available:          b.Available(),
	}
	if !b.UpdatedAt.IsZero() {
		updatedAt := b.UpdatedAt
		resp.UpdatedAt = &updatedAt
	}
	return resp
}

type TransactionResponseDTO struct {
	ID             int64           `json:"id" example:"42"`
	Kind           string          `json:"kind" example:"earning"`
	Amount         decimal.Decimal `json:"amount" swaggertype:"string" example:"90.50"`
	OrderRef       string          `json:"orderRef,omitempty" example:"ORD-1001"`
	IdempotencyKey string          `json:"idempotencyKey" example:"ORD-1001:earning"`
	ExternalRef    string          `json:"externalRef,omitempty"`
	Description    string          `json:"description,omitempty"`
	CreatedAt      time.Time       `json:"createdAt" example:"2024-03-01T10:00:00Z"`
}

func NewTransactionsResponse(txs []domain.Transaction) []TransactionResponseDTO {
	resp := make([]TransactionResponseDTO, 0, len(txs))
	for _, tx := range txs {
		resp = append(resp, TransactionResponseDTO{
			ID:             tx.ID,
			Kind:           string(tx.Kind),
			Amount:         tx.Amount,
			OrderRef:       tx.OrderRef,
			IdempotencyKey: tx.IdempotencyKey,
			ExternalRef:    tx.ExternalRef,
			Description:    tx.Description,
			CreatedAt:      tx.CreatedAt,
		})
	}
	return resp
}
