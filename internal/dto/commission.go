package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/GlebRadaev/payee-ledger/internal/domain"
)

type CommissionResponseDTO struct {
	ID                int             `json:"id" example:"3"`
	SalesManagerID    int             `json:"salesManagerId" example:"50"`
	OrderID           string          `json:"orderId" example:"ORD-1001"`
	OrderTotal        decimal.Decimal `json:"orderTotal" swaggertype:"string" example:"200.10"`
	CommissionPercent decimal.Decimal `json:"commissionPercent" swaggertype:"string" example:"5"`
	CommissionAmount  decimal.Decimal `json:"commissionAmount" swaggertype:"string" example:"10.01"`
	Status            string          `json:"status" example:"APPROVED"`
	CreatedAt         time.Time       `json:"createdAt" example:"2024-03-01T10:00:00Z"`
	ApprovedAt        *time.Time      `json:"approvedAt,omitempty"`
	PaidAt            *time.Time      `json:"paidAt,omitempty"`
	CancelledAt       *time.Time      `json:"cancelledAt,omitempty"`
}

func NewCommissionResponse(c *domain.Commission) CommissionResponseDTO {
	return CommissionResponseDTO{
		ID:                c.ID,
		SalesManagerID:    c.SalesManagerID,
		OrderID:           c.OrderID,
		OrderTotal:        c.OrderTotal,
		CommissionPercent: c.CommissionPercent,
		CommissionAmount:  c.CommissionAmount,
		Status:            string(c.Status),
		CreatedAt:         c.CreatedAt,
		ApprovedAt:        c.ApprovedAt,
		PaidAt:            c.PaidAt,
		CancelledAt:       c.CancelledAt,
	}
}

func NewCommissionsResponse(cs []domain.Commission) []CommissionResponseDTO {
	resp := make([]CommissionResponseDTO, 0, len(cs))
	for i := range cs {
		resp = append(resp, NewCommissionResponse(&cs[i]))
	}
	return resp
}
