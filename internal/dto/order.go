package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/GlebRadaev/payee-ledger/internal/domain"
)

// OrderEventDTO is an order status change published by the order pipeline.
type OrderEventDTO struct {
	OrderID      string          `json:"orderId" validate:"required,max=64" example:"ORD-1001"`
	PayeeID      int             `json:"payeeId" validate:"required,gt=0" example:"7"`
	TotalPrice   decimal.Decimal `json:"totalPrice" swaggertype:"string" example:"200.10"`
	Status       string          `json:"status" validate:"required,oneof=pending paid shipped delivered completed cancelled refunded" example:"delivered"`
	SalesRefCode string          `json:"salesRefCode,omitempty" validate:"max=64" example:"REF-50"`
	UpdatedAt    time.Time       `json:"updatedAt" example:"2024-03-01T10:00:00Z"`
}

func (d OrderEventDTO) ToDomain() *domain.Order {
	updatedAt := d.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}
	return &domain.Order{
		OrderID:      d.OrderID,
		PayeeID:      d.PayeeID,
		TotalPrice:   d.TotalPrice,
		Status:       domain.OrderStatus(d.Status),
		SalesRefCode: d.SalesRefCode,
		UpdatedAt:    updatedAt,
	}
}

type OrderResponseDTO struct {
	OrderID      string          `json:"orderId" example:"ORD-1001"`
	PayeeID      int             `json:"payeeId" example:"7"`
	TotalPrice   decimal.Decimal `json:"totalPrice" swaggertype:"string" example:"200.10"`
	Status       string          `json:"status" example:"delivered"`
	SalesRefCode string          `json:"salesRefCode,omitempty" example:"REF-50"`
	UpdatedAt    time.Time       `json:"updatedAt" example:"2024-03-01T10:00:00Z"`
}

func NewOrderResponse(o *domain.Order) OrderResponseDTO {
	return OrderResponseDTO{
		OrderID:      o.OrderID,
		PayeeID:      o.PayeeID,
		TotalPrice:   o.TotalPrice,
		Status:       string(o.Status),
		SalesRefCode: o.SalesRefCode,
		UpdatedAt:    o.UpdatedAt,
	}
}
