package orders

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/GlebRadaev/payee-ledger/internal/domain"
	"github.com/GlebRadaev/payee-ledger/internal/dto"
	"github.com/GlebRadaev/payee-ledger/internal/handlers/httperr"
	"github.com/GlebRadaev/payee-ledger/pkg/utils"
)

//go:generate mockgen -source=orders.go -destination=mock_orders.go -package=orders

type Service interface {
	HandleOrderEvent(ctx context.Context, order *domain.Order) error
	Get(ctx context.Context, orderID string) (*domain.Order, error)
}

type OrderHandler struct {
	orderService Service
}

func New(orderService Service) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
	}
}

// AddEvent godoc
//
//	@Summary		Submit an order event
//	@Description	Applies an order status change from the order pipeline. Delivery is at-least-once, repeated and stale events are accepted without effect.
//	@Tags			Orders
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		dto.OrderEventDTO	true	"Order event"
//	@Success		202		{object}	utils.Response		"Event applied"
//	@Failure		400		{object}	utils.Response		"Malformed body"
//	@Failure		403		{object}	utils.Response		"Service role required"
//	@Failure		409		{object}	utils.Response		"Amount differs from an earlier event"
//	@Failure		422		{object}	utils.Response		"Invalid event"
//	@Failure		500		{object}	utils.Response		"Internal server error"
//	@Router			/api/internal/orders/events [post]
func (h *OrderHandler) AddEvent(w http.ResponseWriter, r *http.Request) {
	var req dto.OrderEventDTO
	if err := utils.DecodeJSON(r, &req); err != nil {
		httperr.Respond(w, r, err)
		return
	}

	if err := h.orderService.HandleOrderEvent(r.Context(), req.ToDomain()); err != nil {
		httperr.Respond(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusAccepted, utils.Response{Message: "Order event accepted"})
}

// GetOrder godoc
//
//	@Summary	Get the ledger view of an order
//	@Tags		Orders
//	@Security	BearerAuth
//	@Produce	json
//	@Param		orderID	path		string	true	"Order id"
//	@Success	200		{object}	dto.OrderResponseDTO
//	@Failure	404		{object}	utils.Response	"Order not found"
//	@Failure	500		{object}	utils.Response	"Internal server error"
//	@Router		/api/internal/orders/{orderID} [get]
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.orderService.Get(r.Context(), chi.URLParam(r, "orderID"))
	if err != nil {
		httperr.Respond(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dto.NewOrderResponse(order))
}
