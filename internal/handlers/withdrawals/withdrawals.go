package withdrawals

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/GlebRadaev/payee-ledger/internal/domain"
	"github.com/GlebRadaev/payee-ledger/internal/dto"
	"github.com/GlebRadaev/payee-ledger/internal/handlers/httperr"
	"github.com/GlebRadaev/payee-ledger/internal/service/withdrawalservice"
	"github.com/GlebRadaev/payee-ledger/pkg/auth"
	"github.com/GlebRadaev/payee-ledger/pkg/utils"
)

//go:generate mockgen -source=withdrawals.go -destination=mock_withdrawals.go -package=withdrawals

type Service interface {
	Request(ctx context.Context, in withdrawalservice.RequestInput) (*domain.Withdrawal, error)
	Get(ctx context.Context, payeeID int, id uuid.UUID) (*domain.Withdrawal, error)
	List(ctx context.Context, payeeID int, limit int) ([]domain.Withdrawal, error)
	Cancel(ctx context.Context, payeeID int, id uuid.UUID) (*domain.Withdrawal, error)
}

type WithdrawalHandler struct {
	withdrawalService Service
}

func New(withdrawalService Service) *WithdrawalHandler {
	return &WithdrawalHandler{
		withdrawalService: withdrawalService,
	}
}

// Request godoc
//
//	@Summary		Request a withdrawal
//	@Description	Reserves the amount on the payee balance and queues a payout. Retrying with the same id returns the original withdrawal.
//	@Tags			Withdrawals
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		dto.WithdrawalRequestDTO	true	"Withdrawal request"
//	@Success		202		{object}	dto.WithdrawalResponseDTO	"Withdrawal accepted"
//	@Failure		400		{object}	utils.Response				"Malformed request body"
//	@Failure		401		{object}	utils.Response				"User not authorized"
//	@Failure		402		{object}	utils.Response				"Insufficient balance"
//	@Failure		409		{object}	utils.Response				"Id reused with a different payload"
//	@Failure		422		{object}	utils.Response				"Invalid amount or destination account"
//	@Failure		500		{object}	utils.Response				"Internal server error"
//	@Router			/api/withdrawals [post]
func (h *WithdrawalHandler) Request(w http.ResponseWriter, r *http.Request) {
	payeeID := auth.UserID(r.Context())

	var req dto.WithdrawalRequestDTO
	if err := utils.DecodeJSON(r, &req); err != nil {
		httperr.Respond(w, r, err)
		return
	}
	in := withdrawalservice.RequestInput{
		PayeeID:            payeeID,
		Amount:             req.Amount,
		DestinationAccount: req.DestinationAccount,
	}
	if req.ID != "" {
		in.ID = uuid.MustParse(req.ID)
	}

	withdrawal, err := h.withdrawalService.Request(r.Context(), in)
	if err != nil {
		httperr.Respond(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusAccepted, dto.NewWithdrawalResponse(withdrawal))
}

// List godoc
//
//	@Summary		List withdrawals
//	@Description	Returns the payee's withdrawals, newest first.
//	@Tags			Withdrawals
//	@Security		BearerAuth
//	@Produce		json
//	@Param			limit	query		int	false	"Page size, default 100, max 1000"
//	@Success		200		{array}		dto.WithdrawalResponseDTO
//	@Failure		400		{object}	utils.Response	"Bad query parameter"
//	@Failure		401		{object}	utils.Response	"User not authorized"
//	@Failure		500		{object}	utils.Response	"Internal server error"
//	@Router			/api/withdrawals [get]
func (h *WithdrawalHandler) List(w http.ResponseWriter, r *http.Request) {
	payeeID := auth.UserID(r.Context())

	limit, err := utils.QueryInt(r, "limit", 0)
	if err != nil {
		httperr.Respond(w, r, err)
		return
	}
	withdrawals, err := h.withdrawalService.List(r.Context(), payeeID, limit)
	if err != nil {
		httperr.Respond(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dto.NewWithdrawalsResponse(withdrawals))
}

// Get godoc
//
//	@Summary		Get a withdrawal
//	@Tags			Withdrawals
//	@Security		BearerAuth
//	@Produce		json
//	@Param			id	path		string	true	"Withdrawal id"
//	@Success		200	{object}	dto.WithdrawalResponseDTO
//	@Failure		401	{object}	utils.Response	"User not authorized"
//	@Failure		404	{object}	utils.Response	"Withdrawal not found"
//	@Failure		500	{object}	utils.Response	"Internal server error"
//	@Router			/api/withdrawals/{id} [get]
func (h *WithdrawalHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := withdrawalID(w, r)
	if !ok {
		return
	}
	withdrawal, err := h.withdrawalService.Get(r.Context(), auth.UserID(r.Context()), id)
	if err != nil {
		httperr.Respond(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dto.NewWithdrawalResponse(withdrawal))
}

// Cancel godoc
//
//	@Summary		Cancel a withdrawal
//	@Description	Cancels a withdrawal that was not dispatched yet and releases the reserved amount.
//	@Tags			Withdrawals
//	@Security		BearerAuth
//	@Produce		json
//	@Param			id	path		string	true	"Withdrawal id"
//	@Success		200	{object}	dto.WithdrawalResponseDTO
//	@Failure		401	{object}	utils.Response	"User not authorized"
//	@Failure		404	{object}	utils.Response	"Withdrawal not found"
//	@Failure		409	{object}	utils.Response	"Withdrawal already dispatched"
//	@Failure		500	{object}	utils.Response	"Internal server error"
//	@Router			/api/withdrawals/{id}/cancel [post]
func (h *WithdrawalHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, ok := withdrawalID(w, r)
	if !ok {
		return
	}
	withdrawal, err := h.withdrawalService.Cancel(r.Context(), auth.UserID(r.Context()), id)
	if err != nil {
		httperr.Respond(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dto.NewWithdrawalResponse(withdrawal))
}

func withdrawalID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		utils.RespondWithError(w, http.StatusNotFound, "Withdrawal not found")
		return uuid.Nil, false
	}
	return id, true
}
