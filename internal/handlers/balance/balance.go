package balance

import (
	"context"
	"net/http"

	"github.com/GlebRadaev/payee-ledger/internal/domain"
	"github.com/GlebRadaev/payee-ledger/internal/dto"
	"github.com/GlebRadaev/payee-ledger/internal/handlers/httperr"
	"github.com/GlebRadaev/payee-ledger/pkg/auth"
	"github.com/GlebRadaev/payee-ledger/pkg/utils"
)

//go:generate mockgen -source=balance.go -destination=mock_balance.go -package=balance

type Service interface {
	GetBalance(ctx context.Context, payeeID int) (*domain.Balance, error)
}

type Ledger interface {
	ListFor(ctx context.Context, payeeID int, filter domain.TransactionFilter) ([]domain.Transaction, error)
}

type BalanceHandler struct {
	balanceService Service
	ledger         Ledger
}

func New(balanceService Service, ledger Ledger) *BalanceHandler {
	return &BalanceHandler{
		balanceService: balanceService,
		ledger:         ledger,
	}
}

// GetBalance godoc
//
//	@Summary		Get payee balance
//	@Description	Returns the cached balance of the authenticated payee. Payees without transactions get a zero balance.
//	@Tags			Balance
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	dto.BalanceResponseDTO	"Current balance"
//	@Failure		401	{object}	utils.Response			"User not authorized"
//	@Failure		500	{object}	utils.Response			"Internal server error"
//	@Router			/api/balance [get]
func (h *BalanceHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	payeeID := auth.UserID(r.Context())

	balance, err := h.balanceService.GetBalance(r.Context(), payeeID)
	if err != nil {
		httperr.Respond(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dto.NewBalanceResponse(balance))
}

// GetTransactions godoc
//
//	@Summary		List ledger transactions
//	@Description	Returns one page of the payee's ledger, oldest first. Pass the last id as after_id for the next page.
//	@Tags			Balance
//	@Security		BearerAuth
//	@Produce		json
//	@Param			after_id	query		int		false	"Return transactions with a greater id"
//	@Param			kind		query		[]string	false	"Filter by kind"	collectionFormat(multi)
//	@Param			limit		query		int		false	"Page size, default 100, max 1000"
//	@Success		200			{array}		dto.TransactionResponseDTO
//	@Failure		400			{object}	utils.Response	"Bad query parameter"
//	@Failure		401			{object}	utils.Response	"User not authorized"
//	@Failure		422			{object}	utils.Response	"Unknown transaction kind"
//	@Failure		500			{object}	utils.Response	"Internal server error"
//	@Router			/api/balance/transactions [get]
func (h *BalanceHandler) GetTransactions(w http.ResponseWriter, r *http.Request) {
	payeeID := auth.UserID(r.Context())

	afterID, err := utils.QueryInt64(r, "after_id", 0)
	if err != nil {
		httperr.Respond(w, r, err)
		return
	}
	limit, err := utils.QueryInt(r, "limit", 0)
	if err != nil {
		httperr.Respond(w, r, err)
		return
	}
	filter := domain.TransactionFilter{AfterID: afterID, Limit: limit}
	for _, kind := range r.URL.Query()["kind"] {
		filter.Kinds = append(filter.Kinds, domain.TransactionKind(kind))
	}

	txs, err := h.ledger.ListFor(r.Context(), payeeID, filter)
	if err != nil {
		httperr.Respond(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dto.NewTransactionsResponse(txs))
}
