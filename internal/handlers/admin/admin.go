package admin

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/GlebRadaev/payee-ledger/internal/domain"
	"github.com/GlebRadaev/payee-ledger/internal/dto"
	"github.com/GlebRadaev/payee-ledger/internal/handlers/httperr"
	"github.com/GlebRadaev/payee-ledger/pkg/utils"
)

//go:generate mockgen -source=admin.go -destination=mock_admin.go -package=admin

type Balances interface {
	GetBalance(ctx context.Context, payeeID int) (*domain.Balance, error)
}

type Commissions interface {
	Get(ctx context.Context, id int) (*domain.Commission, error)
	List(ctx context.Context, filter domain.CommissionFilter) ([]domain.Commission, error)
	Approve(ctx context.Context, id int) (*domain.Commission, error)
	Cancel(ctx context.Context, id int) (*domain.Commission, error)
}

type Reconciler interface {
	Run(ctx context.Context) (*domain.ReconciliationReport, error)
	Last() *domain.ReconciliationReport
}

type Ledger interface {
	Conflicts(ctx context.Context, limit int) ([]domain.LedgerConflict, error)
}

type AdminHandler struct {
	balances    Balances
	commissions Commissions
	reconciler  Reconciler
	ledger      Ledger
}

func New(balances Balances, commissions Commissions, reconciler Reconciler, ledger Ledger) *AdminHandler {
	return &AdminHandler{
		balances:    balances,
		commissions: commissions,
		reconciler:  reconciler,
		ledger:      ledger,
	}
}

// GetBalance godoc
//
//	@Summary	Get any payee balance
//	@Tags		Admin
//	@Security	BearerAuth
//	@Produce	json
//	@Param		payeeID	path		int	true	"Payee id"
//	@Success	200		{object}	dto.BalanceResponseDTO
//	@Failure	403		{object}	utils.Response	"Admin role required"
//	@Failure	404		{object}	utils.Response	"Bad payee id"
//	@Failure	500		{object}	utils.Response	"Internal server error"
//	@Router		/api/admin/balances/{payeeID} [get]
func (h *AdminHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	payeeID, ok := pathInt(w, r, "payeeID")
	if !ok {
		return
	}
	balance, err := h.balances.GetBalance(r.Context(), payeeID)
	if err != nil {
		httperr.Respond(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dto.NewBalanceResponse(balance))
}

// ListCommissions godoc
//
//	@Summary	List commissions
//	@Tags		Admin
//	@Security	BearerAuth
//	@Produce	json
//	@Param		manager_id	query		int			false	"Sales manager id"
//	@Param		status		query		[]string	false	"Filter by status"	collectionFormat(multi)
//	@Param		after_id	query		int			false	"Return commissions with a greater id"
//	@Param		limit		query		int			false	"Page size, default 100, max 1000"
//	@Success	200			{array}		dto.CommissionResponseDTO
//	@Failure	400			{object}	utils.Response	"Bad query parameter"
//	@Failure	422			{object}	utils.Response	"Unknown status"
//	@Failure	500			{object}	utils.Response	"Internal server error"
//	@Router		/api/admin/commissions [get]
func (h *AdminHandler) ListCommissions(w http.ResponseWriter, r *http.Request) {
	var (
		filter domain.CommissionFilter
		err    error
	)
	if filter.SalesManagerID, err = utils.QueryInt(r, "manager_id", 0); err != nil {
		httperr.Respond(w, r, err)
		return
	}
	if filter.AfterID, err = utils.QueryInt(r, "after_id", 0); err != nil {
		httperr.Respond(w, r, err)
		return
	}
	if filter.Limit, err = utils.QueryInt(r, "limit", 0); err != nil {
		httperr.Respond(w, r, err)
		return
	}
	for _, status := range r.URL.Query()["status"] {
		filter.Statuses = append(filter.Statuses, domain.CommissionStatus(status))
	}

	commissions, err := h.commissions.List(r.Context(), filter)
	if err != nil {
		httperr.Respond(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dto.NewCommissionsResponse(commissions))
}

// GetCommission godoc
//
//	@Summary	Get a commission
//	@Tags		Admin
//	@Security	BearerAuth
//	@Produce	json
//	@Param		id	path		int	true	"Commission id"
//	@Success	200	{object}	dto.CommissionResponseDTO
//	@Failure	404	{object}	utils.Response	"Commission not found"
//	@Failure	500	{object}	utils.Response	"Internal server error"
//	@Router		/api/admin/commissions/{id} [get]
func (h *AdminHandler) GetCommission(w http.ResponseWriter, r *http.Request) {
	h.commission(w, r, h.commissions.Get)
}

// ApproveCommission godoc
//
//	@Summary		Approve a commission
//	@Description	Moves a PENDING commission to APPROVED and credits the sales manager.
//	@Tags			Admin
//	@Security		BearerAuth
//	@Produce		json
//	@Param			id	path		int	true	"Commission id"
//	@Success		200	{object}	dto.CommissionResponseDTO
//	@Failure		404	{object}	utils.Response	"Commission not found"
//	@Failure		409	{object}	utils.Response	"Commission is not pending"
//	@Failure		500	{object}	utils.Response	"Internal server error"
//	@Router			/api/admin/commissions/{id}/approve [post]
func (h *AdminHandler) ApproveCommission(w http.ResponseWriter, r *http.Request) {
	h.commission(w, r, h.commissions.Approve)
}

// CancelCommission godoc
//
//	@Summary		Cancel a commission
//	@Description	Cancels a PENDING or APPROVED commission. An approved one is reversed with a compensating adjustment.
//	@Tags			Admin
//	@Security		BearerAuth
//	@Produce		json
//	@Param			id	path		int	true	"Commission id"
//	@Success		200	{object}	dto.CommissionResponseDTO
//	@Failure		402	{object}	utils.Response	"Manager balance does not cover the reversal"
//	@Failure		404	{object}	utils.Response	"Commission not found"
//	@Failure		409	{object}	utils.Response	"Commission already paid or cancelled"
//	@Failure		500	{object}	utils.Response	"Internal server error"
//	@Router			/api/admin/commissions/{id}/cancel [post]
func (h *AdminHandler) CancelCommission(w http.ResponseWriter, r *http.Request) {
	h.commission(w, r, h.commissions.Cancel)
}

// Reconcile godoc
//
//	@Summary		Run reconciliation
//	@Description	Recomputes every balance from the ledger, repairs drift and backfills missing commissions.
//	@Tags			Admin
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	dto.ReconcileReportDTO
//	@Failure		409	{object}	utils.Response	"Reconciliation already in progress"
//	@Failure		500	{object}	utils.Response	"Internal server error"
//	@Router			/api/admin/reconcile [post]
func (h *AdminHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	report, err := h.reconciler.Run(r.Context())
	if err != nil {
		httperr.Respond(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dto.NewReconcileReport(report))
}

// LastReconcile godoc
//
//	@Summary	Last reconciliation report
//	@Tags		Admin
//	@Security	BearerAuth
//	@Produce	json
//	@Success	200	{object}	dto.ReconcileReportDTO
//	@Success	204	{string}	string	"No run finished yet"
//	@Router		/api/admin/reconcile [get]
func (h *AdminHandler) LastReconcile(w http.ResponseWriter, r *http.Request) {
	report := h.reconciler.Last()
	if report == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dto.NewReconcileReport(report))
}

// Conflicts godoc
//
//	@Summary	List ledger conflicts
//	@Description	Idempotency keys that were reused with a different payload, newest first.
//	@Tags		Admin
//	@Security	BearerAuth
//	@Produce	json
//	@Param		limit	query		int	false	"Page size, default 100, max 1000"
//	@Success	200		{array}		dto.ConflictResponseDTO
//	@Failure	500		{object}	utils.Response	"Internal server error"
//	@Router		/api/admin/conflicts [get]
func (h *AdminHandler) Conflicts(w http.ResponseWriter, r *http.Request) {
	limit, err := utils.QueryInt(r, "limit", 0)
	if err != nil {
		httperr.Respond(w, r, err)
		return
	}
	conflicts, err := h.ledger.Conflicts(r.Context(), limit)
	if err != nil {
		httperr.Respond(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dto.NewConflictsResponse(conflicts))
}

func (h *AdminHandler) commission(w http.ResponseWriter, r *http.Request, fn func(context.Context, int) (*domain.Commission, error)) {
	id, ok := pathInt(w, r, "id")
	if !ok {
		return
	}
	commission, err := fn(r.Context(), id)
	if err != nil {
		httperr.Respond(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dto.NewCommissionResponse(commission))
}

func pathInt(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	v, err := strconv.Atoi(chi.URLParam(r, name))
	if err != nil || v <= 0 {
		utils.RespondWithError(w, http.StatusNotFound, "Not found")
		return 0, false
	}
	return v, true
}
