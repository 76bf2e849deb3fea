package callbacks

import (
	"bytes"
	"context"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/GlebRadaev/payee-ledger/internal/domain"
	"github.com/GlebRadaev/payee-ledger/internal/dto"
	"github.com/GlebRadaev/payee-ledger/internal/gateway"
	"github.com/GlebRadaev/payee-ledger/internal/handlers/httperr"
	"github.com/GlebRadaev/payee-ledger/pkg/utils"
)

//go:generate mockgen -source=callbacks.go -destination=mock_callbacks.go -package=callbacks

const (
	SignatureHeader = "X-Signature"
	maxBodySize     = 1 << 16
)

type Service interface {
	HandleCallback(ctx context.Context, idempotencyRef, externalRef string, payout *domain.Payout) (*domain.Withdrawal, error)
}

type CallbackHandler struct {
	withdrawalService Service
	secret            string
}

func New(withdrawalService Service, secret string) *CallbackHandler {
	return &CallbackHandler{
		withdrawalService: withdrawalService,
		secret:            secret,
	}
}

// PayoutStatus godoc
//
//	@Summary		Payout status callback
//	@Description	Called by the payment gateway when a payout settles. The body is signed with HMAC-SHA256 in the X-Signature header. Replays are acknowledged without effect.
//	@Tags			Gateway
//	@Accept			json
//	@Produce		json
//	@Param			X-Signature	header		string					true	"Hex HMAC-SHA256 of the body"
//	@Param			request		body		dto.PayoutCallbackDTO	true	"Payout status"
//	@Success		200			{object}	dto.WithdrawalResponseDTO
//	@Failure		400			{object}	utils.Response	"Malformed body"
//	@Failure		401			{object}	utils.Response	"Bad signature"
//	@Failure		404			{object}	utils.Response	"Unknown withdrawal"
//	@Failure		409			{object}	utils.Response	"Status contradicts a settled withdrawal"
//	@Failure		500			{object}	utils.Response	"Internal server error"
//	@Router			/api/gateway/callbacks [post]
func (h *CallbackHandler) PayoutStatus(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Failed to read request body")
		return
	}
	if !gateway.VerifySignature(h.secret, body, r.Header.Get(SignatureHeader)) {
		zap.L().Warn("rejected gateway callback", zap.String("remote_addr", r.RemoteAddr))
		utils.RespondWithError(w, http.StatusUnauthorized, "Invalid signature")
		return
	}

	var req dto.PayoutCallbackDTO
	r.Body = io.NopCloser(bytes.NewReader(body))
	if err := utils.DecodeJSON(r, &req); err != nil {
		httperr.Respond(w, r, err)
		return
	}

	withdrawal, err := h.withdrawalService.HandleCallback(r.Context(), req.IdempotencyRef, req.ExternalRef, req.ToDomain())
	if err != nil {
		httperr.Respond(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dto.NewWithdrawalResponse(withdrawal))
}
