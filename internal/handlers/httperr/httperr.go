package httperr

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/GlebRadaev/payee-ledger/internal/domain"
	"github.com/GlebRadaev/payee-ledger/pkg/utils"
)

// Status maps a service error to its HTTP status code.
func Status(err error) int {
	var verrs validator.ValidationErrors
	switch {
	case errors.Is(err, utils.ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrValidation), errors.As(err, &verrs):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrInsufficientBalance):
		return http.StatusPaymentRequired
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrSalesManagerNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrLedgerConflict),
		errors.Is(err, domain.ErrReconcileInProgress):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// Respond writes err as a JSON error. Internal errors are logged and hidden.
func Respond(w http.ResponseWriter, r *http.Request, err error) {
	code := Status(err)
	if code == http.StatusInternalServerError {
		zap.L().Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
		utils.RespondWithError(w, code, "Internal server error")
		return
	}
	utils.RespondWithError(w, code, err.Error())
}
