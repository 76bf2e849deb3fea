package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

var ErrBadRequest = errors.New("invalid request body")

var validate = validator.New(validator.WithRequiredStructEnabled())

type Response struct {
	Message string `json:"message" example:"Internal server error"`
}

func RespondWithJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Error("failed to write response", zap.Error(err))
	}
}

func RespondWithError(w http.ResponseWriter, code int, message string) {
	RespondWithJSON(w, code, Response{Message: message})
}

// DecodeJSON reads the body into dst and runs its validate tags. Malformed
// JSON wraps ErrBadRequest, tag violations are validator.ValidationErrors.
func DecodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	return validate.Struct(dst)
}
