package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/service"
	"github.com/rs/zerolog"
)

const maxBodyBytes = 1 << 20

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// resultResponse is a mutation outcome plus a machine readable code on failure.
type resultResponse struct {
	*service.Result
	Code string `json:"code,omitempty"`
}

func statusFor(kind domain.Kind) int {
	switch kind {
	case domain.KindValidation:
		return http.StatusBadRequest
	case domain.KindUnauthorized:
		return http.StatusUnauthorized
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindOutOfStock, domain.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func respondJSON(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		zerolog.Ctx(r.Context()).Warn().Err(err).Msg("failed to encode response")
	}
}

func respondError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	respondJSON(w, r, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

func respondInternal(w http.ResponseWriter, r *http.Request, err error) {
	zerolog.Ctx(r.Context()).Error().Err(err).Msg("request failed")
	respondError(w, r, http.StatusInternalServerError, "internal_error", "internal server error")
}

// respondServiceError writes a read-path error. Kinded errors carry a message
// meant for the caller; anything else is logged and hidden behind a 500.
func respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	kind := domain.KindOf(err)
	if kind == domain.KindNone {
		respondInternal(w, r, err)
		return
	}
	respondError(w, r, statusFor(kind), string(kind), err.Error())
}

func respondResult(w http.ResponseWriter, r *http.Request, res *service.Result, err error) {
	if err != nil {
		respondInternal(w, r, err)
		return
	}
	if res.Success {
		respondJSON(w, r, http.StatusOK, resultResponse{Result: res})
		return
	}
	respondJSON(w, r, statusFor(res.Kind), resultResponse{Result: res, Code: string(res.Kind)})
}

// decodeJSON reads a bounded JSON body into dst and answers 400 itself when
// it cannot.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, r, http.StatusRequestEntityTooLarge, "request_too_large", "request body too large")
			return false
		}
		respondError(w, r, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return false
	}
	return true
}
