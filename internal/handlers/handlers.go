package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"stocksim/internal/db"
	"stocksim/internal/money"
	"stocksim/internal/quote"
	"stocksim/internal/services"
	"stocksim/internal/validator"

	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 16

var errInvalidPayload = errors.New("invalid payload")

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, map[string]string{"error": code, "message": message})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dest any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.UseNumber()
	if err := dec.Decode(dest); err != nil && !errors.Is(err, io.EOF) {
		return errInvalidPayload
	}
	return nil
}

// moneyJSON renders cents as "9600.00" under key and "$9,600.00" under key_display.
func moneyJSON(out map[string]any, key string, minor int64) {
	out[key] = money.FormatMinor(minor)
	out[key+"_display"] = money.Display(minor)
}

type errorMapping struct {
	target  error
	status  int
	code    string
	message string
}

var errorMappings = []errorMapping{
	{errInvalidPayload, http.StatusBadRequest, "invalid_payload", ""},
	{validator.ErrMissingUsername, http.StatusBadRequest, "missing_username", ""},
	{validator.ErrUsernameTooLong, http.StatusBadRequest, "invalid_username", ""},
	{validator.ErrMissingPassword, http.StatusBadRequest, "missing_password", ""},
	{validator.ErrMissingConfirmation, http.StatusBadRequest, "missing_confirmation", ""},
	{validator.ErrPasswordMismatch, http.StatusBadRequest, "password_mismatch", ""},
	{validator.ErrMissingSymbol, http.StatusBadRequest, "missing_symbol", ""},
	{validator.ErrInvalidSymbol, http.StatusBadRequest, "invalid_symbol", ""},
	{validator.ErrMissingShares, http.StatusBadRequest, "missing_shares", ""},
	{validator.ErrInvalidShares, http.StatusBadRequest, "invalid_shares", ""},
	{services.ErrInsufficientCash, http.StatusBadRequest, "insufficient_cash", ""},
	{services.ErrNoHolding, http.StatusBadRequest, "no_holding", ""},
	{services.ErrInsufficientShares, http.StatusBadRequest, "insufficient_shares", ""},
	{quote.ErrUnknownSymbol, http.StatusBadRequest, "unknown_symbol", "invalid symbol"},
	{quote.ErrUnavailable, http.StatusFailedDependency, "quote_unavailable", "price lookup is unavailable, try again"},
	{services.ErrUserNotFound, http.StatusUnauthorized, "unauthorized", "unknown user"},
}

// respondServiceError turns a domain error into a rejection. Anything unrecognised is a
// persistence failure and is logged, never echoed.
func (h *Handler) respondServiceError(w http.ResponseWriter, r *http.Request, err error, fallbackCode string) {
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			message := m.message
			if message == "" {
				message = m.target.Error()
			}
			respondError(w, m.status, m.code, message)
			return
		}
	}
	fields := []zap.Field{zap.String("path", r.URL.Path), zap.Error(err)}
	if errors.Is(err, db.ErrRetryLimit) {
		fields = append(fields, zap.Bool("retry_limit", true))
	}
	h.logger.Error("request failed", fields...)
	respondError(w, http.StatusInternalServerError, fallbackCode, "something went wrong, please try again")
}
