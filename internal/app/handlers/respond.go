package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/linemk/totembo-store/internal/service"
)

// ErrorResponse - тело ответа при ошибке
type ErrorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// MessageResponse - простой ответ с сообщением
type MessageResponse struct {
	Message string `json:"message"`
}

func writeJSON(logger *slog.Logger, w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("failed to encode response", slog.Any("error", err))
	}
}

func writeError(logger *slog.Logger, w http.ResponseWriter, status int, msg string) {
	writeJSON(logger, w, status, ErrorResponse{Error: msg})
}

// writeServiceError переводит ошибку сервиса в HTTP-статус.
// Внутренние детали наружу не отдаются.
func writeServiceError(logger *slog.Logger, w http.ResponseWriter, err error) {
	var validationErr *service.ValidationError
	var gatewayErr *service.GatewayError

	switch {
	case errors.As(err, &validationErr):
		writeJSON(logger, w, http.StatusBadRequest, ErrorResponse{Error: "validation error", Fields: validationErr.Fields})
	case errors.As(err, &gatewayErr):
		logger.Error("payment gateway failed", slog.Any("error", err))
		writeError(logger, w, http.StatusBadGateway, "payment provider unavailable")
	case errors.Is(err, service.ErrNotFound):
		writeError(logger, w, http.StatusNotFound, service.ErrNotFound.Error())
	case errors.Is(err, service.ErrUnauthorized):
		writeError(logger, w, http.StatusUnauthorized, service.ErrUnauthorized.Error())
	case errors.Is(err, service.ErrInvalidCredentials):
		writeError(logger, w, http.StatusUnauthorized, service.ErrInvalidCredentials.Error())
	case errors.Is(err, service.ErrConcurrencyConflict):
		writeError(logger, w, http.StatusConflict, service.ErrConcurrencyConflict.Error())
	case errors.Is(err, service.ErrOutOfStock):
		writeError(logger, w, http.StatusConflict, service.ErrOutOfStock.Error())
	case errors.Is(err, service.ErrUserExists):
		writeError(logger, w, http.StatusConflict, service.ErrUserExists.Error())
	case errors.Is(err, service.ErrAlreadySubscribed):
		writeError(logger, w, http.StatusConflict, service.ErrAlreadySubscribed.Error())
	case errors.Is(err, service.ErrPaymentIncomplete):
		writeError(logger, w, http.StatusConflict, service.ErrPaymentIncomplete.Error())
	default:
		logger.Error("internal error", slog.Any("error", err))
		writeError(logger, w, http.StatusInternalServerError, "internal server error")
	}
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func productIDParam(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "productID"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
