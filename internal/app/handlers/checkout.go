package handlers

import (
	"log/slog"
	"net/http"

	"github.com/linemk/totembo-store/internal/service"
)

// CheckoutHandler обрабатывает POST /api/checkout: сохраняет данные доставки,
// резервирует товар и возвращает ссылку на страницу оплаты
func CheckoutHandler(log *slog.Logger, checkoutService service.CheckoutService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.CheckoutHandler"
		logger := log.With(slog.String("op", op))

		cid, ok := customerID(logger, w, r)
		if !ok {
			return
		}

		var req service.CheckoutRequest
		if err := decodeJSON(r, &req); err != nil {
			logger.Warn("invalid request: decoding error", slog.Any("error", err))
			writeError(logger, w, http.StatusBadRequest, "invalid request")
			return
		}

		session, err := checkoutService.InitiateCheckout(r.Context(), cid, req)
		if err != nil {
			writeServiceError(logger, w, err)
			return
		}

		writeJSON(logger, w, http.StatusCreated, session)
	}
}

// CheckoutSuccessHandler обрабатывает возврат со страницы оплаты
func CheckoutSuccessHandler(log *slog.Logger, checkoutService service.CheckoutService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.CheckoutSuccessHandler"
		logger := log.With(slog.String("op", op))

		cid, ok := customerID(logger, w, r)
		if !ok {
			return
		}

		order, err := checkoutService.ConfirmPayment(r.Context(), cid, r.URL.Query().Get("session_id"))
		if err != nil {
			writeServiceError(logger, w, err)
			return
		}

		writeJSON(logger, w, http.StatusOK, order)
	}
}

// CheckoutCancelHandler возвращает заказ в корзину и снимает резерв
func CheckoutCancelHandler(log *slog.Logger, checkoutService service.CheckoutService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.CheckoutCancelHandler"
		logger := log.With(slog.String("op", op))

		cid, ok := customerID(logger, w, r)
		if !ok {
			return
		}

		if err := checkoutService.CancelCheckout(r.Context(), cid); err != nil {
			writeServiceError(logger, w, err)
			return
		}

		writeJSON(logger, w, http.StatusOK, MessageResponse{Message: "checkout cancelled"})
	}
}
