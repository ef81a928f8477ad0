package handlers

import (
	"log/slog"
	"net/http"

	"github.com/linemk/totembo-store/internal/jwt-new/jwtmiddleware"
	"github.com/linemk/totembo-store/internal/service"
)

func customerID(logger *slog.Logger, w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, ok := jwtmiddleware.CustomerFromContext(r.Context())
	if !ok {
		logger.Error("customerID not found in context")
		writeError(logger, w, http.StatusUnauthorized, service.ErrUnauthorized.Error())
		return 0, false
	}
	return id, true
}

// CartHandler обрабатывает GET /api/cart
func CartHandler(log *slog.Logger, cartService service.CartService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.CartHandler"
		logger := log.With(slog.String("op", op))

		cid, ok := customerID(logger, w, r)
		if !ok {
			return
		}

		summary, err := cartService.GetCartSummary(r.Context(), cid)
		if err != nil {
			writeServiceError(logger, w, err)
			return
		}

		writeJSON(logger, w, http.StatusOK, summary)
	}
}

// AddToCartHandler обрабатывает POST /api/cart/items/{productID}
func AddToCartHandler(log *slog.Logger, cartService service.CartService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.AddToCartHandler"
		logger := log.With(slog.String("op", op))

		productID, ok := productIDParam(r)
		if !ok {
			writeError(logger, w, http.StatusBadRequest, "invalid product id")
			return
		}
		cid, ok := customerID(logger, w, r)
		if !ok {
			return
		}

		if err := cartService.AddToCart(r.Context(), cid, productID); err != nil {
			writeServiceError(logger, w, err)
			return
		}

		summary, err := cartService.GetCartSummary(r.Context(), cid)
		if err != nil {
			writeServiceError(logger, w, err)
			return
		}
		writeJSON(logger, w, http.StatusOK, summary)
	}
}

// RemoveFromCartHandler обрабатывает DELETE /api/cart/items/{productID}
func RemoveFromCartHandler(log *slog.Logger, cartService service.CartService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.RemoveFromCartHandler"
		logger := log.With(slog.String("op", op))

		productID, ok := productIDParam(r)
		if !ok {
			writeError(logger, w, http.StatusBadRequest, "invalid product id")
			return
		}
		cid, ok := customerID(logger, w, r)
		if !ok {
			return
		}

		if err := cartService.RemoveFromCart(r.Context(), cid, productID); err != nil {
			writeServiceError(logger, w, err)
			return
		}

		summary, err := cartService.GetCartSummary(r.Context(), cid)
		if err != nil {
			writeServiceError(logger, w, err)
			return
		}
		writeJSON(logger, w, http.StatusOK, summary)
	}
}

// ClearCartHandler обрабатывает DELETE /api/cart
func ClearCartHandler(log *slog.Logger, cartService service.CartService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.ClearCartHandler"
		logger := log.With(slog.String("op", op))

		cid, ok := customerID(logger, w, r)
		if !ok {
			return
		}

		if err := cartService.ClearCart(r.Context(), cid); err != nil {
			writeServiceError(logger, w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
