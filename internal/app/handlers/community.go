package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/linemk/totembo-store/internal/jwt-new/jwtmiddleware"
	"github.com/linemk/totembo-store/internal/service"
)

type ReviewRequest struct {
	Text string `json:"text"`
}

type SubscribeRequest struct {
	Email string `json:"email"`
}

type FavouriteResponse struct {
	Favourite bool `json:"favourite"`
}

func userID(logger *slog.Logger, w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, ok := jwtmiddleware.FromContext(r.Context())
	if !ok {
		logger.Error("userID not found in context")
		writeError(logger, w, http.StatusUnauthorized, service.ErrUnauthorized.Error())
		return 0, false
	}
	return id, true
}

// ReviewHandler обрабатывает POST /api/products/{slug}/reviews
func ReviewHandler(log *slog.Logger, communityService service.CommunityService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.ReviewHandler"
		slug := chi.URLParam(r, "slug")
		logger := log.With(slog.String("op", op), slog.String("slug", slug))

		uid, ok := userID(logger, w, r)
		if !ok {
			return
		}

		var req ReviewRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(logger, w, http.StatusBadRequest, "invalid request")
			return
		}

		review, err := communityService.AddReview(r.Context(), uid, slug, req.Text)
		if err != nil {
			writeServiceError(logger, w, err)
			return
		}

		writeJSON(logger, w, http.StatusCreated, review)
	}
}

// FavouriteHandler переключает товар в избранном
func FavouriteHandler(log *slog.Logger, communityService service.CommunityService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.FavouriteHandler"
		slug := chi.URLParam(r, "slug")
		logger := log.With(slog.String("op", op), slog.String("slug", slug))

		uid, ok := userID(logger, w, r)
		if !ok {
			return
		}

		added, err := communityService.ToggleFavourite(r.Context(), uid, slug)
		if err != nil {
			writeServiceError(logger, w, err)
			return
		}

		writeJSON(logger, w, http.StatusOK, FavouriteResponse{Favourite: added})
	}
}

// FavouritesHandler обрабатывает GET /api/favourites
func FavouritesHandler(log *slog.Logger, communityService service.CommunityService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.FavouritesHandler"
		logger := log.With(slog.String("op", op))

		uid, ok := userID(logger, w, r)
		if !ok {
			return
		}

		products, err := communityService.ListFavourites(r.Context(), uid)
		if err != nil {
			writeServiceError(logger, w, err)
			return
		}

		writeJSON(logger, w, http.StatusOK, products)
	}
}

// SubscribeHandler обрабатывает POST /api/subscriptions
func SubscribeHandler(log *slog.Logger, communityService service.CommunityService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.SubscribeHandler"
		logger := log.With(slog.String("op", op))

		uid, ok := userID(logger, w, r)
		if !ok {
			return
		}

		var req SubscribeRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(logger, w, http.StatusBadRequest, "invalid request")
			return
		}

		if err := communityService.Subscribe(r.Context(), uid, req.Email); err != nil {
			writeServiceError(logger, w, err)
			return
		}

		writeJSON(logger, w, http.StatusCreated, MessageResponse{Message: "subscribed"})
	}
}
