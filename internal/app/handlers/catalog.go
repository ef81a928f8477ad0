package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/linemk/totembo-store/internal/service"
)

// CategoriesHandler обрабатывает GET /api/categories
func CategoriesHandler(log *slog.Logger, catalogService service.CatalogService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.CategoriesHandler"
		logger := log.With(slog.String("op", op))

		categories, err := catalogService.ListRootCategories(r.Context())
		if err != nil {
			writeServiceError(logger, w, err)
			return
		}

		writeJSON(logger, w, http.StatusOK, categories)
	}
}

// CategoryProductsHandler обрабатывает GET /api/categories/{slug}/products?sort=&type=
func CategoryProductsHandler(log *slog.Logger, catalogService service.CatalogService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.CategoryProductsHandler"
		slug := chi.URLParam(r, "slug")
		logger := log.With(slog.String("op", op), slog.String("slug", slug))

		query := r.URL.Query()
		page, err := catalogService.CategoryProducts(r.Context(), slug, query.Get("sort"), query.Get("type"))
		if err != nil {
			writeServiceError(logger, w, err)
			return
		}

		writeJSON(logger, w, http.StatusOK, page)
	}
}

// ProductHandler обрабатывает GET /api/products/{slug}
func ProductHandler(log *slog.Logger, catalogService service.CatalogService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.ProductHandler"
		slug := chi.URLParam(r, "slug")
		logger := log.With(slog.String("op", op), slog.String("slug", slug))

		detail, err := catalogService.ProductDetail(r.Context(), slug)
		if err != nil {
			writeServiceError(logger, w, err)
			return
		}

		writeJSON(logger, w, http.StatusOK, detail)
	}
}
