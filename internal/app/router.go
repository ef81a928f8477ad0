package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/linemk/totembo-store/internal/app/handlers"
	"github.com/linemk/totembo-store/internal/jwt-new/jwtmiddleware"
	"github.com/linemk/totembo-store/internal/lib/logger/handlers/urllog"
	"github.com/linemk/totembo-store/internal/lib/metrics"
	"github.com/linemk/totembo-store/internal/service"
)

// Services - набор сервисов, которые обслуживает HTTP-слой
type Services struct {
	Auth      service.AuthServiceInterface
	Catalog   service.CatalogService
	Cart      service.CartService
	Checkout  service.CheckoutService
	Community service.CommunityService
}

// NewRouter собирает chi-роутер со всеми маршрутами магазина
func NewRouter(log *slog.Logger, svc Services, m *metrics.ServerMetrics, jwtSecret string) http.Handler {
	router := chi.NewRouter()
	// настройка middleware
	router.Use(middleware.RequestID)
	router.Use(urllog.CustomLoggerMiddleware(log))
	router.Use(middleware.Recoverer)
	router.Use(m.Middleware)

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	router.Method(http.MethodGet, "/metrics", m.Handler())

	router.Route("/api", func(r chi.Router) {
		r.Post("/auth/register", handlers.RegisterHandler(log, svc.Auth))
		r.Post("/auth/login", handlers.LoginHandler(log, svc.Auth))

		// каталог доступен без авторизации
		r.Get("/categories", handlers.CategoriesHandler(log, svc.Catalog))
		r.Get("/categories/{slug}/products", handlers.CategoryProductsHandler(log, svc.Catalog))
		r.Get("/products/{slug}", handlers.ProductHandler(log, svc.Catalog))

		r.Group(func(r chi.Router) {
			r.Use(jwtmiddleware.NewJWTMiddleware(jwtSecret))

			r.Get("/cart", handlers.CartHandler(log, svc.Cart))
			r.Delete("/cart", handlers.ClearCartHandler(log, svc.Cart))
			r.Post("/cart/items/{productID}", handlers.AddToCartHandler(log, svc.Cart))
			r.Delete("/cart/items/{productID}", handlers.RemoveFromCartHandler(log, svc.Cart))

			r.Post("/checkout", handlers.CheckoutHandler(log, svc.Checkout))
			r.Get("/checkout/success", handlers.CheckoutSuccessHandler(log, svc.Checkout))
			r.Get("/checkout/cancel", handlers.CheckoutCancelHandler(log, svc.Checkout))

			r.Post("/products/{slug}/reviews", handlers.ReviewHandler(log, svc.Community))
			r.Post("/products/{slug}/favourite", handlers.FavouriteHandler(log, svc.Community))
			r.Get("/favourites", handlers.FavouritesHandler(log, svc.Community))
			r.Post("/subscriptions", handlers.SubscribeHandler(log, svc.Community))
		})
	})

	return router
}
