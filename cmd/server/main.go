package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"

	"github.com/linemk/totembo-store/internal/app"
	"github.com/linemk/totembo-store/internal/config"
	"github.com/linemk/totembo-store/internal/lib/logger"
	"github.com/linemk/totembo-store/internal/lib/metrics"
	"github.com/linemk/totembo-store/internal/payment"
	"github.com/linemk/totembo-store/internal/service"
	"github.com/linemk/totembo-store/internal/storage"
)

func main() {
	// локальный .env не обязателен, в проде переменные задаёт окружение
	_ = godotenv.Load()

	// загрузка конфигурации
	cfg := config.MustLoad()

	// инициализация логгера, зависит от настройки окружения
	log := logger.SetupLogger(cfg.Env)
	log.Info("starting app", slog.String("env", cfg.Env))

	// загружаем объект приложения, конфигом и подключением к БД
	application, err := app.NewApp(log, cfg)
	if err != nil {
		log.Error("failed to initialize app", slog.Any("error", err))
		panic(errors.Wrap(err, "failed to initialize app"))
	}
	defer application.DB.Close()

	db := application.DB

	// реализация слоев по работе с БД по каждому направлению
	userRepo := storage.NewUserRepository(db)
	customerRepo := storage.NewCustomerRepository(db)
	categoryRepo := storage.NewCategoryRepository(db)
	productRepo := storage.NewProductRepository(db)
	orderRepo := storage.NewOrderRepository(db)
	itemRepo := storage.NewLineItemRepository(db)
	shippingRepo := storage.NewShippingRepository(db)
	reviewRepo := storage.NewReviewRepository(db)
	favouriteRepo := storage.NewFavouriteRepository(db)
	subscriberRepo := storage.NewSubscriberRepository(db)

	serverMetrics := metrics.NewServerMetrics()
	gateway := payment.NewStripeGateway(log, cfg.Payment.StripeSecretKey)

	services := app.Services{
		Auth:    service.NewAuthService(log, db, userRepo, customerRepo, cfg.JWT.Secret, cfg.JWT.TokenTTL),
		Catalog: service.NewCatalogService(log, categoryRepo, productRepo, reviewRepo),
		Cart: service.NewCartService(log, db, productRepo, orderRepo, itemRepo,
			cfg.Checkout.SessionTTL, serverMetrics),
		Checkout: service.NewCheckoutService(log, db, customerRepo, shippingRepo, productRepo, orderRepo, itemRepo,
			gateway,
			service.CheckoutConfig{
				Currency:    cfg.Payment.Currency,
				SuccessURL:  cfg.Payment.SuccessURL,
				CancelURL:   cfg.Payment.CancelURL,
				Description: cfg.Payment.Description,
				SessionTTL:  cfg.Checkout.SessionTTL,
			},
			serverMetrics,
		),
		Community: service.NewCommunityService(log, productRepo, reviewRepo, favouriteRepo, subscriberRepo),
	}

	srv := &http.Server{
		Addr:         cfg.HTTPServer.Address,
		Handler:      app.NewRouter(log, services, serverMetrics, cfg.JWT.Secret),
		ReadTimeout:  cfg.HTTPServer.Timeout,
		WriteTimeout: cfg.HTTPServer.Timeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	go func() {
		log.Info("starting server", slog.String("address", cfg.HTTPServer.Address))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", slog.Any("error", err))
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	stopSign := <-stop
	log.Info("received shutdown signal", slog.String("signal", stopSign.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("server shutdown failed", slog.Any("error", errors.Wrap(err, "shutdown")))
	}
	log.Info("server gracefully stopped")
}
