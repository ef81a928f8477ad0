package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/linemk/totembo-store/internal/domain/models"
	"github.com/linemk/totembo-store/internal/storage"
)

type CartService interface {
	AddToCart(ctx context.Context, customerID, productID int64) error
	RemoveFromCart(ctx context.Context, customerID, productID int64) error
	GetCartSummary(ctx context.Context, customerID int64) (*CartSummary, error)
	ClearCart(ctx context.Context, customerID int64) error
}

type cartService struct {
	log    *slog.Logger
	db     *sql.DB
	ledger *orderLedger
}

func NewCartService(
	log *slog.Logger,
	db *sql.DB,
	productRepo storage.ProductStorage,
	orderRepo storage.OrderStorage,
	itemRepo storage.LineItemStorage,
	sessionTTL time.Duration,
	observer TransitionObserver,
) CartService {
	return &cartService{
		log: log,
		db:  db,
		ledger: &orderLedger{
			productRepo: productRepo,
			orderRepo:   orderRepo,
			itemRepo:    itemRepo,
			sessionTTL:  sessionTTL,
			observer:    observer,
		},
	}
}

// AddToCart добавляет одну единицу товара в активный заказ покупателя.
// Остатки на складе не меняются до оформления заказа.
func (s *cartService) AddToCart(ctx context.Context, customerID, productID int64) error {
	const op = "service.CartService.AddToCart"
	logger := s.log.With(slog.String("op", op), slog.Int64("customerID", customerID), slog.Int64("productID", productID))

	if _, err := s.ledger.productRepo.GetProductByID(ctx, productID); err != nil {
		logger.Warn("failed to get product", slog.Any("error", err))
		return fmt.Errorf("%s: failed to get product: %w", op, mapStorageErr(err))
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		logger.Error("failed to begin transaction", slog.Any("error", err))
		return fmt.Errorf("%s: failed to begin transaction: %w", op, err)
	}
	defer rollback(logger, tx)

	order, err := s.ledger.activeOrCreateTx(ctx, tx, logger, customerID)
	if err != nil {
		logger.Error("failed to get active order", slog.Any("error", err))
		return fmt.Errorf("%s: failed to get active order: %w", op, mapStorageErr(err))
	}

	// корзина изменилась, начатая оплата больше не соответствует ей
	if err := s.ledger.reopenTx(ctx, tx, order); err != nil {
		logger.Error("failed to reopen order", slog.Any("error", err))
		return fmt.Errorf("%s: failed to reopen order: %w", op, mapStorageErr(err))
	}

	quantity, err := s.ledger.itemRepo.IncrementLineItemTx(ctx, tx, order.ID, productID)
	if err != nil {
		logger.Error("failed to add line item", slog.Any("error", err))
		return fmt.Errorf("%s: failed to add line item: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		logger.Error("failed to commit transaction", slog.Any("error", err))
		return fmt.Errorf("%s: failed to commit transaction: %w", op, err)
	}

	logger.Info("product added to cart", slog.Int64("orderID", order.ID), slog.Int("quantity", quantity))
	return nil
}

// RemoveFromCart уменьшает количество товара в корзине на единицу.
// Отсутствие заказа или позиции не считается ошибкой.
func (s *cartService) RemoveFromCart(ctx context.Context, customerID, productID int64) error {
	const op = "service.CartService.RemoveFromCart"
	logger := s.log.With(slog.String("op", op), slog.Int64("customerID", customerID), slog.Int64("productID", productID))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		logger.Error("failed to begin transaction", slog.Any("error", err))
		return fmt.Errorf("%s: failed to begin transaction: %w", op, err)
	}
	defer rollback(logger, tx)

	order, err := s.ledger.activeOrderTx(ctx, tx, logger, customerID)
	if err != nil {
		if errors.Is(err, storage.ErrOrderNotFound) {
			logger.Info("no active order, nothing to remove")
			return nil
		}
		logger.Error("failed to get active order", slog.Any("error", err))
		return fmt.Errorf("%s: failed to get active order: %w", op, mapStorageErr(err))
	}

	item, err := s.ledger.itemRepo.GetLineItemForUpdateTx(ctx, tx, order.ID, productID)
	if err != nil {
		if errors.Is(err, storage.ErrLineItemNotFound) {
			logger.Info("product is not in cart, nothing to remove")
			return tx.Commit()
		}
		logger.Error("failed to get line item", slog.Any("error", err))
		return fmt.Errorf("%s: failed to get line item: %w", op, err)
	}

	if order.Status == models.OrderStatusPendingPayment {
		if err := s.ledger.reopenTx(ctx, tx, order); err != nil {
			logger.Error("failed to reopen order", slog.Any("error", err))
			return fmt.Errorf("%s: failed to reopen order: %w", op, mapStorageErr(err))
		}
		item.Reserved = 0
	}

	item.Quantity--
	if item.Quantity <= 0 {
		err = s.ledger.itemRepo.DeleteLineItemTx(ctx, tx, item.ID)
	} else {
		err = s.ledger.itemRepo.UpdateLineItemTx(ctx, tx, item)
	}
	if err != nil {
		logger.Error("failed to update line item", slog.Any("error", err))
		return fmt.Errorf("%s: failed to update line item: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		logger.Error("failed to commit transaction", slog.Any("error", err))
		return fmt.Errorf("%s: failed to commit transaction: %w", op, err)
	}

	logger.Info("product removed from cart", slog.Int("quantity", item.Quantity))
	return nil
}

// GetCartSummary возвращает позиции активного заказа и итоги по текущим ценам.
func (s *cartService) GetCartSummary(ctx context.Context, customerID int64) (*CartSummary, error) {
	const op = "service.CartService.GetCartSummary"
	logger := s.log.With(slog.String("op", op), slog.Int64("customerID", customerID))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		logger.Error("failed to begin transaction", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to begin transaction: %w", op, err)
	}
	defer rollback(logger, tx)

	order, err := s.ledger.activeOrderTx(ctx, tx, logger, customerID)
	if err != nil {
		if errors.Is(err, storage.ErrOrderNotFound) {
			return &CartSummary{Lines: []*models.CartLine{}, TotalPrice: decimal.Zero}, nil
		}
		logger.Error("failed to get active order", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to get active order: %w", op, mapStorageErr(err))
	}

	summary, err := s.ledger.summaryTx(ctx, tx, order)
	if err != nil {
		logger.Error("failed to build cart summary", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to build cart summary: %w", op, err)
	}

	// просроченный заказ мог быть переоткрыт при чтении
	if err := tx.Commit(); err != nil {
		logger.Error("failed to commit transaction", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to commit transaction: %w", op, err)
	}

	return summary, nil
}

// ClearCart удаляет все позиции активного заказа, возвращая на склад зарезервированное.
func (s *cartService) ClearCart(ctx context.Context, customerID int64) error {
	const op = "service.CartService.ClearCart"
	logger := s.log.With(slog.String("op", op), slog.Int64("customerID", customerID))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		logger.Error("failed to begin transaction", slog.Any("error", err))
		return fmt.Errorf("%s: failed to begin transaction: %w", op, err)
	}
	defer rollback(logger, tx)

	order, err := s.ledger.activeOrderTx(ctx, tx, logger, customerID)
	if err != nil {
		if errors.Is(err, storage.ErrOrderNotFound) {
			logger.Info("no active order, nothing to clear")
			return nil
		}
		logger.Error("failed to get active order", slog.Any("error", err))
		return fmt.Errorf("%s: failed to get active order: %w", op, mapStorageErr(err))
	}

	if err := s.ledger.reopenTx(ctx, tx, order); err != nil {
		logger.Error("failed to release reservations", slog.Any("error", err))
		return fmt.Errorf("%s: failed to release reservations: %w", op, mapStorageErr(err))
	}

	if err := s.ledger.itemRepo.DeleteLineItemsByOrderTx(ctx, tx, order.ID); err != nil {
		logger.Error("failed to delete line items", slog.Any("error", err))
		return fmt.Errorf("%s: failed to delete line items: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		logger.Error("failed to commit transaction", slog.Any("error", err))
		return fmt.Errorf("%s: failed to commit transaction: %w", op, err)
	}

	logger.Info("cart cleared", slog.Int64("orderID", order.ID))
	return nil
}
