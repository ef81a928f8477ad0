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

// TransitionObserver получает уведомления о смене статуса заказа.
type TransitionObserver interface {
	ObserveTransition(from, to models.OrderStatus)
}

// CartSummary - состояние корзины, пересчитанное по актуальным ценам.
type CartSummary struct {
	Order         *models.Order      `json:"order"`
	Lines         []*models.CartLine `json:"items"`
	TotalQuantity int                `json:"total_quantity"`
	TotalPrice    decimal.Decimal    `json:"total_price"`
}

// orderLedger содержит общую для корзины и оформления заказа работу
// с агрегатом "заказ + позиции + остатки товаров". Все методы работают внутри транзакции.
type orderLedger struct {
	productRepo storage.ProductStorage
	orderRepo   storage.OrderStorage
	itemRepo    storage.LineItemStorage
	sessionTTL  time.Duration
	observer    TransitionObserver
}

// activeOrderTx блокирует активный заказ покупателя.
// Просроченное ожидание оплаты снимается: резервы возвращаются, заказ снова open.
func (l *orderLedger) activeOrderTx(ctx context.Context, tx *sql.Tx, logger *slog.Logger, customerID int64) (*models.Order, error) {
	order, err := l.orderRepo.GetActiveOrderForUpdateTx(ctx, tx, customerID)
	if err != nil {
		return nil, err
	}
	if l.expired(order) {
		logger.Info("checkout session expired, reopening order", slog.Int64("orderID", order.ID))
		if err := l.reopenTx(ctx, tx, order); err != nil {
			return nil, err
		}
	}
	return order, nil
}

// activeOrCreateTx возвращает активный заказ, при отсутствии создаёт новый.
func (l *orderLedger) activeOrCreateTx(ctx context.Context, tx *sql.Tx, logger *slog.Logger, customerID int64) (*models.Order, error) {
	order, err := l.activeOrderTx(ctx, tx, logger, customerID)
	if err == nil {
		return order, nil
	}
	if !errors.Is(err, storage.ErrOrderNotFound) {
		return nil, err
	}

	if err := l.orderRepo.CreateActiveOrderTx(ctx, tx, customerID); err != nil {
		return nil, err
	}
	logger.Info("active order created")
	// при гонке вставка ничего не делает, читаем победителя
	return l.orderRepo.GetActiveOrderForUpdateTx(ctx, tx, customerID)
}

func (l *orderLedger) expired(order *models.Order) bool {
	if order.Status != models.OrderStatusPendingPayment || order.CheckoutStartedAt == nil || l.sessionTTL <= 0 {
		return false
	}
	return time.Since(*order.CheckoutStartedAt) > l.sessionTTL
}

// reopenTx возвращает заказ из ожидания оплаты в open вместе с резервами.
func (l *orderLedger) reopenTx(ctx context.Context, tx *sql.Tx, order *models.Order) error {
	if order.Status != models.OrderStatusPendingPayment {
		return nil
	}
	if err := l.releaseReservationsTx(ctx, tx, order.ID); err != nil {
		return err
	}
	if err := l.orderRepo.ReopenOrderTx(ctx, tx, order.ID); err != nil {
		return err
	}
	l.observe(order.Status, models.OrderStatusOpen)
	order.Status = models.OrderStatusOpen
	order.PaymentSessionID = nil
	order.PaymentURL = nil
	order.CheckoutStartedAt = nil
	order.CheckoutTotal = nil
	return nil
}

// releaseReservationsTx возвращает на склад зарезервированное количество по всем позициям.
func (l *orderLedger) releaseReservationsTx(ctx context.Context, tx *sql.Tx, orderID int64) error {
	items, err := l.itemRepo.ListLineItemsForUpdateTx(ctx, tx, orderID)
	if err != nil {
		return err
	}
	for _, item := range items {
		if item.Reserved == 0 {
			continue
		}
		if err := l.restockTx(ctx, tx, item.ProductID, item.Reserved); err != nil {
			return err
		}
		item.Reserved = 0
		if err := l.itemRepo.UpdateLineItemTx(ctx, tx, item); err != nil {
			return err
		}
	}
	return nil
}

func (l *orderLedger) restockTx(ctx context.Context, tx *sql.Tx, productID int64, quantity int) error {
	product, err := l.productRepo.LockProductByIDTx(ctx, tx, productID)
	if err != nil {
		return err
	}
	return l.productRepo.UpdateProductStockTx(ctx, tx, productID, product.Quantity+quantity)
}

// takeStockTx списывает quantity единиц товара, если их хватает на складе.
func (l *orderLedger) takeStockTx(ctx context.Context, tx *sql.Tx, productID int64, quantity int) error {
	product, err := l.productRepo.LockProductByIDTx(ctx, tx, productID)
	if err != nil {
		return err
	}
	if product.Quantity < quantity {
		return fmt.Errorf("%w: %q has %d, requested %d", ErrOutOfStock, product.Title, product.Quantity, quantity)
	}
	return l.productRepo.UpdateProductStockTx(ctx, tx, productID, product.Quantity-quantity)
}

func (l *orderLedger) summaryTx(ctx context.Context, tx *sql.Tx, order *models.Order) (*CartSummary, error) {
	lines, err := l.itemRepo.ListCartLinesTx(ctx, tx, order.ID)
	if err != nil {
		return nil, err
	}
	summary := &CartSummary{Order: order, Lines: lines, TotalPrice: decimal.Zero}
	for _, line := range lines {
		summary.TotalQuantity += line.Quantity
		summary.TotalPrice = summary.TotalPrice.Add(line.Product.Price.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}
	return summary, nil
}

func (l *orderLedger) observe(from, to models.OrderStatus) {
	if l.observer != nil {
		l.observer.ObserveTransition(from, to)
	}
}
