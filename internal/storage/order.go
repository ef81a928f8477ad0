package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/linemk/totembo-store/internal/domain/models"
)

var ErrOrderNotFound = errors.New("order not found")

const orderColumns = "id, customer_id, status, payment_session_id, payment_url, checkout_started_at, checkout_total, created_at, completed_at"

// OrderStorage описывает методы для работы с заказами.
type OrderStorage interface {
	// GetActiveOrderForUpdateTx возвращает активный заказ (корзину) покупателя и блокирует его строку.
	GetActiveOrderForUpdateTx(ctx context.Context, tx *sql.Tx, customerID int64) (*models.Order, error)
	// CreateActiveOrderTx создаёт открытый заказ; если активный заказ уже есть, ничего не делает.
	CreateActiveOrderTx(ctx context.Context, tx *sql.Tx, customerID int64) error
	// MarkPendingPaymentTx переводит заказ в ожидание оплаты и запоминает сумму к оплате.
	MarkPendingPaymentTx(ctx context.Context, tx *sql.Tx, orderID int64, total decimal.Decimal, startedAt time.Time) error
	// SetPaymentSessionTx запоминает платёжную сессию и адрес страницы оплаты.
	SetPaymentSessionTx(ctx context.Context, tx *sql.Tx, orderID int64, sessionID, paymentURL string) error
	// ReopenOrderTx возвращает заказ в статус open и забывает платёжную сессию.
	ReopenOrderTx(ctx context.Context, tx *sql.Tx, orderID int64) error
	CompleteOrderTx(ctx context.Context, tx *sql.Tx, orderID int64, completedAt time.Time) error
}

// orderRepository - конкретная реализация OrderStorage.
type orderRepository struct {
	db *sql.DB
}

// NewOrderRepository создаёт новый репозиторий заказов.
func NewOrderRepository(db *sql.DB) OrderStorage {
	return &orderRepository{db: db}
}

func (r *orderRepository) GetActiveOrderForUpdateTx(ctx context.Context, tx *sql.Tx, customerID int64) (*models.Order, error) {
	query := "SELECT " + orderColumns + ` FROM orders
		WHERE customer_id = $1 AND status IN ('open', 'pending_payment')
		FOR UPDATE`
	o := &models.Order{}
	row := tx.QueryRowContext(ctx, query, customerID)
	err := row.Scan(&o.ID, &o.CustomerID, &o.Status, &o.PaymentSessionID, &o.PaymentURL, &o.CheckoutStartedAt, &o.CheckoutTotal, &o.CreatedAt, &o.CompletedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return o, nil
}

func (r *orderRepository) CreateActiveOrderTx(ctx context.Context, tx *sql.Tx, customerID int64) error {
	query := `INSERT INTO orders (customer_id, status) VALUES ($1, 'open')
		ON CONFLICT (customer_id) WHERE status IN ('open', 'pending_payment') DO NOTHING`
	if _, err := tx.ExecContext(ctx, query, customerID); err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}
	return nil
}

func (r *orderRepository) MarkPendingPaymentTx(ctx context.Context, tx *sql.Tx, orderID int64, total decimal.Decimal, startedAt time.Time) error {
	return r.execOrderUpdate(ctx, tx,
		"UPDATE orders SET status = 'pending_payment', checkout_total = $1, checkout_started_at = $2 WHERE id = $3",
		total, startedAt, orderID,
	)
}

func (r *orderRepository) SetPaymentSessionTx(ctx context.Context, tx *sql.Tx, orderID int64, sessionID, paymentURL string) error {
	return r.execOrderUpdate(ctx, tx,
		"UPDATE orders SET payment_session_id = $1, payment_url = $2 WHERE id = $3",
		sessionID, paymentURL, orderID,
	)
}

func (r *orderRepository) ReopenOrderTx(ctx context.Context, tx *sql.Tx, orderID int64) error {
	return r.execOrderUpdate(ctx, tx,
		"UPDATE orders SET status = 'open', payment_session_id = NULL, payment_url = NULL, checkout_started_at = NULL, checkout_total = NULL WHERE id = $1",
		orderID,
	)
}

func (r *orderRepository) CompleteOrderTx(ctx context.Context, tx *sql.Tx, orderID int64, completedAt time.Time) error {
	return r.execOrderUpdate(ctx, tx,
		"UPDATE orders SET status = 'completed', completed_at = $1 WHERE id = $2",
		completedAt, orderID,
	)
}

func (r *orderRepository) execOrderUpdate(ctx context.Context, tx *sql.Tx, query string, args ...any) error {
	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update order: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrOrderNotFound
	}
	return nil
}
