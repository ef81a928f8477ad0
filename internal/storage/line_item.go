package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/linemk/totembo-store/internal/domain/models"
)

var ErrLineItemNotFound = errors.New("line item not found")

// LineItemStorage описывает методы для работы с позициями заказа (order_products).
type LineItemStorage interface {
	// IncrementLineItemTx атомарно добавляет одну единицу товара в заказ и возвращает новое количество.
	IncrementLineItemTx(ctx context.Context, tx *sql.Tx, orderID, productID int64) (int, error)
	GetLineItemForUpdateTx(ctx context.Context, tx *sql.Tx, orderID, productID int64) (*models.LineItem, error)
	UpdateLineItemTx(ctx context.Context, tx *sql.Tx, item *models.LineItem) error
	DeleteLineItemTx(ctx context.Context, tx *sql.Tx, id int64) error
	ListLineItemsForUpdateTx(ctx context.Context, tx *sql.Tx, orderID int64) ([]*models.LineItem, error)
	DeleteLineItemsByOrderTx(ctx context.Context, tx *sql.Tx, orderID int64) error
	// ListCartLinesTx возвращает позиции заказа вместе с актуальными данными товаров.
	ListCartLinesTx(ctx context.Context, tx *sql.Tx, orderID int64) ([]*models.CartLine, error)
}

type lineItemRepository struct {
	db *sql.DB
}

func NewLineItemRepository(db *sql.DB) LineItemStorage {
	return &lineItemRepository{db: db}
}

func (r *lineItemRepository) IncrementLineItemTx(ctx context.Context, tx *sql.Tx, orderID, productID int64) (int, error) {
	query := `INSERT INTO order_products (order_id, product_id, quantity) VALUES ($1, $2, 1)
		ON CONFLICT (order_id, product_id) DO UPDATE SET quantity = order_products.quantity + 1
		RETURNING quantity`
	var quantity int
	if err := tx.QueryRowContext(ctx, query, orderID, productID).Scan(&quantity); err != nil {
		return 0, fmt.Errorf("failed to increment line item: %w", err)
	}
	return quantity, nil
}

func (r *lineItemRepository) GetLineItemForUpdateTx(ctx context.Context, tx *sql.Tx, orderID, productID int64) (*models.LineItem, error) {
	item := &models.LineItem{}
	row := tx.QueryRowContext(ctx,
		"SELECT id, order_id, product_id, quantity, reserved FROM order_products WHERE order_id = $1 AND product_id = $2 FOR UPDATE",
		orderID, productID,
	)
	if err := row.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.Quantity, &item.Reserved); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrLineItemNotFound
		}
		return nil, err
	}
	return item, nil
}

func (r *lineItemRepository) UpdateLineItemTx(ctx context.Context, tx *sql.Tx, item *models.LineItem) error {
	res, err := tx.ExecContext(ctx,
		"UPDATE order_products SET quantity = $1, reserved = $2 WHERE id = $3",
		item.Quantity, item.Reserved, item.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update line item: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrLineItemNotFound
	}
	return nil
}

func (r *lineItemRepository) DeleteLineItemTx(ctx context.Context, tx *sql.Tx, id int64) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM order_products WHERE id = $1", id); err != nil {
		return fmt.Errorf("failed to delete line item: %w", err)
	}
	return nil
}

func (r *lineItemRepository) ListLineItemsForUpdateTx(ctx context.Context, tx *sql.Tx, orderID int64) ([]*models.LineItem, error) {
	rows, err := tx.QueryContext(ctx,
		"SELECT id, order_id, product_id, quantity, reserved FROM order_products WHERE order_id = $1 ORDER BY id FOR UPDATE",
		orderID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query line items: %w", err)
	}
	defer rows.Close()

	items := make([]*models.LineItem, 0)
	for rows.Next() {
		item := &models.LineItem{}
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.Quantity, &item.Reserved); err != nil {
			return nil, fmt.Errorf("failed to scan line item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *lineItemRepository) DeleteLineItemsByOrderTx(ctx context.Context, tx *sql.Tx, orderID int64) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM order_products WHERE order_id = $1", orderID); err != nil {
		return fmt.Errorf("failed to delete line items: %w", err)
	}
	return nil
}

func (r *lineItemRepository) ListCartLinesTx(ctx context.Context, tx *sql.Tx, orderID int64) ([]*models.CartLine, error) {
	query := `
		SELECT op.id, op.order_id, op.product_id, op.quantity, op.reserved,
		       p.id, p.title, p.price, p.quantity, p.description, p.slug, p.size, p.color, p.category_id, p.created_at
		FROM order_products op
		JOIN products p ON op.product_id = p.id
		WHERE op.order_id = $1
		ORDER BY op.id`
	rows, err := tx.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to query cart lines: %w", err)
	}
	defer rows.Close()

	lines := make([]*models.CartLine, 0)
	for rows.Next() {
		l := &models.CartLine{}
		p := &l.Product
		err := rows.Scan(&l.ID, &l.OrderID, &l.ProductID, &l.Quantity, &l.Reserved,
			&p.ID, &p.Title, &p.Price, &p.Quantity, &p.Description, &p.Slug, &p.Size, &p.Color, &p.CategoryID, &p.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan cart line: %w", err)
		}
		lines = append(lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}
