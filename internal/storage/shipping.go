package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/linemk/totembo-store/internal/domain/models"
)

var ErrShippingAddressNotFound = errors.New("shipping address not found")

// ShippingStorage описывает методы для работы с адресами доставки.
type ShippingStorage interface {
	// UpsertShippingAddressTx сохраняет адрес доставки заказа; повторное оформление перезаписывает адрес.
	UpsertShippingAddressTx(ctx context.Context, tx *sql.Tx, addr *models.ShippingAddress) error
	GetShippingAddressByOrderID(ctx context.Context, orderID int64) (*models.ShippingAddress, error)
}

type shippingRepository struct {
	db *sql.DB
}

func NewShippingRepository(db *sql.DB) ShippingStorage {
	return &shippingRepository{db: db}
}

func (r *shippingRepository) UpsertShippingAddressTx(ctx context.Context, tx *sql.Tx, addr *models.ShippingAddress) error {
	query := `INSERT INTO shipping_addresses (customer_id, order_id, address, city, region, postal_code, phone, comment)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (order_id) DO UPDATE SET
			address = EXCLUDED.address, city = EXCLUDED.city, region = EXCLUDED.region,
			postal_code = EXCLUDED.postal_code, phone = EXCLUDED.phone, comment = EXCLUDED.comment
		RETURNING id, created_at`
	err := tx.QueryRowContext(ctx, query,
		addr.CustomerID, addr.OrderID, addr.Address, addr.City, addr.Region, addr.PostalCode, addr.Phone, addr.Comment,
	).Scan(&addr.ID, &addr.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save shipping address: %w", err)
	}
	return nil
}

func (r *shippingRepository) GetShippingAddressByOrderID(ctx context.Context, orderID int64) (*models.ShippingAddress, error) {
	a := &models.ShippingAddress{}
	row := r.db.QueryRowContext(ctx, `SELECT id, customer_id, order_id, address, city, region, postal_code, phone, comment, created_at
		FROM shipping_addresses WHERE order_id = $1`, orderID)
	err := row.Scan(&a.ID, &a.CustomerID, &a.OrderID, &a.Address, &a.City, &a.Region, &a.PostalCode, &a.Phone, &a.Comment, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrShippingAddressNotFound
		}
		return nil, err
	}
	return a, nil
}
