package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/linemk/totembo-store/internal/domain/models"
)

var ErrCustomerNotFound = errors.New("customer not found")

// CustomerStorage описывает методы для работы с покупателями.
type CustomerStorage interface {
	CreateCustomerTx(ctx context.Context, tx *sql.Tx, userID int64) (*models.Customer, error)
	GetCustomerByUserID(ctx context.Context, userID int64) (*models.Customer, error)
	// UpdateCustomerTx перезаписывает имя, фамилию и телефон покупателя.
	UpdateCustomerTx(ctx context.Context, tx *sql.Tx, customer *models.Customer) error
}

type customerRepository struct {
	db *sql.DB
}

func NewCustomerRepository(db *sql.DB) CustomerStorage {
	return &customerRepository{db: db}
}

func (r *customerRepository) CreateCustomerTx(ctx context.Context, tx *sql.Tx, userID int64) (*models.Customer, error) {
	customer := &models.Customer{UserID: userID}
	err := tx.QueryRowContext(ctx, "INSERT INTO customers (user_id) VALUES ($1) RETURNING id", userID).Scan(&customer.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to create customer: %w", err)
	}
	return customer, nil
}

func (r *customerRepository) GetCustomerByUserID(ctx context.Context, userID int64) (*models.Customer, error) {
	c := &models.Customer{}
	row := r.db.QueryRowContext(ctx, "SELECT id, user_id, first_name, last_name, phone FROM customers WHERE user_id = $1", userID)
	if err := row.Scan(&c.ID, &c.UserID, &c.FirstName, &c.LastName, &c.Phone); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCustomerNotFound
		}
		return nil, err
	}
	return c, nil
}

func (r *customerRepository) UpdateCustomerTx(ctx context.Context, tx *sql.Tx, customer *models.Customer) error {
	res, err := tx.ExecContext(ctx,
		"UPDATE customers SET first_name = $1, last_name = $2, phone = $3 WHERE id = $4",
		customer.FirstName, customer.LastName, customer.Phone, customer.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update customer: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrCustomerNotFound
	}
	return nil
}
