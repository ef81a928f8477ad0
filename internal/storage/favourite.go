package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/linemk/totembo-store/internal/domain/models"
)

// FavouriteStorage описывает методы для работы с избранными товарами.
type FavouriteStorage interface {
	// AddFavourite возвращает false, если товар уже был в избранном.
	AddFavourite(ctx context.Context, userID, productID int64) (bool, error)
	// RemoveFavourite возвращает false, если товара в избранном не было.
	RemoveFavourite(ctx context.Context, userID, productID int64) (bool, error)
	GetFavouriteProducts(ctx context.Context, userID int64) ([]*models.Product, error)
}

type favouriteRepository struct {
	db *sql.DB
}

func NewFavouriteRepository(db *sql.DB) FavouriteStorage {
	return &favouriteRepository{db: db}
}

func (r *favouriteRepository) AddFavourite(ctx context.Context, userID, productID int64) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO favourite_products (user_id, product_id) VALUES ($1, $2) ON CONFLICT DO NOTHING",
		userID, productID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to add favourite: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (r *favouriteRepository) RemoveFavourite(ctx context.Context, userID, productID int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, "DELETE FROM favourite_products WHERE user_id = $1 AND product_id = $2", userID, productID)
	if err != nil {
		return false, fmt.Errorf("failed to remove favourite: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (r *favouriteRepository) GetFavouriteProducts(ctx context.Context, userID int64) ([]*models.Product, error) {
	query := `
		SELECT p.id, p.title, p.price, p.quantity, p.description, p.slug, p.size, p.color, p.category_id, p.created_at
		FROM favourite_products f
		JOIN products p ON f.product_id = p.id
		WHERE f.user_id = $1
		ORDER BY f.created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query favourites: %w", err)
	}
	defer rows.Close()

	products := make([]*models.Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan favourite: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return products, nil
}
