package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/linemk/totembo-store/internal/domain/models"
)

// ReviewStorage описывает методы для работы с отзывами.
type ReviewStorage interface {
	CreateReview(ctx context.Context, review *models.Review) error
	// GetReviewsByProductID возвращает отзывы о товаре, новые первыми, с JOIN для получения автора.
	GetReviewsByProductID(ctx context.Context, productID int64) ([]*models.Review, error)
}

type reviewRepository struct {
	db *sql.DB
}

func NewReviewRepository(db *sql.DB) ReviewStorage {
	return &reviewRepository{db: db}
}

func (r *reviewRepository) CreateReview(ctx context.Context, review *models.Review) error {
	query := `INSERT INTO reviews (product_id, author_id, text, created_at)
	          VALUES ($1, $2, $3, NOW()) RETURNING id, created_at`
	err := r.db.QueryRowContext(ctx, query, review.ProductID, review.AuthorID, review.Text).Scan(&review.ID, &review.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create review: %w", err)
	}
	return nil
}

func (r *reviewRepository) GetReviewsByProductID(ctx context.Context, productID int64) ([]*models.Review, error) {
	query := `
		SELECT r.id, r.product_id, r.author_id, u.email, r.text, r.created_at
		FROM reviews r
		JOIN users u ON r.author_id = u.id
		WHERE r.product_id = $1
		ORDER BY r.created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to query reviews: %w", err)
	}
	defer rows.Close()

	reviews := make([]*models.Review, 0)
	for rows.Next() {
		rv := &models.Review{}
		if err := rows.Scan(&rv.ID, &rv.ProductID, &rv.AuthorID, &rv.AuthorEmail, &rv.Text, &rv.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan review: %w", err)
		}
		reviews = append(reviews, rv)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return reviews, nil
}
