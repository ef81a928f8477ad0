package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/linemk/totembo-store/internal/domain/models"
)

var ErrCategoryNotFound = errors.New("category not found")

// CategoryStorage описывает методы для работы с деревом категорий.
type CategoryStorage interface {
	ListRootCategories(ctx context.Context) ([]*models.Category, error)
	ListSubcategories(ctx context.Context, parentIDs []int64) ([]*models.Category, error)
	GetCategoryBySlug(ctx context.Context, slug string) (*models.Category, error)
}

type categoryRepository struct {
	db *sql.DB
}

func NewCategoryRepository(db *sql.DB) CategoryStorage {
	return &categoryRepository{db: db}
}

func (r *categoryRepository) ListRootCategories(ctx context.Context) ([]*models.Category, error) {
	return r.queryCategories(ctx, "SELECT id, title, image, slug, parent_id FROM categories WHERE parent_id IS NULL ORDER BY id")
}

func (r *categoryRepository) ListSubcategories(ctx context.Context, parentIDs []int64) ([]*models.Category, error) {
	return r.queryCategories(ctx,
		"SELECT id, title, image, slug, parent_id FROM categories WHERE parent_id = ANY($1) ORDER BY id",
		pq.Array(parentIDs),
	)
}

func (r *categoryRepository) GetCategoryBySlug(ctx context.Context, slug string) (*models.Category, error) {
	c := &models.Category{}
	row := r.db.QueryRowContext(ctx, "SELECT id, title, image, slug, parent_id FROM categories WHERE slug = $1", slug)
	if err := row.Scan(&c.ID, &c.Title, &c.Image, &c.Slug, &c.ParentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCategoryNotFound
		}
		return nil, err
	}
	return c, nil
}

func (r *categoryRepository) queryCategories(ctx context.Context, query string, args ...any) ([]*models.Category, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer rows.Close()

	categories := make([]*models.Category, 0)
	for rows.Next() {
		c := &models.Category{}
		if err := rows.Scan(&c.ID, &c.Title, &c.Image, &c.Slug, &c.ParentID); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return categories, nil
}
