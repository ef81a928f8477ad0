package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/linemk/totembo-store/internal/domain/models"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrResourceLocked  = errors.New("resource is locked, please try again")
	ErrInvalidSort     = errors.New("invalid sort field")
)

const productColumns = "id, title, price, quantity, description, slug, size, color, category_id, created_at"

// productSortOrders - допустимые значения параметра сортировки
var productSortOrders = map[string]string{
	"":            "id ASC",
	"title":       "title ASC",
	"-title":      "title DESC",
	"price":       "price ASC",
	"-price":      "price DESC",
	"created_at":  "created_at ASC",
	"-created_at": "created_at DESC",
}

// ProductStorage описывает методы для работы с таблицей товаров и галереей.
type ProductStorage interface {
	GetProductByID(ctx context.Context, id int64) (*models.Product, error)
	GetProductBySlug(ctx context.Context, slug string) (*models.Product, error)
	// LockProductByIDTx блокирует строку товара (FOR UPDATE NOWAIT) перед изменением остатка.
	LockProductByIDTx(ctx context.Context, tx *sql.Tx, id int64) (*models.Product, error)
	UpdateProductStockTx(ctx context.Context, tx *sql.Tx, id int64, quantity int) error
	ListProductsByCategoryIDs(ctx context.Context, categoryIDs []int64, sort string) ([]*models.Product, error)
	// RandomProducts возвращает до limit случайных товаров, кроме excludeID.
	RandomProducts(ctx context.Context, excludeID int64, limit int) ([]*models.Product, error)
	GetGalleryByProductID(ctx context.Context, productID int64) ([]*models.GalleryImage, error)
}

type productRepository struct {
	db *sql.DB
}

func NewProductRepository(db *sql.DB) ProductStorage {
	return &productRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (*models.Product, error) {
	p := &models.Product{}
	err := row.Scan(&p.ID, &p.Title, &p.Price, &p.Quantity, &p.Description, &p.Slug, &p.Size, &p.Color, &p.CategoryID, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *productRepository) GetProductByID(ctx context.Context, id int64) (*models.Product, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+productColumns+" FROM products WHERE id = $1", id)
	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	return p, nil
}

func (r *productRepository) GetProductBySlug(ctx context.Context, slug string) (*models.Product, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+productColumns+" FROM products WHERE slug = $1", slug)
	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	return p, nil
}

func (r *productRepository) LockProductByIDTx(ctx context.Context, tx *sql.Tx, id int64) (*models.Product, error) {
	row := tx.QueryRowContext(ctx, "SELECT "+productColumns+" FROM products WHERE id = $1 FOR UPDATE NOWAIT", id)
	p, err := scanProduct(row)
	if err != nil {
		if isPQCode(err, pqCodeLockNotAvailable) {
			return nil, fmt.Errorf("%w: %w", ErrResourceLocked, err)
		}
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	return p, nil
}

func (r *productRepository) UpdateProductStockTx(ctx context.Context, tx *sql.Tx, id int64, quantity int) error {
	res, err := tx.ExecContext(ctx, "UPDATE products SET quantity = $1 WHERE id = $2", quantity, id)
	if err != nil {
		return fmt.Errorf("failed to update product stock: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrProductNotFound
	}
	return nil
}

func (r *productRepository) ListProductsByCategoryIDs(ctx context.Context, categoryIDs []int64, sort string) ([]*models.Product, error) {
	order, ok := productSortOrders[sort]
	if !ok {
		return nil, ErrInvalidSort
	}
	query := "SELECT " + productColumns + " FROM products WHERE category_id = ANY($1) ORDER BY " + order
	return r.queryProducts(ctx, query, pq.Array(categoryIDs))
}

func (r *productRepository) RandomProducts(ctx context.Context, excludeID int64, limit int) ([]*models.Product, error) {
	query := "SELECT " + productColumns + " FROM products WHERE id <> $1 ORDER BY random() LIMIT $2"
	return r.queryProducts(ctx, query, excludeID, limit)
}

func (r *productRepository) queryProducts(ctx context.Context, query string, args ...any) ([]*models.Product, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	products := make([]*models.Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return products, nil
}

func (r *productRepository) GetGalleryByProductID(ctx context.Context, productID int64) ([]*models.GalleryImage, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT id, product_id, image FROM gallery WHERE product_id = $1 ORDER BY id", productID)
	if err != nil {
		return nil, fmt.Errorf("failed to query gallery: %w", err)
	}
	defer rows.Close()

	images := make([]*models.GalleryImage, 0)
	for rows.Next() {
		img := &models.GalleryImage{}
		if err := rows.Scan(&img.ID, &img.ProductID, &img.Image); err != nil {
			return nil, fmt.Errorf("failed to scan gallery image: %w", err)
		}
		images = append(images, img)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return images, nil
}
