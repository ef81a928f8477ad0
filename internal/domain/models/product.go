package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Category представляет категорию каталога; корневые категории не имеют родителя
type Category struct {
	ID            int64       `json:"id"`
	Title         string      `json:"title"`
	Image         *string     `json:"image,omitempty"`
	Slug          string      `json:"slug"`
	ParentID      *int64      `json:"parent_id,omitempty"`
	Subcategories []*Category `json:"subcategories,omitempty"`
}

// Product представляет товар витрины
type Product struct {
	ID          int64           `json:"id"`
	Title       string          `json:"title"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity"` // остаток на складе, никогда не уходит в минус
	Description string          `json:"description"`
	Slug        string          `json:"slug"`
	Size        int             `json:"size"` // размер в мм
	Color       string          `json:"color"`
	CategoryID  int64           `json:"category_id"`
	CreatedAt   time.Time       `json:"created_at"`
}

// GalleryImage - изображение товара
type GalleryImage struct {
	ID        int64  `json:"id"`
	ProductID int64  `json:"product_id"`
	Image     string `json:"image"`
}
