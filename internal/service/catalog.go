package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/linemk/totembo-store/internal/domain/models"
	"github.com/linemk/totembo-store/internal/storage"
)

const relatedProductsLimit = 4

// CategoryPage - товары корневой категории (или одного её подтипа).
type CategoryPage struct {
	Category *models.Category  `json:"category"`
	Products []*models.Product `json:"products"`
}

// ProductDetail - карточка товара.
type ProductDetail struct {
	Product *models.Product        `json:"product"`
	Images  []*models.GalleryImage `json:"images"`
	Reviews []*models.Review       `json:"reviews"`
	Related []*models.Product      `json:"related"`
}

type CatalogService interface {
	ListRootCategories(ctx context.Context) ([]*models.Category, error)
	CategoryProducts(ctx context.Context, slug, sort, typeSlug string) (*CategoryPage, error)
	ProductDetail(ctx context.Context, slug string) (*ProductDetail, error)
}

type catalogService struct {
	log          *slog.Logger
	categoryRepo storage.CategoryStorage
	productRepo  storage.ProductStorage
	reviewRepo   storage.ReviewStorage
}

func NewCatalogService(
	log *slog.Logger,
	categoryRepo storage.CategoryStorage,
	productRepo storage.ProductStorage,
	reviewRepo storage.ReviewStorage,
) CatalogService {
	return &catalogService{
		log:          log,
		categoryRepo: categoryRepo,
		productRepo:  productRepo,
		reviewRepo:   reviewRepo,
	}
}

// ListRootCategories возвращает корневые категории вместе с подкатегориями.
func (s *catalogService) ListRootCategories(ctx context.Context) ([]*models.Category, error) {
	const op = "service.CatalogService.ListRootCategories"
	logger := s.log.With(slog.String("op", op))

	roots, err := s.categoryRepo.ListRootCategories(ctx)
	if err != nil {
		logger.Error("failed to get root categories", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to get root categories: %w", op, err)
	}
	if len(roots) == 0 {
		return roots, nil
	}

	ids := make([]int64, 0, len(roots))
	byID := make(map[int64]*models.Category, len(roots))
	for _, c := range roots {
		ids = append(ids, c.ID)
		byID[c.ID] = c
		c.Subcategories = make([]*models.Category, 0)
	}

	subs, err := s.categoryRepo.ListSubcategories(ctx, ids)
	if err != nil {
		logger.Error("failed to get subcategories", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to get subcategories: %w", op, err)
	}
	for _, sub := range subs {
		if sub.ParentID == nil {
			continue
		}
		if parent, ok := byID[*sub.ParentID]; ok {
			parent.Subcategories = append(parent.Subcategories, sub)
		}
	}
	return roots, nil
}

// CategoryProducts возвращает товары подкатегорий категории slug.
// typeSlug сужает выборку до одной подкатегории.
func (s *catalogService) CategoryProducts(ctx context.Context, slug, sort, typeSlug string) (*CategoryPage, error) {
	const op = "service.CatalogService.CategoryProducts"
	logger := s.log.With(slog.String("op", op), slog.String("slug", slug), slog.String("sort", sort), slog.String("type", typeSlug))

	category, err := s.categoryRepo.GetCategoryBySlug(ctx, slug)
	if err != nil {
		logger.Warn("failed to get category", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to get category: %w", op, mapStorageErr(err))
	}

	subs, err := s.categoryRepo.ListSubcategories(ctx, []int64{category.ID})
	if err != nil {
		logger.Error("failed to get subcategories", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to get subcategories: %w", op, err)
	}
	category.Subcategories = subs

	ids := make([]int64, 0, len(subs))
	for _, sub := range subs {
		if typeSlug == "" || sub.Slug == typeSlug {
			ids = append(ids, sub.ID)
		}
	}
	if typeSlug != "" && len(ids) == 0 {
		logger.Warn("unknown product type")
		return nil, fmt.Errorf("%s: unknown type %q: %w", op, typeSlug, ErrNotFound)
	}

	products, err := s.productRepo.ListProductsByCategoryIDs(ctx, ids, sort)
	if err != nil {
		if errors.Is(err, storage.ErrInvalidSort) {
			logger.Warn("invalid sort")
			return nil, fmt.Errorf("%s: %w", op, &ValidationError{Fields: map[string]string{
				"sort": "must be one of: title -title price -price created_at -created_at",
			}})
		}
		logger.Error("failed to get products", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to get products: %w", op, err)
	}

	return &CategoryPage{Category: category, Products: products}, nil
}

// ProductDetail собирает карточку товара: галерею, отзывы и похожие товары.
func (s *catalogService) ProductDetail(ctx context.Context, slug string) (*ProductDetail, error) {
	const op = "service.CatalogService.ProductDetail"
	logger := s.log.With(slog.String("op", op), slog.String("slug", slug))

	product, err := s.productRepo.GetProductBySlug(ctx, slug)
	if err != nil {
		logger.Warn("failed to get product", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to get product: %w", op, mapStorageErr(err))
	}

	images, err := s.productRepo.GetGalleryByProductID(ctx, product.ID)
	if err != nil {
		logger.Error("failed to get gallery", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to get gallery: %w", op, err)
	}

	reviews, err := s.reviewRepo.GetReviewsByProductID(ctx, product.ID)
	if err != nil {
		logger.Error("failed to get reviews", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to get reviews: %w", op, err)
	}

	related, err := s.productRepo.RandomProducts(ctx, product.ID, relatedProductsLimit)
	if err != nil {
		logger.Error("failed to get related products", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to get related products: %w", op, err)
	}

	return &ProductDetail{Product: product, Images: images, Reviews: reviews, Related: related}, nil
}
