package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/linemk/totembo-store/internal/domain/models"
	"github.com/linemk/totembo-store/internal/storage"
)

type CommunityService interface {
	AddReview(ctx context.Context, userID int64, productSlug, text string) (*models.Review, error)
	// ToggleFavourite возвращает true, если товар теперь в избранном.
	ToggleFavourite(ctx context.Context, userID int64, productSlug string) (bool, error)
	ListFavourites(ctx context.Context, userID int64) ([]*models.Product, error)
	Subscribe(ctx context.Context, userID int64, email string) error
}

type communityService struct {
	log            *slog.Logger
	productRepo    storage.ProductStorage
	reviewRepo     storage.ReviewStorage
	favouriteRepo  storage.FavouriteStorage
	subscriberRepo storage.SubscriberStorage
}

func NewCommunityService(
	log *slog.Logger,
	productRepo storage.ProductStorage,
	reviewRepo storage.ReviewStorage,
	favouriteRepo storage.FavouriteStorage,
	subscriberRepo storage.SubscriberStorage,
) CommunityService {
	return &communityService{
		log:            log,
		productRepo:    productRepo,
		reviewRepo:     reviewRepo,
		favouriteRepo:  favouriteRepo,
		subscriberRepo: subscriberRepo,
	}
}

type reviewForm struct {
	Text string `json:"text" validate:"required,max=2000"`
}

type subscriptionForm struct {
	Email string `json:"email" validate:"required,email,max=254"`
}

func (s *communityService) AddReview(ctx context.Context, userID int64, productSlug, text string) (*models.Review, error) {
	const op = "service.CommunityService.AddReview"
	logger := s.log.With(slog.String("op", op), slog.Int64("userID", userID), slog.String("slug", productSlug))

	if err := validateStruct(reviewForm{Text: text}); err != nil {
		logger.Warn("invalid review", slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	product, err := s.productRepo.GetProductBySlug(ctx, productSlug)
	if err != nil {
		logger.Warn("failed to get product", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to get product: %w", op, mapStorageErr(err))
	}

	review := &models.Review{ProductID: product.ID, AuthorID: userID, Text: text}
	if err := s.reviewRepo.CreateReview(ctx, review); err != nil {
		logger.Error("failed to create review", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to create review: %w", op, err)
	}

	logger.Info("review added", slog.Int64("reviewID", review.ID))
	return review, nil
}

func (s *communityService) ToggleFavourite(ctx context.Context, userID int64, productSlug string) (bool, error) {
	const op = "service.CommunityService.ToggleFavourite"
	logger := s.log.With(slog.String("op", op), slog.Int64("userID", userID), slog.String("slug", productSlug))

	product, err := s.productRepo.GetProductBySlug(ctx, productSlug)
	if err != nil {
		logger.Warn("failed to get product", slog.Any("error", err))
		return false, fmt.Errorf("%s: failed to get product: %w", op, mapStorageErr(err))
	}

	removed, err := s.favouriteRepo.RemoveFavourite(ctx, userID, product.ID)
	if err != nil {
		logger.Error("failed to remove favourite", slog.Any("error", err))
		return false, fmt.Errorf("%s: failed to remove favourite: %w", op, err)
	}
	if removed {
		logger.Info("product removed from favourites")
		return false, nil
	}

	if _, err := s.favouriteRepo.AddFavourite(ctx, userID, product.ID); err != nil {
		logger.Error("failed to add favourite", slog.Any("error", err))
		return false, fmt.Errorf("%s: failed to add favourite: %w", op, err)
	}
	logger.Info("product added to favourites")
	return true, nil
}

func (s *communityService) ListFavourites(ctx context.Context, userID int64) ([]*models.Product, error) {
	const op = "service.CommunityService.ListFavourites"

	products, err := s.favouriteRepo.GetFavouriteProducts(ctx, userID)
	if err != nil {
		s.log.Error("failed to get favourites", slog.String("op", op), slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to get favourites: %w", op, err)
	}
	return products, nil
}

func (s *communityService) Subscribe(ctx context.Context, userID int64, email string) error {
	const op = "service.CommunityService.Subscribe"
	logger := s.log.With(slog.String("op", op), slog.Int64("userID", userID))

	if err := validateStruct(subscriptionForm{Email: email}); err != nil {
		logger.Warn("invalid subscription", slog.Any("error", err))
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := s.subscriberRepo.CreateSubscriber(ctx, &models.Subscriber{Mail: email, UserID: userID}); err != nil {
		logger.Warn("failed to subscribe", slog.Any("error", err))
		return fmt.Errorf("%s: failed to subscribe: %w", op, mapStorageErr(err))
	}

	logger.Info("subscribed to newsletter")
	return nil
}
