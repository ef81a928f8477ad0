package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/linemk/totembo-store/internal/domain/models"
	security "github.com/linemk/totembo-store/internal/jwt-new"
	"github.com/linemk/totembo-store/internal/storage"
)

type AuthServiceInterface interface {
	Register(ctx context.Context, email, password string) (*models.User, error)
	Login(ctx context.Context, email, password string) (string, error)
}

type AuthService struct {
	log          *slog.Logger
	db           *sql.DB
	userRepo     storage.UserStorage
	customerRepo storage.CustomerStorage
	secret       string
	tokenTTL     time.Duration
}

func NewAuthService(
	log *slog.Logger,
	db *sql.DB,
	userRepo storage.UserStorage,
	customerRepo storage.CustomerStorage,
	secret string,
	tokenTTL time.Duration,
) *AuthService {
	return &AuthService{
		log:          log,
		db:           db,
		userRepo:     userRepo,
		customerRepo: customerRepo,
		secret:       secret,
		tokenTTL:     tokenTTL,
	}
}

type credentialsForm struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// Register создаёт пользователя и связанного с ним покупателя в одной транзакции.
// Пароль хэшируется через bcrypt, соль добавляется автоматически.
func (a *AuthService) Register(ctx context.Context, email, password string) (*models.User, error) {
	const op = "service.AuthService.Register"
	logger := a.log.With(slog.String("op", op), slog.String("email", email))

	if err := validateStruct(credentialsForm{Email: email, Password: password}); err != nil {
		logger.Warn("invalid credentials form", slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	passHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		logger.Error("failed to hash password", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to hash password: %w", op, err)
	}

	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		logger.Error("failed to begin transaction", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to begin transaction: %w", op, err)
	}
	defer rollback(logger, tx)

	user, err := a.userRepo.CreateUserTx(ctx, tx, &models.User{Email: email, PassHash: passHash})
	if err != nil {
		logger.Warn("failed to create user", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to create user: %w", op, mapStorageErr(err))
	}

	if _, err := a.customerRepo.CreateCustomerTx(ctx, tx, user.ID); err != nil {
		logger.Error("failed to create customer", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to create customer: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		logger.Error("failed to commit transaction", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to commit transaction: %w", op, err)
	}

	logger.Info("user registered", slog.Int64("userID", user.ID))
	return user, nil
}

// Login проверяет пароль и выдаёт JWT-токен с id пользователя и id покупателя.
func (a *AuthService) Login(ctx context.Context, email, password string) (string, error) {
	const op = "service.AuthService.Login"
	logger := a.log.With(slog.String("op", op), slog.String("email", email))
	logger.Info("checking user")

	user, err := a.userRepo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			logger.Warn("user not found")
			return "", fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
		}
		logger.Error("failed to get user", slog.Any("error", err))
		return "", fmt.Errorf("%s: failed to get user: %w", op, err)
	}

	if err := bcrypt.CompareHashAndPassword(user.PassHash, []byte(password)); err != nil {
		logger.Warn("invalid password")
		return "", fmt.Errorf("%s: %w: %w", op, ErrInvalidCredentials, err)
	}

	customer, err := a.customerRepo.GetCustomerByUserID(ctx, user.ID)
	if err != nil {
		logger.Error("failed to get customer", slog.Any("error", err))
		return "", fmt.Errorf("%s: failed to get customer: %w", op, err)
	}

	token, err := security.NewToken(user, customer.ID, a.secret, a.tokenTTL)
	if err != nil {
		logger.Error("failed to generate token", slog.Any("error", err))
		return "", fmt.Errorf("%s: failed to generate token: %w", op, err)
	}

	logger.Info("user logged in successfully", slog.Int64("userID", user.ID))
	return token, nil
}
