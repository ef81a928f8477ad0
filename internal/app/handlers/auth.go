package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/linemk/totembo-store/internal/service"
)

// AuthRequest - учётные данные для регистрации и входа
type AuthRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// AuthResponse представляет структуру ответа с JWT-токеном
type AuthResponse struct {
	Token string `json:"token"`
}

// RegisterResponse - данные созданной учётной записи
type RegisterResponse struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
}

var validate = validator.New()

func decodeCredentials(logger *slog.Logger, w http.ResponseWriter, r *http.Request) (AuthRequest, bool) {
	var req AuthRequest
	if err := decodeJSON(r, &req); err != nil {
		logger.Warn("invalid request: decoding error", slog.Any("error", err))
		writeError(logger, w, http.StatusBadRequest, "invalid request")
		return req, false
	}
	if err := validate.Struct(req); err != nil {
		logger.Warn("invalid request: validation error", slog.Any("error", err))
		writeError(logger, w, http.StatusBadRequest, "validation error")
		return req, false
	}
	return req, true
}

// RegisterHandler создаёт учётную запись вместе с профилем покупателя
func RegisterHandler(log *slog.Logger, authService service.AuthServiceInterface) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.RegisterHandler"
		logger := log.With(slog.String("op", op))

		req, ok := decodeCredentials(logger, w, r)
		if !ok {
			return
		}

		user, err := authService.Register(r.Context(), req.Email, req.Password)
		if err != nil {
			logger.Warn("registration failed", slog.Any("error", err))
			writeServiceError(logger, w, err)
			return
		}

		writeJSON(logger, w, http.StatusCreated, RegisterResponse{ID: user.ID, Email: user.Email})
	}
}

// LoginHandler – HTTP-обработчик для аутентификации, принимает логгер и экземпляр AuthService
func LoginHandler(log *slog.Logger, authService service.AuthServiceInterface) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.LoginHandler"
		logger := log.With(slog.String("op", op))

		req, ok := decodeCredentials(logger, w, r)
		if !ok {
			return
		}

		token, err := authService.Login(r.Context(), req.Email, req.Password)
		if err != nil {
			logger.Warn("login failed", slog.Any("error", err))
			writeServiceError(logger, w, err)
			return
		}

		writeJSON(logger, w, http.StatusOK, AuthResponse{Token: token})
	}
}
