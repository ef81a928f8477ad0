package security

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/linemk/totembo-store/internal/domain/models"
)

var ErrEmptySecret = errors.New("jwt secret is empty")

// CustomerClaim - имя claim с идентификатором покупателя.
const CustomerClaim = "cid"

// NewToken генерирует JWT-токен пользователя: sub - id пользователя, cid - id покупателя.
func NewToken(user *models.User, customerID int64, secret string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", ErrEmptySecret
	}
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":         strconv.FormatInt(user.ID, 10),
		CustomerClaim: strconv.FormatInt(customerID, 10),
		"email":       user.Email,
		"exp":         now.Add(ttl).Unix(),
		"iat":         now.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}
