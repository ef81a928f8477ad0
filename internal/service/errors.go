package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/linemk/totembo-store/internal/storage"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrConcurrencyConflict = errors.New("concurrent modification, please try again")
	ErrOutOfStock          = errors.New("not enough products in stock")
	ErrUserExists          = errors.New("user already exists")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrAlreadySubscribed   = errors.New("already subscribed")
	ErrPaymentIncomplete   = errors.New("payment is not completed")
)

// ValidationError содержит сообщения об ошибках по каждому полю формы.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// GatewayError оборачивает ошибку платёжного провайдера.
type GatewayError struct {
	Err error
}

func (e *GatewayError) Error() string {
	return "payment gateway: " + e.Err.Error()
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

// mapStorageErr добавляет к ошибке хранилища соответствующую ошибку сервиса,
// не теряя исходную причину.
func mapStorageErr(err error) error {
	switch {
	case errors.Is(err, storage.ErrResourceLocked):
		return fmt.Errorf("%w: %w", ErrConcurrencyConflict, err)
	case errors.Is(err, storage.ErrProductNotFound),
		errors.Is(err, storage.ErrOrderNotFound),
		errors.Is(err, storage.ErrLineItemNotFound),
		errors.Is(err, storage.ErrCategoryNotFound),
		errors.Is(err, storage.ErrCustomerNotFound),
		errors.Is(err, storage.ErrUserNotFound):
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	case errors.Is(err, storage.ErrUserExists):
		return fmt.Errorf("%w: %w", ErrUserExists, err)
	case errors.Is(err, storage.ErrAlreadySubscribed):
		return fmt.Errorf("%w: %w", ErrAlreadySubscribed, err)
	}
	return err
}
