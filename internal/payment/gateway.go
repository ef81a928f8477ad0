// Package payment описывает границу с платёжным провайдером.
package payment

import (
	"context"
	"time"
)

// SessionRequest - параметры платёжной сессии.
type SessionRequest struct {
	AmountCents    int64
	Currency       string
	SuccessURL     string
	CancelURL      string
	Description    string
	Reference      string // идентификатор заказа на нашей стороне
	IdempotencyKey string
	ExpiresAt      time.Time
}

// Session - созданная платёжная сессия.
type Session struct {
	ID          string
	RedirectURL string
}

// Gateway создаёт платёжные сессии у внешнего провайдера и проверяет их оплату.
type Gateway interface {
	CreatePaymentSession(ctx context.Context, req SessionRequest) (*Session, error)
	// SessionPaid сообщает, оплачена ли сессия на стороне провайдера.
	SessionPaid(ctx context.Context, sessionID string) (bool, error)
}
