package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/linemk/totembo-store/internal/domain/models"
)

var ErrAlreadySubscribed = errors.New("mail already subscribed")

// SubscriberStorage - список адресов для рассылки
type SubscriberStorage interface {
	CreateSubscriber(ctx context.Context, sub *models.Subscriber) error
}

type subscriberRepository struct {
	db *sql.DB
}

func NewSubscriberRepository(db *sql.DB) SubscriberStorage {
	return &subscriberRepository{db: db}
}

func (r *subscriberRepository) CreateSubscriber(ctx context.Context, sub *models.Subscriber) error {
	err := r.db.QueryRowContext(ctx, "INSERT INTO mails (mail, user_id) VALUES ($1, $2) RETURNING id", sub.Mail, sub.UserID).Scan(&sub.ID)
	if err != nil {
		if isPQCode(err, pqCodeUniqueViolation) {
			return ErrAlreadySubscribed
		}
		return fmt.Errorf("failed to create subscriber: %w", err)
	}
	return nil
}
