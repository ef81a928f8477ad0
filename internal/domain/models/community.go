package models

import "time"

// Review - отзыв о товаре
type Review struct {
	ID          int64     `json:"id"`
	ProductID   int64     `json:"product_id"`
	AuthorID    int64     `json:"author_id"`
	AuthorEmail string    `json:"author"` // заполняется через JOIN с users
	Text        string    `json:"text"`
	CreatedAt   time.Time `json:"created_at"`
}

// Subscriber - адрес из списка рассылки
type Subscriber struct {
	ID     int64  `json:"id"`
	Mail   string `json:"mail"`
	UserID int64  `json:"user_id"`
}
