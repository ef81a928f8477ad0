package models

import "time"

// User представляет учётную запись
type User struct {
	ID        int64
	Email     string
	PassHash  []byte
	CreatedAt time.Time
}

// Customer - покупатель, связанный с учётной записью
type Customer struct {
	ID        int64  `json:"id"`
	UserID    int64  `json:"user_id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
}
