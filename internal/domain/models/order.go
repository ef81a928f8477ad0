package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus - состояние заказа в процессе оформления
type OrderStatus string

const (
	OrderStatusOpen           OrderStatus = "open"
	OrderStatusPendingPayment OrderStatus = "pending_payment"
	OrderStatusCompleted      OrderStatus = "completed"
)

// Order представляет заказ покупателя. Активный заказ (open или pending_payment) и есть корзина
type Order struct {
	ID                int64            `json:"id"`
	CustomerID        int64            `json:"customer_id"`
	Status            OrderStatus      `json:"status"`
	PaymentSessionID  *string          `json:"payment_session_id,omitempty"`
	PaymentURL        *string          `json:"payment_url,omitempty"` // страница оплаты текущей сессии
	CheckoutStartedAt *time.Time       `json:"checkout_started_at,omitempty"`
	CheckoutTotal     *decimal.Decimal `json:"checkout_total,omitempty"` // сумма, переданная платёжному шлюзу
	CreatedAt         time.Time        `json:"created_at"`
	CompletedAt       *time.Time       `json:"completed_at,omitempty"`
}

// IsActive сообщает, является ли заказ текущей корзиной покупателя
func (o *Order) IsActive() bool {
	return o.Status == OrderStatusOpen || o.Status == OrderStatusPendingPayment
}

// LineItem - позиция заказа (строка order_products)
type LineItem struct {
	ID        int64 `json:"id"`
	OrderID   int64 `json:"order_id"`
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
	Reserved  int   `json:"reserved"` // сколько уже списано со склада при оформлении
}

// CartLine - позиция корзины вместе с актуальными данными товара; заполняется через JOIN с products
type CartLine struct {
	LineItem
	Product Product `json:"product"`
}

// ShippingAddress - адрес доставки заказа
type ShippingAddress struct {
	ID         int64     `json:"id"`
	CustomerID int64     `json:"customer_id"`
	OrderID    int64     `json:"order_id"`
	Address    string    `json:"address"`
	City       string    `json:"city"`
	Region     string    `json:"region"`
	PostalCode string    `json:"postal_code"`
	Phone      string    `json:"phone"`
	Comment    string    `json:"comment"`
	CreatedAt  time.Time `json:"created_at"`
}
