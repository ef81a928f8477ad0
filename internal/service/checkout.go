package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/linemk/totembo-store/internal/domain/models"
	"github.com/linemk/totembo-store/internal/payment"
	"github.com/linemk/totembo-store/internal/storage"
)

// CustomerInfo - данные покупателя из формы оформления заказа.
type CustomerInfo struct {
	FirstName string `json:"first_name" validate:"required,max=100"`
	LastName  string `json:"last_name" validate:"required,max=100"`
	Phone     string `json:"phone" validate:"omitempty,max=20"`
}

// ShippingInfo - адрес доставки из формы оформления заказа.
type ShippingInfo struct {
	Address    string `json:"address" validate:"required,max=300"`
	City       string `json:"city" validate:"required,max=100"`
	Region     string `json:"region" validate:"required,max=100"`
	PostalCode string `json:"postal_code" validate:"omitempty,numeric,max=20"`
	Phone      string `json:"phone" validate:"required,min=5,max=20"`
	Comment    string `json:"comment" validate:"max=500"`
}

type CheckoutRequest struct {
	Customer CustomerInfo `json:"customer"`
	Shipping ShippingInfo `json:"shipping"`
}

// CheckoutSession - результат начала оплаты.
type CheckoutSession struct {
	OrderID     int64  `json:"order_id"`
	SessionID   string `json:"session_id"`
	RedirectURL string `json:"redirect_url"`
	AmountCents int64  `json:"amount_cents"`
	Currency    string `json:"currency"`
}

// CheckoutConfig - параметры оплаты, приходящие из конфигурации.
type CheckoutConfig struct {
	Currency    string
	SuccessURL  string
	CancelURL   string
	Description string
	SessionTTL  time.Duration
}

type CheckoutService interface {
	InitiateCheckout(ctx context.Context, customerID int64, req CheckoutRequest) (*CheckoutSession, error)
	ConfirmPayment(ctx context.Context, customerID int64, sessionID string) (*models.Order, error)
	CancelCheckout(ctx context.Context, customerID int64) error
}

type checkoutService struct {
	log          *slog.Logger
	db           *sql.DB
	customerRepo storage.CustomerStorage
	shippingRepo storage.ShippingStorage
	ledger       *orderLedger
	gateway      payment.Gateway
	cfg          CheckoutConfig
	newKey       func() string
}

func NewCheckoutService(
	log *slog.Logger,
	db *sql.DB,
	customerRepo storage.CustomerStorage,
	shippingRepo storage.ShippingStorage,
	productRepo storage.ProductStorage,
	orderRepo storage.OrderStorage,
	itemRepo storage.LineItemStorage,
	gateway payment.Gateway,
	cfg CheckoutConfig,
	observer TransitionObserver,
) CheckoutService {
	return &checkoutService{
		log:          log,
		db:           db,
		customerRepo: customerRepo,
		shippingRepo: shippingRepo,
		ledger: &orderLedger{
			productRepo: productRepo,
			orderRepo:   orderRepo,
			itemRepo:    itemRepo,
			sessionTTL:  cfg.SessionTTL,
			observer:    observer,
		},
		gateway: gateway,
		cfg:     cfg,
		newKey:  uuid.NewString,
	}
}

// InitiateCheckout сохраняет данные покупателя и адрес, резервирует товары
// и создаёт платёжную сессию. При ошибке шлюза резерв снимается,
// а данные покупателя и адрес остаются сохранёнными.
func (s *checkoutService) InitiateCheckout(ctx context.Context, customerID int64, req CheckoutRequest) (*CheckoutSession, error) {
	const op = "service.CheckoutService.InitiateCheckout"
	logger := s.log.With(slog.String("op", op), slog.Int64("customerID", customerID))

	if err := validateCheckout(req); err != nil {
		logger.Warn("invalid checkout form", slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	summary, err := s.reserve(ctx, logger, customerID, req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	order := summary.Order

	// сессия ещё жива: корзина с тех пор не менялась, иначе заказ был бы переоткрыт
	if hasLiveSession(order) {
		logger.Info("reusing payment session",
			slog.Int64("orderID", order.ID),
			slog.String("sessionID", *order.PaymentSessionID),
		)
		return &CheckoutSession{
			OrderID:     order.ID,
			SessionID:   *order.PaymentSessionID,
			RedirectURL: *order.PaymentURL,
			AmountCents: toCents(*order.CheckoutTotal),
			Currency:    s.cfg.Currency,
		}, nil
	}

	amountCents := toCents(summary.TotalPrice)
	session, err := s.gateway.CreatePaymentSession(ctx, payment.SessionRequest{
		AmountCents:    amountCents,
		Currency:       s.cfg.Currency,
		SuccessURL:     s.cfg.SuccessURL,
		CancelURL:      s.cfg.CancelURL,
		Description:    s.cfg.Description,
		Reference:      strconv.FormatInt(order.ID, 10),
		IdempotencyKey: s.newKey(),
		ExpiresAt:      order.CheckoutStartedAt.Add(s.cfg.SessionTTL),
	})
	if err != nil {
		logger.Error("payment gateway failed", slog.Any("error", err))
		if cErr := s.compensate(ctx, logger, customerID, order.ID); cErr != nil {
			logger.Error("failed to release reservation", slog.Any("error", cErr))
		}
		return nil, fmt.Errorf("%s: %w", op, &GatewayError{Err: err})
	}

	if err := s.recordSession(ctx, logger, order.ID, session); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	logger.Info("checkout started",
		slog.Int64("orderID", order.ID),
		slog.String("sessionID", session.ID),
		slog.Int64("amountCents", amountCents),
	)
	return &CheckoutSession{
		OrderID:     order.ID,
		SessionID:   session.ID,
		RedirectURL: session.RedirectURL,
		AmountCents: amountCents,
		Currency:    s.cfg.Currency,
	}, nil
}

func validateCheckout(req CheckoutRequest) error {
	fields := make(map[string]string)
	if err := validateForm("customer.", req.Customer, fields); err != nil {
		return err
	}
	if err := validateForm("shipping.", req.Shipping, fields); err != nil {
		return err
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// reserve в одной транзакции сохраняет покупателя и адрес, списывает товары в резерв
// и переводит заказ в ожидание оплаты.
func (s *checkoutService) reserve(ctx context.Context, logger *slog.Logger, customerID int64, req CheckoutRequest) (*CartSummary, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		logger.Error("failed to begin transaction", slog.Any("error", err))
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollback(logger, tx)

	order, err := s.ledger.activeOrderTx(ctx, tx, logger, customerID)
	if err != nil {
		logger.Warn("failed to get active order", slog.Any("error", err))
		return nil, fmt.Errorf("failed to get active order: %w", mapStorageErr(err))
	}

	items, err := s.ledger.itemRepo.ListLineItemsForUpdateTx(ctx, tx, order.ID)
	if err != nil {
		logger.Error("failed to get line items", slog.Any("error", err))
		return nil, fmt.Errorf("failed to get line items: %w", err)
	}
	if len(items) == 0 {
		logger.Warn("cart is empty")
		return nil, fmt.Errorf("cart is empty: %w", ErrNotFound)
	}
	resume := hasLiveSession(order)

	customer := &models.Customer{
		ID:        customerID,
		FirstName: req.Customer.FirstName,
		LastName:  req.Customer.LastName,
		Phone:     req.Customer.Phone,
	}
	if err := s.customerRepo.UpdateCustomerTx(ctx, tx, customer); err != nil {
		logger.Error("failed to update customer", slog.Any("error", err))
		return nil, fmt.Errorf("failed to update customer: %w", mapStorageErr(err))
	}

	addr := &models.ShippingAddress{
		CustomerID: customerID,
		OrderID:    order.ID,
		Address:    req.Shipping.Address,
		City:       req.Shipping.City,
		Region:     req.Shipping.Region,
		PostalCode: req.Shipping.PostalCode,
		Phone:      req.Shipping.Phone,
		Comment:    req.Shipping.Comment,
	}
	if err := s.shippingRepo.UpsertShippingAddressTx(ctx, tx, addr); err != nil {
		logger.Error("failed to save shipping address", slog.Any("error", err))
		return nil, fmt.Errorf("failed to save shipping address: %w", err)
	}

	if resume {
		if err := tx.Commit(); err != nil {
			logger.Error("failed to commit transaction", slog.Any("error", err))
			return nil, fmt.Errorf("failed to commit transaction: %w", err)
		}
		return &CartSummary{Order: order}, nil
	}

	for _, item := range items {
		delta := item.Quantity - item.Reserved
		if delta <= 0 {
			continue
		}
		if err := s.ledger.takeStockTx(ctx, tx, item.ProductID, delta); err != nil {
			logger.Warn("failed to reserve product", slog.Int64("productID", item.ProductID), slog.Any("error", err))
			return nil, fmt.Errorf("failed to reserve product %d: %w", item.ProductID, mapStorageErr(err))
		}
		item.Reserved = item.Quantity
		if err := s.ledger.itemRepo.UpdateLineItemTx(ctx, tx, item); err != nil {
			logger.Error("failed to update line item", slog.Any("error", err))
			return nil, fmt.Errorf("failed to update line item: %w", err)
		}
	}

	summary, err := s.ledger.summaryTx(ctx, tx, order)
	if err != nil {
		logger.Error("failed to build cart summary", slog.Any("error", err))
		return nil, fmt.Errorf("failed to build cart summary: %w", err)
	}

	startedAt := time.Now()
	if err := s.ledger.orderRepo.MarkPendingPaymentTx(ctx, tx, order.ID, summary.TotalPrice, startedAt); err != nil {
		logger.Error("failed to mark order pending", slog.Any("error", err))
		return nil, fmt.Errorf("failed to mark order pending: %w", err)
	}

	if err := tx.Commit(); err != nil {
		logger.Error("failed to commit transaction", slog.Any("error", err))
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	if order.Status != models.OrderStatusPendingPayment {
		s.ledger.observe(order.Status, models.OrderStatusPendingPayment)
	}
	total := summary.TotalPrice
	order.Status = models.OrderStatusPendingPayment
	order.CheckoutStartedAt = &startedAt
	order.CheckoutTotal = &total
	return summary, nil
}

// compensate снимает резерв после неудачного обращения к шлюзу.
func (s *checkoutService) compensate(ctx context.Context, logger *slog.Logger, customerID, orderID int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollback(logger, tx)

	order, err := s.ledger.activeOrderTx(ctx, tx, logger, customerID)
	if err != nil {
		return fmt.Errorf("failed to get active order: %w", err)
	}
	if order.ID != orderID {
		return nil
	}
	if err := s.ledger.reopenTx(ctx, tx, order); err != nil {
		return fmt.Errorf("failed to reopen order: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	logger.Info("reservation released after gateway failure", slog.Int64("orderID", orderID))
	return nil
}

func (s *checkoutService) recordSession(ctx context.Context, logger *slog.Logger, orderID int64, session *payment.Session) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		logger.Error("failed to begin transaction", slog.Any("error", err))
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollback(logger, tx)

	if err := s.ledger.orderRepo.SetPaymentSessionTx(ctx, tx, orderID, session.ID, session.RedirectURL); err != nil {
		logger.Error("failed to save payment session", slog.Any("error", err))
		return fmt.Errorf("failed to save payment session: %w", mapStorageErr(err))
	}
	if err := tx.Commit(); err != nil {
		logger.Error("failed to commit transaction", slog.Any("error", err))
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// ConfirmPayment завершает заказ после успешной оплаты.
// Позиции удаляются без возврата на склад: товар уже списан при резервировании.
func (s *checkoutService) ConfirmPayment(ctx context.Context, customerID int64, sessionID string) (*models.Order, error) {
	const op = "service.CheckoutService.ConfirmPayment"
	logger := s.log.With(slog.String("op", op), slog.Int64("customerID", customerID), slog.String("sessionID", sessionID))

	if sessionID == "" {
		logger.Warn("payment session id is missing")
		return nil, fmt.Errorf("%s: %w", op, &ValidationError{Fields: map[string]string{"session_id": "is required"}})
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		logger.Error("failed to begin transaction", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to begin transaction: %w", op, err)
	}
	defer rollback(logger, tx)

	order, err := s.ledger.activeOrderTx(ctx, tx, logger, customerID)
	if err != nil {
		logger.Warn("failed to get active order", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to get active order: %w", op, mapStorageErr(err))
	}
	if order.Status != models.OrderStatusPendingPayment {
		// заказ мог быть переоткрыт по истечении сессии, фиксируем это
		if err := tx.Commit(); err != nil {
			logger.Error("failed to commit transaction", slog.Any("error", err))
		}
		logger.Warn("order is not awaiting payment", slog.String("status", string(order.Status)))
		return nil, fmt.Errorf("%s: no pending checkout: %w", op, ErrNotFound)
	}
	if order.PaymentSessionID == nil || *order.PaymentSessionID != sessionID {
		logger.Warn("payment session mismatch")
		return nil, fmt.Errorf("%s: payment session mismatch: %w", op, ErrNotFound)
	}

	// строка заказа заблокирована, пока провайдер подтверждает оплату
	paid, err := s.gateway.SessionPaid(ctx, sessionID)
	if err != nil {
		logger.Error("failed to check payment status", slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, &GatewayError{Err: err})
	}
	if !paid {
		logger.Warn("payment session is not paid")
		return nil, fmt.Errorf("%s: %w", op, ErrPaymentIncomplete)
	}

	if err := s.ledger.itemRepo.DeleteLineItemsByOrderTx(ctx, tx, order.ID); err != nil {
		logger.Error("failed to delete line items", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to delete line items: %w", op, err)
	}

	completedAt := time.Now()
	if err := s.ledger.orderRepo.CompleteOrderTx(ctx, tx, order.ID, completedAt); err != nil {
		logger.Error("failed to complete order", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to complete order: %w", op, mapStorageErr(err))
	}

	if err := tx.Commit(); err != nil {
		logger.Error("failed to commit transaction", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to commit transaction: %w", op, err)
	}

	s.ledger.observe(order.Status, models.OrderStatusCompleted)
	order.Status = models.OrderStatusCompleted
	order.CompletedAt = &completedAt

	logger.Info("order completed", slog.Int64("orderID", order.ID))
	return order, nil
}

// CancelCheckout возвращает заказ из ожидания оплаты в корзину.
func (s *checkoutService) CancelCheckout(ctx context.Context, customerID int64) error {
	const op = "service.CheckoutService.CancelCheckout"
	logger := s.log.With(slog.String("op", op), slog.Int64("customerID", customerID))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		logger.Error("failed to begin transaction", slog.Any("error", err))
		return fmt.Errorf("%s: failed to begin transaction: %w", op, err)
	}
	defer rollback(logger, tx)

	order, err := s.ledger.activeOrderTx(ctx, tx, logger, customerID)
	if err != nil {
		if errors.Is(err, storage.ErrOrderNotFound) {
			logger.Info("no active order, nothing to cancel")
			return nil
		}
		logger.Error("failed to get active order", slog.Any("error", err))
		return fmt.Errorf("%s: failed to get active order: %w", op, mapStorageErr(err))
	}

	if err := s.ledger.reopenTx(ctx, tx, order); err != nil {
		logger.Error("failed to reopen order", slog.Any("error", err))
		return fmt.Errorf("%s: failed to reopen order: %w", op, mapStorageErr(err))
	}

	if err := tx.Commit(); err != nil {
		logger.Error("failed to commit transaction", slog.Any("error", err))
		return fmt.Errorf("%s: failed to commit transaction: %w", op, err)
	}

	logger.Info("checkout cancelled", slog.Int64("orderID", order.ID))
	return nil
}

// hasLiveSession сообщает, что у заказа есть неистёкшая платёжная сессия.
// Просроченные заказы к этому моменту уже переоткрыты в activeOrderTx.
func hasLiveSession(order *models.Order) bool {
	return order.Status == models.OrderStatusPendingPayment &&
		order.PaymentSessionID != nil && order.PaymentURL != nil && order.CheckoutTotal != nil
}

// toCents переводит сумму в минимальные единицы валюты с округлением.
func toCents(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}
