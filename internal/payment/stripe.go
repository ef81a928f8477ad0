package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
)

var ErrInvalidAmount = errors.New("payment amount must be positive")

// checkoutSessions - часть API Stripe, которой пользуется шлюз.
type checkoutSessions interface {
	New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
	Get(id string, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

// StripeGateway создаёт сессии Stripe Checkout.
type StripeGateway struct {
	log      *slog.Logger
	sessions checkoutSessions
}

func NewStripeGateway(log *slog.Logger, secretKey string) *StripeGateway {
	sc := client.New(secretKey, nil)
	return &StripeGateway{log: log, sessions: sc.CheckoutSessions}
}

func (g *StripeGateway) CreatePaymentSession(ctx context.Context, req SessionRequest) (*Session, error) {
	const op = "payment.StripeGateway.CreatePaymentSession"
	logger := g.log.With(
		slog.String("op", op),
		slog.String("reference", req.Reference),
		slog.Int64("amountCents", req.AmountCents),
	)

	if req.AmountCents <= 0 {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidAmount)
	}

	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String(req.Currency),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(req.Description),
					},
					UnitAmount: stripe.Int64(req.AmountCents),
				},
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL:        stripe.String(req.SuccessURL),
		CancelURL:         stripe.String(req.CancelURL),
		ClientReferenceID: stripe.String(req.Reference),
	}
	if !req.ExpiresAt.IsZero() {
		params.ExpiresAt = stripe.Int64(req.ExpiresAt.Unix())
	}
	params.Context = ctx
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}

	cs, err := g.sessions.New(params)
	if err != nil {
		logger.Error("failed to create checkout session", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to create checkout session: %w", op, err)
	}

	logger.Info("checkout session created", slog.String("sessionID", cs.ID))
	return &Session{ID: cs.ID, RedirectURL: cs.URL}, nil
}

func (g *StripeGateway) SessionPaid(ctx context.Context, sessionID string) (bool, error) {
	const op = "payment.StripeGateway.SessionPaid"
	logger := g.log.With(slog.String("op", op), slog.String("sessionID", sessionID))

	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	cs, err := g.sessions.Get(sessionID, params)
	if err != nil {
		logger.Error("failed to get checkout session", slog.Any("error", err))
		return false, fmt.Errorf("%s: failed to get checkout session: %w", op, err)
	}

	// no_payment_required для нулевой суммы не бывает: такие сессии не создаются
	paid := cs.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid
	logger.Debug("checkout session status", slog.String("status", string(cs.PaymentStatus)))
	return paid, nil
}
