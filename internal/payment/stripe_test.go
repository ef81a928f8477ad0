package payment

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v76"
)

type fakeSessions struct {
	params *stripe.CheckoutSessionParams
	err    error
	status stripe.CheckoutSessionPaymentStatus
	gotID  string
}

func (f *fakeSessions) New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	f.params = params
	if f.err != nil {
		return nil, f.err
	}
	return &stripe.CheckoutSession{ID: "cs_test_1", URL: "https://checkout.stripe.com/c/pay/cs_test_1"}, nil
}

func (f *fakeSessions) Get(id string, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	f.gotID = id
	if f.err != nil {
		return nil, f.err
	}
	return &stripe.CheckoutSession{ID: id, PaymentStatus: f.status}, nil
}

func newTestGateway(sessions checkoutSessions) *StripeGateway {
	return &StripeGateway{
		log:      slog.New(slog.NewTextHandler(os.Stdout, nil)),
		sessions: sessions,
	}
}

func TestStripeGateway_CreatePaymentSession(t *testing.T) {
	fake := &fakeSessions{}
	gw := newTestGateway(fake)
	expires := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	session, err := gw.CreatePaymentSession(context.Background(), SessionRequest{
		AmountCents:    5000,
		Currency:       "usd",
		SuccessURL:     "https://shop.example/success",
		CancelURL:      "https://shop.example/cancel",
		Description:    "Order #7",
		Reference:      "7",
		IdempotencyKey: "key-1",
		ExpiresAt:      expires,
	})
	require.NoError(t, err)
	assert.Equal(t, "cs_test_1", session.ID)
	assert.Equal(t, "https://checkout.stripe.com/c/pay/cs_test_1", session.RedirectURL)

	require.NotNil(t, fake.params)
	require.Len(t, fake.params.LineItems, 1)
	assert.Equal(t, int64(5000), *fake.params.LineItems[0].PriceData.UnitAmount)
	assert.Equal(t, "usd", *fake.params.LineItems[0].PriceData.Currency)
	assert.Equal(t, "7", *fake.params.ClientReferenceID)
	assert.Equal(t, expires.Unix(), *fake.params.ExpiresAt)
	assert.Equal(t, "key-1", *fake.params.IdempotencyKey)
}

func TestStripeGateway_ProviderError(t *testing.T) {
	providerErr := errors.New("card network unavailable")
	gw := newTestGateway(&fakeSessions{err: providerErr})

	_, err := gw.CreatePaymentSession(context.Background(), SessionRequest{AmountCents: 100, Currency: "usd"})
	assert.ErrorIs(t, err, providerErr)
}

func TestStripeGateway_RejectsNonPositiveAmount(t *testing.T) {
	fake := &fakeSessions{}
	gw := newTestGateway(fake)

	_, err := gw.CreatePaymentSession(context.Background(), SessionRequest{AmountCents: 0, Currency: "usd"})
	assert.ErrorIs(t, err, ErrInvalidAmount)
	assert.Nil(t, fake.params, "provider must not be called")
}

func TestStripeGateway_SessionPaid(t *testing.T) {
	cases := []struct {
		status stripe.CheckoutSessionPaymentStatus
		paid   bool
	}{
		{stripe.CheckoutSessionPaymentStatusPaid, true},
		{stripe.CheckoutSessionPaymentStatusUnpaid, false},
	}
	for _, tc := range cases {
		t.Run(string(tc.status), func(t *testing.T) {
			fake := &fakeSessions{status: tc.status}
			gw := newTestGateway(fake)

			paid, err := gw.SessionPaid(context.Background(), "cs_test_1")
			require.NoError(t, err)
			assert.Equal(t, tc.paid, paid)
			assert.Equal(t, "cs_test_1", fake.gotID)
		})
	}
}

func TestStripeGateway_SessionPaid_ProviderError(t *testing.T) {
	providerErr := errors.New("no such checkout session")
	gw := newTestGateway(&fakeSessions{err: providerErr})

	paid, err := gw.SessionPaid(context.Background(), "cs_missing")
	assert.ErrorIs(t, err, providerErr)
	assert.False(t, paid)
}
