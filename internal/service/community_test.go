package service_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linemk/totembo-store/internal/service"
)

func newCommunityFixture() (*fakeReviewRepo, service.CommunityService) {
	state := newShopState()
	state.addProduct(10, "tote", "120.00", 3)
	reviews := &fakeReviewRepo{}
	svc := service.NewCommunityService(newTestLogger(),
		&fakeProductRepo{s: state},
		reviews,
		&fakeFavouriteRepo{s: state, favs: make(map[favKey]bool)},
		&fakeSubscriberRepo{mails: make(map[string]int64)},
	)
	return reviews, svc
}

func TestCommunityService_AddReview(t *testing.T) {
	reviews, svc := newCommunityFixture()
	ctx := context.Background()

	review, err := svc.AddReview(ctx, 1, "tote", "great bag")
	require.NoError(t, err)
	assert.Equal(t, int64(10), review.ProductID)
	assert.Len(t, reviews.reviews, 1)

	_, err = svc.AddReview(ctx, 1, "tote", "")
	var vErr *service.ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.Contains(t, vErr.Fields, "text")

	_, err = svc.AddReview(ctx, 1, "tote", strings.Repeat("a", 2001))
	assert.True(t, errors.As(err, &vErr))

	_, err = svc.AddReview(ctx, 1, "missing", "text")
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestCommunityService_ToggleFavourite(t *testing.T) {
	_, svc := newCommunityFixture()
	ctx := context.Background()

	on, err := svc.ToggleFavourite(ctx, 1, "tote")
	require.NoError(t, err)
	assert.True(t, on)

	favs, err := svc.ListFavourites(ctx, 1)
	require.NoError(t, err)
	require.Len(t, favs, 1)
	assert.Equal(t, "tote", favs[0].Slug)

	on, err = svc.ToggleFavourite(ctx, 1, "tote")
	require.NoError(t, err)
	assert.False(t, on)

	favs, err = svc.ListFavourites(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, favs)

	_, err = svc.ToggleFavourite(ctx, 1, "missing")
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestCommunityService_Subscribe(t *testing.T) {
	_, svc := newCommunityFixture()
	ctx := context.Background()

	require.NoError(t, svc.Subscribe(ctx, 1, "fan@example.com"))

	err := svc.Subscribe(ctx, 2, "fan@example.com")
	assert.ErrorIs(t, err, service.ErrAlreadySubscribed)

	err = svc.Subscribe(ctx, 1, "not-an-email")
	var vErr *service.ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, "must be a valid email", vErr.Fields["email"])
}
