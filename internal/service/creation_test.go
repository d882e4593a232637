package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quickai/quickai/internal/model"
	"github.com/quickai/quickai/internal/repository"
	"github.com/quickai/quickai/internal/testutil"
)

func newCreationFixture(t *testing.T) (*CreationService, *testutil.MemoryCreationStore) {
	t.Helper()

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	a1 := testutil.NewTestCreation(t, "user_a", false)
	a1.ID, a1.CreatedAt = "a1", base
	a2 := testutil.NewTestCreation(t, "user_a", true)
	a2.ID, a2.CreatedAt = "a2", base.Add(time.Hour)
	b1 := testutil.NewTestCreation(t, "user_b", true)
	b1.ID, b1.CreatedAt = "b1", base.Add(2*time.Hour)

	store := testutil.NewMemoryCreationStore(a1, a2, b1)
	store.NotFoundErr = repository.ErrCreationNotFound
	return NewCreationService(store, nil), store
}

func TestCreationService_ListUserCreations(t *testing.T) {
	svc, _ := newCreationFixture(t)

	creations, err := svc.ListUserCreations(context.Background(), "user_a")
	require.NoError(t, err)
	require.Len(t, creations, 2)
	assert.Equal(t, "a2", creations[0].ID)
	assert.Equal(t, "a1", creations[1].ID)

	none, err := svc.ListUserCreations(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestCreationService_ListPublishedCreations(t *testing.T) {
	svc, _ := newCreationFixture(t)

	creations, err := svc.ListPublishedCreations(context.Background())
	require.NoError(t, err)
	require.Len(t, creations, 2)
	assert.Equal(t, "b1", creations[0].ID)
	assert.Equal(t, "a2", creations[1].ID)
}

func TestCreationService_ToggleLikeTwiceRestores(t *testing.T) {
	svc, store := newCreationFixture(t)
	ctx := context.Background()

	liked, msg, err := svc.ToggleLike(ctx, "user_b", "a2")
	require.NoError(t, err)
	assert.True(t, liked)
	assert.Equal(t, MessageLiked, msg)

	c, err := store.GetCreation(ctx, "a2")
	require.NoError(t, err)
	assert.Equal(t, []string{"user_b"}, c.Likes)

	liked, msg, err = svc.ToggleLike(ctx, "user_b", "a2")
	require.NoError(t, err)
	assert.False(t, liked)
	assert.Equal(t, MessageUnliked, msg)

	c, err = store.GetCreation(ctx, "a2")
	require.NoError(t, err)
	assert.Empty(t, c.Likes)
}

func TestCreationService_ToggleLikeErrors(t *testing.T) {
	svc, _ := newCreationFixture(t)

	_, _, err := svc.ToggleLike(context.Background(), "user_a", "missing")
	assert.ErrorIs(t, err, ErrCreationNotFound)
	assert.Equal(t, "NOT_FOUND", Code(err))

	_, _, err = svc.ToggleLike(context.Background(), "user_a", " ")
	assert.ErrorIs(t, err, ErrValidation)
}

type brokenStore struct{}

var errBroken = errors.New("db down")

func (brokenStore) ListCreationsByUser(ctx context.Context, userID string) ([]*model.Creation, error) {
	return nil, errBroken
}

func (brokenStore) ListPublishedCreations(ctx context.Context) ([]*model.Creation, error) {
	return nil, errBroken
}

func (brokenStore) ToggleCreationLike(ctx context.Context, id, userID string) (bool, error) {
	return false, errBroken
}

func TestCreationService_StoreFailures(t *testing.T) {
	svc := NewCreationService(brokenStore{}, nil)
	ctx := context.Background()

	_, err := svc.ListUserCreations(ctx, "u1")
	assert.ErrorIs(t, err, ErrPersistence)
	assert.ErrorIs(t, err, errBroken)

	_, err = svc.ListPublishedCreations(ctx)
	assert.ErrorIs(t, err, ErrPersistence)

	_, _, err = svc.ToggleLike(ctx, "u1", "c1")
	assert.ErrorIs(t, err, ErrPersistence)
}
