package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/quickai/quickai/internal/model"
)

func newTestCreation(userID string, publish bool, createdAt time.Time) *model.Creation {
	return &model.Creation{
		ID:        ulid.Make().String(),
		UserID:    userID,
		Prompt:    "Write an article about Go",
		Content:   "# Go\n\nGo is a language.",
		Type:      model.CreationArticle,
		Publish:   publish,
		Likes:     []string{},
		CreatedAt: createdAt.UTC().Truncate(time.Microsecond),
	}
}

// runCreationStoreTests exercises behavior every CreationStore must share.
func runCreationStoreTests(t *testing.T, store CreationStore) {
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	older := newTestCreation("user_a", true, base)
	newer := newTestCreation("user_a", false, base.Add(time.Minute))
	other := newTestCreation("user_b", true, base.Add(2*time.Minute))
	other.Type = model.CreationImage
	other.Content = "https://res.example.com/image.png"

	for _, c := range []*model.Creation{older, newer, other} {
		if err := store.InsertCreation(ctx, c); err != nil {
			t.Fatalf("insert creation: %v", err)
		}
	}

	t.Run("get", func(t *testing.T) {
		got, err := store.GetCreation(ctx, other.ID)
		if err != nil {
			t.Fatalf("get creation: %v", err)
		}
		assertCreationEqual(t, other, got)
	})

	t.Run("get missing", func(t *testing.T) {
		_, err := store.GetCreation(ctx, "missing")
		if !errors.Is(err, ErrCreationNotFound) {
			t.Fatalf("expected ErrCreationNotFound, got %v", err)
		}
	})

	t.Run("list by user newest first", func(t *testing.T) {
		got, err := store.ListCreationsByUser(ctx, "user_a")
		if err != nil {
			t.Fatalf("list creations: %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("expected 2 creations, got %d", len(got))
		}
		if got[0].ID != newer.ID || got[1].ID != older.ID {
			t.Fatalf("unexpected order: %s, %s", got[0].ID, got[1].ID)
		}
	})

	t.Run("list by unknown user", func(t *testing.T) {
		got, err := store.ListCreationsByUser(ctx, "nobody")
		if err != nil {
			t.Fatalf("list creations: %v", err)
		}
		if got == nil || len(got) != 0 {
			t.Fatalf("expected empty non-nil slice, got %v", got)
		}
	})

	t.Run("list published", func(t *testing.T) {
		got, err := store.ListPublishedCreations(ctx)
		if err != nil {
			t.Fatalf("list published: %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("expected 2 published creations, got %d", len(got))
		}
		if got[0].ID != other.ID || got[1].ID != older.ID {
			t.Fatalf("unexpected order: %s, %s", got[0].ID, got[1].ID)
		}
	})

	t.Run("toggle like", func(t *testing.T) {
		liked, err := store.ToggleCreationLike(ctx, older.ID, "user_b")
		if err != nil {
			t.Fatalf("toggle like: %v", err)
		}
		if !liked {
			t.Fatal("expected first toggle to like")
		}
		if _, err := store.ToggleCreationLike(ctx, older.ID, "user_c"); err != nil {
			t.Fatalf("toggle like: %v", err)
		}

		got, err := store.GetCreation(ctx, older.ID)
		if err != nil {
			t.Fatalf("get creation: %v", err)
		}
		if len(got.Likes) != 2 || got.Likes[0] != "user_b" || got.Likes[1] != "user_c" {
			t.Fatalf("unexpected likes: %v", got.Likes)
		}

		for _, userID := range []string{"user_b", "user_c"} {
			liked, err := store.ToggleCreationLike(ctx, older.ID, userID)
			if err != nil {
				t.Fatalf("toggle like: %v", err)
			}
			if liked {
				t.Fatalf("expected second toggle by %s to unlike", userID)
			}
		}
		got, _ = store.GetCreation(ctx, older.ID)
		if got.Likes == nil || len(got.Likes) != 0 {
			t.Fatalf("expected empty likes, got %v", got.Likes)
		}
	})

	t.Run("concurrent likes are all kept", func(t *testing.T) {
		const users = 16

		var wg sync.WaitGroup
		errs := make(chan error, users)
		for i := 0; i < users; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				if _, err := store.ToggleCreationLike(ctx, newer.ID, fmt.Sprintf("liker_%02d", i)); err != nil {
					errs <- err
				}
			}(i)
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			t.Fatalf("toggle like: %v", err)
		}

		got, err := store.GetCreation(ctx, newer.ID)
		if err != nil {
			t.Fatalf("get creation: %v", err)
		}
		if len(got.Likes) != users {
			t.Fatalf("expected %d likes, got %d: %v", users, len(got.Likes), got.Likes)
		}
	})

	t.Run("toggle like missing", func(t *testing.T) {
		_, err := store.ToggleCreationLike(ctx, "missing", "user_x")
		if !errors.Is(err, ErrCreationNotFound) {
			t.Fatalf("expected ErrCreationNotFound, got %v", err)
		}
	})
}

func assertCreationEqual(t *testing.T, want, got *model.Creation) {
	t.Helper()

	if got.ID != want.ID || got.UserID != want.UserID || got.Prompt != want.Prompt ||
		got.Content != want.Content || got.Type != want.Type || got.Publish != want.Publish {
		t.Fatalf("creation mismatch:\nwant %+v\ngot  %+v", want, got)
	}
	if !got.CreatedAt.Equal(want.CreatedAt) {
		t.Fatalf("created_at mismatch: want %s got %s", want.CreatedAt, got.CreatedAt)
	}
	if len(got.Likes) != len(want.Likes) {
		t.Fatalf("likes mismatch: want %v got %v", want.Likes, got.Likes)
	}
}
