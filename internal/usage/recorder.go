package usage

import (
	"context"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/quickai/quickai/internal/model"
)

// IdentityStore is the source of truth for a caller's plan and free usage.
type IdentityStore interface {
	Get(ctx context.Context, userID string) (*model.Caller, error)
	IncrementUsage(ctx context.Context, userID string) (int, error)
	ResetUsage(ctx context.Context, userID string) error
}

// CreationWriter appends creation records.
type CreationWriter interface {
	InsertCreation(ctx context.Context, creation *model.Creation) error
}

// Recorder persists artifacts and advances usage counters after a
// successful generation. The two writes are not transactional.
type Recorder struct {
	identities IdentityStore
	creations  CreationWriter
	now        func() time.Time
}

// NewRecorder creates a Recorder.
func NewRecorder(identities IdentityStore, creations CreationWriter) *Recorder {
	return &Recorder{
		identities: identities,
		creations:  creations,
		now:        time.Now,
	}
}

// RecordUsage increments the free usage counter of non-premium callers by one.
// It is a no-op for premium callers.
func (r *Recorder) RecordUsage(ctx context.Context, caller *model.Caller) error {
	if caller.Plan.IsPremium() {
		return nil
	}

	if _, err := r.identities.IncrementUsage(ctx, caller.UserID); err != nil {
		return fmt.Errorf("failed to increment free usage: %w", err)
	}
	return nil
}

// PersistCreation appends one creation record and returns it.
func (r *Recorder) PersistCreation(ctx context.Context, userID, prompt, content string, creationType model.CreationType, publish bool) (*model.Creation, error) {
	creation := &model.Creation{
		ID:        ulid.Make().String(),
		UserID:    userID,
		Prompt:    prompt,
		Content:   content,
		Type:      creationType,
		Publish:   publish,
		Likes:     []string{},
		CreatedAt: r.now().UTC(),
	}

	if err := r.creations.InsertCreation(ctx, creation); err != nil {
		return nil, fmt.Errorf("failed to persist creation: %w", err)
	}
	return creation, nil
}
