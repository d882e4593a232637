package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/quickai/quickai/internal/model"
	"github.com/quickai/quickai/internal/repository"
)

// Like toggle messages.
const (
	MessageLiked   = "Creation Liked"
	MessageUnliked = "Creation Unliked"
)

// CreationStore is the subset of the creation repository used here.
type CreationStore interface {
	ListCreationsByUser(ctx context.Context, userID string) ([]*model.Creation, error)
	ListPublishedCreations(ctx context.Context) ([]*model.Creation, error)
	ToggleCreationLike(ctx context.Context, id, userID string) (bool, error)
}

// CreationService lists creations and toggles likes.
type CreationService struct {
	store  CreationStore
	logger *slog.Logger
}

// NewCreationService creates a CreationService.
func NewCreationService(store CreationStore, logger *slog.Logger) *CreationService {
	if logger == nil {
		logger = slog.Default()
	}
	return &CreationService{store: store, logger: logger}
}

// ListUserCreations returns the caller's creations, newest first.
func (s *CreationService) ListUserCreations(ctx context.Context, userID string) ([]*model.Creation, error) {
	creations, err := s.store.ListCreationsByUser(ctx, userID)
	if err != nil {
		return nil, &Error{Kind: ErrPersistence, Message: "Failed to load creations.", Err: err}
	}
	return creations, nil
}

// ListPublishedCreations returns every published creation, newest first.
func (s *CreationService) ListPublishedCreations(ctx context.Context) ([]*model.Creation, error) {
	creations, err := s.store.ListPublishedCreations(ctx)
	if err != nil {
		return nil, &Error{Kind: ErrPersistence, Message: "Failed to load creations.", Err: err}
	}
	return creations, nil
}

// ToggleLike adds userID to the creation's likes, or removes it if present.
// It reports the new like state and the message to show.
func (s *CreationService) ToggleLike(ctx context.Context, userID, creationID string) (bool, string, error) {
	creationID = strings.TrimSpace(creationID)
	if creationID == "" {
		return false, "", validationError("Creation id is required.")
	}

	liked, err := s.store.ToggleCreationLike(ctx, creationID, userID)
	if err != nil {
		return false, "", s.lookupError(err)
	}

	s.logger.InfoContext(ctx, "creation_like_toggled",
		slog.String("user_id", userID),
		slog.String("creation_id", creationID),
		slog.Bool("liked", liked),
	)

	if liked {
		return true, MessageLiked, nil
	}
	return false, MessageUnliked, nil
}

func (s *CreationService) lookupError(err error) error {
	if errors.Is(err, repository.ErrCreationNotFound) {
		return &Error{Kind: ErrCreationNotFound, Message: "Creation not found."}
	}
	return &Error{Kind: ErrPersistence, Message: "Failed to update creation.", Err: fmt.Errorf("failed to toggle like: %w", err)}
}
