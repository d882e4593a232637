package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/quickai/quickai/internal/model"
)

// ErrCreationNotFound is returned when no creation has the requested ID.
var ErrCreationNotFound = errors.New("creation not found")

// CreationStore persists creation records.
type CreationStore interface {
	InsertCreation(ctx context.Context, creation *model.Creation) error
	ListCreationsByUser(ctx context.Context, userID string) ([]*model.Creation, error)
	ListPublishedCreations(ctx context.Context) ([]*model.Creation, error)
	GetCreation(ctx context.Context, id string) (*model.Creation, error)
	ToggleCreationLike(ctx context.Context, id, userID string) (bool, error)
	Ping(ctx context.Context) error
	Close()
}

// StoreConfig selects and configures a creation store.
type StoreConfig struct {
	Driver      string // "postgres" (default) or "sqlite"
	DatabaseURL string
	SQLitePath  string
	Pool        PoolOptions
}

// Open connects the creation store selected by cfg.Driver.
func Open(ctx context.Context, cfg StoreConfig) (CreationStore, error) {
	switch cfg.Driver {
	case "postgres", "":
		repo, err := New(ctx, cfg.DatabaseURL, cfg.Pool)
		if err != nil {
			return nil, err
		}
		return repo, nil
	case "sqlite":
		repo, err := NewSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return repo, nil
	default:
		return nil, fmt.Errorf("unsupported store driver: %q", cfg.Driver)
	}
}
