package repository

import (
	"context"
	"testing"
)

func newTestSQLite(t *testing.T) *SQLiteRepository {
	t.Helper()

	repo, err := NewSQLite("file:" + t.Name() + "?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(repo.Close)
	return repo
}

func TestSQLiteRepository_CreationStore(t *testing.T) {
	runCreationStoreTests(t, newTestSQLite(t))
}

func TestSQLiteRepository_Ping(t *testing.T) {
	if err := newTestSQLite(t).Ping(context.Background()); err != nil {
		t.Fatalf("ping: %v", err)
	}
}

func TestSQLiteRepository_MigrateIsIdempotent(t *testing.T) {
	repo := newTestSQLite(t)
	if err := repo.migrate(); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
}

func TestOpen_UnknownDriver(t *testing.T) {
	if _, err := Open(context.Background(), StoreConfig{Driver: "mysql"}); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}
