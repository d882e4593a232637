package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/quickai/quickai/internal/model"
)

// sqliteTimeFormat sorts lexically in time order.
const sqliteTimeFormat = "2006-01-02T15:04:05.000000000Z"

// SQLiteRepository stores creations in SQLite for local development.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database and creates the schema.
func NewSQLite(dsn string) (*SQLiteRepository, error) {
	// In-memory databases need a shared cache so pooled connections see the same data.
	if dsn == ":memory:" {
		dsn = "file::memory:?cache=shared"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// SQLite allows one writer; a single connection queues writes instead of failing with SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRepository{db: db}
	if err := r.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return r, nil
}

func (r *SQLiteRepository) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS creations (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			prompt TEXT NOT NULL,
			content TEXT NOT NULL,
			type TEXT NOT NULL,
			publish INTEGER NOT NULL DEFAULT 0,
			likes TEXT NOT NULL DEFAULT '[]',
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_creations_user_created ON creations (user_id, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_creations_publish_created ON creations (publish, created_at)`,
	}

	for _, m := range migrations {
		if _, err := r.db.Exec(m); err != nil {
			return err
		}
	}
	return nil
}

// Ping checks database connectivity.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the database.
func (r *SQLiteRepository) Close() {
	_ = r.db.Close()
}

// InsertCreation appends a creation record.
func (r *SQLiteRepository) InsertCreation(ctx context.Context, creation *model.Creation) error {
	likes, err := encodeLikes(creation.Likes)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO creations (`+creationColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		creation.ID,
		creation.UserID,
		creation.Prompt,
		creation.Content,
		string(creation.Type),
		creation.Publish,
		likes,
		creation.CreatedAt.UTC().Format(sqliteTimeFormat),
	)
	if err != nil {
		return fmt.Errorf("failed to insert creation: %w", err)
	}
	return nil
}

// ListCreationsByUser returns a user's creations, newest first.
func (r *SQLiteRepository) ListCreationsByUser(ctx context.Context, userID string) ([]*model.Creation, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+creationColumns+` FROM creations WHERE user_id = ? ORDER BY created_at DESC, id DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list creations: %w", err)
	}
	defer rows.Close()

	return scanSQLiteCreations(rows)
}

// ListPublishedCreations returns all published creations, newest first.
func (r *SQLiteRepository) ListPublishedCreations(ctx context.Context) ([]*model.Creation, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+creationColumns+` FROM creations WHERE publish = 1 ORDER BY created_at DESC, id DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list published creations: %w", err)
	}
	defer rows.Close()

	return scanSQLiteCreations(rows)
}

// GetCreation retrieves a creation by ID.
func (r *SQLiteRepository) GetCreation(ctx context.Context, id string) (*model.Creation, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+creationColumns+` FROM creations WHERE id = ?`, id)

	c, err := scanSQLiteCreation(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCreationNotFound
		}
		return nil, fmt.Errorf("failed to get creation: %w", err)
	}
	return c, nil
}

// ToggleCreationLike flips userID in the likes array with one UPDATE so
// concurrent toggles on the same creation cannot drop each other's writes.
func (r *SQLiteRepository) ToggleCreationLike(ctx context.Context, id, userID string) (bool, error) {
	var liked bool
	err := r.db.QueryRowContext(ctx, `
		UPDATE creations
		SET likes = CASE
			WHEN EXISTS (SELECT 1 FROM json_each(creations.likes) WHERE value = ?1)
			THEN (SELECT json_group_array(value) FROM json_each(creations.likes) WHERE value <> ?1)
			ELSE json_insert(creations.likes, '$[#]', ?1)
		END
		WHERE id = ?2
		RETURNING EXISTS (SELECT 1 FROM json_each(likes) WHERE value = ?1)
	`, userID, id).Scan(&liked)
	if errors.Is(err, sql.ErrNoRows) {
		return false, ErrCreationNotFound
	}
	if err != nil {
		return false, fmt.Errorf("failed to toggle like: %w", err)
	}
	return liked, nil
}

type sqlScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteCreation(row sqlScanner) (*model.Creation, error) {
	var c model.Creation
	var creationType, likes, createdAt string

	if err := row.Scan(&c.ID, &c.UserID, &c.Prompt, &c.Content, &creationType, &c.Publish, &likes, &createdAt); err != nil {
		return nil, err
	}

	c.Type = model.CreationType(creationType)
	if err := json.Unmarshal([]byte(likes), &c.Likes); err != nil {
		return nil, fmt.Errorf("decode likes: %w", err)
	}
	if c.Likes == nil {
		c.Likes = []string{}
	}

	t, err := time.Parse(sqliteTimeFormat, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	c.CreatedAt = t
	return &c, nil
}

func scanSQLiteCreations(rows *sql.Rows) ([]*model.Creation, error) {
	creations := make([]*model.Creation, 0)
	for rows.Next() {
		c, err := scanSQLiteCreation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan creation: %w", err)
		}
		creations = append(creations, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate creations: %w", err)
	}
	return creations, nil
}

func encodeLikes(likes []string) (string, error) {
	if likes == nil {
		likes = []string{}
	}
	b, err := json.Marshal(likes)
	if err != nil {
		return "", fmt.Errorf("encode likes: %w", err)
	}
	return string(b), nil
}
