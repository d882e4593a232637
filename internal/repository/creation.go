package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/lib/pq"

	"github.com/quickai/quickai/internal/model"
)

const creationColumns = `id, user_id, prompt, content, type, publish, likes, created_at`

// InsertCreation appends a creation record.
func (r *Repository) InsertCreation(ctx context.Context, creation *model.Creation) error {
	query := `
		INSERT INTO creations (` + creationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	likes := creation.Likes
	if likes == nil {
		likes = []string{}
	}

	_, err := r.pool.Exec(ctx, query,
		creation.ID,
		creation.UserID,
		creation.Prompt,
		creation.Content,
		string(creation.Type),
		creation.Publish,
		pq.Array(likes),
		creation.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert creation: %w", err)
	}

	return nil
}

// ListCreationsByUser returns a user's creations, newest first.
func (r *Repository) ListCreationsByUser(ctx context.Context, userID string) ([]*model.Creation, error) {
	query := `
		SELECT ` + creationColumns + `
		FROM creations
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
	`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list creations: %w", err)
	}
	defer rows.Close()

	return scanCreations(rows)
}

// ListPublishedCreations returns all published creations, newest first.
func (r *Repository) ListPublishedCreations(ctx context.Context) ([]*model.Creation, error) {
	query := `
		SELECT ` + creationColumns + `
		FROM creations
		WHERE publish = TRUE
		ORDER BY created_at DESC, id DESC
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list published creations: %w", err)
	}
	defer rows.Close()

	return scanCreations(rows)
}

// GetCreation retrieves a creation by ID.
func (r *Repository) GetCreation(ctx context.Context, id string) (*model.Creation, error) {
	query := `
		SELECT ` + creationColumns + `
		FROM creations
		WHERE id = $1
	`

	creation, err := scanCreation(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCreationNotFound
		}
		return nil, fmt.Errorf("failed to get creation: %w", err)
	}

	return creation, nil
}

// ToggleCreationLike adds userID to the likes of a creation, or removes it when
// already present, in a single statement. It reports whether userID likes the
// creation afterwards.
func (r *Repository) ToggleCreationLike(ctx context.Context, id, userID string) (bool, error) {
	var liked bool
	err := r.pool.QueryRow(ctx, `
		UPDATE creations
		SET likes = CASE
			WHEN $2::text = ANY(likes) THEN array_remove(likes, $2::text)
			ELSE array_append(likes, $2::text)
		END
		WHERE id = $1
		RETURNING $2::text = ANY(likes)
	`, id, userID).Scan(&liked)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, ErrCreationNotFound
	}
	if err != nil {
		return false, fmt.Errorf("failed to toggle like: %w", err)
	}

	return liked, nil
}

func scanCreation(row pgx.Row) (*model.Creation, error) {
	var c model.Creation
	var creationType string
	var likes []string

	if err := row.Scan(
		&c.ID,
		&c.UserID,
		&c.Prompt,
		&c.Content,
		&creationType,
		&c.Publish,
		pq.Array(&likes),
		&c.CreatedAt,
	); err != nil {
		return nil, err
	}

	c.Type = model.CreationType(creationType)
	if likes == nil {
		likes = []string{}
	}
	c.Likes = likes
	c.CreatedAt = c.CreatedAt.UTC()
	return &c, nil
}

func scanCreations(rows pgx.Rows) ([]*model.Creation, error) {
	creations := make([]*model.Creation, 0)
	for rows.Next() {
		c, err := scanCreation(rows)
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
