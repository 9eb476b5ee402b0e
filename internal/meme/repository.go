// Package meme manages meme records and keeps them consistent with their
// stored image objects.
package meme

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Meme represents a catalog entry: relational metadata pointing at an image
// object held in the blob store.
type Meme struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Bucket    string    `json:"bucket"`
	ObjectKey string    `json:"objectKey"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ErrNotFound is returned when a meme does not exist.
var ErrNotFound = errors.New("meme not found")

// Repository handles all meme database operations.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new Repository with the given connection pool.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Count returns the total number of meme records.
func (r *Repository) Count(ctx context.Context) (int64, error) {
	var total int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM memes`).Scan(&total); err != nil {
		return 0, fmt.Errorf("count memes: %w", err)
	}
	return total, nil
}

// List returns up to limit memes starting at offset, ordered by id ascending.
func (r *Repository) List(ctx context.Context, limit, offset int) ([]*Meme, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, title, bucket, object_key, created_at, updated_at
		 FROM memes
		 ORDER BY id ASC
		 LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list memes: %w", err)
	}
	defer rows.Close()

	var memes []*Meme
	for rows.Next() {
		m := &Meme{}
		if err := rows.Scan(&m.ID, &m.Title, &m.Bucket, &m.ObjectKey, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan meme: %w", err)
		}
		memes = append(memes, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list memes: %w", err)
	}
	return memes, nil
}

// GetByID fetches a meme by its primary key.
func (r *Repository) GetByID(ctx context.Context, id int64) (*Meme, error) {
	m := &Meme{}
	err := r.db.QueryRow(ctx,
		`SELECT id, title, bucket, object_key, created_at, updated_at
		 FROM memes WHERE id = $1`,
		id,
	).Scan(&m.ID, &m.Title, &m.Bucket, &m.ObjectKey, &m.CreatedAt, &m.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get meme by id: %w", err)
	}
	return m, nil
}

// Create inserts a new meme and returns the created record.
func (r *Repository) Create(ctx context.Context, title, bucket, objectKey string) (*Meme, error) {
	m := &Meme{}
	err := r.db.QueryRow(ctx,
		`INSERT INTO memes (title, bucket, object_key)
		 VALUES ($1, $2, $3)
		 RETURNING id, title, bucket, object_key, created_at, updated_at`,
		title, bucket, objectKey,
	).Scan(&m.ID, &m.Title, &m.Bucket, &m.ObjectKey, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("create meme: %w", err)
	}
	return m, nil
}

// Update replaces the title and, when objectKey is non-empty, repoints the
// record at a new object. updated_at is always refreshed.
func (r *Repository) Update(ctx context.Context, id int64, title, objectKey string) (*Meme, error) {
	m := &Meme{}
	err := r.db.QueryRow(ctx,
		`UPDATE memes
		 SET title = $2,
		     object_key = COALESCE(NULLIF($3, ''), object_key),
		     updated_at = NOW()
		 WHERE id = $1
		 RETURNING id, title, bucket, object_key, created_at, updated_at`,
		id, title, objectKey,
	).Scan(&m.ID, &m.Title, &m.Bucket, &m.ObjectKey, &m.CreatedAt, &m.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update meme: %w", err)
	}
	return m, nil
}

// Delete removes the meme row. Returns ErrNotFound when no row matched.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM memes WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete meme: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
