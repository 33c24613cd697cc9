package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/san-edu/registrar-api/internal/models"
)

// AdvisingRepository handles persistence of advising windows.
type AdvisingRepository struct {
	db *sqlx.DB
}

// NewAdvisingRepository constructs the repository.
func NewAdvisingRepository(db *sqlx.DB) *AdvisingRepository {
	return &AdvisingRepository{db: db}
}

// List returns all advising windows ordered by start time.
func (r *AdvisingRepository) List(ctx context.Context) ([]models.AdvisingWindow, error) {
	const query = `SELECT id, min_credits, max_credits, starts_at, ends_at, created_at
        FROM advising_windows ORDER BY starts_at`
	var windows []models.AdvisingWindow
	if err := r.db.SelectContext(ctx, &windows, query); err != nil {
		return nil, fmt.Errorf("list advising windows: %w", err)
	}
	return windows, nil
}

// Create persists a new advising window.
func (r *AdvisingRepository) Create(ctx context.Context, window *models.AdvisingWindow) error {
	if window.ID == "" {
		window.ID = uuid.NewString()
	}
	if window.CreatedAt.IsZero() {
		window.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO advising_windows (id, min_credits, max_credits, starts_at, ends_at, created_at)
        VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err := r.db.ExecContext(ctx, query,
		window.ID, window.MinCredits, window.MaxCredits,
		window.StartsAt, window.EndsAt, window.CreatedAt); err != nil {
		return fmt.Errorf("create advising window: %w", err)
	}
	return nil
}

// Delete removes an advising window by ID.
func (r *AdvisingRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM advising_windows WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete advising window: %w", err)
	}
	return nil
}
