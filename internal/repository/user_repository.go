package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// UserRepository persists the internal user keys overlay rows hang off.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository constructs a user repository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Ensure creates the user row if it does not exist yet.
func (r *UserRepository) Ensure(ctx context.Context, userKey int64) error {
	const query = `INSERT INTO users (id) VALUES ($1) ON CONFLICT (id) DO NOTHING`
	if _, err := r.db.ExecContext(ctx, query, userKey); err != nil {
		return fmt.Errorf("ensure user: %w", err)
	}
	return nil
}

// List returns every known user key, for the garbage collection sweep.
func (r *UserRepository) List(ctx context.Context) ([]int64, error) {
	var keys []int64
	if err := r.db.SelectContext(ctx, &keys, "SELECT id FROM users ORDER BY id"); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return keys, nil
}
