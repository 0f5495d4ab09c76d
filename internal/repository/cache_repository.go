package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/dhsdevclub/ticktock-api/internal/models"
)

// CacheRepository persists computed event page boundaries. Rows are written
// once and never updated; duplicates from racing requests are tolerated and
// absorbed by the content-digest lookup.
type CacheRepository struct {
	db *sqlx.DB
}

// NewCacheRepository constructs a cache repository.
func NewCacheRepository(db *sqlx.DB) *CacheRepository {
	return &CacheRepository{db: db}
}

// Get fetches a cache page by row id, scoped to the owning user. Returns nil
// when no such row exists.
func (r *CacheRepository) Get(ctx context.Context, userKey, id int64) (*models.EventCachePage, error) {
	const query = `SELECT id, user_id, params_digest, content_digest, items, cursor, extra_starred, created_at
FROM event_cache_pages WHERE id = $1 AND user_id = $2`
	var page models.EventCachePage
	if err := r.db.GetContext(ctx, &page, query, id, userKey); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get cache page: %w", err)
	}
	return &page, nil
}

// FindByContentDigest returns an existing row with identical content, used to
// reuse a page for an identical navigation sequence instead of inserting a
// duplicate.
func (r *CacheRepository) FindByContentDigest(ctx context.Context, userKey int64, digest string) (*models.EventCachePage, error) {
	const query = `SELECT id, user_id, params_digest, content_digest, items, cursor, extra_starred, created_at
FROM event_cache_pages WHERE user_id = $1 AND content_digest = $2 ORDER BY id LIMIT 1`
	var page models.EventCachePage
	if err := r.db.GetContext(ctx, &page, query, userKey, digest); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find cache page: %w", err)
	}
	return &page, nil
}

// Insert stores a new cache page and returns its row id.
func (r *CacheRepository) Insert(ctx context.Context, page *models.EventCachePage) (int64, error) {
	const query = `INSERT INTO event_cache_pages (user_id, params_digest, content_digest, items, cursor, extra_starred)
VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`
	var id int64
	err := r.db.GetContext(ctx, &id, query,
		page.UserID, page.ParamsDigest, page.ContentDigest, page.Items, page.Cursor, page.ExtraStarred)
	if err != nil {
		return 0, fmt.Errorf("insert cache page: %w", err)
	}
	page.ID = id
	return id, nil
}
