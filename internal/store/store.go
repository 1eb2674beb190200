// internal/store/store.go
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"mangastream-workers/internal/access"
	"mangastream-workers/internal/common/logger"
)

var (
	ErrNotFound = errors.New("not found")
)

const (
	subscriptionKeyPrefix = "sub:"
	contentKeyPrefix      = "manga:"

	DefaultCacheTTL = 5 * time.Minute
)

// Store reads subscription and catalog snapshots from Postgres through a Redis read-through cache.
// A nil Redis client disables caching.
type Store struct {
	db     *sql.DB
	redis  *redis.Client
	ttl    time.Duration
	logger logger.Logger
}

func New(db *sql.DB, rdb *redis.Client, ttl time.Duration, log logger.Logger) *Store {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Store{db: db, redis: rdb, ttl: ttl, logger: log}
}

func SubscriptionKey(viewerID string) string { return subscriptionKeyPrefix + viewerID }

func ContentKey(contentID string) string { return contentKeyPrefix + contentID }

// Subscription returns the stored subscription of viewerID, or ErrNotFound.
func (s *Store) Subscription(ctx context.Context, viewerID string) (*SubscriptionRow, error) {
	cacheKey := SubscriptionKey(viewerID)

	var row SubscriptionRow
	if s.getCached(ctx, cacheKey, &row) {
		return &row, nil
	}

	var expiresAt sql.NullString
	query := `SELECT user_id, tier, expires_at, is_valid FROM user_subscriptions WHERE user_id = $1`
	err := s.db.QueryRowContext(ctx, query, viewerID).Scan(&row.UserID, &row.Tier, &expiresAt, &row.IsValid)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query subscription: %w", err)
	}
	row.ExpiresAt = expiresAt.String

	s.setCached(ctx, cacheKey, row)
	return &row, nil
}

// Viewer builds the canonical viewer for viewerID. A viewer without a subscription row is a free viewer.
func (s *Store) Viewer(ctx context.Context, viewerID string, authenticated bool) (access.Viewer, error) {
	if viewerID == "" {
		return access.Viewer{Authenticated: authenticated}, nil
	}

	row, err := s.Subscription(ctx, viewerID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return access.Viewer{ID: viewerID, Authenticated: authenticated}, nil
		}
		return access.Viewer{}, err
	}
	return row.Viewer(authenticated), nil
}

// Content returns the manga row with its tier buckets, or ErrNotFound.
func (s *Store) Content(ctx context.Context, contentID string) (*MangaRow, error) {
	cacheKey := ContentKey(contentID)

	var row MangaRow
	if s.getCached(ctx, cacheKey, &row) {
		return &row, nil
	}

	var requiredTier sql.NullString
	query := `SELECT id, title, required_tier, total_episodes, available_episodes, current_donations, donation_goal FROM manga WHERE id = $1`
	err := s.db.QueryRowContext(ctx, query, contentID).Scan(
		&row.ID, &row.Title, &requiredTier, &row.TotalEpisodes,
		&row.AvailableEpisodes, &row.CurrentDonations, &row.DonationGoal,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query manga: %w", err)
	}
	row.RequiredTier = requiredTier.String

	buckets, err := s.tierBuckets(ctx, contentID)
	if err != nil {
		return nil, err
	}
	row.TierBuckets = buckets

	s.setCached(ctx, cacheKey, row)
	return &row, nil
}

// ContentItem returns the canonical content item, or nil when the title does not exist.
func (s *Store) ContentItem(ctx context.Context, contentID string) (*access.ContentItem, error) {
	row, err := s.Content(ctx, contentID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	item := row.ContentItem()
	return &item, nil
}

func (s *Store) tierBuckets(ctx context.Context, contentID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT tier FROM manga_tier_buckets WHERE manga_id = $1`, contentID)
	if err != nil {
		return nil, fmt.Errorf("query tier buckets: %w", err)
	}
	defer rows.Close()

	var buckets []string
	for rows.Next() {
		var tier string
		if err := rows.Scan(&tier); err != nil {
			return nil, fmt.Errorf("scan tier bucket: %w", err)
		}
		buckets = append(buckets, tier)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tier buckets: %w", err)
	}
	return buckets, nil
}

func (s *Store) InvalidateSubscription(ctx context.Context, viewerID string) {
	s.invalidate(ctx, SubscriptionKey(viewerID))
}

func (s *Store) InvalidateContent(ctx context.Context, contentID string) {
	s.invalidate(ctx, ContentKey(contentID))
}

func (s *Store) getCached(ctx context.Context, key string, dst interface{}) bool {
	if s.redis == nil {
		return false
	}
	val, err := s.redis.Get(ctx, key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.Warn("cache read failed", map[string]interface{}{"key": key, "error": err.Error()})
		}
		return false
	}
	if err := json.Unmarshal([]byte(val), dst); err != nil {
		s.logger.Warn("discarding malformed cache entry", map[string]interface{}{"key": key, "error": err.Error()})
		return false
	}
	return true
}

func (s *Store) setCached(ctx context.Context, key string, v interface{}) {
	if s.redis == nil {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := s.redis.Set(ctx, key, data, s.ttl).Err(); err != nil {
		s.logger.Warn("cache write failed", map[string]interface{}{"key": key, "error": err.Error()})
	}
}

func (s *Store) invalidate(ctx context.Context, key string) {
	if s.redis == nil {
		return
	}
	if err := s.redis.Del(ctx, key).Err(); err != nil {
		s.logger.Warn("cache invalidation failed", map[string]interface{}{"key": key, "error": err.Error()})
	}
}
