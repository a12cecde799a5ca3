package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	appErrors "github.com/custodia-systems/welfare-canteen-api/pkg/errors"
)

// Cache groups. Every cached read is keyed under one of these prefixes so a
// write can invalidate exactly the views it stales.
const (
	CacheGroupInmates        = "inmates"
	CacheGroupInmateExact    = "inmate-exact"
	CacheGroupInventory      = "inventory"
	CacheGroupStoreInventory = "store-inventory"
	CacheGroupTuckShop       = "tuck-shop"
	CacheGroupPOSCart        = "pos-shop-cart"
	CacheGroupTransactions   = "transactions"
	CacheGroupUsers          = "users"
	CacheGroupLocations      = "locations"
	CacheGroupDashboard      = "dashboard"
	CacheGroupAuditLogs      = "audit-logs"
)

// CacheRepository provides helpers around Redis interactions for caching
// list and lookup payloads. All methods tolerate a nil client so the API can
// run cache-less.
type CacheRepository struct {
	client *redis.Client
	logger *zap.Logger
}

// NewCacheRepository constructs a cache repository.
func NewCacheRepository(client *redis.Client, logger *zap.Logger) *CacheRepository {
	return &CacheRepository{client: client, logger: logger}
}

// Key builds a group-scoped cache key.
func Key(group string, parts ...string) string {
	key := group
	for _, p := range parts {
		key += ":" + p
	}
	return key
}

// Get retrieves and unmarshals the cached value into the provided destination.
func (r *CacheRepository) Get(ctx context.Context, key string, dest interface{}) error {
	if r.client == nil {
		return appErrors.ErrCacheMiss
	}

	raw, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return appErrors.ErrCacheMiss
		}
		return fmt.Errorf("redis get %s: %w", key, err)
	}

	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("unmarshal cache value for %s: %w", key, err)
	}

	return nil
}

// Set marshals the provided value and stores it with the given TTL.
func (r *CacheRepository) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if r.client == nil {
		return nil
	}

	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal cache value for %s: %w", key, err)
	}

	if err := r.client.Set(ctx, key, payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}

	return nil
}

// DeleteByPattern removes cached entries matching the provided pattern.
func (r *CacheRepository) DeleteByPattern(ctx context.Context, pattern string) error {
	if r.client == nil {
		return nil
	}

	iter := r.client.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		if err := r.client.Del(ctx, key).Err(); err != nil {
			return fmt.Errorf("redis delete %s: %w", key, err)
		}
	}

	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis scan pattern %s: %w", pattern, err)
	}

	return nil
}

// InvalidateGroups drops every key under each named group. Invalidation is
// best effort: a failed group is logged and the rest still proceed, since a
// stale cache entry expires on its own TTL anyway.
func (r *CacheRepository) InvalidateGroups(ctx context.Context, groups ...string) {
	if r.client == nil {
		return
	}
	for _, group := range groups {
		if err := r.DeleteByPattern(ctx, group+":*"); err != nil && r.logger != nil {
			r.logger.Warn("cache group invalidation failed", zap.String("group", group), zap.Error(err))
		}
	}
}

// InvalidateInmate drops the exact-match lookup entry for one inmate on top
// of whatever group invalidation the caller runs.
func (r *CacheRepository) InvalidateInmate(ctx context.Context, inmateID string) {
	if r.client == nil {
		return
	}
	if err := r.client.Del(ctx, Key(CacheGroupInmateExact, inmateID)).Err(); err != nil && r.logger != nil {
		r.logger.Warn("inmate cache invalidation failed", zap.String("inmateId", inmateID), zap.Error(err))
	}
}

// Close releases the underlying Redis connection if present.
func (r *CacheRepository) Close() error {
	if r.client == nil {
		return nil
	}
	return r.client.Close()
}
