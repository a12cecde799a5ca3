package repository

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/custodia-systems/welfare-canteen-api/internal/models"
)

// ScopeRepository keeps per-user session scope (selected location, backup
// path) and the token deny-list in Redis. Scope lives and dies with the
// session: logout clears it.
type ScopeRepository struct {
	client *redis.Client
}

// NewScopeRepository constructs a ScopeRepository.
func NewScopeRepository(client *redis.Client) *ScopeRepository {
	return &ScopeRepository{client: client}
}

func scopeKey(userID string) string {
	return "scope:" + userID
}

func revokedKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return "revoked:" + hex.EncodeToString(sum[:])
}

// Get returns the user's scope, or an empty scope when none is stored.
func (r *ScopeRepository) Get(ctx context.Context, userID string) (*models.ClientScope, error) {
	scope := &models.ClientScope{}
	if r.client == nil {
		return scope, nil
	}
	raw, err := r.client.Get(ctx, scopeKey(userID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return scope, nil
		}
		return nil, fmt.Errorf("load scope for %s: %w", userID, err)
	}
	if err := json.Unmarshal(raw, scope); err != nil {
		return nil, fmt.Errorf("unmarshal scope for %s: %w", userID, err)
	}
	return scope, nil
}

// Save persists the user's scope without expiry; it is removed explicitly on
// logout.
func (r *ScopeRepository) Save(ctx context.Context, userID string, scope *models.ClientScope) error {
	if r.client == nil {
		return nil
	}
	payload, err := json.Marshal(scope)
	if err != nil {
		return fmt.Errorf("marshal scope for %s: %w", userID, err)
	}
	if err := r.client.Set(ctx, scopeKey(userID), payload, 0).Err(); err != nil {
		return fmt.Errorf("save scope for %s: %w", userID, err)
	}
	return nil
}

// Clear removes the user's scope entirely.
func (r *ScopeRepository) Clear(ctx context.Context, userID string) error {
	if r.client == nil {
		return nil
	}
	if err := r.client.Del(ctx, scopeKey(userID)).Err(); err != nil {
		return fmt.Errorf("clear scope for %s: %w", userID, err)
	}
	return nil
}

// RevokeToken puts a token on the deny-list until its natural expiry.
func (r *ScopeRepository) RevokeToken(ctx context.Context, token string, ttl time.Duration) error {
	if r.client == nil {
		return nil
	}
	if ttl <= 0 {
		return nil
	}
	if err := r.client.Set(ctx, revokedKey(token), "1", ttl).Err(); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

// IsTokenRevoked reports whether the token has been denied. A cache-less
// deployment never denies.
func (r *ScopeRepository) IsTokenRevoked(ctx context.Context, token string) (bool, error) {
	if r.client == nil {
		return false, nil
	}
	n, err := r.client.Exists(ctx, revokedKey(token)).Result()
	if err != nil {
		return false, fmt.Errorf("check token revocation: %w", err)
	}
	return n > 0, nil
}
