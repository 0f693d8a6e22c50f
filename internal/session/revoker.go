package session

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// keyPrefix namespaces revoked token ids in Valkey to avoid collisions.
const keyPrefix = "session:revoked:"

// ValkeyRevoker stores revoked token ids in Valkey with a TTL equal to the
// token's remaining lifetime, so the list never outgrows the live tokens.
type ValkeyRevoker struct {
	client *redis.Client
}

// NewValkeyRevoker creates a revocation list backed by the given client.
func NewValkeyRevoker(client *redis.Client) *ValkeyRevoker {
	return &ValkeyRevoker{client: client}
}

// Revoke marks tokenID as logged out for ttl.
func (v *ValkeyRevoker) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	if err := v.client.Set(ctx, keyPrefix+tokenID, "1", ttl).Err(); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

// IsRevoked reports whether tokenID has been logged out.
func (v *ValkeyRevoker) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := v.client.Exists(ctx, keyPrefix+tokenID).Result()
	if err != nil {
		return false, fmt.Errorf("check revoked token: %w", err)
	}
	return n > 0, nil
}
