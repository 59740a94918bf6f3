package cache

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// CachedIdentity is the student identity bound to a device at login.
// The geofence consumer resolves crossings through this mapping only;
// it never queries the identity provider directly.
type CachedIdentity struct {
	StudentID   string `json:"student_id"`
	StudentName string `json:"student_name"`
}

// IdentityCache stores device -> student bindings in Redis. Entries are
// written at login, removed at logout, and carry no TTL: a crossing event
// may arrive long after the session that produced the binding.
type IdentityCache struct {
	client *redis.Client
}

func NewIdentityCache(client *redis.Client) *IdentityCache {
	return &IdentityCache{client: client}
}

func identityKey(deviceID string) string {
	return fmt.Sprintf("identity:device:%s", deviceID)
}

// Put binds a device to a student identity.
func (c *IdentityCache) Put(ctx context.Context, deviceID string, identity CachedIdentity) error {
	if c.client == nil {
		return ErrCacheNotAvailable
	}

	data, err := json.Marshal(identity)
	if err != nil {
		return fmt.Errorf("identity marshal error: %w", err)
	}

	if err := c.client.Set(ctx, identityKey(deviceID), data, 0).Err(); err != nil {
		return fmt.Errorf("identity put error: %w", err)
	}

	return nil
}

// Get returns the identity bound to a device, or (nil, nil) when no
// binding exists. Absence is a normal state, not an error.
func (c *IdentityCache) Get(ctx context.Context, deviceID string) (*CachedIdentity, error) {
	if c.client == nil {
		return nil, ErrCacheNotAvailable
	}

	data, err := c.client.Get(ctx, identityKey(deviceID)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("identity get error: %w", err)
	}

	var identity CachedIdentity
	if err := json.Unmarshal([]byte(data), &identity); err != nil {
		return nil, fmt.Errorf("identity unmarshal error: %w", err)
	}

	return &identity, nil
}

// Clear removes the binding for a device. Clearing a device that has no
// binding is a no-op.
func (c *IdentityCache) Clear(ctx context.Context, deviceID string) error {
	if c.client == nil {
		return ErrCacheNotAvailable
	}

	if err := c.client.Del(ctx, identityKey(deviceID)).Err(); err != nil {
		return fmt.Errorf("identity clear error: %w", err)
	}

	return nil
}
