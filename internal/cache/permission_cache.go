package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// PermissionCache stores the permission codes of a role for a limited time
type PermissionCache interface {
	Get(ctx context.Context, roleID string) ([]string, bool, error)
	Set(ctx context.Context, roleID string, codes []string) error
	Invalidate(ctx context.Context, roleID string) error
}

// --- in-memory ---

type memoryEntry struct {
	codes     []string
	expiresAt time.Time
}

// MemoryCache keeps entries in a sync.Map; used when no Redis is configured
type MemoryCache struct {
	entries sync.Map // roleID -> memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{ttl: ttl, now: time.Now}
}

func (c *MemoryCache) Get(_ context.Context, roleID string) ([]string, bool, error) {
	v, ok := c.entries.Load(roleID)
	if !ok {
		return nil, false, nil
	}
	entry := v.(memoryEntry)
	if !c.now().Before(entry.expiresAt) {
		c.entries.Delete(roleID)
		return nil, false, nil
	}
	return entry.codes, true, nil
}

func (c *MemoryCache) Set(_ context.Context, roleID string, codes []string) error {
	c.entries.Store(roleID, memoryEntry{codes: codes, expiresAt: c.now().Add(c.ttl)})
	return nil
}

// Invalidate drops one role, or every role when roleID is empty
func (c *MemoryCache) Invalidate(_ context.Context, roleID string) error {
	if roleID != "" {
		c.entries.Delete(roleID)
		return nil
	}
	c.entries.Range(func(key, _ interface{}) bool {
		c.entries.Delete(key)
		return true
	})
	return nil
}

// --- redis ---

const redisKeyPrefix = "zyllen:perms:"

// RedisCache shares permission lists between API replicas
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func (c *RedisCache) Get(ctx context.Context, roleID string) ([]string, bool, error) {
	raw, err := c.client.Get(ctx, redisKeyPrefix+roleID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}
	var codes []string
	if err := json.Unmarshal(raw, &codes); err != nil {
		return nil, false, fmt.Errorf("decode cached permissions: %w", err)
	}
	return codes, true, nil
}

func (c *RedisCache) Set(ctx context.Context, roleID string, codes []string) error {
	raw, err := json.Marshal(codes)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, redisKeyPrefix+roleID, raw, c.ttl).Err()
}

func (c *RedisCache) Invalidate(ctx context.Context, roleID string) error {
	if roleID != "" {
		return c.client.Del(ctx, redisKeyPrefix+roleID).Err()
	}
	iter := c.client.Scan(ctx, 0, redisKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}

// NewRedisClient opens a client and checks connectivity
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return client, nil
}
