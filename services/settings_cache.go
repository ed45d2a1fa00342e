// services/settings_cache.go - Read-through cache for user settings
package services

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"gfgchapter/models"

	"github.com/go-redis/redis/v8"
)

// SettingsCache holds the per-user settings projection. The users table is
// canonical; entries may be dropped at any time.
type SettingsCache interface {
	Get(ctx context.Context, userID string) (*models.UserSettings, bool, error)
	Set(ctx context.Context, settings models.UserSettings) error
	Delete(ctx context.Context, userID string) error
}

// MemorySettingsCache is the single-replica SettingsCache.
type MemorySettingsCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]memoryEntry
}

type memoryEntry struct {
	settings  models.UserSettings
	expiresAt time.Time
}

func NewMemorySettingsCache(ttl time.Duration) *MemorySettingsCache {
	return &MemorySettingsCache{ttl: ttl, entries: map[string]memoryEntry{}}
}

func (c *MemorySettingsCache) Get(_ context.Context, userID string) (*models.UserSettings, bool, error) {
	c.mu.RLock()
	e, ok := c.entries[userID]
	c.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if c.ttl > 0 && time.Now().After(e.expiresAt) {
		c.mu.Lock()
		delete(c.entries, userID)
		c.mu.Unlock()
		return nil, false, nil
	}
	s := e.settings
	return &s, true, nil
}

func (c *MemorySettingsCache) Set(_ context.Context, settings models.UserSettings) error {
	c.mu.Lock()
	c.entries[settings.UserID] = memoryEntry{settings: settings, expiresAt: time.Now().Add(c.ttl)}
	c.mu.Unlock()
	return nil
}

func (c *MemorySettingsCache) Delete(_ context.Context, userID string) error {
	c.mu.Lock()
	delete(c.entries, userID)
	c.mu.Unlock()
	return nil
}

// RedisSettingsCache stores settings as JSON under prefix+"settings:"+userID.
type RedisSettingsCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisSettingsCache(client *redis.Client, prefix string, ttl time.Duration) *RedisSettingsCache {
	return &RedisSettingsCache{client: client, prefix: prefix, ttl: ttl}
}

func (c *RedisSettingsCache) key(userID string) string {
	return c.prefix + "settings:" + userID
}

func (c *RedisSettingsCache) Get(ctx context.Context, userID string) (*models.UserSettings, bool, error) {
	raw, err := c.client.Get(ctx, c.key(userID)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var s models.UserSettings
	if err := json.Unmarshal(raw, &s); err != nil {
		// unreadable entry, treat as a miss
		return nil, false, nil
	}
	return &s, true, nil
}

func (c *RedisSettingsCache) Set(ctx context.Context, settings models.UserSettings) error {
	raw, err := json.Marshal(settings)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(settings.UserID), raw, c.ttl).Err()
}

func (c *RedisSettingsCache) Delete(ctx context.Context, userID string) error {
	return c.client.Del(ctx, c.key(userID)).Err()
}
