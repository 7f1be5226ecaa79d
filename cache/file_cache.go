package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"ClipForge/core/smf"
	"ClipForge/db"

	"github.com/redis/go-redis/v9"
)

// ErrNotFound is returned when a file ID is unknown or its entry expired.
var ErrNotFound = errors.New("cache: file not found")

// FileCache holds parsed files between upload and export.
type FileCache interface {
	Put(ctx context.Context, fileID string, file *smf.ParsedFile) error
	Get(ctx context.Context, fileID string) (*smf.ParsedFile, error)
	Delete(ctx context.Context, fileID string) error
}

func fileKey(fileID string) string {
	return "clipforge:file:" + fileID
}

// RedisFileCache stores parsed files as JSON under a TTL, so an abandoned
// upload eventually disappears on its own.
type RedisFileCache struct {
	TTL time.Duration
}

// NewRedisFileCache creates a cache over the shared Redis connection.
func NewRedisFileCache(ttl time.Duration) *RedisFileCache {
	return &RedisFileCache{TTL: ttl}
}

func (c *RedisFileCache) Put(ctx context.Context, fileID string, file *smf.ParsedFile) error {
	if db.RedisClient == nil {
		return fmt.Errorf("Redis client not initialized")
	}
	raw, err := json.Marshal(file)
	if err != nil {
		return fmt.Errorf("failed to marshal parsed file: %w", err)
	}
	if err := db.RedisClient.Set(ctx, fileKey(fileID), raw, c.TTL).Err(); err != nil {
		return fmt.Errorf("failed to cache parsed file: %w", err)
	}
	return nil
}

func (c *RedisFileCache) Get(ctx context.Context, fileID string) (*smf.ParsedFile, error) {
	if db.RedisClient == nil {
		return nil, fmt.Errorf("Redis client not initialized")
	}
	raw, err := db.RedisClient.Get(ctx, fileKey(fileID)).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cached file: %w", err)
	}
	var file smf.ParsedFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached file: %w", err)
	}
	return &file, nil
}

func (c *RedisFileCache) Delete(ctx context.Context, fileID string) error {
	if db.RedisClient == nil {
		return fmt.Errorf("Redis client not initialized")
	}
	return db.RedisClient.Del(ctx, fileKey(fileID)).Err()
}

// MemoryFileCache is the fallback when Redis is disabled: a process-local
// map with the same TTL semantics.
type MemoryFileCache struct {
	TTL time.Duration

	mu      sync.RWMutex
	entries map[string]memoryEntry
}

type memoryEntry struct {
	file      *smf.ParsedFile
	expiresAt time.Time
}

// NewMemoryFileCache creates an in-process cache.
func NewMemoryFileCache(ttl time.Duration) *MemoryFileCache {
	return &MemoryFileCache{TTL: ttl, entries: make(map[string]memoryEntry)}
}

func (c *MemoryFileCache) Put(_ context.Context, fileID string, file *smf.ParsedFile) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sweepLocked()
	c.entries[fileID] = memoryEntry{file: file, expiresAt: time.Now().Add(c.TTL)}
	return nil
}

func (c *MemoryFileCache) Get(_ context.Context, fileID string) (*smf.ParsedFile, error) {
	c.mu.RLock()
	entry, ok := c.entries[fileID]
	c.mu.RUnlock()
	if !ok || time.Now().After(entry.expiresAt) {
		return nil, ErrNotFound
	}
	return entry.file, nil
}

func (c *MemoryFileCache) Delete(_ context.Context, fileID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, fileID)
	return nil
}

// sweepLocked drops expired entries; called on writes so the map cannot
// grow without bound between restarts.
func (c *MemoryFileCache) sweepLocked() {
	now := time.Now()
	for id, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, id)
		}
	}
}
