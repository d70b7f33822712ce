// Package cache fronts the public project lookup with Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/diogopython/Nuvemhost/internal/config"
	"github.com/diogopython/Nuvemhost/internal/logging"
	"github.com/diogopython/Nuvemhost/internal/model"
)

// kv is the subset of *redis.Client the cache uses.
type kv interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisProjectCache stores projects as JSON under <prefix>:<folder>. Redis
// errors are logged and treated as misses. A nil *RedisProjectCache is a
// valid cache that never hits.
type RedisProjectCache struct {
	rdb    kv
	ttl    time.Duration
	prefix string
	log    logging.Logger
}

// NewRedisProjectCache returns nil when caching is disabled or rdb is nil,
// so callers can pass the result straight to the repository.
func NewRedisProjectCache(rdb *redis.Client, cfg config.CacheConfig, log logging.Logger) *RedisProjectCache {
	if rdb == nil || !cfg.Enabled {
		return nil
	}
	return &RedisProjectCache{rdb: rdb, ttl: cfg.TTL, prefix: cfg.Prefix, log: log}
}

type entry struct {
	ID         string    `json:"id"`
	UserID     uint64    `json:"user_id"`
	Name       string    `json:"name"`
	FolderPath string    `json:"folder_path"`
	UploadedAt time.Time `json:"uploaded_at"`
}

func (c *RedisProjectCache) key(folder string) string { return c.prefix + ":" + folder }

func (c *RedisProjectCache) Get(ctx context.Context, folder string) (*model.Project, bool) {
	if c == nil {
		return nil, false
	}
	raw, err := c.rdb.Get(ctx, c.key(folder)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		c.log.Warn(ctx, "project cache get failed", "folder", folder, "err", err)
		return nil, false
	}
	var e entry
	if err := json.Unmarshal(raw, &e); err != nil {
		c.log.Warn(ctx, "project cache entry corrupt", "folder", folder, "err", err)
		return nil, false
	}
	return &model.Project{
		ID:         e.ID,
		UserID:     e.UserID,
		Name:       e.Name,
		FolderPath: e.FolderPath,
		UploadedAt: e.UploadedAt,
	}, true
}

func (c *RedisProjectCache) Set(ctx context.Context, p *model.Project) {
	if c == nil {
		return
	}
	b, err := json.Marshal(entry{
		ID:         p.ID,
		UserID:     p.UserID,
		Name:       p.Name,
		FolderPath: p.FolderPath,
		UploadedAt: p.UploadedAt,
	})
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, c.key(p.FolderPath), b, c.ttl).Err(); err != nil {
		c.log.Warn(ctx, "project cache set failed", "folder", p.FolderPath, "err", err)
	}
}

func (c *RedisProjectCache) Delete(ctx context.Context, folder string) {
	if c == nil {
		return
	}
	if err := c.rdb.Del(ctx, c.key(folder)).Err(); err != nil {
		c.log.Warn(ctx, "project cache delete failed", "folder", folder, "err", err)
	}
}
