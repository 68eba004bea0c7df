package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	dom "github.com/ayuhutasoit2004/go-todo-app/internal/domain"
	"github.com/redis/go-redis/v9"
)

// TodoCache caches list pages and stats in Redis, keyed per owner so one
// user's writes never evict another user's entries.
type TodoCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewTodoCache returns a new TodoCache.
func NewTodoCache(rdb *redis.Client, ttl time.Duration) *TodoCache {
	return &TodoCache{rdb: rdb, ttl: ttl}
}

func pageKey(userID int64, search, filter string, page int) string {
	return fmt.Sprintf("todo:%d:page:%s:%s:%d", userID, normalizeQuery(search), normalizeQuery(filter), page)
}

func statsKey(userID int64) string {
	return fmt.Sprintf("todo:%d:stats", userID)
}

// GetPage returns the cached page for the given predicate, or nil on miss.
func (c *TodoCache) GetPage(ctx context.Context, userID int64, search, filter string, page int) (*dom.TodoPage, error) {
	b, err := c.rdb.Get(ctx, pageKey(userID, search, filter, page)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var p dom.TodoPage
	if err := json.Unmarshal(b, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// SetPage stores a page result.
func (c *TodoCache) SetPage(ctx context.Context, userID int64, search, filter string, page int, p dom.TodoPage) error {
	b, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, pageKey(userID, search, filter, page), b, c.ttl).Err()
}

// GetStats returns the cached stats or nil on miss.
func (c *TodoCache) GetStats(ctx context.Context, userID int64) (*dom.TodoStats, error) {
	b, err := c.rdb.Get(ctx, statsKey(userID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var s dom.TodoStats
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// SetStats stores the owner's stats.
func (c *TodoCache) SetStats(ctx context.Context, userID int64, s dom.TodoStats) error {
	b, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, statsKey(userID), b, c.ttl).Err()
}

// InvalidateUser removes every cached entry for one owner (cache
// invalidation on write).
func (c *TodoCache) InvalidateUser(ctx context.Context, userID int64) error {
	if err := c.rdb.Del(ctx, statsKey(userID)).Err(); err != nil {
		return err
	}
	pattern := fmt.Sprintf("todo:%d:page:*", userID)
	iter := c.rdb.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		if err := c.rdb.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}

func normalizeQuery(q string) string {
	return strings.TrimSpace(strings.ToLower(q))
}
