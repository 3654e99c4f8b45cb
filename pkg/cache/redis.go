// Package cache constructs the optional Redis client backing the
// distributed expansion-cache and rate-limit modes (SPEC_FULL.md §C3/§C4).
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pytanis-go/pretalx-core/pkg/config"
)

// NewRedis returns a configured Redis client, or nil if cfg is nil (no
// [redis] section configured). Pinging on construction fails fast rather
// than silently degrading every subsequent cache/limiter call.
func NewRedis(cfg *config.RedisConfig) (*redis.Client, error) {
	if cfg == nil {
		return nil, nil
	}

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}

	return client, nil
}
