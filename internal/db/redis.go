package db

import (
	"context"
	"errors"
	"time"

	"github.com/jmehdipour/supplier-risk/internal/config"
	"github.com/redis/go-redis/v9"
)

// NewRedisClient connects the rate limiter backend. Dial timeout defaults to 5s.
func NewRedisClient(ctx context.Context, c config.RedisConfig) (*redis.Client, error) {
	if c.Addr == "" {
		return nil, errors.New("empty redis addr")
	}
	if c.DialTimeout <= 0 {
		c.DialTimeout = 5 * time.Second
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:        c.Addr,
		Password:    c.Password,
		DB:          c.DB,
		DialTimeout: c.DialTimeout,
	})
	pingCtx, cancel := context.WithTimeout(ctx, c.DialTimeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, err
	}

	return rdb, nil
}
