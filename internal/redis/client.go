// Package redis wraps the shared redis connection used for rate
// limit accounting across server instances.
package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/Mynotaurus/gostreaming/internal/config"
)

type Client struct {
	*redis.Client
}

// NewClient connects to redis and verifies the connection with a
// bounded ping, so a bad REDIS_URL fails at startup rather than on
// the first rate limit check.
func NewClient(redisURL string) (*Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), config.RedisPingTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &Client{client}, nil
}

func (c *Client) Close() error {
	return c.Client.Close()
}
