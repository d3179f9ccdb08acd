// Package redisstore keeps session blobs in Redis with native key expiry.
package redisstore

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"socialrelay/internal/model"
)

const keyPrefix = "socialrelay:session:"

type Client struct {
	rdb *redis.Client
}

// New connects to addr and pings it once.
func New(addr string) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, err
	}

	return &Client{rdb: rdb}, nil
}

func (c *Client) Close() error {
	return c.rdb.Close()
}

func (c *Client) Get(ctx context.Context, id string) ([]byte, error) {
	b, err := c.rdb.Get(ctx, keyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, model.ErrSessionNotFound
	}
	return b, err
}

func (c *Client) Put(ctx context.Context, id string, data []byte, ttl time.Duration) error {
	return c.rdb.Set(ctx, keyPrefix+id, data, ttl).Err()
}

func (c *Client) Delete(ctx context.Context, id string) error {
	return c.rdb.Del(ctx, keyPrefix+id).Err()
}
