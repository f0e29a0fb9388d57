package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"settlement-svc/config"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Client wraps the Redis connection behind the product-cache operations the
// handlers need.
type Client struct {
	rdb *redis.Client
}

func InitRedis(cfg config.Config, logger *zap.Logger) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.RedisHost, cfg.RedisPort),
		Password: cfg.RedisPassword,
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Redis connection established")
	return &Client{rdb: rdb}, nil
}

func (c *Client) GetProduct(ctx context.Context, id string) ([]byte, error) {
	key := fmt.Sprintf("product:%s", id)
	return c.rdb.Get(ctx, key).Bytes()
}

func (c *Client) SetProduct(ctx context.Context, id string, product interface{}, ttl time.Duration) error {
	key := fmt.Sprintf("product:%s", id)
	data, err := json.Marshal(product)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, key, data, ttl).Err()
}

func (c *Client) Close() error {
	return c.rdb.Close()
}
