package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/richxcame/cardshield/pkg/config"
)

// Client wraps the Redis client
type Client struct {
	*redis.Client
}

// NewRedisClient creates a new Redis client
func NewRedisClient(cfg *config.RedisConfig) (*Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("unable to connect to redis: %w", err)
	}

	return &Client{Client: client}, nil
}

// SetWithExpiration sets a key-value pair with expiration
func (c *Client) SetWithExpiration(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return c.Set(ctx, key, value, expiration).Err()
}

// GetString gets a string value by key
func (c *Client) GetString(ctx context.Context, key string) (string, error) {
	return c.Get(ctx, key).Result()
}

// MGetStrings gets multiple string values in one round trip. Missing keys
// come back as empty strings.
func (c *Client) MGetStrings(ctx context.Context, keys ...string) ([]string, error) {
	values, err := c.Client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}
	result := make([]string, len(values))
	for i, v := range values {
		if s, ok := v.(string); ok {
			result[i] = s
		}
	}
	return result, nil
}

// Delete deletes a key
func (c *Client) Delete(ctx context.Context, keys ...string) error {
	return c.Del(ctx, keys...).Err()
}

// Exists checks if a key exists
func (c *Client) Exists(ctx context.Context, key string) (bool, error) {
	result, err := c.Client.Exists(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return result > 0, nil
}

// Expire sets an expiration on a key
func (c *Client) Expire(ctx context.Context, key string, expiration time.Duration) error {
	return c.Client.Expire(ctx, key, expiration).Err()
}

// AddToWindow records a member in a sorted-set sliding window, scored by
// unix-nano timestamp. Used for transaction velocity tracking.
func (c *Client) AddToWindow(ctx context.Context, key, member string, at time.Time) error {
	return c.Client.ZAdd(ctx, key, redis.Z{
		Score:  float64(at.UnixNano()),
		Member: member,
	}).Err()
}

// TrimWindow removes window entries older than the cutoff.
func (c *Client) TrimWindow(ctx context.Context, key string, cutoff time.Time) error {
	max := fmt.Sprintf("%d", cutoff.UnixNano())
	return c.Client.ZRemRangeByScore(ctx, key, "-inf", max).Err()
}

// CountWindow returns the number of entries currently in the window.
func (c *Client) CountWindow(ctx context.Context, key string) (int64, error) {
	return c.Client.ZCard(ctx, key).Result()
}

// WindowMembers returns the members currently in the window, oldest first.
func (c *Client) WindowMembers(ctx context.Context, key string) ([]string, error) {
	return c.Client.ZRangeByScore(ctx, key, &redis.ZRangeBy{Min: "-inf", Max: "+inf"}).Result()
}

// Close closes the Redis client
func (c *Client) Close() error {
	return c.Client.Close()
}
