package caching

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrCacheMiss is returned by Get when the key is absent.
var ErrCacheMiss = errors.New("cache miss")

type CachingService interface {
	Get(ctx context.Context, key string, dst any) error
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

type RedisCachingService struct {
	client redis.UniversalClient
}

func NewRedisCachingService(client redis.UniversalClient) *RedisCachingService {
	return &RedisCachingService{client: client}
}

// Get decodes the JSON value stored under key into dst.
func (c *RedisCachingService) Get(ctx context.Context, key string, dst any) error {
	raw, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrCacheMiss
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dst)
}

func (c *RedisCachingService) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, raw, ttl).Err()
}

func (c *RedisCachingService) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, key).Err()
}

// NullCachingService never stores anything. Used when Redis is not configured.
type NullCachingService struct{}

func NewNullCachingService() *NullCachingService {
	return &NullCachingService{}
}

func (NullCachingService) Get(context.Context, string, any) error { return ErrCacheMiss }

func (NullCachingService) Set(context.Context, string, any, time.Duration) error { return nil }

func (NullCachingService) Delete(context.Context, string) error { return nil }

// UserFilesKey is the cache key for an owner's file list.
func UserFilesKey(ownerID string) string {
	return "user:files:" + ownerID
}
