package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aymshop/storefront/internal/config"
	"github.com/aymshop/storefront/internal/models"
	"github.com/aymshop/storefront/internal/repo/mirror"
	goredis "github.com/redis/go-redis/v9"
)

const keyPrefix = "storefront:mirror:"

type mirrorStore struct {
	client goredis.Cmdable
	ttl    time.Duration
}

// NewMirrorStore keeps every entry for ttl; a zero ttl means no expiry.
func NewMirrorStore(client goredis.Cmdable, ttl time.Duration) mirror.Store {
	return &mirrorStore{client: client, ttl: ttl}
}

func NewClient(cfg *config.Config) *goredis.Client {
	return goredis.NewClient(&goredis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}

func redisKey(key string) string {
	return keyPrefix + key
}

func (s *mirrorStore) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := s.client.Get(ctx, redisKey(key)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}
	return val, nil
}

func (s *mirrorStore) Set(ctx context.Context, key string, value []byte) error {
	if err := s.client.Set(ctx, redisKey(key), value, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (s *mirrorStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, redisKey(key)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}
