package app

import (
	"context"
	"fmt"
	"time"

	"github.com/aymshop/storefront/internal/config"
	"github.com/aymshop/storefront/internal/kafka"
	"github.com/aymshop/storefront/internal/logger"
	"github.com/aymshop/storefront/internal/repo/mirror"
	"github.com/aymshop/storefront/internal/repo/mongodb"
	"github.com/aymshop/storefront/internal/repo/redis"
	"github.com/aymshop/storefront/internal/usecase"
	"go.uber.org/fx"
)

const (
	mirrorMemory  = "memory"
	mirrorRedis   = "redis"
	mirrorMongoDB = "mongodb"
)

func newMirrorStore(lc fx.Lifecycle, cfg *config.Config) (mirror.Store, error) {
	log := logger.MustNamed("mirror")
	log.Infow("mirror store selected", "driver", cfg.Mirror.Driver)

	switch cfg.Mirror.Driver {
	case mirrorRedis:
		client := redis.NewClient(cfg)
		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				return client.Ping(ctx).Err()
			},
			OnStop: func(ctx context.Context) error {
				return client.Close()
			},
		})
		return redis.NewMirrorStore(client, cfg.Mirror.TTL), nil

	case mirrorMongoDB:
		db, err := newMongoDB(lc, cfg)
		if err != nil {
			return nil, err
		}
		return mongodb.NewMirrorStore(db), nil

	case mirrorMemory:
		return mirror.NewMemoryStore(), nil
	}
	return nil, fmt.Errorf("unknown mirror driver %q", cfg.Mirror.Driver)
}

func newMongoDB(lc fx.Lifecycle, cfg *config.Config) (*mongodb.DB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	db, err := mongodb.NewConnection(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("init mongo client: %w", err)
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return db.Ping(ctx)
		},
		OnStop: func(ctx context.Context) error {
			return db.Close(ctx)
		},
	})
	return db, nil
}

func newOrderPublisher(lc fx.Lifecycle, cfg *config.Config) (usecase.OrderPublisher, error) {
	publisher, err := kafka.NewPublisher(&cfg.Kafka)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return publisher.Close()
		},
	})
	return publisher, nil
}
