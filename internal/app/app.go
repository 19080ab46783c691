package app

import (
	"context"

	"github.com/aymshop/storefront/internal/config"
	"github.com/aymshop/storefront/internal/logger"
	"github.com/aymshop/storefront/internal/repo/airtable"
	"github.com/aymshop/storefront/internal/server"
	"github.com/aymshop/storefront/internal/usecase"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap/zapcore"
)

// Invoke builds the application graph and runs funcs against it.
func Invoke(funcs ...any) *fx.App {
	conf := config.MustLoad()
	if err := logger.Setup(conf.Log.Level, conf.Log.Dev); err != nil {
		panic(err)
	}
	log := logger.MustNamed("app")
	log.Debugw("config loaded",
		"mirror_driver", conf.Mirror.Driver,
		"checkout_mode", conf.Store.CheckoutMode,
		"kafka_enabled", conf.Kafka.Enabled)

	return fx.New(
		fx.WithLogger(func() fxevent.Logger {
			l := &fxevent.ZapLogger{
				Logger: logger.Root(),
			}
			l.UseLogLevel(zapcore.DebugLevel)
			return l
		}),
		fx.Provide(
			newMirrorStore,
			newOrderPublisher,

			airtable.NewClient,
			airtable.NewFetcher,

			usecase.NewCatalogService,
			usecase.NewSessionRegistry,
			usecase.NewSweeper,

			server.NewController,
			server.NewSessionController,
			server.NewEcho,
		),
		fx.Supply(conf),
		fx.Invoke(StartSweeper),
		fx.Invoke(funcs...),
	)
}

// StartSweeper evicts idle sessions in the background while the app runs.
func StartSweeper(lc fx.Lifecycle, sweeper *usecase.Sweeper) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			sweeper.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			sweeper.Stop()
			return nil
		},
	})
}
