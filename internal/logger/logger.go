package logger

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu   sync.Mutex
	root *zap.Logger
)

// Setup replaces the root logger. Loggers created before the call keep the old core.
func Setup(level string, dev bool) error {
	var cfg zap.Config
	if dev {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return err
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	l, err := cfg.Build()
	if err != nil {
		return err
	}

	mu.Lock()
	defer mu.Unlock()
	root = l
	return nil
}

func base() *zap.Logger {
	mu.Lock()
	defer mu.Unlock()
	if root == nil {
		l, err := zap.NewProduction()
		if err != nil {
			l = zap.NewNop()
		}
		root = l
	}
	return root
}

// MustNamed returns a sugared logger scoped to name.
func MustNamed(name string) *zap.SugaredLogger {
	return base().Named(name).Sugar()
}

func Root() *zap.Logger {
	return base()
}

func Sync() {
	_ = base().Sync()
}
