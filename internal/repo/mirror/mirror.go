// Package mirror stores JSON snapshots of session state under namespaced keys.
package mirror

import (
	"context"
	"errors"
	"fmt"

	"github.com/aymshop/storefront/internal/models"
	"github.com/goccy/go-json"
)

const (
	KeyProducts     = "aymShopProducts"
	KeyCart         = "aymShopCart"
	KeyWishlist     = "aymShopWishlist"
	KeyOriginalCart = "aymShopOriginalCart"
)

// Store is a flat key-value store. Get returns models.ErrNotFound for missing keys.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// Key joins a scope (session or device id) with one of the Key* names.
func Key(scope, name string) string {
	if scope == "" {
		return name
	}
	return scope + ":" + name
}

func SaveJSON(ctx context.Context, s Store, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	if err := s.Set(ctx, key, data); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

// LoadJSON decodes key into v. A missing key leaves v untouched and returns false.
func LoadJSON(ctx context.Context, s Store, key string, v any) (bool, error) {
	data, err := s.Get(ctx, key)
	if errors.Is(err, models.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get %s: %w", key, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("unmarshal %s: %w", key, err)
	}
	return true, nil
}
