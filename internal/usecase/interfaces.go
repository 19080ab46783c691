package usecase

import (
	"context"

	"github.com/aymshop/storefront/internal/models"
)

// OrderPublisher announces committed orders to downstream consumers.
type OrderPublisher interface {
	PublishOrder(ctx context.Context, event models.OrderEvent) error
}

type CatalogService interface {
	// Products returns the catalog, served from a short-lived cache when fresh.
	Products(ctx context.Context) ([]models.Product, error)
	// Reload bypasses the cache.
	Reload(ctx context.Context) ([]models.Product, error)
}

type SessionRegistry interface {
	Create(ctx context.Context, deviceID string) (*Session, error)
	Get(id string) (*Session, error)
	Reload(ctx context.Context, id string) (*Session, error)
	Sweep(ctx context.Context) int
	Len() int
}
