package kafka

import (
	"context"

	"github.com/aymshop/storefront/internal/models"
)

// Publisher sends order events to the orders topic.
type Publisher interface {
	PublishOrder(ctx context.Context, event models.OrderEvent) error
	Close() error
}
