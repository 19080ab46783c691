package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/aymshop/storefront/internal/config"
	"github.com/aymshop/storefront/internal/logger"
	"github.com/aymshop/storefront/internal/models"
	"github.com/aymshop/storefront/internal/repo/airtable"
	"github.com/aymshop/storefront/pkg/util"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

type catalogService struct {
	fetcher  airtable.Fetcher
	timeout  time.Duration
	freshFor time.Duration
	now      func() time.Time
	group    singleflight.Group
	metrics  *prometheus.HistogramVec
	log      *zap.SugaredLogger

	mu        sync.RWMutex
	products  []models.Product
	fetchedAt time.Time
}

func NewCatalogService(cfg *config.Config, fetcher airtable.Fetcher) (CatalogService, error) {
	return newCatalogService(fetcher, cfg.Catalog.FetchTimeout, cfg.Catalog.FreshFor)
}

func newCatalogService(fetcher airtable.Fetcher, timeout, freshFor time.Duration) (*catalogService, error) {
	metrics, err := util.GetHistogramVec("storefront_catalog_fetch_seconds", "result")
	if err != nil {
		return nil, fmt.Errorf("catalog metrics: %w", err)
	}
	return &catalogService{
		fetcher:  fetcher,
		timeout:  timeout,
		freshFor: freshFor,
		now:      time.Now,
		metrics:  metrics,
		log:      logger.MustNamed("catalog"),
	}, nil
}

func (c *catalogService) Products(ctx context.Context) ([]models.Product, error) {
	c.mu.RLock()
	if !c.fetchedAt.IsZero() && c.now().Sub(c.fetchedAt) < c.freshFor {
		out := models.CloneProducts(c.products)
		c.mu.RUnlock()
		return out, nil
	}
	c.mu.RUnlock()
	return c.Reload(ctx)
}

// Reload fetches the catalog. Concurrent callers share one upstream request.
func (c *catalogService) Reload(ctx context.Context) ([]models.Product, error) {
	ch := c.group.DoChan("catalog", func() (any, error) {
		return c.fetch(context.WithoutCancel(ctx))
	})
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %w", models.ErrSourceUnavailable, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return models.CloneProducts(res.Val.([]models.Product)), nil
	}
}

func (c *catalogService) fetch(ctx context.Context) ([]models.Product, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	products, err := c.fetcher.FetchCatalog(ctx)
	result := "ok"
	if err != nil {
		result = "error"
	}
	c.metrics.WithLabelValues(result).Observe(time.Since(start).Seconds())
	if err != nil {
		c.log.Errorw("fetch catalog failed", "error", err)
		if !errors.Is(err, models.ErrSourceUnavailable) {
			err = fmt.Errorf("%w: %w", models.ErrSourceUnavailable, err)
		}
		return nil, err
	}

	c.mu.Lock()
	c.products = products
	c.fetchedAt = c.now()
	c.mu.Unlock()
	c.log.Infow("catalog fetched", "count", len(products), "took", time.Since(start))
	return products, nil
}
