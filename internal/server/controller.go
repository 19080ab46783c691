package server

import (
	"fmt"
	"net/http"

	"github.com/aymshop/storefront/internal/config"
	"github.com/aymshop/storefront/internal/logger"
	"github.com/aymshop/storefront/internal/models"
	"github.com/aymshop/storefront/internal/usecase"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const fetchFailedMessage = "Failed to fetch products from Airtable"

// Controller serves the public catalog proxy and health check.
type Controller interface {
	ListProducts(c echo.Context) error
	Preflight(c echo.Context) error
	MethodNotAllowed(c echo.Context) error
	Health(c echo.Context) error
}

type productsResponse struct {
	Success  bool             `json:"success"`
	Count    int              `json:"count"`
	Products []models.Product `json:"products"`
}

type productsError struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

type controller struct {
	catalog      usecase.CatalogService
	cacheControl string
	log          *zap.SugaredLogger
}

func NewController(cfg *config.Config, catalog usecase.CatalogService) Controller {
	return &controller{
		catalog: catalog,
		cacheControl: fmt.Sprintf("public, s-maxage=%d, stale-while-revalidate=%d",
			cfg.Server.CacheMaxAge, cfg.Server.CacheSWR),
		log: logger.MustNamed("products"),
	}
}

func (h *controller) ListProducts(c echo.Context) error {
	products, err := h.catalog.Products(c.Request().Context())
	if err != nil {
		h.log.Errorw("list products failed", "error", err)
		return c.JSON(http.StatusInternalServerError, productsError{
			Success: false,
			Error:   err.Error(),
			Message: fetchFailedMessage,
		})
	}

	c.Response().Header().Set("Cache-Control", h.cacheControl)
	return c.JSON(http.StatusOK, productsResponse{
		Success:  true,
		Count:    len(products),
		Products: products,
	})
}

func (h *controller) Preflight(c echo.Context) error {
	return c.NoContent(http.StatusOK)
}

func (h *controller) MethodNotAllowed(c echo.Context) error {
	return c.JSON(http.StatusMethodNotAllowed, map[string]string{
		"error": "Method not allowed",
	})
}

func (h *controller) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "storefront",
	})
}
