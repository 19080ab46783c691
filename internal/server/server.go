package server

import (
	"context"
	"errors"
	"net/http"
	"regexp"
	"slices"

	"github.com/aymshop/storefront/internal/config"
	"github.com/aymshop/storefront/internal/logger"
	pkgmdw "github.com/aymshop/storefront/internal/server/middleware"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/fx"
)

// proxyDeniedMethods answer 405 on the catalog proxy.
var proxyDeniedMethods = []string{
	http.MethodHead, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete,
}

// NewEcho builds the router with every route and middleware installed.
func NewEcho(conf *config.Config, handler Controller, sessions SessionController) *echo.Echo {
	log := logger.MustNamed("http")

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = pkgmdw.NewValidator()
	e.HTTPErrorHandler = pkgmdw.ErrorHandler(log)

	logConfig := pkgmdw.LogRequestConfig{
		Logger: log,
		Enabled: func(c echo.Context) bool {
			return !slices.Contains(conf.Server.SkipLogPaths, c.Request().URL.Path)
		},
		KeyAndValues: func(c echo.Context) []any {
			if id := c.Param("session_id"); id != "" {
				return []any{"session_id", id}
			}
			return nil
		},
	}

	e.Use(pkgmdw.Metrics())
	e.Use(pkgmdw.RequestID())
	e.Use(pkgmdw.LogRequest(logConfig))
	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			log.Errorw("PANIC RECOVER", "error", err, "stack", string(stack))
			return err
		},
	}))
	e.Use(pkgmdw.CORS(pkgmdw.CORSConfig{
		AllowOrigin: regexp.MustCompile(conf.Server.AllowOrigins),
	}))

	e.GET("/health", handler.Health)

	e.GET("/api/products", handler.ListProducts)
	e.OPTIONS("/api/products", handler.Preflight)
	e.Match(proxyDeniedMethods, "/api/products", handler.MethodNotAllowed)

	api := e.Group("/api/v1")
	api.POST("/sessions", pkgmdw.WrapHandler(sessions.CreateSession))

	s := api.Group("/sessions/:session_id")
	s.GET("/products", pkgmdw.WrapHandler(sessions.SearchProducts))
	s.GET("/products/:product_id", pkgmdw.WrapHandler(sessions.GetProduct))
	s.GET("/categories", pkgmdw.WrapHandler(sessions.GetCategories))

	s.GET("/cart", pkgmdw.WrapHandler(sessions.GetCart))
	s.DELETE("/cart", pkgmdw.WrapHandler(sessions.ClearCart))
	s.POST("/cart/items", pkgmdw.WrapHandler(sessions.AddCartItem))
	s.PUT("/cart/items/:product_id", pkgmdw.WrapHandler(sessions.UpdateCartItem))
	s.DELETE("/cart/items/:product_id", pkgmdw.WrapHandler(sessions.RemoveCartItem))

	s.GET("/wishlist", pkgmdw.WrapHandler(sessions.GetWishlist))
	s.POST("/wishlist/:product_id", pkgmdw.WrapHandler(sessions.ToggleWishlist))
	s.DELETE("/wishlist/:product_id", pkgmdw.WrapHandler(sessions.RemoveWishlistItem))

	s.POST("/checkout", pkgmdw.WrapHandler(sessions.Checkout))
	s.GET("/checkout/share", pkgmdw.WrapHandler(sessions.ShareOrder))
	s.POST("/catalog/reload", pkgmdw.WrapHandler(sessions.ReloadCatalog))

	return e
}

func StartServer(
	lc fx.Lifecycle,
	sd fx.Shutdowner,
	conf *config.Config,
	e *echo.Echo,
) {
	log := logger.MustNamed("http")
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Infow("starting HTTP server", "addr", conf.Server.Addr)
				if err := e.Start(conf.Server.Addr); !errors.Is(err, http.ErrServerClosed) {
					log.Errorw("HTTP server stopped", "error", err)
					_ = sd.Shutdown()
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return e.Shutdown(ctx)
		},
	})
}
