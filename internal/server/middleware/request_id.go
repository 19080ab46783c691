package middleware

import (
	"context"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const (
	XRequestID     = "X-Request-ID"
	XCorrelationID = "X-Correlation-ID"
)

type requestIDKey struct{}

// RequestIDFromContext returns the id attached by RequestID, or "".
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// GetRequestID returns the id of the current request, looking at the echo store first.
func GetRequestID(c echo.Context) string {
	if id, ok := c.Get(XRequestID).(string); ok {
		return id
	}
	return RequestIDFromContext(c.Request().Context())
}

type RequestIDConfig struct {
	Skipper   Skipper
	Generator func() string
}

var DefaultRequestIDConfig = RequestIDConfig{
	Skipper:   DefaultSkipper,
	Generator: uuid.NewString,
}

func RequestID() echo.MiddlewareFunc {
	return RequestIDWithConfig(DefaultRequestIDConfig)
}

// RequestIDWithConfig reuses an upstream X-Request-ID or X-Correlation-ID header, or
// generates one, and exposes it on the echo context, the request context and the response.
func RequestIDWithConfig(config RequestIDConfig) echo.MiddlewareFunc {
	if config.Skipper == nil {
		config.Skipper = DefaultRequestIDConfig.Skipper
	}
	if config.Generator == nil {
		config.Generator = DefaultRequestIDConfig.Generator
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if config.Skipper(c) {
				return next(c)
			}
			req := c.Request()
			id := req.Header.Get(XRequestID)
			if id == "" {
				id = req.Header.Get(XCorrelationID)
			}
			if id == "" {
				id = config.Generator()
			}

			c.SetRequest(req.WithContext(context.WithValue(req.Context(), requestIDKey{}, id)))
			c.Set(XRequestID, id)
			c.Response().Header().Set(XRequestID, id)
			return next(c)
		}
	}
}
