package middleware

import (
	"net/http"
	"regexp"
	"strings"

	"github.com/labstack/echo/v4"
)

type CORSConfig struct {
	// AllowOrigin matches the request Origin. Requests without Origin get "*".
	AllowOrigin  *regexp.Regexp
	AllowMethods []string
	AllowHeaders []string
}

var DefaultCORSConfig = CORSConfig{
	AllowOrigin: regexp.MustCompile(".*"),
	AllowMethods: []string{
		http.MethodGet, http.MethodPost, http.MethodPut,
		http.MethodDelete, http.MethodOptions,
	},
	AllowHeaders: []string{echo.HeaderContentType, XRequestID},
}

// CORS answers preflight requests with 200 and decorates the rest.
func CORS(config CORSConfig) echo.MiddlewareFunc {
	if config.AllowOrigin == nil {
		config.AllowOrigin = DefaultCORSConfig.AllowOrigin
	}
	if len(config.AllowMethods) == 0 {
		config.AllowMethods = DefaultCORSConfig.AllowMethods
	}
	if len(config.AllowHeaders) == 0 {
		config.AllowHeaders = DefaultCORSConfig.AllowHeaders
	}
	methods := strings.Join(config.AllowMethods, ", ")
	headers := strings.Join(config.AllowHeaders, ", ")

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			respHeader := c.Response().Header()
			respHeader.Add(echo.HeaderVary, echo.HeaderOrigin)

			origin := c.Request().Header.Get(echo.HeaderOrigin)
			switch {
			case origin == "":
				respHeader.Set(echo.HeaderAccessControlAllowOrigin, "*")
			case config.AllowOrigin.MatchString(origin):
				respHeader.Set(echo.HeaderAccessControlAllowOrigin, origin)
			default:
				return next(c)
			}
			respHeader.Set(echo.HeaderAccessControlAllowMethods, methods)
			respHeader.Set(echo.HeaderAccessControlAllowHeaders, headers)

			if c.Request().Method == http.MethodOptions {
				return c.NoContent(http.StatusOK)
			}
			return next(c)
		}
	}
}
