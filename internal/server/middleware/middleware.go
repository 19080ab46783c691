package middleware

import (
	"fmt"

	"github.com/labstack/echo/v4"
)

var DefaultSkipper = func(c echo.Context) bool {
	return false
}

type Skipper func(c echo.Context) bool

type Logger interface {
	Infow(msg string, keysAndValues ...any)
	Warnw(msg string, keysAndValues ...any)
	Errorw(msg string, keysAndValues ...any)
}

// Response is the envelope of every successful session API response.
type Response struct {
	Status  int  `json:"-"`
	Success bool `json:"success"`
	Data    any  `json:"data,omitempty"`
}

// ResponseError is the envelope of every failed response. Error carries the
// machine readable code, Message the human readable text.
type ResponseError struct {
	Status  int    `json:"-"`
	Err     error  `json:"-"`
	Success bool   `json:"success"`
	Code    string `json:"error"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("status: %d, code: %s; message: %s; err: %v", e.Status, e.Code, e.Message, e.Err)
}

func (e *ResponseError) Unwrap() error {
	return e.Err
}
