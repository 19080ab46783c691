package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const StatusClientClosedRequest = 499

// grpcToHTTP maps error status codes returned by the usecase layer.
var grpcToHTTP = map[codes.Code]int{
	codes.InvalidArgument:    http.StatusBadRequest,
	codes.NotFound:           http.StatusNotFound,
	codes.FailedPrecondition: http.StatusConflict,
	codes.Unavailable:        http.StatusServiceUnavailable,
	codes.DeadlineExceeded:   http.StatusGatewayTimeout,
	codes.Canceled:           StatusClientClosedRequest,
}

// NewResponseError converts any error into a ResponseError. Status errors wrapped with
// fmt.Errorf keep their code; the wrapping text becomes the message.
func NewResponseError(err error) *ResponseError {
	var re *ResponseError
	if errors.As(err, &re) {
		return re
	}

	resp := &ResponseError{
		Status:  http.StatusInternalServerError,
		Err:     err,
		Code:    codes.Internal.String(),
		Message: http.StatusText(http.StatusInternalServerError),
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		resp.Status = he.Code
		resp.Code = http.StatusText(he.Code)
		resp.Message = fmt.Sprint(he.Message)
		return resp
	}

	if st, ok := statusFrom(err); ok {
		if code, found := grpcToHTTP[st.Code()]; found {
			resp.Status = code
		}
		resp.Code = st.Code().String()
		resp.Message = err.Error()
		return resp
	}

	if errors.Is(err, context.Canceled) {
		resp.Status = StatusClientClosedRequest
		resp.Code = codes.Canceled.String()
		resp.Message = err.Error()
	}
	return resp
}

// statusFrom finds a status error anywhere in the wrap chain.
func statusFrom(err error) (*status.Status, bool) {
	var se interface{ GRPCStatus() *status.Status }
	if errors.As(err, &se) {
		return se.GRPCStatus(), true
	}
	return nil, false
}

// ErrorHandler return custom http error handler.
func ErrorHandler(log Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if err == nil || c.Response().Committed {
			return
		}

		resp := NewResponseError(err)
		if resp.Status == http.StatusNotFound && isNotFoundHandler(c.Handler()) {
			resp.Message = "no route matched"
		}
		if resp.Status >= http.StatusInternalServerError {
			log.Errorw("request failed", "status", resp.Status, "error", err)
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(resp.Status)
		} else {
			err = c.JSON(resp.Status, resp)
		}
		if err != nil {
			log.Errorw("could not response", "code", resp.Status, "response_body", resp)
		}
	}
}
