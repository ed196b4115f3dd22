// Package handler holds the echo handlers of the settlement API.  Handlers
// return *apperr.Error values; ErrorHandler turns them into responses so
// every endpoint reports failures with the same JSON body, including
// endpoints asked for CSV.
package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/toll-settlement/internal/apperr"
	"github.com/iliyamo/toll-settlement/internal/middleware"
)

// ErrorBody is the JSON body of every error response.
type ErrorBody struct {
	Error     string            `json:"error"`
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	RequestID string            `json:"request_id,omitempty"`
	Fields    map[string]string `json:"fields,omitempty"`
}

// ErrorHandler is installed as echo's HTTPErrorHandler.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		writeError(c, he.Code, ErrorBody{
			Error:   http.StatusText(he.Code),
			Code:    echoCode(he.Code),
			Message: fmt.Sprint(he.Message),
		})
		return
	}

	status := apperr.HTTPStatus(err)
	if status == http.StatusNoContent {
		_ = c.NoContent(status)
		return
	}
	if status >= http.StatusInternalServerError {
		var ae *apperr.Error
		if errors.As(err, &ae) && ae.StackTrace() != nil {
			middleware.GetLogger(c).Debug("error stack", map[string]interface{}{"stack": fmt.Sprintf("%+v", ae.StackTrace())})
		}
	}
	writeError(c, status, ErrorBody{
		Error:   http.StatusText(status),
		Code:    apperr.CodeOf(err),
		Message: apperr.MessageOf(err),
		Fields:  apperr.FieldsOf(err),
	})
}

func writeError(c echo.Context, status int, body ErrorBody) {
	body.RequestID = middleware.GetRequestID(c)
	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(status)
		return
	}
	_ = c.JSON(status, body)
}

// echoCode names errors raised by echo itself (unknown route, body limit).
func echoCode(status int) string {
	switch status {
	case http.StatusNotFound:
		return "not_found"
	case http.StatusMethodNotAllowed:
		return "method_not_allowed"
	case http.StatusRequestEntityTooLarge:
		return "payload_too_large"
	case http.StatusUnauthorized:
		return apperr.CodeUnauthorized
	case http.StatusBadRequest:
		return apperr.CodeBadRequest
	default:
		if status >= http.StatusInternalServerError {
			return apperr.CodeInternal
		}
		return apperr.CodeBadRequest
	}
}
