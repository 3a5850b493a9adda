package httpserver

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/apperr"
	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/transport"
)

// ErrorHandler renders every failure in the response envelope. Service
// errors carry their kind; echo errors carry their own code.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status, message, details := describe(err)
	if status >= http.StatusInternalServerError {
		logging.FromContext(c.Request().Context()).Error("request_failed", "status", status, "error", err)
	}

	var werr error
	if c.Request().Method == http.MethodHead {
		werr = c.NoContent(status)
	} else {
		werr = c.JSON(status, transport.Fail(status, message, details))
	}
	if werr != nil {
		logging.FromContext(c.Request().Context()).Warn("error_response_failed", "error", werr)
	}
}

func describe(err error) (int, string, []string) {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg := http.StatusText(he.Code)
		if he.Message != nil {
			msg = fmt.Sprint(he.Message)
		}
		return he.Code, msg, []string{msg}
	}

	ae := apperr.As(err)
	status := ae.HTTPStatus()
	msg := ae.Message
	if msg == "" || (status >= http.StatusInternalServerError && ae.Status == 0) {
		msg = http.StatusText(status)
	}

	details := ae.Details
	if len(details) == 0 {
		details = []string{msg}
	}
	return status, msg, details
}
