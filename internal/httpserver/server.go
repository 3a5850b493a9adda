package httpserver

import (
	"log/slog"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	loggingmw "github.com/Skotchmaster/storefront/internal/middleware/logging"
)

type ServerOptions struct {
	Logger    *slog.Logger
	BodyLimit string
}

// New builds the echo instance with the shared middleware chain and routes.
func New(opts ServerOptions, d *Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = ErrorHandler

	e.Server.ReadTimeout = 10 * time.Second
	e.Server.WriteTimeout = 15 * time.Second
	e.Server.ReadHeaderTimeout = 3 * time.Second

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	limit := opts.BodyLimit
	if limit == "" {
		limit = "1M"
	}

	e.Use(middleware.RequestID())
	e.Use(loggingmw.RequestLogger(logger))
	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit(limit))
	e.Use(middleware.Secure())

	Register(e, d)
	return e
}
