package httpserver

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/middleware/auth"
	"github.com/Skotchmaster/storefront/internal/transport"
)

type Deps struct {
	AuthHandler *AuthHTTP
	JWTSecret   []byte
	// Ready reports whether backing stores are reachable.
	Ready func(ctx context.Context) error
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error {
		if d.Ready != nil {
			if err := d.Ready(c.Request().Context()); err != nil {
				return c.JSON(http.StatusServiceUnavailable, transport.Fail(http.StatusServiceUnavailable, "not ready", []string{err.Error()}))
			}
		}
		return c.NoContent(http.StatusOK)
	})

	requireAuth := auth.RequireAuth(d.JWTSecret)
	for _, g := range []*echo.Group{e.Group("/auth"), e.Group("/api/v1/auth")} {
		g.POST("/register", d.AuthHandler.Register)
		g.POST("/login", d.AuthHandler.Login)
		g.POST("/logout", d.AuthHandler.LogOut)
		g.POST("/forgot-password", d.AuthHandler.ForgotPassword)
		g.POST("/reset-password", d.AuthHandler.ResetPassword)
		g.POST("/change-password", d.AuthHandler.ChangePassword, requireAuth)
	}
}
