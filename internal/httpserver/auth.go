package httpserver

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/middleware/auth"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/internal/transport"
)

type AuthService interface {
	Register(ctx context.Context, req transport.RegisterRequest) (*models.User, error)
	Login(ctx context.Context, req transport.LoginRequest) (*service.LoginResult, error)
	ForgotPassword(ctx context.Context, req transport.ForgotPasswordRequest) error
	ResetPassword(ctx context.Context, req transport.ResetPasswordRequest) error
	ChangePassword(ctx context.Context, userID uuid.UUID, req transport.ChangePasswordRequest) error
}

type AuthHTTP struct {
	Svc AuthService
}

func bindBody(c echo.Context, handler string, dst any) error {
	if err := c.Bind(dst); err != nil {
		logging.FromContext(c.Request().Context()).Warn(handler+"_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body").SetInternal(err)
	}
	return nil
}

func (h *AuthHTTP) Register(c echo.Context) error {
	var req transport.RegisterRequest
	if err := bindBody(c, "register", &req); err != nil {
		return err
	}

	user, err := h.Svc.Register(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, transport.OK(http.StatusOK, "user registered", transport.UserFrom(user)))
}

func (h *AuthHTTP) Login(c echo.Context) error {
	var req transport.LoginRequest
	if err := bindBody(c, "login", &req); err != nil {
		return err
	}

	res, err := h.Svc.Login(c.Request().Context(), req)
	if err != nil {
		return err
	}

	c.SetCookie(CreateCookie(auth.CookieName, res.AuthToken, "/", res.ExpiresAt))
	return c.JSON(http.StatusOK, transport.OK(http.StatusOK, "login successful", transport.LoginResponse{
		User:      transport.UserFrom(res.User),
		AuthToken: res.AuthToken,
	}))
}

// LogOut only clears the cookie; issued login tokens stay valid until expiry.
func (h *AuthHTTP) LogOut(c echo.Context) error {
	l := logging.FromContext(c.Request().Context()).With("handler", "auth_logout")

	c.SetCookie(DeleteCookie(auth.CookieName, "/"))
	l.Info("successful_logout")
	return c.JSON(http.StatusOK, transport.OK(http.StatusOK, "logged out", nil))
}

func (h *AuthHTTP) ForgotPassword(c echo.Context) error {
	var req transport.ForgotPasswordRequest
	if err := bindBody(c, "forgot_password", &req); err != nil {
		return err
	}

	if err := h.Svc.ForgotPassword(c.Request().Context(), req); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, transport.OK(http.StatusOK, "password reset link sent", nil))
}

func (h *AuthHTTP) ResetPassword(c echo.Context) error {
	var req transport.ResetPasswordRequest
	if err := bindBody(c, "reset_password", &req); err != nil {
		return err
	}

	if err := h.Svc.ResetPassword(c.Request().Context(), req); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, transport.OK(http.StatusOK, "password has been reset", nil))
}

func (h *AuthHTTP) ChangePassword(c echo.Context) error {
	userID, err := auth.UserID(c)
	if err != nil {
		return err
	}

	var req transport.ChangePasswordRequest
	if err := bindBody(c, "change_password", &req); err != nil {
		return err
	}

	if err := h.Svc.ChangePassword(c.Request().Context(), userID, req); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, transport.OK(http.StatusOK, "password changed", nil))
}
