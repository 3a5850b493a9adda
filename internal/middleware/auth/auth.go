package auth

import (
	"net/http"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/tokens"
)

const (
	ContextKey  = "user"
	CookieName  = "authToken"
	tokenLookup = "header:Authorization:Bearer ,cookie:" + CookieName
)

// RequireAuth accepts a login token from the Authorization header or the
// authToken cookie and stores the parsed *jwt.Token under ContextKey.
func RequireAuth(secret []byte) echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		SigningKey:    secret,
		SigningMethod: jwt.SigningMethodHS256.Alg(),
		ContextKey:    ContextKey,
		TokenLookup:   tokenLookup,
		NewClaimsFunc: func(echo.Context) jwt.Claims { return new(tokens.AuthClaims) },
		ErrorHandler: func(c echo.Context, err error) error {
			return echo.NewHTTPError(http.StatusUnauthorized, "missing or invalid auth token").SetInternal(err)
		},
	})
}

func Claims(c echo.Context) (*tokens.AuthClaims, bool) {
	tok, ok := c.Get(ContextKey).(*jwt.Token)
	if !ok || tok == nil {
		return nil, false
	}
	claims, ok := tok.Claims.(*tokens.AuthClaims)
	return claims, ok
}

func UserID(c echo.Context) (uuid.UUID, error) {
	claims, ok := Claims(c)
	if !ok {
		return uuid.Nil, echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
	}
	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusUnauthorized, "invalid auth token")
	}
	return id, nil
}
