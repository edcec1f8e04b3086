package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/internal/transport"
	"github.com/Skotchmaster/storefront/pkg/logging"
	authmw "github.com/Skotchmaster/storefront/pkg/middleware/auth"
	"github.com/Skotchmaster/storefront/pkg/tokens"
)

type AuthHTTP struct {
	Svc *service.AuthService
}

func (h *AuthHTTP) Register(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.register")

	var req transport.RegisterRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "register_error", "invalid body", err)
	}

	user, err := h.Svc.Register(ctx, req)
	if err != nil {
		return fail(l, "register_error", err)
	}

	l.Info("register_success", "user_id", user.ID)
	return c.JSON(http.StatusCreated, user)
}

func (h *AuthHTTP) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.login")

	var req transport.LoginRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "login_error", "invalid body", err)
	}

	user, pair, err := h.Svc.Login(ctx, req)
	if err != nil {
		return fail(l, "login_error", err)
	}
	authmw.SetAuthCookies(c, pair)

	l.Info("login_success", "user_id", user.ID)
	return c.JSON(http.StatusOK, transport.AuthResponse{
		User:         user,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresIn:    int64(service.AccessTTL.Seconds()),
	})
}

// refreshToken reads the token from the JSON body, falling back to the cookie.
func refreshToken(c echo.Context) (string, error) {
	var req transport.RefreshRequest
	if c.Request().ContentLength > 0 {
		if err := c.Bind(&req); err != nil {
			return "", err
		}
	}
	if req.RefreshToken == "" {
		if cookie, err := c.Cookie(tokens.RefreshCookie); err == nil {
			req.RefreshToken = cookie.Value
		}
	}
	return req.RefreshToken, nil
}

func (h *AuthHTTP) Refresh(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.refresh")

	token, err := refreshToken(c)
	if err != nil {
		return badRequest(l, "refresh_error", "invalid body", err)
	}
	if token == "" {
		l.Warn("refresh_error", "status", 401, "reason", "refresh token missing")
		return echo.NewHTTPError(http.StatusUnauthorized, "refresh token missing")
	}

	pair, err := h.Svc.Refresh(ctx, token)
	if err != nil {
		return fail(l, "refresh_error", err)
	}
	authmw.SetAuthCookies(c, pair)

	l.Info("refresh_success")
	return c.JSON(http.StatusOK, transport.AuthResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresIn:    int64(service.AccessTTL.Seconds()),
	})
}

func (h *AuthHTTP) Logout(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.logout")

	token, err := refreshToken(c)
	if err != nil {
		return badRequest(l, "logout_error", "invalid body", err)
	}
	if err := h.Svc.Logout(ctx, token); err != nil {
		return fail(l, "logout_error", err)
	}

	c.SetCookie(tokens.DeleteCookie(tokens.AccessCookie, "/"))
	c.SetCookie(tokens.DeleteCookie(tokens.RefreshCookie, "/"))
	l.Info("logout_success")
	return c.NoContent(http.StatusNoContent)
}
