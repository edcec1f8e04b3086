package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/pkg/logging"
	"github.com/Skotchmaster/storefront/pkg/tokens"
)

const (
	CtxUserID    = "user_id"
	CtxRole      = "role"
	CtxSessionID = "session_id"

	HeaderSessionID = "X-Session-ID"

	minSessionLen = 8
	maxSessionLen = 128
)

type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (tokens.Pair, error)
}

// Authenticator resolves the caller from a bearer token, the access cookie
// or the guest session header. Expired cookie sessions are rotated through
// Refresher when a refresh cookie is present.
type Authenticator struct {
	JWTSecret []byte
	Refresher Refresher
}

func (a *Authenticator) Identify(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		l := logging.FromContext(c.Request().Context()).With("middleware", "auth.identify")

		if sid := strings.TrimSpace(c.Request().Header.Get(HeaderSessionID)); sid != "" {
			if len(sid) < minSessionLen || len(sid) > maxSessionLen {
				l.Warn("identify_error", "status", 400, "reason", "bad session id length")
				return echo.NewHTTPError(http.StatusBadRequest, "invalid X-Session-ID")
			}
			c.Set(CtxSessionID, sid)
		}

		raw, fromCookie := accessToken(c)
		if raw == "" {
			return next(c)
		}

		claims, err := tokens.AccessClaimsFromToken(raw, a.JWTSecret)
		if err == nil {
			if err := setUser(c, claims); err != nil {
				l.Warn("identify_error", "status", 401, "reason", "bad subject", "error", err)
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid access token")
			}
			return next(c)
		}

		if !errors.Is(err, jwt.ErrTokenExpired) || !fromCookie || a.Refresher == nil {
			if fromCookie {
				clearAuthCookies(c)
			}
			l.Warn("identify_error", "status", 401, "reason", "invalid access token", "error", err)
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid access token")
		}

		refreshCookie, rErr := c.Cookie(tokens.RefreshCookie)
		if rErr != nil || refreshCookie.Value == "" {
			clearAuthCookies(c)
			l.Warn("identify_error", "status", 401, "reason", "refresh token missing")
			return echo.NewHTTPError(http.StatusUnauthorized, "access token expired")
		}

		pair, refErr := a.Refresher.Refresh(c.Request().Context(), refreshCookie.Value)
		if refErr != nil {
			clearAuthCookies(c)
			l.Warn("identify_error", "status", 401, "reason", "refresh failed", "error", refErr)
			return echo.NewHTTPError(http.StatusUnauthorized, "session expired")
		}
		SetAuthCookies(c, pair)

		newClaims, pErr := tokens.AccessClaimsFromToken(pair.AccessToken, a.JWTSecret)
		if pErr != nil {
			clearAuthCookies(c)
			l.Error("identify_error", "status", 401, "reason", "refreshed token invalid", "error", pErr)
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid access token")
		}
		if err := setUser(c, newClaims); err != nil {
			clearAuthCookies(c)
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid access token")
		}
		return next(c)
	}
}

func (a *Authenticator) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, ok := UserID(c); !ok {
			return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
		}
		return next(c)
	}
}

func (a *Authenticator) RequireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if _, ok := UserID(c); !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
			}
			role := Role(c)
			for _, r := range roles {
				if r == role {
					return next(c)
				}
			}
			return echo.NewHTTPError(http.StatusForbidden, "insufficient role")
		}
	}
}

func UserID(c echo.Context) (uuid.UUID, bool) {
	id, ok := c.Get(CtxUserID).(uuid.UUID)
	return id, ok
}

func Role(c echo.Context) string {
	r, _ := c.Get(CtxRole).(string)
	return r
}

func SessionID(c echo.Context) string {
	s, _ := c.Get(CtxSessionID).(string)
	return s
}

func SetAuthCookies(c echo.Context, pair tokens.Pair) {
	c.SetCookie(tokens.CreateCookie(tokens.AccessCookie, pair.AccessToken, "/", pair.AccessExp))
	c.SetCookie(tokens.CreateCookie(tokens.RefreshCookie, pair.RefreshToken, "/", pair.RefreshExp))
}

func clearAuthCookies(c echo.Context) {
	c.SetCookie(tokens.DeleteCookie(tokens.AccessCookie, "/"))
	c.SetCookie(tokens.DeleteCookie(tokens.RefreshCookie, "/"))
}

func accessToken(c echo.Context) (string, bool) {
	if h := c.Request().Header.Get(echo.HeaderAuthorization); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(token), false
		}
	}
	if cookie, err := c.Cookie(tokens.AccessCookie); err == nil && cookie.Value != "" {
		return cookie.Value, true
	}
	return "", false
}

func setUser(c echo.Context, claims *tokens.AccessClaims) error {
	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return err
	}
	c.Set(CtxUserID, id)
	c.Set(CtxRole, claims.Role)
	return nil
}
