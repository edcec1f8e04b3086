package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/storefront/pkg/tokens"
)

var secret = []byte("middleware-secret")

type stubRefresher struct {
	pair tokens.Pair
	err  error
	got  string
}

func (s *stubRefresher) Refresh(_ context.Context, refreshToken string) (tokens.Pair, error) {
	s.got = refreshToken
	return s.pair, s.err
}

func run(t *testing.T, a *Authenticator, req *http.Request, mws ...echo.MiddlewareFunc) (*httptest.ResponseRecorder, echo.Context, error) {
	t.Helper()
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	h := echo.HandlerFunc(func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	err := a.Identify(h)(c)
	return rec, c, err
}

func statusOf(t *testing.T, err error) int {
	t.Helper()
	var he *echo.HTTPError
	require.True(t, errors.As(err, &he), "expected echo.HTTPError, got %v", err)
	return he.Code
}

func TestIdentify_Anonymous(t *testing.T) {
	a := &Authenticator{JWTSecret: secret}
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	rec, c, err := run(t, a, req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
	_, ok := UserID(c)
	assert.False(t, ok)
}

func TestIdentify_BearerToken(t *testing.T) {
	a := &Authenticator{JWTSecret: secret}
	uid := uuid.New()
	tok, err := tokens.NewAccessToken(secret, uid.String(), "staff", time.Now().Add(time.Minute))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+tok)

	_, c, err := run(t, a, req, a.RequireRole("staff", "admin"))
	require.NoError(t, err)
	got, ok := UserID(c)
	require.True(t, ok)
	assert.Equal(t, uid, got)
	assert.Equal(t, "staff", Role(c))
}

func TestIdentify_SessionHeader(t *testing.T) {
	a := &Authenticator{JWTSecret: secret}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderSessionID, "guest-session-1")
	_, c, err := run(t, a, req)
	require.NoError(t, err)
	assert.Equal(t, "guest-session-1", SessionID(c))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderSessionID, "short")
	_, _, err = run(t, a, req)
	assert.Equal(t, http.StatusBadRequest, statusOf(t, err))
}

func TestIdentify_InvalidToken(t *testing.T) {
	a := &Authenticator{JWTSecret: secret}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer not-a-token")

	_, _, err := run(t, a, req)
	assert.Equal(t, http.StatusUnauthorized, statusOf(t, err))
}

func TestIdentify_RefreshesExpiredCookie(t *testing.T) {
	uid := uuid.New()
	expired, err := tokens.NewAccessToken(secret, uid.String(), "customer", time.Now().Add(-time.Minute))
	require.NoError(t, err)
	fresh, err := tokens.NewAccessToken(secret, uid.String(), "customer", time.Now().Add(time.Minute))
	require.NoError(t, err)

	ref := &stubRefresher{pair: tokens.Pair{
		AccessToken:  fresh,
		RefreshToken: "new-refresh",
		AccessExp:    time.Now().Add(time.Minute),
		RefreshExp:   time.Now().Add(time.Hour),
	}}
	a := &Authenticator{JWTSecret: secret, Refresher: ref}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: tokens.AccessCookie, Value: expired})
	req.AddCookie(&http.Cookie{Name: tokens.RefreshCookie, Value: "old-refresh"})

	rec, c, err := run(t, a, req, a.RequireAuth)
	require.NoError(t, err)
	assert.Equal(t, "old-refresh", ref.got)
	got, ok := UserID(c)
	require.True(t, ok)
	assert.Equal(t, uid, got)
	assert.Len(t, rec.Result().Cookies(), 2)
}

func TestIdentify_RefreshFailure(t *testing.T) {
	expired, err := tokens.NewAccessToken(secret, uuid.NewString(), "customer", time.Now().Add(-time.Minute))
	require.NoError(t, err)

	a := &Authenticator{JWTSecret: secret, Refresher: &stubRefresher{err: errors.New("revoked")}}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: tokens.AccessCookie, Value: expired})
	req.AddCookie(&http.Cookie{Name: tokens.RefreshCookie, Value: "old-refresh"})

	_, _, err = run(t, a, req)
	assert.Equal(t, http.StatusUnauthorized, statusOf(t, err))
}

func TestRequireRole(t *testing.T) {
	a := &Authenticator{JWTSecret: secret}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	_, _, err := run(t, a, req, a.RequireRole("admin"))
	assert.Equal(t, http.StatusUnauthorized, statusOf(t, err))

	tok, err := tokens.NewAccessToken(secret, uuid.NewString(), "customer", time.Now().Add(time.Minute))
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+tok)
	_, _, err = run(t, a, req, a.RequireRole("admin"))
	assert.Equal(t, http.StatusForbidden, statusOf(t, err))
}
