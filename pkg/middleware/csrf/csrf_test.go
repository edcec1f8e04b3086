package csrf

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/storefront/pkg/tokens"
)

func newServer() *echo.Echo {
	e := echo.New()
	e.Use(Middleware(false))
	ok := func(c echo.Context) error { return c.NoContent(http.StatusOK) }
	e.GET("/cart", ok)
	e.POST("/cart", ok)
	return e
}

func serve(e *echo.Echo, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestMiddleware_SkipsWithoutCookieSession(t *testing.T) {
	e := newServer()

	req := httptest.NewRequest(http.MethodPost, "/cart", nil)
	assert.Equal(t, http.StatusOK, serve(e, req).Code)

	req = httptest.NewRequest(http.MethodPost, "/cart", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer abc")
	req.AddCookie(&http.Cookie{Name: tokens.AccessCookie, Value: "jwt"})
	assert.Equal(t, http.StatusOK, serve(e, req).Code)
}

func TestMiddleware_CookieSessionNeedsToken(t *testing.T) {
	e := newServer()
	session := &http.Cookie{Name: tokens.AccessCookie, Value: "jwt"}

	req := httptest.NewRequest(http.MethodGet, "/cart", nil)
	req.AddCookie(session)
	rec := serve(e, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var token string
	for _, c := range rec.Result().Cookies() {
		if c.Name == CookieName {
			token = c.Value
		}
	}
	require.NotEmpty(t, token)

	req = httptest.NewRequest(http.MethodPost, "/cart", nil)
	req.AddCookie(session)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: token})
	assert.GreaterOrEqual(t, serve(e, req).Code, http.StatusBadRequest)

	req = httptest.NewRequest(http.MethodPost, "/cart", nil)
	req.AddCookie(session)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: token})
	req.Header.Set(HeaderName, token)
	assert.Equal(t, http.StatusOK, serve(e, req).Code)
}
