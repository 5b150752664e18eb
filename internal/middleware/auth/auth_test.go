package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
)

var secret = []byte("test-secret")

func signToken(t *testing.T, role string, shopID uint) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub":  float64(7),
		"role": role,
		"name": "Test User",
		"shop": float64(shopID),
		"exp":  time.Now().Add(15 * time.Minute).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	require.NoError(t, err)
	return token
}

func doRequest(token string, viaCookie bool) echo.Context {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if token != "" {
		if viaCookie {
			req.AddCookie(&http.Cookie{Name: "accessToken", Value: token})
		} else {
			req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
		}
	}
	return e.NewContext(req, httptest.NewRecorder())
}

func next(c echo.Context) error { return c.NoContent(http.StatusOK) }

func TestRequireAuthSetsContext(t *testing.T) {
	m := &Middleware{JWTSecret: secret}
	c := doRequest(signToken(t, "user", 0), false)

	require.NoError(t, m.RequireAuth(next)(c))

	id, err := UserID(c)
	require.NoError(t, err)
	require.Equal(t, uint(7), id)
	require.Equal(t, "user", c.Get("role"))
}

func TestRequireAuthFromCookie(t *testing.T) {
	m := &Middleware{JWTSecret: secret}
	c := doRequest(signToken(t, "user", 0), true)

	require.NoError(t, m.RequireAuth(next)(c))
}

func TestRequireAuthMissingToken(t *testing.T) {
	m := &Middleware{JWTSecret: secret}
	c := doRequest("", false)

	err := m.RequireAuth(next)(c)
	require.Error(t, err)
	require.Equal(t, http.StatusUnauthorized, err.(*echo.HTTPError).Code)
}

func TestRequireSeller(t *testing.T) {
	m := &Middleware{JWTSecret: secret}

	c := doRequest(signToken(t, "seller", 3), false)
	require.NoError(t, m.RequireSeller(next)(c))

	shopID, err := ShopID(c)
	require.NoError(t, err)
	require.Equal(t, uint(3), shopID)

	c = doRequest(signToken(t, "user", 0), false)
	err = m.RequireSeller(next)(c)
	require.Error(t, err)
	require.Equal(t, http.StatusForbidden, err.(*echo.HTTPError).Code)
}

func TestRequireAdmin(t *testing.T) {
	m := &Middleware{JWTSecret: secret}

	c := doRequest(signToken(t, "admin", 0), false)
	require.NoError(t, m.RequireAdmin(next)(c))

	c = doRequest(signToken(t, "seller", 3), false)
	err := m.RequireAdmin(next)(c)
	require.Error(t, err)
	require.Equal(t, http.StatusForbidden, err.(*echo.HTTPError).Code)
}

func TestRejectsExpiredToken(t *testing.T) {
	m := &Middleware{JWTSecret: secret}
	claims := jwt.MapClaims{
		"sub":  float64(7),
		"role": "user",
		"exp":  time.Now().Add(-1 * time.Minute).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	require.NoError(t, err)

	c := doRequest(token, false)
	authErr := m.RequireAuth(next)(c)
	require.Error(t, authErr)
	require.Equal(t, http.StatusUnauthorized, authErr.(*echo.HTTPError).Code)
}
