package auth

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

// Middleware guards routes by capability: any authenticated user, a seller
// acting for their shop, or an admin.
type Middleware struct {
	JWTSecret []byte
}

func (m *Middleware) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		claims, err := m.parseToken(c)
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "please login to continue")
		}
		setUserContext(c, claims)
		return next(c)
	}
}

func (m *Middleware) RequireSeller(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		claims, err := m.parseToken(c)
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "please login to continue")
		}
		if role, _ := claims["role"].(string); role != "seller" {
			return echo.NewHTTPError(http.StatusForbidden, "seller account required")
		}
		setUserContext(c, claims)
		return next(c)
	}
}

func (m *Middleware) RequireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		claims, err := m.parseToken(c)
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "please login to continue")
		}
		if role, _ := claims["role"].(string); role != "admin" {
			return echo.NewHTTPError(http.StatusForbidden, "admin account required")
		}
		setUserContext(c, claims)
		return next(c)
	}
}

// parseToken accepts either an Authorization bearer header or the accessToken
// cookie set at login.
func (m *Middleware) parseToken(c echo.Context) (jwt.MapClaims, error) {
	raw := ""
	if h := c.Request().Header.Get(echo.HeaderAuthorization); strings.HasPrefix(h, "Bearer ") {
		raw = strings.TrimPrefix(h, "Bearer ")
	} else if ck, err := c.Cookie("accessToken"); err == nil {
		raw = ck.Value
	}
	if raw == "" {
		return nil, fmt.Errorf("missing token")
	}

	token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signature method: %v", t.Header["alg"])
		}
		return m.JWTSecret, nil
	})
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("cannot parse claims")
	}
	return claims, nil
}

func setUserContext(c echo.Context, claims jwt.MapClaims) {
	if sub, ok := claims["sub"].(float64); ok {
		c.Set("userID", uint(sub))
	}
	if role, ok := claims["role"].(string); ok {
		c.Set("role", role)
	}
	if shop, ok := claims["shop"].(float64); ok {
		c.Set("shopID", uint(shop))
	}
	if name, ok := claims["name"].(string); ok {
		c.Set("userName", name)
	}
}

// UserID returns the authenticated user's id placed by the middleware.
func UserID(c echo.Context) (uint, error) {
	id, ok := c.Get("userID").(uint)
	if !ok {
		return 0, fmt.Errorf("no authenticated user in context")
	}
	return id, nil
}

// ShopID returns the seller's shop id placed by the middleware.
func ShopID(c echo.Context) (uint, error) {
	id, ok := c.Get("shopID").(uint)
	if !ok || id == 0 {
		return 0, fmt.Errorf("no seller shop in context")
	}
	return id, nil
}
