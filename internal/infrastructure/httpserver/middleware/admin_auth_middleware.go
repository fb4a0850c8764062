package middleware

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

// AdminAuthMiddleware guards the administrative surface (cache clear/prune,
// stats, usage logs) with HS256 bearer tokens minted from a shared secret.
type AdminAuthMiddleware struct {
	secret []byte
	logger *logrus.Logger
}

func NewAdminAuthMiddleware(secret string, logger *logrus.Logger) *AdminAuthMiddleware {
	return &AdminAuthMiddleware{secret: []byte(secret), logger: logger}
}

// MintAdminToken issues an HS256 bearer token that RequireAdminJWT accepts,
// expiring after ttl. Operators mint these with the admintoken command.
func MintAdminToken(secret string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"role": "admin",
		"iat":  now.Unix(),
		"exp":  now.Add(ttl).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// RequireAdminJWT validates the bearer token and rejects non-admin subjects.
func (m *AdminAuthMiddleware) RequireAdminJWT() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			if !strings.HasPrefix(header, "Bearer ") {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing bearer token")
			}
			tokenString := strings.TrimPrefix(header, "Bearer ")

			token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
				}
				return m.secret, nil
			})
			if err != nil || !token.Valid {
				if m.logger != nil {
					m.logger.WithFields(logrus.Fields{"ip": c.RealIP(), "path": c.Request().URL.Path}).Warn("admin token rejected")
				}
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid admin token")
			}

			claims, ok := token.Claims.(jwt.MapClaims)
			if !ok || claims["role"] != "admin" {
				return echo.NewHTTPError(http.StatusForbidden, "admin role required")
			}
			return next(c)
		}
	}
}
