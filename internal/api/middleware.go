package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/tazhate/dronecal/internal/domain"
)

const tenantKey = "tenant"

// Claims carried by dashboard tokens. The subject is the user id.
type Claims struct {
	CompanyID string `json:"company_id"`
	jwt.RegisteredClaims
}

func extractBearer(c echo.Context) (string, error) {
	h := c.Request().Header.Get("Authorization")
	if h == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "MISSING_AUTH_HEADER")
	}
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "INVALID_AUTH_HEADER")
	}
	return parts[1], nil
}

// RequireAuth verifies an HS256 token and stores the tenant in the context.
func RequireAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			tok, err := extractBearer(c)
			if err != nil {
				return err
			}
			token, err := jwt.ParseWithClaims(tok, &Claims{}, func(t *jwt.Token) (any, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, echo.NewHTTPError(http.StatusUnauthorized, "INVALID_TOKEN_METHOD")
				}
				return []byte(secret), nil
			})
			if err != nil || !token.Valid {
				return echo.NewHTTPError(http.StatusUnauthorized, "INVALID_TOKEN")
			}
			claims, ok := token.Claims.(*Claims)
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "INVALID_CLAIMS")
			}
			if claims.ExpiresAt != nil && time.Now().After(claims.ExpiresAt.Time) {
				return echo.NewHTTPError(http.StatusUnauthorized, "TOKEN_EXPIRED")
			}

			tenant := domain.Tenant{CompanyID: claims.CompanyID, UserID: claims.Subject}
			if tenant.CompanyID == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "MISSING_COMPANY")
			}
			c.Set(tenantKey, tenant)
			return next(c)
		}
	}
}

func tenantFrom(c echo.Context) domain.Tenant {
	t, _ := c.Get(tenantKey).(domain.Tenant)
	return t
}

// SignToken issues a dashboard token. Used by tests and the seed command.
func SignToken(secret string, tenant domain.Tenant, ttl time.Duration) (string, error) {
	claims := Claims{
		CompanyID: tenant.CompanyID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   tenant.UserID,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
