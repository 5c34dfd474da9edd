package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/jmehdipour/supplier-risk/internal/config"
	echo "github.com/labstack/echo/v4"
)

const (
	ctxClient    = "client"
	ctxClientRPS = "client_rps"
)

// ClientFromCtx returns the API client name set by APIKeyMiddleware.
func ClientFromCtx(c echo.Context) (string, bool) {
	name, ok := c.Get(ctxClient).(string)
	return name, ok && name != ""
}

// APIKeyMiddleware authenticates requests using the X-API-Key header against
// the configured keys. With no keys configured every request passes (dev).
func APIKeyMiddleware(keys []config.APIKeyConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		if len(keys) == 0 {
			return next
		}
		return func(c echo.Context) error {
			key := strings.TrimSpace(c.Request().Header.Get("X-API-Key"))
			if key == "" {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "missing api key"})
			}
			for _, k := range keys {
				if subtle.ConstantTimeCompare([]byte(key), []byte(k.Key)) == 1 {
					c.Set(ctxClient, k.Name)
					if k.RateLimitRPS > 0 {
						c.Set(ctxClientRPS, k.RateLimitRPS)
					}
					return next(c)
				}
			}
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid api key"})
		}
	}
}
