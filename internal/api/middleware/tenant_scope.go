package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// Scoping headers sent by the session client.
const (
	HeaderTenantID   = "X-Tenant-Id"
	HeaderLocationID = "X-Location-Id"
	HeaderDeviceID   = "X-Device-Id"
)

// TenantScope copies the tenant/location/device headers into the echo
// context and into a request-scoped logger stored under "logger".
// Empty or whitespace-only values are ignored.
func TenantScope(log zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			lc := log.With().Str("request_id", c.Response().Header().Get(echo.HeaderXRequestID))
			for header, key := range map[string]string{
				HeaderTenantID:   "tenant_id",
				HeaderLocationID: "location_id",
				HeaderDeviceID:   "device_id",
			} {
				v := strings.TrimSpace(c.Request().Header.Get(header))
				if v == "" {
					continue
				}
				c.Set(key, v)
				lc = lc.Str(key, v)
			}
			c.Set("logger", lc.Logger())
			return next(c)
		}
	}
}

// Logger returns the request-scoped logger set by TenantScope, or fallback.
func Logger(c echo.Context, fallback zerolog.Logger) zerolog.Logger {
	if l, ok := c.Get("logger").(zerolog.Logger); ok {
		return l
	}
	return fallback
}
