package middleware

import (
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/toll-settlement/internal/logger"
)

const loggerKey = "logger"

// RequestLogger logs every request once it has completed.  The child
// logger carrying the request id is stored in the context for handlers.
func RequestLogger(log *logger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			requestLogger := log.WithRequestID(GetRequestID(c))
			c.Set(loggerKey, requestLogger)

			err := next(c)
			if err != nil {
				// Render now so the logged status is the one sent.
				c.Error(err)
			}

			req := c.Request()
			status := c.Response().Status
			fields := map[string]interface{}{
				"method":      req.Method,
				"path":        req.URL.Path,
				"status":      status,
				"duration_ms": time.Since(start).Milliseconds(),
				"ip":          c.RealIP(),
			}
			if req.URL.RawQuery != "" {
				fields["query"] = req.URL.RawQuery
			}
			if cache := c.Response().Header().Get("X-Cache"); cache != "" {
				fields["cache"] = cache
			}

			switch {
			case status >= 500:
				requestLogger.Error("Request completed with server error", err, fields)
			case status >= 400:
				requestLogger.Warn("Request completed with client error", fields)
			default:
				requestLogger.Info("Request completed", fields)
			}
			return nil
		}
	}
}

// GetLogger retrieves the request logger, falling back to a no-op logger.
func GetLogger(c echo.Context) *logger.Logger {
	if l, ok := c.Get(loggerKey).(*logger.Logger); ok {
		return l
	}
	return logger.Nop()
}
