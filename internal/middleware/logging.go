package middleware

import (
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/museum-booking/internal/logger"
)

// AccessLog writes one structured line per request.  It runs after
// RequestID so req_id is populated.
func AccessLog(log *logger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			args := []any{
				"method", c.Request().Method,
				"path", c.Path(),
				"status", c.Response().Status,
				"latency_ms", time.Since(start).Milliseconds(),
				"req_id", c.Response().Header().Get(echo.HeaderXRequestID),
				"ip", c.RealIP(),
				"ua", c.Request().UserAgent(),
			}
			if id := IdentityFrom(c); id.UserID != 0 {
				args = append(args, "user_id", id.UserID)
			}
			if c.Response().Status >= 500 {
				log.Error("http", args...)
			} else {
				log.Info("http", args...)
			}
			return nil
		}
	}
}
