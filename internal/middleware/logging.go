package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"scrape-portal/internal/logger"
)

// RequestLogger logs one line per request through the global zap logger.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []interface{}{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
			"client_ip", c.ClientIP(),
		}
		if email := c.GetString(UserEmailKey); email != "" {
			fields = append(fields, "user", email)
		}
		if len(c.Errors) > 0 {
			fields = append(fields, "errors", c.Errors.String())
		}

		switch status := c.Writer.Status(); {
		case status >= 500:
			logger.Logger.Errorw("Request failed", fields...)
		case status >= 400:
			logger.Logger.Warnw("Request rejected", fields...)
		default:
			logger.Logger.Infow("Request", fields...)
		}
	}
}
