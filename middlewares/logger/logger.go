package logger

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joy095/marketplace/logger"
	"github.com/sirupsen/logrus"
)

// GinLogger writes one structured line per request.
func GinLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		entry := logger.InfoLogger.WithFields(logrus.Fields{
			"method":    c.Request.Method,
			"path":      c.Request.URL.Path,
			"status":    status,
			"latency":   time.Since(start).String(),
			"client_ip": c.ClientIP(),
		})

		switch {
		case len(c.Errors) > 0:
			entry.Error(c.Errors.String())
		case status >= 500:
			entry.Error("request failed")
		default:
			entry.Info("request served")
		}
	}
}
