package app

import (
	"log/slog"
	"strconv"
	"time"

	"tkj_lending_tool/metrics"

	"github.com/gin-gonic/gin"
)

// RequestLog logs every request at Debug, or at Warn/Error for 4xx/5xx, and counts it.
func RequestLog(log *slog.Logger, m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		now := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		m.HTTPRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Inc()

		level := slog.LevelDebug
		switch {
		case status >= 500:
			level = slog.LevelError
		case status >= 400:
			level = slog.LevelWarn
		}
		log.LogAttrs(c.Request.Context(), level, "request served",
			slog.Duration("delay", time.Since(now)),
			slog.String("method", c.Request.Method),
			slog.String("uri", c.Request.URL.RequestURI()),
			slog.String("route", route),
			slog.Int("status", status),
			slog.Int("response_length", c.Writer.Size()),
			slog.String("client_ip", c.ClientIP()),
		)
	}
}
