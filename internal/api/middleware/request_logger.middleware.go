package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/vigilops/vigil-core/pkg/logger"
)

// RequestLogger logs HTTP requests for VIGIL-CORE observability
func RequestLogger(log logger.Logger) gin.HandlerFunc {
	return gin.LoggerWithFormatter(func(param gin.LogFormatterParams) string {
		statusCode := param.StatusCode
		logLevel := "info"
		if statusCode >= 400 && statusCode < 500 {
			logLevel = "warn"
		} else if statusCode >= 500 {
			logLevel = "error"
		}

		fields := []interface{}{
			"method", param.Method,
			"path", param.Path,
			"status", statusCode,
			"latency", param.Latency,
			"client_ip", param.ClientIP,
			"user_agent", param.Request.UserAgent(),
			"request_id", param.Request.Header.Get("X-Request-ID"),
			"content_length", param.Request.ContentLength,
		}
		if param.ErrorMessage != "" {
			fields = append(fields, "error", param.ErrorMessage)
		}

		switch logLevel {
		case "warn":
			log.Warn("HTTP Request", fields...)
		case "error":
			log.Error("HTTP Request", fields...)
		default:
			log.Info("HTTP Request", fields...)
		}

		return ""
	})
}
