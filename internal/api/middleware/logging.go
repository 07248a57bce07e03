package middleware

import (
	"fmt"

	"github.com/gin-gonic/gin"
)

func LogApi() gin.HandlerFunc {
	return gin.LoggerWithConfig(gin.LoggerConfig{
		Formatter: func(param gin.LogFormatterParams) string {
			return fmt.Sprintf("[%s] | %s | %d | %s | %s | %s | %s | %s\n",
				param.TimeStamp.Format("2006-01-02 15:04:05"),
				param.ClientIP,
				param.StatusCode,
				param.Method,
				// param.Path carries the query string, which may hold a session token
				param.Request.URL.Path,
				param.Request.UserAgent(),
				param.ErrorMessage,
				param.Latency,
			)
		},
		SkipPaths: []string{"/healthz"},
	})
}
