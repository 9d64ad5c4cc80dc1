package server

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ai-den/jsongrammar/logutil"
)

const requestIDHeader = "X-Request-Id"

// requestIDMiddleware tags each request with an ID, reusing one supplied
// by the client if it parses as a UUID.
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := uuid.Parse(c.GetHeader(requestIDHeader))
		if err != nil {
			id = uuid.New()
		}

		c.Set(requestIDHeader, id.String())
		c.Header(requestIDHeader, id.String())
		c.Next()
	}
}

func loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		attrs := []any{
			"id", c.GetString(requestIDHeader),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		}

		if c.Writer.Status() >= 500 {
			slog.Error("request", attrs...)
		} else if c.Request.URL.Path == "/" {
			logutil.Trace("request", attrs...)
		} else {
			slog.Debug("request", attrs...)
		}
	}
}
