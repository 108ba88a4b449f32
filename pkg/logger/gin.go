package logger

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	headerRequestID = "X-Request-Id"
	ginLoggerKey    = "logger"
	// ginCompanyKey is set by the auth middleware once a token is verified.
	ginCompanyKey = "company_id"
)

// Middleware injects a request-scoped logger carrying request_id into both the gin
// context and the request context, then logs one summary line per request.
func Middleware(l *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		rid := c.GetHeader(headerRequestID)
		if rid == "" {
			rid = uuid.NewString()
		}
		c.Writer.Header().Set(headerRequestID, rid)

		reqLogger := l.With("request_id", rid)
		c.Set(ginLoggerKey, reqLogger)
		c.Request = c.Request.WithContext(With(c.Request.Context(), reqLogger))

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		attrs := []any{
			"method", c.Request.Method,
			"path", path,
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
		}
		if cid := c.GetString(ginCompanyKey); cid != "" {
			attrs = append(attrs, "company_id", cid)
		}

		switch {
		case len(c.Errors) > 0:
			reqLogger.Error("request", append(attrs, "errors", c.Errors.String())...)
		case c.Writer.Status() >= 500:
			reqLogger.Error("request", attrs...)
		default:
			reqLogger.Info("request", attrs...)
		}
	}
}

// FromGin returns the request-scoped logger, preferring the request context so
// attributes added with WithAttrs are kept.
func FromGin(c *gin.Context) *slog.Logger {
	if l, ok := c.Request.Context().Value(ctxKey{}).(*slog.Logger); ok && l != nil {
		return l
	}
	if v, ok := c.Get(ginLoggerKey); ok {
		if l, ok := v.(*slog.Logger); ok && l != nil {
			return l
		}
	}
	return slog.Default()
}
