package web

import (
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const requestIDKey = "request_id"

// RequestID sets/propagates a request ID.
func RequestID() Handler {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Writer.Header().Set("X-Request-ID", id)
		c.Set(requestIDKey, id)
		c.Next()
	}
}

// AccessLog writes a structured access log after the request completes.
// Unmatched paths are logged with their raw URL path.
func AccessLog(l *slog.Logger) Handler {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		l.Info("http_access",
			"method", c.Request.Method,
			"path", path,
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"ip", c.ClientIP(),
			"req_id", c.GetString(requestIDKey),
		)
	}
}

// RecoveryProblem converts panics in handlers, module handlers included, to
// RFC 7807 problem responses.
func RecoveryProblem(l *slog.Logger) Handler {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				l.Error("panic", "error", rec, "path", c.Request.URL.Path, "req_id", c.GetString(requestIDKey))
				Problem(c, http.StatusInternalServerError, "unexpected server error")
			}
		}()
		c.Next()
	}
}

// CORS answers cross-origin requests from origins. "*" allows any origin.
// Origins other than "*" must carry an http:// or https:// scheme.
func CORS(origins []string) Handler {
	cfg := cors.Config{
		AllowMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPut,
			http.MethodPatch, http.MethodDelete, http.MethodOptions,
		},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"},
		ExposeHeaders: []string{"X-Request-ID"},
		MaxAge:        12 * time.Hour,
	}
	if slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cors.New(cfg)
}

// Problem aborts the request with an application/problem+json body.
func Problem(c *gin.Context, status int, detail string) {
	c.Header("Content-Type", "application/problem+json")
	c.AbortWithStatusJSON(status, gin.H{
		"type":   "about:blank",
		"title":  http.StatusText(status),
		"status": status,
		"detail": detail,
	})
}
