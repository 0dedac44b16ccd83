package httpserver

import (
	"net/http"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/and161185/gophpress/internal/auth"
	"github.com/and161185/gophpress/internal/logging"
	"github.com/and161185/gophpress/internal/observability"
)

const (
	// HeaderRequestID carries the per-request ULID back to the client.
	HeaderRequestID = "X-Request-ID"

	loggerKey    = "gp.http.logger"
	requestIDKey = "gp.http.request_id"
)

func loggerFrom(c *gin.Context, fallback *zap.Logger) *zap.Logger {
	if v, ok := c.Get(loggerKey); ok {
		if l, ok := v.(*zap.Logger); ok {
			return l
		}
	}
	return fallback
}

// RequestID returns the ULID assigned by RequestLogger.
func RequestID(c *gin.Context) string { return c.GetString(requestIDKey) }

// RequestLogger assigns a request id and logs one line per request after it completes.
func RequestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		id := ulid.Make().String()
		c.Set(requestIDKey, id)
		c.Set(loggerKey, log.With(zap.String("request_id", id)))
		c.Header(HeaderRequestID, id)

		c.Next()

		status := c.Writer.Status()
		l := logging.WithTrace(c.Request.Context(), loggerFrom(c, log))
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("route", c.FullPath()),
			zap.Int("status", status),
			zap.Duration("dur", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		switch {
		case status >= http.StatusInternalServerError:
			l.Error("http", fields...)
		case status >= http.StatusBadRequest:
			l.Warn("http", fields...)
		default:
			l.Info("http", fields...)
		}
	}
}

// Recovery turns a handler panic into an opaque 500.
func Recovery(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				loggerFrom(c, log).Error("panic",
					zap.Any("reason", r),
					zap.ByteString("stack", debug.Stack()),
					zap.String("route", c.FullPath()),
				)
				c.AbortWithStatusJSON(http.StatusInternalServerError,
					ErrorBody{Error: ErrorDetail{Code: "internal", Message: "internal"}})
			}
		}()
		c.Next()
	}
}

// Metrics records request count and latency per route template and status.
func Metrics(m *observability.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.ObserveRequest("http", c.Request.Method+" "+route, strconv.Itoa(c.Writer.Status()), time.Since(start).Seconds())
	}
}

// Authenticate resolves the x-auth-token header into an identity on the request context.
// With required false, requests without a token pass anonymously. A token that is sent is always checked.
func Authenticate(g *auth.Guard, log *zap.Logger, required bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := auth.TokenFromHeaders(c.GetHeader(auth.HeaderToken), c.GetHeader(auth.HeaderAuthorization))
		if raw == "" && !required {
			c.Next()
			return
		}
		id, err := g.Authenticate(c.Request.Context(), raw)
		if err != nil {
			abortWithError(c, log, err)
			return
		}
		c.Request = c.Request.WithContext(auth.WithIdentity(c.Request.Context(), id))
		c.Next()
	}
}
