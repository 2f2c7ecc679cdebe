// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file covers request correlation and logging: RequestID assigns or
// propagates an X-Request-ID, Logger writes one structured access line per
// request and parks a request-scoped zerolog.Logger on the context, and
// Recovery turns panics into a JSON 500 that still carries the correlation
// id. LoggerFrom hands the scoped logger back to handlers and services.
//
// The intended order is RequestID, then Logger (or RedactingLogger), then
// Recovery, so both access lines and panic reports see the correlation id.
// Raw query strings are capped before logging, and the scoped logger lives
// under the "logger" context key.
package middleware

import (
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	// requestIDKey is where the correlation id lives on the Gin context.
	requestIDKey = "requestID"
	// requestIDHeader carries the correlation id across service hops.
	requestIDHeader = "X-Request-ID"
	// maxQueryLogLength bounds how much of the raw query ends up in logs.
	maxQueryLogLength = 2048
)

// RequestID gives every request a correlation id. An incoming X-Request-ID
// value is kept; otherwise a fresh UUIDv4 is minted. The id is echoed on the
// response header and stored on the context under "requestID". Mount this
// first so everything downstream can log and report against it.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(requestIDHeader)
		if rid == "" {
			rid = uuid.NewString()
		}
		c.Set(requestIDKey, rid)
		c.Writer.Header().Set(requestIDHeader, rid)
		c.Next()
	}
}

// Logger emits one structured access-log line per request: method, route
// (falling back to the raw path on 404), client ip, user agent, referer,
// correlation and user ids, request size, status, latency, and bytes out.
// The request-scoped zerolog.Logger it builds is stored under "logger" for
// downstream enrichment. Level follows the outcome: error for 5xx or when
// Gin accumulated errors, warn for 4xx, info otherwise. Mount after
// RequestID so the correlation id is present.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		// Request-scoped logger with the common fields baked in.
		rid, _ := c.Get(requestIDKey)
		uid, _ := c.Get("userID")
		path := c.FullPath()
		if path == "" {
			// No matched route, log the raw path.
			path = c.Request.URL.Path
		}

		l := log.With().
			Str("request_id", asString(rid)).
			Str("user_id", asString(uid)).
			Str("method", c.Request.Method).
			Str("path", path).
			Str("remote_ip", c.ClientIP()).
			Str("user_agent", c.Request.UserAgent()).
			Str("referer", c.Request.Referer()).
			Str("query", truncate(c.Request.URL.RawQuery, maxQueryLogLength)).
			// -1 means the client did not declare a length.
			Int64("bytes_in", c.Request.ContentLength).
			Logger()

		// Downstream code picks this up via LoggerFrom.
		c.Set("logger", &l)

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()
		bytesOut := c.Writer.Size()

		// Emit at a level matching the response status.
		ev := l.With().
			Int("status", status).
			Dur("latency", latency).
			Int("bytes_out", bytesOut).
			Logger()

		switch {
		// Errors recorded on the context force error level.
		case len(c.Errors) > 0:
			ev.Error().Str("errors", c.Errors.String()).Msg("request")
		case status >= 500:
			ev.Error().Msg("request")
		case status >= 400:
			ev.Warn().Msg("request")
		default:
			ev.Info().Msg("request")
		}
	}
}

// Recovery catches panics, logs the value and stack with the request id,
// and answers with the standard JSON envelope
// {"request_id", "code": "internal_error", "message"} when nothing has been
// written yet. Mount after Logger so the report carries request context.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				rid, _ := c.Get(requestIDKey)
				log.Error().
					Interface("panic", rec).
					Bytes("stack", debug.Stack()).
					Str("request_id", asString(rid)).
					Msg("panic recovered")

				// Skip the body if a handler already wrote one.
				if !c.Writer.Written() {
					c.Header("Content-Type", "application/json")
					c.Header(requestIDHeader, asString(rid))
					c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
						"request_id": asString(rid),
						"code":       "internal_error",
						"message":    "internal server error",
					})
					return
				}
				c.AbortWithStatus(http.StatusInternalServerError)
			}
		}()
		c.Next()
	}
}

// LoggerFrom returns the request-scoped zerolog.Logger attached by Logger,
// or a plain global-backed logger when none is present. Never nil.
func LoggerFrom(c *gin.Context) *zerolog.Logger {
	if v, ok := c.Get("logger"); ok {
		if lg, ok := v.(*zerolog.Logger); ok {
			return lg
		}
	}
	l := log.With().Logger()
	return &l
}

// asString narrows a context value to string, or "" when it is not one.
func asString(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// truncate caps s at max bytes, appending an ellipsis when cut. max <= 0
// disables the cap. Byte-based, which is fine for log output.
func truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	return s[:max] + "…"
}
