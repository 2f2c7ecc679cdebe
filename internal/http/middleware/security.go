// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// SecurityHeaders attaches a conservative header set for a JSON API sitting
// behind a reverse proxy: HSTS when the hop is actually HTTPS, no-store cache
// directives for sensitive responses, and browser feature policies. CSP is
// deliberately absent since the API never serves HTML.
package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// SecurityOptions selects which headers SecurityHeaders emits.
//
// EnableHSTS sends Strict-Transport-Security, but only on requests that
// arrived over HTTPS; leave it off unless the whole path, proxy to app
// included, is encrypted. HSTSMaxAge defaults to 180 days when unset.
// NoStore adds Cache-Control: no-store with the legacy Pragma and Expires
// companions. EnablePolicy adds Permissions-Policy and
// X-Permitted-Cross-Domain-Policies, which only browsers act on.
type SecurityOptions struct {
	EnableHSTS   bool
	HSTSMaxAge   time.Duration
	NoStore      bool
	EnablePolicy bool
}

// SecurityHeaders stamps every response with hardening headers.
// X-Content-Type-Options, X-Frame-Options and Referrer-Policy are always
// set; the feature-policy, no-store and HSTS groups follow SecurityOptions.
// HSTS is withheld on plain-HTTP requests regardless of configuration.
// When an X-Request-ID header is already on the response it is appended to
// Access-Control-Expose-Headers so browser clients can read it.
func SecurityHeaders(opt SecurityOptions) gin.HandlerFunc {
	maxAge := int(opt.HSTSMaxAge.Seconds())
	if maxAge <= 0 {
		maxAge = int((180 * 24 * time.Hour).Seconds())
	}
	return func(c *gin.Context) {
		h := c.Writer.Header()

		// Baseline hardening for APIs.
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")

		// Browser feature restrictions; non-browser clients ignore these.
		if opt.EnablePolicy {
			h.Set("Permissions-Policy", "geolocation=(), microphone=(), camera=(), payment=()")
			h.Set("X-Permitted-Cross-Domain-Policies", "none")
		}

		// Keep sensitive responses out of caches.
		if opt.NoStore {
			h.Set("Cache-Control", "no-store")
			h.Set("Pragma", "no-cache")
			h.Set("Expires", "0")
		}

		// Never advertise HSTS over plain HTTP.
		if opt.EnableHSTS && isHTTPS(c.Request) {
			h.Set("Strict-Transport-Security",
				"max-age="+itoa(maxAge)+"; includeSubDomains; preload")
		}

		// Let browser clients read the correlation id.
		if rid := h.Get("X-Request-ID"); rid != "" {
			// Preserve any headers already exposed.
			const hdr = "Access-Control-Expose-Headers"
			cur := h.Get(hdr)
			if cur == "" {
				h.Set(hdr, "X-Request-ID")
			} else if !strings.Contains(cur, "X-Request-ID") {
				h.Set(hdr, cur+", X-Request-ID")
			}
		}

		c.Next()
	}
}

// isHTTPS reports whether the request came in over TLS, either terminated
// here or at a proxy that set X-Forwarded-Proto.
func isHTTPS(r *http.Request) bool {
	if r.TLS != nil {
		return true
	}
	return strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}

// itoa formats an int in decimal without pulling in strconv.
func itoa(i int) string { return strconvItoa(i) }

// strconvItoa handles zero and negatives with a fixed stack buffer.
func strconvItoa(i int) string {
	if i == 0 {
		return "0"
	}
	neg := i < 0
	if neg {
		i = -i
	}
	var b [20]byte
	pos := len(b)
	for i > 0 {
		pos--
		b[pos] = byte('0' + i%10)
		i /= 10
	}
	if neg {
		pos--
		b[pos] = '-'
	}
	return string(b[pos:])
}
