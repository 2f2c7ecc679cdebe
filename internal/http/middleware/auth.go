// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements bearer-token authentication. Tokens are issued by an
// external identity provider and verified locally against its published
// public key; on success the token subject and decoded claims are stored on
// the Gin context for handlers (and the rate limiter key function) to use.
package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/flashslides/go-credits-backend/internal/auth"
)

// TokenVerifier validates a compact JWT and returns its claims.
// The production implementation is auth.Verifier.
type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

const (
	ctxKeyUserID = "userID"
	ctxKeyClaims = "authClaims"
)

// UserID returns the authenticated subject stored by Auth, if any.
func UserID(c *gin.Context) (string, bool) {
	v, ok := c.Get(ctxKeyUserID)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok && s != ""
}

// TokenClaims returns the decoded token claims stored by Auth, if any.
func TokenClaims(c *gin.Context) (*auth.Claims, bool) {
	v, ok := c.Get(ctxKeyClaims)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*auth.Claims)
	return claims, ok
}

// Auth returns a Gin middleware that requires a valid bearer token.
//
// Responses use the standard error envelope:
//
//	HTTP/1.1 401 Unauthorized
//	{
//	  "request_id": "<uuid>",
//	  "code":       "auth_token_invalid",
//	  "message":    "invalid authentication token"
//	}
//
// Expired tokens get the dedicated code "auth_token_expired" so clients know
// to refresh rather than re-authenticate.
func Auth(v TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		// No verification key configured: every token is unverifiable.
		if v == nil {
			abortUnauthorized(c, "unauthorized", "authentication is not configured")
			return
		}

		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			abortUnauthorized(c, "unauthorized", "missing bearer token")
			return
		}

		claims, err := v.Verify(token)
		if err != nil {
			if errors.Is(err, auth.ErrTokenExpired) {
				abortUnauthorized(c, "auth_token_expired", "authentication token expired")
				return
			}
			abortUnauthorized(c, "auth_token_invalid", "invalid authentication token")
			return
		}

		c.Set(ctxKeyUserID, claims.Subject)
		c.Set(ctxKeyClaims, claims)
		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, code, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"request_id": c.Writer.Header().Get("X-Request-ID"),
		"code":       code,
		"message":    msg,
	})
}
