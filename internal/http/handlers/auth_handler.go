// Authentication HTTP handlers.
//
// This file exposes the endpoint that exchanges an externally issued identity
// token for a local user record:
//   - POST /authenticate-jwt
//
// Handlers are transport-thin: they validate input, call application services,
// and translate results into HTTP responses. It also declares the service
// contracts and handler wiring shared by the rest of the package.
package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/flashslides/go-credits-backend/internal/auth"
	"github.com/flashslides/go-credits-backend/internal/domain"
	"github.com/flashslides/go-credits-backend/internal/gateway"
	"github.com/flashslides/go-credits-backend/internal/http/middleware"
	"github.com/flashslides/go-credits-backend/internal/services"
)

//
// Service contracts (context-aware)
//

// AuthService resolves verified token claims to local users.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type AuthService interface {
	// Authenticate resolves the token subject to a local user, provisioning
	// one on first sight.
	Authenticate(ctx context.Context, claims *auth.Claims, body services.AuthRequest) (*services.AuthResult, error)
}

// BillingService defines the credit purchase operations consumed by HTTP
// handlers.
type BillingService interface {
	// CreateCheckoutSession returns a hosted payment page URL for an option key.
	CreateCheckoutSession(ctx context.Context, userID, option string) (string, error)
	// ProcessPayment reconciles a verified payment-completion event.
	ProcessPayment(ctx context.Context, ev *gateway.PaymentEvent) error
	// ListTransactions returns a page of the user's purchases and the total count.
	ListTransactions(ctx context.Context, userID string, page, pageSize int) ([]domain.Transaction, int64, error)
}

// ProfileService defines the user profile operations consumed by HTTP handlers.
type ProfileService interface {
	// Get returns the user's profile record.
	Get(ctx context.Context, userID string) (*domain.User, error)
	// Update applies a partial profile update.
	Update(ctx context.Context, userID string, upd services.ProfileUpdate) error
	// CheckEmailAvailability reports whether email can be claimed by userID.
	CheckEmailAvailability(ctx context.Context, userID, email string) (bool, error)
}

// WebhookParser authenticates raw webhook deliveries and extracts payment
// events. The production implementation is gateway.WebhookVerifier.
type WebhookParser interface {
	Parse(payload []byte, sigHeader string) (*gateway.PaymentEvent, error)
}

//
// Handler wiring
//

// Handlers groups HTTP endpoints for authentication, billing, and profiles.
// It depends on abstract service interfaces to keep transport concerns
// separate from business logic.
type Handlers struct {
	authSvc    AuthService
	billingSvc BillingService
	profileSvc ProfileService
	webhook    WebhookParser
}

// New constructs and returns a Handlers instance bound to the given services.
func New(authSvc AuthService, billingSvc BillingService, profileSvc ProfileService, webhook WebhookParser) *Handlers {
	return &Handlers{authSvc: authSvc, billingSvc: billingSvc, profileSvc: profileSvc, webhook: webhook}
}

// userID extracts the authenticated user id from Gin context (set by the auth
// middleware). An empty result means the request is unauthenticated.
func userID(c *gin.Context) string {
	if id, ok := middleware.UserID(c); ok {
		return id
	}
	return ""
}

//
// Handlers
//

// AuthenticateJWT godoc
// @ID          authenticateJWT
// @Summary     Authenticate with an identity-provider token
// @Description Validates the bearer token and lazily provisions a local user record on first sight.
// @Tags        Authentication
// @Accept      json
// @Produce     json
// @Security    BearerAuth
//
// @Param       body  body  services.AuthRequest  false  "Optional email/full name overrides"
//
// @Success     200  {object}  services.AuthResult
// @Failure     401  {object}  handlers.ErrorResponse  "Invalid or expired token"
// @Failure     422  {object}  handlers.ErrorResponse  "Token subject or email unusable"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /authenticate-jwt [post]
func (h *Handlers) AuthenticateJWT(c *gin.Context) {
	claims, hasClaims := middleware.TokenClaims(c)
	if !hasClaims {
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "missing token claims")
		return
	}

	// The body is optional; a missing or malformed one is treated as empty.
	var body services.AuthRequest
	_ = c.ShouldBindJSON(&body)

	res, err := h.authSvc.Authenticate(c.Request.Context(), claims, body)
	switch {
	case errors.Is(err, services.ErrInvalidUserID):
		fail(c, http.StatusUnprocessableEntity, ErrCodeInvalidUserData, "invalid user ID in authentication token")
	case errors.Is(err, services.ErrEmailRequired):
		fail(c, http.StatusUnprocessableEntity, ErrCodeMissingEmail, "email is required for user creation")
	case err != nil:
		fail(c, http.StatusInternalServerError, ErrCodeUserCreationFailure, "user creation failed")
	default:
		ok(c, http.StatusOK, res)
	}
}
