// Billing HTTP handlers.
//
// This file exposes REST endpoints for the credit purchase flow:
//   - POST /create-checkout-session  (authenticated)
//   - POST /stripe-webhook           (unauthenticated, signature-verified)
//   - GET  /billing/transactions     (authenticated, paginated, ETag support)
//
// The webhook endpoint always acknowledges with 200. Malformed or
// unauthenticated payloads will never become valid on retry, and the gateway
// retries aggressively on any other status, so failures are logged and
// alerted on rather than surfaced.
package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/flashslides/go-credits-backend/internal/domain"
	"github.com/flashslides/go-credits-backend/internal/repo"
	"github.com/flashslides/go-credits-backend/internal/services"
	"github.com/flashslides/go-credits-backend/internal/utils"
)

//
// DTOs
//

// CheckoutSessionRequest is the JSON payload for creating a checkout session.
type CheckoutSessionRequest struct {
	// CreditOption selects the package: one of 500, 1000, 2500, 5000, 10000.
	CreditOption string `json:"credit_option" binding:"required" example:"2500"`
}

// CheckoutSessionResponse carries the hosted payment page URL.
type CheckoutSessionResponse struct {
	URL string `json:"url" example:"https://checkout.stripe.com/c/pay/cs_test_123"`
}

// WebhookResponse is the neutral acknowledgement body for webhook deliveries.
type WebhookResponse struct {
	Status string `json:"status" example:"success"`
}

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// ListTransactionsResponse wraps a page of transactions and pagination
// information.
type ListTransactionsResponse struct {
	Transactions []domain.Transaction `json:"transactions"`
	Pagination   Pagination           `json:"pagination"`
}

//
// Helpers
//

// clampPagination parses and bounds page and page_size query params to sane
// defaults and limits, returning (page, pageSize).
func clampPagination(c *gin.Context) (page, pageSize int) {
	const (
		defaultPage     = 1
		defaultPageSize = 20
		maxPageSize     = 100
	)
	page = utils.AtoiDefault(c.Query("page"), defaultPage)
	if page < 1 {
		page = 1
	}
	pageSize = utils.AtoiDefault(c.Query("page_size"), defaultPageSize)
	if pageSize < 1 {
		pageSize = 1
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return
}

//
// Handlers
//

// CreateCheckoutSession godoc
// @ID          createCheckoutSession
// @Summary     Create a checkout session
// @Description Maps a credit-option key to its package and returns the hosted payment page URL.
// @Tags        Billing
// @Accept      json
// @Produce     json
// @Security    BearerAuth
//
// @Param       body  body  handlers.CheckoutSessionRequest  true  "Credit package selection"
//
// @Success     200  {object}  handlers.CheckoutSessionResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "User not found"
// @Failure     502  {object}  handlers.ErrorResponse  "Payment gateway error"
// @Router      /create-checkout-session [post]
func (h *Handlers) CreateCheckoutSession(c *gin.Context) {
	uid := userID(c)
	if uid == "" {
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "authentication required")
		return
	}

	var req CheckoutSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "credit_option is required")
		return
	}

	url, err := h.billingSvc.CreateCheckoutSession(c.Request.Context(), uid, req.CreditOption)
	switch {
	case err == nil:
		ok(c, http.StatusOK, CheckoutSessionResponse{URL: url})
	case errors.Is(err, services.ErrUnknownCreditOption):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "unknown credit option")
	case errors.Is(err, services.ErrInvalidUserID):
		fail(c, http.StatusUnprocessableEntity, ErrCodeInvalidUserData, "invalid user ID in authentication token")
	case errors.Is(err, services.ErrUserNotFound):
		fail(c, http.StatusNotFound, ErrCodeUserNotFound, "user not found in the database")
	case errors.Is(err, services.ErrGateway):
		fail(c, http.StatusBadGateway, ErrCodeGatewayError, "payment gateway rejected the request")
	default:
		fail(c, http.StatusInternalServerError, ErrCodeCheckoutFailed, "failed to create checkout session")
	}
}

// StripeWebhook godoc
// @ID          stripeWebhook
// @Summary     Receive payment gateway webhooks
// @Description Verifies the Stripe-Signature header and reconciles checkout.session.completed events. Always responds 200.
// @Tags        Billing
// @Accept      json
// @Produce     json
//
// @Param       Stripe-Signature  header  string  true  "Webhook signature header"
//
// @Success     200  {object}  handlers.WebhookResponse
// @Router      /stripe-webhook [post]
func (h *Handlers) StripeWebhook(c *gin.Context) {
	ack := WebhookResponse{Status: "success"}

	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		log.Warn().Err(err).Msg("failed to read webhook payload")
		ok(c, http.StatusOK, ack)
		return
	}

	ev, err := h.webhook.Parse(payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		log.Warn().Err(err).Msg("invalid webhook delivery")
		ok(c, http.StatusOK, ack)
		return
	}
	if ev == nil {
		// Event type we do not consume.
		ok(c, http.StatusOK, ack)
		return
	}

	if err := h.billingSvc.ProcessPayment(c.Request.Context(), ev); err != nil {
		// Acknowledge anyway: the gateway would retry forever and the
		// failure is already logged and counted for alerting.
		log.Error().Err(err).Str("session_id", ev.SessionID).
			Msg("webhook reconciliation failed")
	}
	ok(c, http.StatusOK, ack)
}

// ListTransactions godoc
// @ID          listTransactions
// @Summary     List credit purchases (paginated)
// @Description Returns a page of the user's transactions, newest first. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Billing
// @Produce     json
// @Security    BearerAuth
//
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"  example(W/\"abc123\")
// @Param       page           query   int     false "Page number"                  minimum(1) default(1)
// @Param       page_size      query   int     false "Items per page"               minimum(1) maximum(100) default(20)
//
// @Success     200  {object} handlers.ListTransactionsResponse
// @Header      200  {string} ETag  "Weak ETag for current result"
// @Success     304  {string} string "Not Modified"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /billing/transactions [get]
func (h *Handlers) ListTransactions(c *gin.Context) {
	uid := userID(c)
	if uid == "" {
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "authentication required")
		return
	}
	ctx := c.Request.Context()
	page, pageSize := clampPagination(c)

	// ETag pre-check (best effort).
	var db *gorm.DB
	if svc, isConcrete := h.billingSvc.(*services.BillingService); isConcrete {
		db = svc.DB
	}
	if db != nil {
		count, maxTS, err := repo.TransactionsStats(ctx, db, uid)
		if err == nil {
			var ts int64
			if maxTS != nil {
				ts = maxTS.Unix()
			}
			etag := fmt.Sprintf(`W/"txns:%s:%d:%d"`, uid, count, ts)
			c.Header("ETag", etag)
			if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
				c.Status(http.StatusNotModified)
				return
			}
		}
	}

	items, total, err := h.billingSvc.ListTransactions(ctx, uid, page, pageSize)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, "failed to list transactions")
		return
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	ok(c, http.StatusOK, ListTransactionsResponse{
		Transactions: items,
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
		},
	})
}
