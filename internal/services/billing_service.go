// Package services – BillingService
//
// This file implements the BillingService, which owns the credit purchase
// flow: translating a credit-option key into a hosted checkout session, and
// reconciling the asynchronous payment-completion webhook into a Transaction
// row plus a balance increment. Reconciliation is idempotent per Stripe
// session: replays of the same webhook are detected structurally through the
// unique index on the session ID and dropped without side effects.
//
// Failures that cannot self-correct (bad metadata, unknown user, duplicate
// delivery) are logged and swallowed so the HTTP boundary can acknowledge the
// gateway; genuine persistence failures surface as *PaymentError with a kind
// the caller can alert on.
package services

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/flashslides/go-credits-backend/internal/domain"
	"github.com/flashslides/go-credits-backend/internal/gateway"
	"github.com/flashslides/go-credits-backend/internal/repo"
)

// CreditOption describes one purchasable credit package.
type CreditOption struct {
	Credits    int64
	PriceCents int64
}

// CreditOptions maps the public option keys to their packages. Credits are
// currently priced at one cent each, but the two fields are kept separate so
// pricing can diverge without a schema change.
var CreditOptions = map[string]CreditOption{
	"500":   {Credits: 500, PriceCents: 500},
	"1000":  {Credits: 1000, PriceCents: 1000},
	"2500":  {Credits: 2500, PriceCents: 2500},
	"5000":  {Credits: 5000, PriceCents: 5000},
	"10000": {Credits: 10000, PriceCents: 10000},
}

// CheckoutCreator is the outbound payment-gateway contract required by
// BillingService. The production implementation is gateway.StripeCheckout.
type CheckoutCreator interface {
	CreateSession(ctx context.Context, p gateway.CheckoutParams) (string, error)
}

// paymentsProcessed counts webhook reconciliation outcomes. Outcomes:
// processed, duplicate, skipped, integrity_error, processing_error.
var paymentsProcessed = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "payments_processed_total",
		Help: "Total number of payment webhook events by reconciliation outcome.",
	},
	[]string{"outcome"},
)

func init() {
	prometheus.MustRegister(paymentsProcessed)
}

// errUserMissing aborts the reconciliation transaction when the webhook names
// a user that was never provisioned. It never escapes ProcessPayment.
var errUserMissing = errors.New("user missing for payment event")

// BillingService implements the credit purchase use-cases.
type BillingService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Env is the deployment environment tag stamped on outbound checkout
	// metadata and checked against inbound webhook metadata.
	Env string
	// Checkout creates hosted checkout sessions at the payment gateway.
	Checkout CheckoutCreator
}

// CreateCheckoutSession maps a credit-option key to its package, loads the
// purchasing user, and asks the gateway for a hosted payment page URL.
//
// Errors:
//   - ErrUnknownCreditOption when the option key is not on sale
//   - ErrInvalidUserID when userID is not a UUID
//   - ErrUserNotFound when no local user record exists
//   - ErrGateway (wrapped) when the gateway call fails
func (s *BillingService) CreateCheckoutSession(ctx context.Context, userID, option string) (string, error) {
	pkg, ok := CreditOptions[option]
	if !ok {
		return "", ErrUnknownCreditOption
	}
	if _, err := uuid.Parse(userID); err != nil {
		return "", ErrInvalidUserID
	}

	user, err := repo.GetUser(ctx, s.DB, userID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return "", ErrUserNotFound
		}
		return "", err
	}

	params := gateway.CheckoutParams{
		UserID:     user.ID,
		Email:      user.Email,
		PackageID:  option,
		Credits:    pkg.Credits,
		PriceCents: pkg.PriceCents,
	}
	if user.StripeCustomerID != nil {
		params.StripeCustomerID = *user.StripeCustomerID
	}

	url, err := s.Checkout.CreateSession(ctx, params)
	if err != nil {
		return "", errors.Join(ErrGateway, err)
	}
	return url, nil
}

// ProcessPayment reconciles a verified checkout.session.completed event into
// the ledger.
//
// Preconditions that cannot self-correct are logged and dropped (nil return):
// non-positive credits, an env tag for a different deployment, a missing or
// malformed user ID, and a user record that does not exist. Duplicate
// deliveries of an already-recorded session are likewise benign no-ops.
//
// The write path runs in a single transaction: the user row is locked, the
// Transaction row is inserted first so the unique session index is tested
// before any balance mutation, then the balance is incremented and the Stripe
// customer ID is linked if the user has none. Constraint failures other than
// the duplicate session map to PaymentErrIntegrity; everything else to
// PaymentErrProcessing.
func (s *BillingService) ProcessPayment(ctx context.Context, ev *gateway.PaymentEvent) error {
	tr := otel.Tracer("services/BillingService")
	ctx, span := tr.Start(ctx, "ProcessPayment", trace.WithAttributes(
		attribute.String("stripe.session_id", ev.SessionID),
		attribute.Int64("billing.credits", ev.Credits),
	))
	defer span.End()

	if ev.Credits <= 0 {
		log.Error().Str("session_id", ev.SessionID).Int64("credits", ev.Credits).
			Msg("invalid credits in session metadata")
		paymentsProcessed.WithLabelValues("skipped").Inc()
		return nil
	}
	if ev.Env != "" && ev.Env != s.Env {
		log.Info().Str("session_id", ev.SessionID).Str("event_env", ev.Env).
			Msg("skipping webhook from mismatched env")
		paymentsProcessed.WithLabelValues("skipped").Inc()
		return nil
	}
	if ev.UserID == "" {
		log.Error().Str("session_id", ev.SessionID).Msg("no user_id in session metadata")
		paymentsProcessed.WithLabelValues("skipped").Inc()
		return nil
	}
	if _, err := uuid.Parse(ev.UserID); err != nil {
		log.Error().Str("session_id", ev.SessionID).Str("user_id", ev.UserID).
			Msg("invalid user_id UUID in session metadata")
		paymentsProcessed.WithLabelValues("skipped").Inc()
		return nil
	}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Lock the user row first to serialize concurrent balance updates.
		user, err := repo.GetUserForUpdate(ctx, tx, ev.UserID)
		if err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return errUserMissing
			}
			return err
		}

		// Insert before mutating the balance so the unique session index is
		// the first thing a replay hits.
		txn := &domain.Transaction{
			ID:              uuid.NewString(),
			UserID:          user.ID,
			StripeSessionID: ev.SessionID,
			AmountPaidCents: ev.AmountPaid,
			CreditsAdded:    ev.Credits,
		}
		if err := repo.CreateTransaction(ctx, tx, txn); err != nil {
			return err
		}

		if err := repo.AddCredits(ctx, tx, user.ID, ev.Credits); err != nil {
			return err
		}

		if err := linkCustomerIfAbsent(ctx, tx, user, ev.CustomerID); err != nil {
			return err
		}

		log.Info().
			Str("session_id", ev.SessionID).
			Str("user_id", user.ID).
			Int64("credits_added", ev.Credits).
			Int64("amount_paid_cents", ev.AmountPaid).
			Msg("transaction processed successfully")
		return nil
	})

	switch {
	case err == nil:
		paymentsProcessed.WithLabelValues("processed").Inc()
		return nil
	case errors.Is(err, errUserMissing):
		log.Warn().Str("session_id", ev.SessionID).Str("user_id", ev.UserID).
			Msg("user not found for webhook session; skipping transaction")
		paymentsProcessed.WithLabelValues("skipped").Inc()
		return nil
	case errors.Is(err, repo.ErrDuplicateReference):
		log.Info().Str("session_id", ev.SessionID).
			Msg("duplicate webhook for session, idempotently ignored")
		paymentsProcessed.WithLabelValues("duplicate").Inc()
		return nil
	case repo.IsConstraintViolation(err):
		log.Error().Err(err).Str("session_id", ev.SessionID).
			Msg("database integrity error while processing transaction")
		paymentsProcessed.WithLabelValues("integrity_error").Inc()
		return &PaymentError{
			Kind:    PaymentErrIntegrity,
			Message: "a database integrity error occurred while processing the transaction",
			Cause:   err,
		}
	default:
		log.Error().Err(err).Str("session_id", ev.SessionID).
			Msg("error processing transaction for session")
		paymentsProcessed.WithLabelValues("processing_error").Inc()
		return &PaymentError{
			Kind:    PaymentErrProcessing,
			Message: "failed to process payment transaction",
			Cause:   err,
		}
	}
}

// linkCustomerIfAbsent stores the gateway customer reference on the user the
// first time a payment event carries one. An existing reference is never
// overwritten. Runs inside the caller's transaction.
func linkCustomerIfAbsent(ctx context.Context, tx *gorm.DB, user *domain.User, customerID string) error {
	if customerID == "" || (user.StripeCustomerID != nil && *user.StripeCustomerID != "") {
		return nil
	}
	fields := map[string]any{"stripe_customer_id": customerID}
	if err := repo.UpdateUserFields(ctx, tx, user.ID, fields); err != nil {
		return err
	}
	log.Info().Str("user_id", user.ID).Str("stripe_customer_id", customerID).
		Msg("linked new Stripe customer to user")
	return nil
}

// ListTransactions returns a page of the user's purchase history, newest
// first, along with the total row count for pagination metadata.
func (s *BillingService) ListTransactions(ctx context.Context, userID string, page, pageSize int) ([]domain.Transaction, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	total, err := repo.CountTransactions(ctx, s.DB, userID)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Transaction{}, 0, nil
	}

	items, err := repo.ListTransactionsPage(ctx, s.DB, userID, offset, pageSize)
	return items, total, err
}
