// Package services defines the business logic for authentication, billing,
// and user profiles. This file centralizes common service-level error values
// so that they can be consistently returned by service methods and checked by
// callers.
//
// These errors are intended for internal use by the service layer and translation
// into user-facing messages or HTTP status codes should be performed at the
// handler/controller layer.
package services

import (
	"errors"
	"fmt"
)

// Auth and profile errors.
var (
	// ErrInvalidUserID is returned when a token subject is not a valid UUID.
	ErrInvalidUserID = errors.New("invalid user id in token")

	// ErrEmailRequired is returned when a first-time authentication carries
	// no email in either the request body or the token claims.
	ErrEmailRequired = errors.New("email is required for user creation")

	// ErrUserNotFound indicates that the requested user does not exist.
	ErrUserNotFound = errors.New("user not found")
)

// Billing errors.
var (
	// ErrUnknownCreditOption is returned when a checkout request names a
	// credit package that is not on sale.
	ErrUnknownCreditOption = errors.New("unknown credit option")

	// ErrGateway wraps failures reported by the payment gateway while
	// creating a checkout session.
	ErrGateway = errors.New("payment gateway error")
)

// PaymentErrorKind labels the two failure classes of webhook reconciliation.
// Integrity errors indicate the database rejected the write on a constraint
// other than the idempotency index; processing errors cover everything else
// (connectivity, unexpected driver failures).
type PaymentErrorKind string

const (
	PaymentErrIntegrity  PaymentErrorKind = "database_integrity_error"
	PaymentErrProcessing PaymentErrorKind = "transaction_processing_error"
)

// PaymentError is returned by BillingService.ProcessPayment when a payment
// could not be reconciled and the failure is not a benign duplicate. Kind
// carries the classification; Cause the underlying error.
type PaymentError struct {
	Kind    PaymentErrorKind
	Message string
	Cause   error
}

func (e *PaymentError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *PaymentError) Unwrap() error { return e.Cause }
