// Package gateway contains the Stripe-facing edge of the billing flow:
// outbound checkout-session creation and inbound webhook verification.
// Nothing in here touches the database; the normalized events it produces
// are handed to the billing service for reconciliation.
package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
)

// PaymentEvent is the normalized form of a completed checkout session, as
// extracted from a verified webhook payload. Metadata values arrive as
// strings on the wire and are decoded here; validation of their business
// meaning (positive credits, known user) is left to the billing service.
type PaymentEvent struct {
	EventID    string
	SessionID  string
	UserID     string
	Credits    int64
	Env        string
	AmountPaid int64
	CustomerID string
}

// Typed verification failures. Both are acknowledged with 200 at the HTTP
// boundary to stop the gateway from retrying a payload that will never
// become valid.
var (
	ErrInvalidSignature = errors.New("gateway: invalid webhook signature")
	ErrInvalidPayload   = errors.New("gateway: invalid webhook payload")
)

// WebhookVerifier authenticates inbound Stripe webhook deliveries against
// the endpoint's signing secret.
type WebhookVerifier struct {
	Secret string
}

// Parse verifies the payload signature and extracts a PaymentEvent.
//
// It returns (nil, nil) for event types other than checkout.session.completed;
// those are acknowledged and dropped. Signature failures return
// ErrInvalidSignature and undecodable session objects return ErrInvalidPayload.
func (v WebhookVerifier) Parse(payload []byte, sigHeader string) (*PaymentEvent, error) {
	event, err := webhook.ConstructEventWithOptions(payload, sigHeader, v.Secret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	if event.Type != stripe.EventTypeCheckoutSessionCompleted {
		return nil, nil
	}

	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	pe := &PaymentEvent{
		EventID:    event.ID,
		SessionID:  session.ID,
		AmountPaid: session.AmountTotal,
	}
	if session.Customer != nil {
		pe.CustomerID = session.Customer.ID
	}
	if session.Metadata != nil {
		pe.UserID = session.Metadata["user_id"]
		pe.Env = session.Metadata["env"]
		if raw := session.Metadata["credits"]; raw != "" {
			if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
				pe.Credits = n
			}
		}
	}
	return pe, nil
}
