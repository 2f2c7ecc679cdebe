package gateway

import (
	"context"
	"fmt"
	"strconv"

	"github.com/stripe/stripe-go/v82"
	checkoutsession "github.com/stripe/stripe-go/v82/checkout/session"
)

// CheckoutParams describes one credit purchase to be turned into a hosted
// checkout session. PriceCents is the charge amount; Credits is what the
// webhook will later add to the balance.
type CheckoutParams struct {
	UserID           string
	Email            string
	StripeCustomerID string
	PackageID        string
	Credits          int64
	PriceCents       int64
}

// StripeCheckout creates hosted checkout sessions via the Stripe API.
type StripeCheckout struct {
	Key    string
	Env    string
	AppURL string
}

// CreateSession creates a one-off payment session for the given credit
// package and returns the hosted payment page URL.
//
// Returning users are attached via their stored customer ID; first-time
// buyers get a customer record created from their email, so the webhook can
// link it back. The metadata block is the contract with the webhook side:
// user_id, credits, package_id and env all come back verbatim on
// checkout.session.completed.
func (g *StripeCheckout) CreateSession(ctx context.Context, p CheckoutParams) (string, error) {
	stripe.Key = g.Key

	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String("usd"),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(fmt.Sprintf("%d AI Credits", p.Credits)),
					},
					UnitAmount: stripe.Int64(p.PriceCents),
				},
				Quantity: stripe.Int64(1),
			},
		},
		Metadata: map[string]string{
			"user_id":    p.UserID,
			"credits":    strconv.FormatInt(p.Credits, 10),
			"package_id": p.PackageID,
			"env":        g.Env,
		},
		SuccessURL: stripe.String(g.AppURL + "/settings/billing?payment=success"),
		CancelURL:  stripe.String(g.AppURL + "/settings/billing?payment=cancelled"),
	}
	params.Context = ctx

	if p.StripeCustomerID != "" {
		params.Customer = stripe.String(p.StripeCustomerID)
	} else {
		params.CustomerEmail = stripe.String(p.Email)
		params.CustomerCreation = stripe.String(string(stripe.CheckoutSessionCustomerCreationAlways))
	}

	sess, err := checkoutsession.New(params)
	if err != nil {
		return "", fmt.Errorf("create checkout session: %w", err)
	}
	return sess.URL, nil
}
