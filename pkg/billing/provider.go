package billing

import (
	"context"
	"net/http"
)

// Provider is the generic interface that any billing backend must implement.
// This allows the application to swap Stripe for another processor with zero
// logic changes.
type Provider interface {
	// Name returns the provider name (e.g. "stripe").
	Name() string

	// Charge opens a one-time payment checkout session.
	Charge(ctx context.Context, req ChargeRequest) (*CheckoutSession, error)

	// Subscribe opens a subscription checkout session for a tier and, when
	// the principal has no subscription record yet, creates one with status
	// "incomplete".
	Subscribe(ctx context.Context, req SubscribeRequest) (*CheckoutSession, error)

	// ChangeSubscription swaps the principal's subscription onto another
	// tier with prorated billing adjustment. Remote failures are reported
	// through the Result, never raised.
	ChangeSubscription(ctx context.Context, req ChangeRequest) Result

	// CancelSubscription cancels the principal's remote subscription. A
	// principal without a subscription record is a successful no-op.
	CancelSubscription(ctx context.Context, principal Principal) Result

	// Session retrieves a checkout session by its remote identifier.
	Session(ctx context.Context, id string) (*CheckoutSession, error)

	// Callback reads the session identifier from the inbound request's
	// "session_id" query parameter and retrieves that session.
	Callback(ctx context.Context, req RequestInfo) (*CheckoutSession, error)

	// Tiers returns the provisioned tiers in declaration order.
	Tiers() []Tier

	// Tier returns the tier with the given remote price identifier.
	Tier(id string) (Tier, bool)

	// Periods returns the distinct billing periods present across tiers,
	// in order of first occurrence.
	Periods() []BillingPeriod

	// ParseEvent verifies the payload signature against the configured
	// signing secret and normalizes the envelope. Returns
	// ErrInvalidWebhookSignature when verification fails.
	ParseEvent(payload []byte, signatureHeader string) (*Event, error)

	// WebhookHandler returns an HTTP handler that verifies, normalizes and
	// dispatches inbound events to the configured EventHandler.
	WebhookHandler() http.Handler
}

// ChargeRequest describes a one-time payment checkout. Items and a
// metadata-carried "items" list are mutually exclusive; explicit Items take
// precedence and the metadata list is stripped before being forwarded as
// session metadata.
type ChargeRequest struct {
	Items    []LineItem
	Metadata map[string]string

	// SuccessURL and CancelURL override the configured redirect templates.
	// When empty they are derived from the template paths resolved against
	// Request's base URL, with a session-id placeholder appended.
	SuccessURL string
	CancelURL  string

	// Request supplies the inbound request context used for URL derivation.
	// Required only when SuccessURL/CancelURL are not set explicitly.
	Request RequestInfo

	// CustomerEmail prefills the payer email on the hosted page.
	CustomerEmail string
}

// SubscribeRequest describes a subscription checkout. The target tier is
// resolved by TierID when set, otherwise by TierName (first declared match;
// ambiguous names are a caller error).
type SubscribeRequest struct {
	TierID   string
	TierName string

	// Principal is the authenticated user subscribing.
	Principal Principal

	Metadata   map[string]string
	SuccessURL string
	CancelURL  string
	Request    RequestInfo
}

// ChangeRequest describes a plan change for an existing subscription.
type ChangeRequest struct {
	Principal Principal
	TierID    string
	TierName  string
}
