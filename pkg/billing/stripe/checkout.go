package stripe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v83"

	"github.com/mihaimyh/gobilling/pkg/billing"
)

const (
	// checkoutWindow is how long a hosted checkout session stays payable
	// after creation.
	checkoutWindow = 48 * time.Hour

	// trialSafetyMargin pads the minimum trial so the boundary cannot land
	// inside the final request's round trip.
	trialSafetyMargin = 10 * time.Second

	// sessionIDPlaceholder is substituted by Stripe on redirect.
	sessionIDPlaceholder = "{CHECKOUT_SESSION_ID}"

	// metadataItemsKey carries a JSON-encoded line item list inside request
	// metadata.
	metadataItemsKey = "items"
)

// Charge opens a one-time payment checkout session. Line items come from
// req.Items or, when that is empty, from a JSON-encoded list under the
// "items" metadata key. The metadata list is stripped before the remaining
// metadata is forwarded, since the remote API does not accept structured
// item lists as metadata.
func (p *Provider) Charge(ctx context.Context, req billing.ChargeRequest) (*billing.CheckoutSession, error) {
	session, err := p.createSession(ctx, req, stripe.CheckoutSessionModePayment, nil)
	if err != nil {
		p.metrics.RecordCheckoutSession(providerName, "payment", "error")
		return nil, err
	}
	p.metrics.RecordCheckoutSession(providerName, "payment", "success")
	return session, nil
}

// Subscribe opens a subscription checkout session for the resolved tier.
// When the principal has no subscription record yet, one is created with
// status "incomplete"; every later status transition is webhook-driven.
func (p *Provider) Subscribe(ctx context.Context, req billing.SubscribeRequest) (*billing.CheckoutSession, error) {
	tier, err := p.resolveTier(req.TierID, req.TierName)
	if err != nil {
		p.metrics.RecordCheckoutSession(providerName, "subscription", "error")
		return nil, err
	}

	now := p.clock.Now()
	trialEnd := computeTrialEnd(now, tier.TrialDays)

	metadata := make(map[string]string, len(req.Metadata)+2)
	for k, v := range req.Metadata {
		metadata[k] = v
	}
	metadata["tier_id"] = tier.ID

	charge := billing.ChargeRequest{
		Items:      []billing.LineItem{{Price: tier.ID, Quantity: 1}},
		Metadata:   metadata,
		SuccessURL: req.SuccessURL,
		CancelURL:  req.CancelURL,
		Request:    req.Request,
	}

	subData := &stripe.CheckoutSessionCreateSubscriptionDataParams{}
	if trialEnd != nil {
		subData.TrialEnd = stripe.Int64(trialEnd.Unix())
	}
	if req.Principal != nil {
		metadata["user_id"] = req.Principal.ID()
		subData.AddMetadata("user_id", req.Principal.ID())
		charge.CustomerEmail = req.Principal.Email()
	}

	session, err := p.createSession(ctx, charge, stripe.CheckoutSessionModeSubscription, subData)
	if err != nil {
		p.metrics.RecordCheckoutSession(providerName, "subscription", "error")
		return nil, err
	}
	p.metrics.RecordCheckoutSession(providerName, "subscription", "success")

	if req.Principal != nil && p.config.Subscriptions != nil {
		if err := p.createSubscriptionRecord(ctx, req.Principal, tier, session, now, trialEnd); err != nil {
			return nil, err
		}
	}

	return session, nil
}

// createSubscriptionRecord persists the local row for a fresh subscription.
// Principals that already hold a record keep it untouched.
func (p *Provider) createSubscriptionRecord(
	ctx context.Context,
	principal billing.Principal,
	tier billing.Tier,
	session *billing.CheckoutSession,
	now time.Time,
	trialEnd *time.Time,
) error {
	existing, err := p.config.Subscriptions.Get(ctx, principal.ID())
	if err != nil {
		return fmt.Errorf("reading subscription record: %w", err)
	}
	if existing != nil {
		return nil
	}

	record := &billing.Subscription{
		Name:             tier.Name,
		PlanID:           tier.ID,
		PaymentSessionID: session.ID,
		Status:           billing.StatusIncomplete,
		StartDate:        now,
		EndDate:          tier.Period.Next(now),
		TrialEndsAt:      trialEnd,
	}
	if err := p.config.Subscriptions.Create(ctx, principal.ID(), record); err != nil {
		return fmt.Errorf("creating subscription record: %w", err)
	}

	p.logger.Info("subscription record created",
		billing.Field{Key: "user_id", Value: principal.ID()},
		billing.Field{Key: "plan_id", Value: tier.ID},
		billing.Field{Key: "session_id", Value: session.ID})
	return nil
}

// Session retrieves a checkout session by its remote identifier.
func (p *Provider) Session(ctx context.Context, id string) (*billing.CheckoutSession, error) {
	start := time.Now()
	session, err := p.client.V1CheckoutSessions.Retrieve(ctx, id, nil)
	if err != nil {
		p.metrics.RecordAPICall(providerName, "/v1/checkout/sessions", "error")
		return nil, fmt.Errorf("retrieving checkout session: %w", err)
	}
	p.metrics.RecordAPICall(providerName, "/v1/checkout/sessions", "success")
	p.metrics.RecordAPICallDuration(providerName, "/v1/checkout/sessions", time.Since(start))
	return toCheckoutSession(session), nil
}

// Callback reads the session identifier from the inbound request's
// "session_id" query parameter and retrieves that session.
func (p *Provider) Callback(ctx context.Context, req billing.RequestInfo) (*billing.CheckoutSession, error) {
	if req == nil {
		return nil, billing.ErrNoRequestContext
	}
	id := req.Query("session_id")
	if id == "" {
		return nil, errors.New("missing session_id query parameter")
	}
	return p.Session(ctx, id)
}

// createSession builds and issues the checkout session shared by Charge and
// Subscribe.
func (p *Provider) createSession(
	ctx context.Context,
	req billing.ChargeRequest,
	mode stripe.CheckoutSessionMode,
	subData *stripe.CheckoutSessionCreateSubscriptionDataParams,
) (*billing.CheckoutSession, error) {
	items, metadata, err := p.resolveItems(req)
	if err != nil {
		return nil, err
	}

	successURL, cancelURL, err := p.redirectURLs(req)
	if err != nil {
		return nil, err
	}

	params := &stripe.CheckoutSessionCreateParams{
		Mode:               stripe.String(string(mode)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		SuccessURL:         stripe.String(successURL),
		CancelURL:          stripe.String(cancelURL),
		LineItems:          items,
	}
	if len(metadata) > 0 {
		params.Metadata = metadata
	}
	if subData != nil {
		params.SubscriptionData = subData
	}
	if req.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(req.CustomerEmail)
	}

	start := time.Now()
	session, err := p.client.V1CheckoutSessions.Create(ctx, params)
	if err != nil {
		p.metrics.RecordAPICall(providerName, "/v1/checkout/sessions", "error")
		p.metrics.RecordAPICallDuration(providerName, "/v1/checkout/sessions", time.Since(start))
		return nil, fmt.Errorf("creating checkout session: %w", err)
	}
	p.metrics.RecordAPICall(providerName, "/v1/checkout/sessions", "success")
	p.metrics.RecordAPICallDuration(providerName, "/v1/checkout/sessions", time.Since(start))

	return toCheckoutSession(session), nil
}

// resolveItems merges explicit line items with the metadata-carried list.
// Explicit items take precedence; the metadata list is stripped either way.
func (p *Provider) resolveItems(
	req billing.ChargeRequest,
) ([]*stripe.CheckoutSessionCreateLineItemParams, map[string]string, error) {
	items := req.Items

	var metadata map[string]string
	if len(req.Metadata) > 0 {
		metadata = make(map[string]string, len(req.Metadata))
		for k, v := range req.Metadata {
			metadata[k] = v
		}
		if encoded, ok := metadata[metadataItemsKey]; ok {
			if len(items) == 0 {
				if err := json.Unmarshal([]byte(encoded), &items); err != nil {
					return nil, nil, fmt.Errorf("decoding metadata line items: %w", err)
				}
			}
			delete(metadata, metadataItemsKey)
		}
	}

	if len(items) == 0 {
		return nil, nil, errors.New("no line items")
	}

	params := make([]*stripe.CheckoutSessionCreateLineItemParams, 0, len(items))
	for _, item := range items {
		quantity := item.Quantity
		if quantity <= 0 {
			quantity = 1
		}
		li := &stripe.CheckoutSessionCreateLineItemParams{Quantity: stripe.Int64(quantity)}
		if item.Price != "" {
			li.Price = stripe.String(item.Price)
		} else {
			currency := item.Currency
			if currency == "" {
				currency = p.config.Currency
			}
			li.PriceData = &stripe.CheckoutSessionCreateLineItemPriceDataParams{
				Currency:   stripe.String(currency),
				UnitAmount: stripe.Int64(item.UnitAmount),
				ProductData: &stripe.CheckoutSessionCreateLineItemPriceDataProductDataParams{
					Name: stripe.String(item.Name),
				},
			}
		}
		params = append(params, li)
	}
	return params, metadata, nil
}

// redirectURLs fills in the configured templates when the request carries no
// explicit URLs, appending the session-id placeholder to the success URL.
func (p *Provider) redirectURLs(req billing.ChargeRequest) (successURL, cancelURL string, err error) {
	successURL = req.SuccessURL
	cancelURL = req.CancelURL
	if successURL != "" && cancelURL != "" {
		return successURL, cancelURL, nil
	}

	if req.Request == nil {
		return "", "", billing.ErrNoRequestContext
	}
	base := req.Request.BaseURL()
	if successURL == "" {
		successURL = base + p.config.SuccessPath + "?session_id=" + sessionIDPlaceholder
	}
	if cancelURL == "" {
		cancelURL = base + p.config.CancelPath
	}
	return successURL, cancelURL, nil
}

// computeTrialEnd turns a configured trial length into the timestamp sent to
// the remote API. Sessions stay payable for the full checkout window, so the
// trial end is never earlier than now + window + margin: even a payer who
// completes checkout at the last moment gets at least one full trial day.
// Longer trials get a full extra day rather than the exact boundary.
func computeTrialEnd(now time.Time, trialDays int) *time.Time {
	if trialDays <= 0 {
		return nil
	}
	minimum := now.Add(checkoutWindow + trialSafetyMargin)
	configured := now.AddDate(0, 0, trialDays)
	if !configured.After(minimum) {
		return &minimum
	}
	end := now.AddDate(0, 0, trialDays+1)
	return &end
}

func toCheckoutSession(s *stripe.CheckoutSession) *billing.CheckoutSession {
	out := &billing.CheckoutSession{
		ID:            s.ID,
		URL:           s.URL,
		Status:        string(s.Status),
		PaymentStatus: string(s.PaymentStatus),
		Metadata:      s.Metadata,
	}
	if s.Subscription != nil {
		out.SubscriptionID = s.Subscription.ID
	}
	return out
}
