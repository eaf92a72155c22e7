package stripe

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v83"

	"github.com/mihaimyh/gobilling/pkg/billing"
)

// prorationBehavior requests a prorated billing adjustment on plan changes.
const prorationBehavior = "create_prorations"

// ChangeSubscription swaps the principal's single subscription item onto the
// resolved tier's price with prorated billing adjustment. Failures are
// classified in the Result and logged; nothing is raised past the facade.
// Callers must hold an external lock around one principal's mutations.
func (p *Provider) ChangeSubscription(ctx context.Context, req billing.ChangeRequest) billing.Result {
	const op = "change"

	if req.Principal == nil || p.config.Subscriptions == nil {
		return p.fail(op, billing.KindConfiguration,
			fmt.Errorf("%w: missing principal or subscription store", billing.ErrProviderNotConfigured))
	}

	tier, err := p.resolveTier(req.TierID, req.TierName)
	if err != nil {
		return p.fail(op, billing.KindStateConflict, err)
	}

	record, err := p.config.Subscriptions.Get(ctx, req.Principal.ID())
	if err != nil {
		return p.fail(op, billing.KindRemoteAPI, fmt.Errorf("reading subscription record: %w", err))
	}
	if record == nil {
		return p.fail(op, billing.KindStateConflict, billing.ErrSubscriptionNotFound)
	}

	subscriptionID, err := p.remoteSubscriptionID(ctx, record)
	if err != nil {
		return p.fail(op, billing.KindRemoteAPI, err)
	}

	subscription, err := p.client.V1Subscriptions.Retrieve(ctx, subscriptionID, nil)
	if err != nil {
		p.metrics.RecordAPICall(providerName, "/v1/subscriptions", "error")
		return p.fail(op, billing.KindRemoteAPI, fmt.Errorf("retrieving subscription: %w", err))
	}
	if subscription.Items == nil || len(subscription.Items.Data) == 0 {
		return p.fail(op, billing.KindRemoteAPI, errors.New("subscription has no items"))
	}

	params := &stripe.SubscriptionUpdateParams{
		Items: []*stripe.SubscriptionUpdateItemParams{{
			ID:    stripe.String(subscription.Items.Data[0].ID),
			Price: stripe.String(tier.ID),
		}},
		ProrationBehavior: stripe.String(prorationBehavior),
	}

	start := time.Now()
	if _, err := p.client.V1Subscriptions.Update(ctx, subscriptionID, params); err != nil {
		p.metrics.RecordAPICall(providerName, "/v1/subscriptions", "error")
		return p.fail(op, billing.KindRemoteAPI, fmt.Errorf("updating subscription: %w", err))
	}
	p.metrics.RecordAPICall(providerName, "/v1/subscriptions", "success")
	p.metrics.RecordAPICallDuration(providerName, "/v1/subscriptions", time.Since(start))

	// Refresh the denormalized plan on the local row. Status is untouched:
	// transitions stay webhook-driven.
	record.PlanID = tier.ID
	record.Name = tier.Name
	if err := p.config.Subscriptions.Update(ctx, req.Principal.ID(), record); err != nil {
		return p.fail(op, billing.KindRemoteAPI, fmt.Errorf("updating subscription record: %w", err))
	}

	p.metrics.RecordLifecycleOp(providerName, "change", "success")
	p.logger.Info("subscription plan changed",
		billing.Field{Key: "user_id", Value: req.Principal.ID()},
		billing.Field{Key: "plan_id", Value: tier.ID})
	return billing.Success()
}

// CancelSubscription cancels the principal's remote subscription. A
// principal without a subscription record is a successful no-op and the
// remote provider is never contacted. The local row keeps its status until
// the cancellation webhook lands.
func (p *Provider) CancelSubscription(ctx context.Context, principal billing.Principal) billing.Result {
	const op = "cancel"

	if principal == nil || p.config.Subscriptions == nil {
		return p.fail(op, billing.KindConfiguration,
			fmt.Errorf("%w: missing principal or subscription store", billing.ErrProviderNotConfigured))
	}

	record, err := p.config.Subscriptions.Get(ctx, principal.ID())
	if err != nil {
		return p.fail(op, billing.KindRemoteAPI, fmt.Errorf("reading subscription record: %w", err))
	}
	if record == nil {
		p.metrics.RecordLifecycleOp(providerName, "cancel", "noop")
		return billing.Success()
	}

	subscriptionID, err := p.remoteSubscriptionID(ctx, record)
	if err != nil {
		return p.fail(op, billing.KindRemoteAPI, err)
	}

	start := time.Now()
	if _, err := p.client.V1Subscriptions.Cancel(ctx, subscriptionID, nil); err != nil {
		p.metrics.RecordAPICall(providerName, "/v1/subscriptions", "error")
		return p.fail(op, billing.KindRemoteAPI, fmt.Errorf("canceling subscription: %w", err))
	}
	p.metrics.RecordAPICall(providerName, "/v1/subscriptions", "success")
	p.metrics.RecordAPICallDuration(providerName, "/v1/subscriptions", time.Since(start))

	p.metrics.RecordLifecycleOp(providerName, "cancel", "success")
	p.logger.Info("subscription canceled",
		billing.Field{Key: "user_id", Value: principal.ID()},
		billing.Field{Key: "subscription_id", Value: subscriptionID})
	return billing.Success()
}

// remoteSubscriptionID resolves the remote subscription through the checkout
// session denormalized on the local record.
func (p *Provider) remoteSubscriptionID(ctx context.Context, record *billing.Subscription) (string, error) {
	session, err := p.client.V1CheckoutSessions.Retrieve(ctx, record.PaymentSessionID, nil)
	if err != nil {
		return "", fmt.Errorf("retrieving checkout session %s: %w", record.PaymentSessionID, err)
	}
	if session.Subscription == nil || session.Subscription.ID == "" {
		return "", fmt.Errorf("%w: session %s carries no subscription", billing.ErrSubscriptionNotFound, record.PaymentSessionID)
	}
	return session.Subscription.ID, nil
}

// fail records, logs and wraps a lifecycle failure into a Result.
func (p *Provider) fail(op string, kind billing.ErrorKind, err error) billing.Result {
	p.metrics.RecordLifecycleOp(providerName, op, "error")
	p.logger.Warn("lifecycle operation failed",
		billing.Field{Key: "op", Value: op},
		billing.Field{Key: "kind", Value: string(kind)},
		billing.Field{Key: "error", Value: err.Error()})
	return billing.Failure(kind, op, err)
}
