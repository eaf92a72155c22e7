// Package stripe implements the billing.Provider interface on top of the
// Stripe API: declarative tier provisioning, checkout sessions, subscription
// lifecycle changes and signed webhook events.
package stripe

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v83"

	"github.com/mihaimyh/gobilling/pkg/billing"
	"github.com/mihaimyh/gobilling/pkg/billing/internal"
)

const (
	providerName             = "stripe"
	defaultHTTPTimeout       = 10 * time.Second
	defaultNetworkRetries    = 3
	defaultRateLimitWindow   = time.Minute
	defaultRateLimitRequests = 100
)

// Config extends billing.Config with Stripe-specific options.
type Config struct {
	billing.Config // Base config (tiers, stores, logger, metrics, ...)

	// APIKey is the secret key for outbound API calls. Required.
	APIKey string

	// PublishableKey is the client-side key, exposed to frontends that
	// embed Stripe elements. Not used for outbound calls.
	PublishableKey string

	// APIVersion optionally pins the dashboard API version this
	// integration was written against. Informational; the SDK pins its
	// own request version.
	APIVersion string

	// WebhookSecret verifies inbound webhook signatures.
	WebhookSecret string

	// APIBaseURL overrides the Stripe API endpoint. Used in tests.
	APIBaseURL string

	// MaxNetworkRetries caps automatic retries on outbound calls.
	// Defaults to 3.
	MaxNetworkRetries int64
}

// Provider implements the billing.Provider interface for Stripe.
//
// Construction performs catalog synchronization (see catalog.go) and fails
// outright when it cannot complete: a provider without a provisioned catalog
// is unusable.
type Provider struct {
	config        Config
	client        *stripe.Client
	catalog       *billing.Catalog
	tiers         []billing.Tier // declaration order
	webhookSecret []byte
	rateLimiter   *internal.RateLimiter
	logger        billing.Logger
	metrics       billing.Metrics
	clock         billing.TimeSource
}

// NewProvider creates a new Stripe billing provider and ensures the remote
// catalog exists. The client configuration is explicit per provider
// instance; no process-wide SDK state is touched.
func NewProvider(ctx context.Context, config Config) (*Provider, error) {
	apiKey := strings.TrimSpace(config.APIKey)
	if apiKey == "" {
		return nil, fmt.Errorf("%w: missing API key", billing.ErrProviderNotConfigured)
	}
	if config.Catalog == nil {
		return nil, fmt.Errorf("%w: missing catalog store", billing.ErrProviderNotConfigured)
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}

	retries := config.MaxNetworkRetries
	if retries <= 0 {
		retries = defaultNetworkRetries
	}

	backendConfig := &stripe.BackendConfig{
		HTTPClient:        httpClient,
		MaxNetworkRetries: stripe.Int64(retries),
	}
	if config.APIBaseURL != "" {
		backendConfig.URL = stripe.String(config.APIBaseURL)
	}
	backend := stripe.GetBackendWithConfig(stripe.APIBackend, backendConfig)
	client := stripe.NewClient(apiKey, stripe.WithBackends(&stripe.Backends{
		API:     backend,
		Connect: backend,
		Uploads: backend,
	}))

	logger := config.Logger
	if logger == nil {
		logger = &billing.NoopLogger{}
	}
	metrics := config.Metrics
	if metrics == nil {
		metrics = &billing.NoopMetrics{}
	}
	clock := config.TimeSource
	if clock == nil {
		clock = billing.SystemTimeSource()
	}

	p := &Provider{
		config:        config,
		client:        client,
		webhookSecret: []byte(strings.TrimSpace(config.WebhookSecret)),
		rateLimiter:   internal.NewRateLimiter(defaultRateLimitRequests, defaultRateLimitWindow),
		logger:        logger,
		metrics:       metrics,
		clock:         clock,
	}

	if err := p.ensureCatalog(ctx); err != nil {
		return nil, err
	}

	return p, nil
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return providerName
}

// Tiers returns the provisioned tiers in declaration order.
func (p *Provider) Tiers() []billing.Tier {
	out := make([]billing.Tier, len(p.tiers))
	copy(out, p.tiers)
	return out
}

// Tier returns the tier with the given remote price identifier.
func (p *Provider) Tier(id string) (billing.Tier, bool) {
	tier, ok := p.catalog.Tiers[id]
	return tier, ok
}

// Periods returns the distinct billing periods present across tiers, in
// order of first occurrence.
func (p *Provider) Periods() []billing.BillingPeriod {
	seen := make(map[billing.BillingPeriod]bool, len(p.tiers))
	var periods []billing.BillingPeriod
	for _, tier := range p.tiers {
		if !seen[tier.Period] {
			seen[tier.Period] = true
			periods = append(periods, tier.Period)
		}
	}
	return periods
}

// resolveTier resolves a tier by remote price ID, or by name when no ID is
// given. Name resolution returns the first declared match; tiers sharing a
// name are a caller error and are not disambiguated.
func (p *Provider) resolveTier(id, name string) (billing.Tier, error) {
	if id != "" {
		if tier, ok := p.Tier(id); ok {
			return tier, nil
		}
		return billing.Tier{}, fmt.Errorf("%w: %q", billing.ErrTierNotFound, id)
	}
	if name != "" {
		for _, tier := range p.tiers {
			if tier.Name == name {
				return tier, nil
			}
		}
		return billing.Tier{}, fmt.Errorf("%w: %q", billing.ErrTierNotFound, name)
	}
	return billing.Tier{}, fmt.Errorf("%w: no tier selector given", billing.ErrTierNotFound)
}
