package billing

import "net/http"

// Config defines the standard configuration all providers accept. Provider
// packages embed it alongside their processor-specific secrets.
type Config struct {
	// AppName identifies the application on remote objects (e.g. the
	// provisioned product name). Optional.
	AppName string

	// Currency is the default ISO currency code for tier prices. Individual
	// tiers may override it.
	Currency string

	// Tiers is the declarative tier configuration provisioned on first run.
	Tiers []TierConfig

	// SuccessPath and CancelPath are redirect URL templates, resolved
	// against the inbound request's base URL when a checkout request does
	// not carry explicit URLs. A session-id placeholder is appended to the
	// success URL.
	SuccessPath string
	CancelPath  string

	// Catalog persists the provisioned catalog. When a load returns a
	// catalog, synchronization is skipped entirely. Required.
	Catalog CatalogStore

	// Subscriptions persists per-principal subscription rows. Required for
	// Subscribe/ChangeSubscription/CancelSubscription.
	Subscriptions SubscriptionStore

	// Events receives normalized webhook events after verification. If nil,
	// verified events are acknowledged and dropped.
	Events EventHandler

	// HTTPClient is an optional client for outbound API calls. Allows
	// custom timeouts, proxies or instrumentation.
	HTTPClient *http.Client

	// Logger receives structured operational logs. If nil, logging is a
	// no-op.
	Logger Logger

	// Metrics is an optional collector for provider operations. If nil,
	// metrics are silently ignored.
	// Use metrics/prometheus.DefaultMetrics(namespace) for Prometheus.
	Metrics Metrics

	// TimeSource supplies "now" for trial and period arithmetic. If nil,
	// the system clock is used.
	TimeSource TimeSource
}

// TierConfig is the raw declarative input for one tier. Exactly one pricing
// shape ends up populated per emitted draft: a flat Price yields a single
// one-time tier and suppresses every period-scoped price; otherwise each
// populated period price yields its own recurring tier.
//
// Amounts are in major currency units and converted to minor units by
// multiplying by 100. This assumes a two-decimal currency; zero-decimal
// currencies (JPY, KRW) are not handled correctly yet.
type TierConfig struct {
	Name     string  `json:"name"`
	Currency string  `json:"currency,omitempty"`
	Price    float64 `json:"price,omitempty"`
	Daily    float64 `json:"price_daily,omitempty"`
	Weekly   float64 `json:"price_weekly,omitempty"`
	Monthly  float64 `json:"price_monthly,omitempty"`
	Yearly   float64 `json:"price_yearly,omitempty"`

	// TrialDays grants a free trial on subscription checkout.
	TrialDays int `json:"trial_days,omitempty"`
}
