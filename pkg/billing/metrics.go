package billing

import "time"

// Metrics defines the interface for tracking billing provider operations.
// All methods are optional - providers should gracefully handle nil metrics.
type Metrics interface {
	// RecordCatalogSync records a catalog synchronization attempt.
	// outcome: "cached", "created" or "error"
	RecordCatalogSync(provider, outcome string)

	// RecordCatalogSyncDuration records how long catalog synchronization took.
	RecordCatalogSyncDuration(provider string, duration time.Duration)

	// RecordCheckoutSession records a checkout session creation.
	// mode: "payment" or "subscription"; status: "success" or "error"
	RecordCheckoutSession(provider, mode, status string)

	// RecordLifecycleOp records a subscription lifecycle mutation.
	// op: "change" or "cancel"; status: "success", "noop" or "error"
	RecordLifecycleOp(provider, op, status string)

	// RecordWebhookEvent records a webhook event received from the provider.
	// status: "success" or "error"
	RecordWebhookEvent(provider, eventType, status string)

	// RecordWebhookError records a webhook processing error.
	// errorType: e.g. "signature_failed", "invalid_payload", "handler_error"
	RecordWebhookError(provider, errorType string)

	// RecordAPICall records an outbound API call to the billing provider.
	RecordAPICall(provider, endpoint, status string)

	// RecordAPICallDuration records how long an API call took.
	RecordAPICallDuration(provider, endpoint string, duration time.Duration)
}

// NoopMetrics is a no-op implementation of the Metrics interface.
type NoopMetrics struct{}

func (n *NoopMetrics) RecordCatalogSync(_, _ string) {}
func (n *NoopMetrics) RecordCatalogSyncDuration(_ string, _ time.Duration) {}
func (n *NoopMetrics) RecordCheckoutSession(_, _, _ string) {}
func (n *NoopMetrics) RecordLifecycleOp(_, _, _ string) {}
func (n *NoopMetrics) RecordWebhookEvent(_, _, _ string) {}
func (n *NoopMetrics) RecordWebhookError(_, _ string) {}
func (n *NoopMetrics) RecordAPICall(_, _, _ string) {}
func (n *NoopMetrics) RecordAPICallDuration(_, _ string, _ time.Duration) {}
