package prommetrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg, "test")

	m.RecordCatalogSync("stripe", "created")
	m.RecordCatalogSync("stripe", "cached")
	m.RecordCatalogSync("stripe", "cached")
	m.RecordCheckoutSession("stripe", "payment", "success")
	m.RecordLifecycleOp("stripe", "cancel", "noop")
	m.RecordWebhookEvent("stripe", "checkout.session.completed", "success")
	m.RecordWebhookError("stripe", "signature_failed")
	m.RecordAPICall("stripe", "/v1/prices", "200")

	if got := testutil.ToFloat64(m.catalogSyncTotal.WithLabelValues("stripe", "cached")); got != 2 {
		t.Errorf("catalog_sync_total{outcome=cached} = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.checkoutSessionTotal.WithLabelValues("stripe", "payment", "success")); got != 1 {
		t.Errorf("checkout_sessions_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.webhookErrorsTotal.WithLabelValues("stripe", "signature_failed")); got != 1 {
		t.Errorf("webhook_errors_total = %v, want 1", got)
	}
}

func TestMetrics_Durations(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg, "test")

	m.RecordCatalogSyncDuration("stripe", 120*time.Millisecond)
	m.RecordAPICallDuration("stripe", "/v1/checkout/sessions", 80*time.Millisecond)

	// Histograms only need to register observations without panicking.
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather failed: %v", err)
	}
	if len(families) == 0 {
		t.Error("Expected registered metric families")
	}
}
