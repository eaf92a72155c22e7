package stripe

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/stripe/stripe-go/v83/webhook"

	"github.com/mihaimyh/gobilling/pkg/billing"
	"github.com/mihaimyh/gobilling/pkg/billing/internal"
)

// webhookMaxBodyBytes caps inbound payload size.
const webhookMaxBodyBytes = 256 * 1024

// ParseEvent verifies the payload signature against the configured signing
// secret and reduces the envelope to the provider-agnostic Event shape:
// type, data, id and created. Everything else Stripe sends is discarded.
func (p *Provider) ParseEvent(payload []byte, signatureHeader string) (*billing.Event, error) {
	if len(p.webhookSecret) == 0 {
		return nil, fmt.Errorf("%w: missing webhook secret", billing.ErrProviderNotConfigured)
	}

	// Accounts pinned to a different dashboard API version still deliver
	// parseable envelopes; a version mismatch is not a verification failure.
	event, err := webhook.ConstructEventWithOptions(payload, signatureHeader, string(p.webhookSecret),
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		if errors.Is(err, webhook.ErrNotSigned) ||
			errors.Is(err, webhook.ErrInvalidHeader) ||
			errors.Is(err, webhook.ErrNoValidSignature) ||
			errors.Is(err, webhook.ErrTooOld) {
			return nil, fmt.Errorf("%w: %v", billing.ErrInvalidWebhookSignature, err)
		}
		return nil, fmt.Errorf("%w: %v", billing.ErrInvalidWebhookPayload, err)
	}

	return &billing.Event{
		ID:      event.ID,
		Type:    string(event.Type),
		Created: time.Unix(event.Created, 0),
		Data:    event.Data.Raw,
	}, nil
}

// WebhookHandler returns the HTTP handler for the Stripe webhook endpoint,
// wrapped with per-IP rate limiting.
func (p *Provider) WebhookHandler() http.Handler {
	return p.rateLimiter.Middleware(http.HandlerFunc(p.handleWebhook))
}

func (p *Provider) handleWebhook(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("X-Content-Type-Options", "nosniff")

	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if len(p.webhookSecret) == 0 {
		http.Error(w, "webhook not configured", http.StatusServiceUnavailable)
		return
	}

	body, err := internal.ReadBodyStrict(w, r, webhookMaxBodyBytes)
	if err != nil {
		if errors.Is(err, internal.ErrPayloadTooLarge) {
			p.metrics.RecordWebhookError(providerName, "payload_too_large")
			http.Error(w, "payload too large", http.StatusRequestEntityTooLarge)
		} else {
			p.metrics.RecordWebhookError(providerName, "invalid_payload")
			http.Error(w, "invalid payload", http.StatusBadRequest)
		}
		return
	}

	event, err := p.ParseEvent(body, r.Header.Get("Stripe-Signature"))
	if err != nil {
		// Signature and payload failures are both terminal client errors;
		// a retry with the same bytes cannot succeed.
		if errors.Is(err, billing.ErrInvalidWebhookSignature) {
			p.metrics.RecordWebhookError(providerName, "signature_failed")
		} else {
			p.metrics.RecordWebhookError(providerName, "invalid_payload")
		}
		p.logger.Warn("webhook rejected", billing.Field{Key: "error", Value: err.Error()})
		http.Error(w, "invalid webhook", http.StatusBadRequest)
		return
	}

	if p.config.Events != nil {
		if err := p.config.Events(r.Context(), *event); err != nil {
			p.metrics.RecordWebhookEvent(providerName, event.Type, "error")
			p.metrics.RecordWebhookError(providerName, "handler_error")
			p.logger.Error("webhook handler failed",
				billing.Field{Key: "event_id", Value: event.ID},
				billing.Field{Key: "event_type", Value: event.Type},
				billing.Field{Key: "error", Value: err.Error()})
			http.Error(w, "failed to process webhook", http.StatusInternalServerError)
			return
		}
	}

	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("ok")); err != nil {
		return
	}

	p.metrics.RecordWebhookEvent(providerName, event.Type, "success")
	p.logger.Debug("webhook processed",
		billing.Field{Key: "event_id", Value: event.ID},
		billing.Field{Key: "event_type", Value: event.Type},
		billing.Field{Key: "duration", Value: time.Since(start).String()})
}
