package fiber

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/mihaimyh/gobilling/pkg/billing"
)

// stubProvider implements billing.Provider with canned webhook parsing.
// Requests signed with "valid" verify; everything else is rejected.
type stubProvider struct{}

func (s *stubProvider) Name() string { return "stub" }

func (s *stubProvider) Charge(ctx context.Context, req billing.ChargeRequest) (*billing.CheckoutSession, error) {
	return nil, nil
}

func (s *stubProvider) Subscribe(ctx context.Context, req billing.SubscribeRequest) (*billing.CheckoutSession, error) {
	return nil, nil
}

func (s *stubProvider) ChangeSubscription(ctx context.Context, req billing.ChangeRequest) billing.Result {
	return billing.Success()
}

func (s *stubProvider) CancelSubscription(ctx context.Context, principal billing.Principal) billing.Result {
	return billing.Success()
}

func (s *stubProvider) Session(ctx context.Context, id string) (*billing.CheckoutSession, error) {
	return nil, nil
}

func (s *stubProvider) Callback(ctx context.Context, req billing.RequestInfo) (*billing.CheckoutSession, error) {
	return nil, nil
}

func (s *stubProvider) Tiers() []billing.Tier { return nil }

func (s *stubProvider) Tier(id string) (billing.Tier, bool) { return billing.Tier{}, false }

func (s *stubProvider) Periods() []billing.BillingPeriod { return nil }

func (s *stubProvider) ParseEvent(payload []byte, signatureHeader string) (*billing.Event, error) {
	if signatureHeader != "valid" {
		return nil, billing.ErrInvalidWebhookSignature
	}
	return &billing.Event{
		ID:      "evt_1",
		Type:    "invoice.paid",
		Created: time.Now(),
		Data:    payload,
	}, nil
}

func (s *stubProvider) WebhookHandler() http.Handler { return nil }

func postWebhook(t *testing.T, app *fiber.App, body, signature string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewBufferString(body))
	if signature != "" {
		req.Header.Set("Stripe-Signature", signature)
	}
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}
	return resp
}

func TestWebhookHandler_RequiresProvider(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("Expected panic for missing provider")
		}
	}()
	WebhookHandler(Config{})
}

func TestWebhookHandler_Dispatch(t *testing.T) {
	var received []billing.Event
	app := fiber.New()
	app.Post("/webhook", WebhookHandler(Config{
		Provider: &stubProvider{},
		Handler: func(ctx context.Context, event billing.Event) error {
			received = append(received, event)
			return nil
		},
	}))

	resp := postWebhook(t, app, `{"id":"evt_1"}`, "valid")
	if resp.StatusCode != fiber.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("Status = %d, want 200; body: %s", resp.StatusCode, body)
	}
	if len(received) != 1 || received[0].ID != "evt_1" {
		t.Errorf("Handler received %+v, want one evt_1", received)
	}
}

func TestWebhookHandler_BadSignature(t *testing.T) {
	called := false
	app := fiber.New()
	app.Post("/webhook", WebhookHandler(Config{
		Provider: &stubProvider{},
		Handler: func(ctx context.Context, event billing.Event) error {
			called = true
			return nil
		},
	}))

	resp := postWebhook(t, app, `{"id":"evt_1"}`, "forged")
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Errorf("Status = %d, want 400", resp.StatusCode)
	}
	if called {
		t.Error("Handler invoked despite invalid signature")
	}
}

func TestWebhookHandler_EmptyBody(t *testing.T) {
	app := fiber.New()
	app.Post("/webhook", WebhookHandler(Config{Provider: &stubProvider{}}))

	resp := postWebhook(t, app, "", "valid")
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Errorf("Status = %d, want 400", resp.StatusCode)
	}
}

func TestWebhookHandler_HandlerError(t *testing.T) {
	app := fiber.New()
	app.Post("/webhook", WebhookHandler(Config{
		Provider: &stubProvider{},
		Handler: func(ctx context.Context, event billing.Event) error {
			return errors.New("downstream unavailable")
		},
	}))

	resp := postWebhook(t, app, `{"id":"evt_1"}`, "valid")
	if resp.StatusCode != fiber.StatusInternalServerError {
		t.Errorf("Status = %d, want 500", resp.StatusCode)
	}
}

func TestWebhookHandler_CustomRejection(t *testing.T) {
	app := fiber.New()
	app.Post("/webhook", WebhookHandler(Config{
		Provider: &stubProvider{},
		OnRejected: func(c *fiber.Ctx, err error) error {
			return c.Status(fiber.StatusUnauthorized).SendString("nope")
		},
	}))

	resp := postWebhook(t, app, `{"id":"evt_1"}`, "forged")
	if resp.StatusCode != fiber.StatusUnauthorized {
		t.Errorf("Status = %d, want 401", resp.StatusCode)
	}
}
