package stripe

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mihaimyh/gobilling/pkg/billing"
	"github.com/mihaimyh/gobilling/storage/memory"
)

// testBaseTime is the fixed "now" injected into every test provider.
var testBaseTime = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

type fixedClock struct {
	t time.Time
}

func (f fixedClock) Now() time.Time { return f.t }

type recordedCall struct {
	Method string
	Path   string
	Form   url.Values
}

type sessionState struct {
	ID             string
	Mode           string
	Metadata       map[string]string
	SubscriptionID string
	Status         string
	PaymentStatus  string
}

// fakeStripe is an httptest-backed stand-in for the Stripe API. It records
// every inbound call and answers with minimal valid JSON. Price IDs are
// derived from the submitted nickname and interval so tests can assert exact
// identifiers without fixture plumbing.
type fakeStripe struct {
	server *httptest.Server

	mu         sync.Mutex
	calls      []recordedCall
	failStatus map[string]int // path -> induced HTTP status
	sessions   map[string]*sessionState
	sessionSeq int

	subscriptionPriceID string // price on the remote subscription's item
}

func newFakeStripe(t *testing.T) *fakeStripe {
	t.Helper()
	fs := &fakeStripe{
		failStatus:          make(map[string]int),
		sessions:            make(map[string]*sessionState),
		subscriptionPriceID: "price_current",
	}
	fs.server = httptest.NewServer(http.HandlerFunc(fs.handle))
	t.Cleanup(fs.server.Close)
	return fs
}

// fail makes every request to path answer with the given status.
func (fs *fakeStripe) fail(path string, status int) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.failStatus[path] = status
}

// addSession seeds a retrievable checkout session linked to a subscription.
func (fs *fakeStripe) addSession(id, subscriptionID string) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.sessions[id] = &sessionState{
		ID:             id,
		Mode:           "subscription",
		SubscriptionID: subscriptionID,
		Status:         "complete",
		PaymentStatus:  "paid",
	}
}

// callsTo returns the recorded calls whose path starts with the prefix.
func (fs *fakeStripe) callsTo(prefix string) []recordedCall {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	var out []recordedCall
	for _, c := range fs.calls {
		if strings.HasPrefix(c.Path, prefix) {
			out = append(out, c)
		}
	}
	return out
}

func (fs *fakeStripe) totalCalls() int {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return len(fs.calls)
}

func (fs *fakeStripe) handle(w http.ResponseWriter, r *http.Request) {
	_ = r.ParseForm()
	form := make(url.Values, len(r.Form))
	for k, v := range r.Form {
		form[k] = v
	}

	fs.mu.Lock()
	fs.calls = append(fs.calls, recordedCall{Method: r.Method, Path: r.URL.Path, Form: form})
	failWith, induced := fs.failStatus[r.URL.Path]
	fs.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if induced {
		w.WriteHeader(failWith)
		fmt.Fprint(w, `{"error":{"type":"api_error","message":"induced failure"}}`)
		return
	}

	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/v1/products":
		writeJSON(w, map[string]any{
			"id":     "prod_test",
			"object": "product",
			"name":   form.Get("name"),
		})

	case r.Method == http.MethodPost && r.URL.Path == "/v1/prices":
		interval := form.Get("recurring[interval]")
		if interval == "" {
			interval = "once"
		}
		nickname := strings.ReplaceAll(strings.ToLower(form.Get("nickname")), " ", "_")
		writeJSON(w, map[string]any{
			"id":       "price_" + nickname + "_" + interval,
			"object":   "price",
			"currency": form.Get("currency"),
		})

	case r.Method == http.MethodPost && r.URL.Path == "/v1/checkout/sessions":
		fs.mu.Lock()
		fs.sessionSeq++
		state := &sessionState{
			ID:            fmt.Sprintf("cs_test_%d", fs.sessionSeq),
			Mode:          form.Get("mode"),
			Metadata:      formMetadata(form),
			Status:        "open",
			PaymentStatus: "unpaid",
		}
		fs.sessions[state.ID] = state
		fs.mu.Unlock()
		writeJSON(w, sessionJSON(state))

	case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/v1/checkout/sessions/"):
		id := strings.TrimPrefix(r.URL.Path, "/v1/checkout/sessions/")
		fs.mu.Lock()
		state, ok := fs.sessions[id]
		fs.mu.Unlock()
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"error":{"type":"invalid_request_error","message":"no such session"}}`)
			return
		}
		writeJSON(w, sessionJSON(state))

	case strings.HasPrefix(r.URL.Path, "/v1/subscriptions/"):
		id := strings.TrimPrefix(r.URL.Path, "/v1/subscriptions/")
		status := "active"
		if r.Method == http.MethodDelete {
			status = "canceled"
		}
		fs.mu.Lock()
		priceID := fs.subscriptionPriceID
		fs.mu.Unlock()
		writeJSON(w, map[string]any{
			"id":     id,
			"object": "subscription",
			"status": status,
			"items": map[string]any{
				"object": "list",
				"data": []any{map[string]any{
					"id":     "si_test_1",
					"object": "subscription_item",
					"price":  map[string]any{"id": priceID, "object": "price"},
				}},
			},
		})

	default:
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"error":{"type":"invalid_request_error","message":"unknown route"}}`)
	}
}

func formMetadata(form url.Values) map[string]string {
	meta := make(map[string]string)
	for key, values := range form {
		if strings.HasPrefix(key, "metadata[") && strings.HasSuffix(key, "]") && len(values) > 0 {
			meta[key[len("metadata["):len(key)-1]] = values[0]
		}
	}
	return meta
}

func sessionJSON(s *sessionState) map[string]any {
	obj := map[string]any{
		"id":             s.ID,
		"object":         "checkout.session",
		"url":            "https://checkout.stripe.test/pay/" + s.ID,
		"mode":           s.Mode,
		"status":         s.Status,
		"payment_status": s.PaymentStatus,
	}
	if len(s.Metadata) > 0 {
		obj["metadata"] = s.Metadata
	}
	if s.SubscriptionID != "" {
		obj["subscription"] = s.SubscriptionID
	}
	return obj
}

func writeJSON(w http.ResponseWriter, v any) {
	_ = json.NewEncoder(w).Encode(v)
}

func testTierConfigs() []billing.TierConfig {
	return []billing.TierConfig{
		{Name: "Basic", Monthly: 5, TrialDays: 1},
		{Name: "Pro", Monthly: 15, Yearly: 150, TrialDays: 60},
		{Name: "Lifetime", Price: 299},
	}
}

// newTestProvider builds a provider against the fake API with in-memory
// stores and a fixed clock. mutate may adjust the config before construction.
func newTestProvider(t *testing.T, fs *fakeStripe, mutate func(*Config)) (*Provider, *memory.SubscriptionStore) {
	t.Helper()

	subs := memory.NewSubscriptionStore()
	config := Config{
		Config: billing.Config{
			AppName:       "Acme",
			Currency:      "usd",
			Tiers:         testTierConfigs(),
			SuccessPath:   "/billing/success",
			CancelPath:    "/billing/cancel",
			Catalog:       memory.NewCatalogStore(),
			Subscriptions: subs,
			TimeSource:    fixedClock{testBaseTime},
		},
		APIKey:        "sk_test_123",
		WebhookSecret: "whsec_test_secret",
		APIBaseURL:    fs.server.URL,
	}
	if mutate != nil {
		mutate(&config)
	}

	p, err := NewProvider(context.Background(), config)
	if err != nil {
		t.Fatalf("NewProvider failed: %v", err)
	}
	return p, subs
}

// testRequestInfo is a minimal RequestInfo for URL derivation tests.
type testRequestInfo struct {
	base  string
	query map[string]string
}

func (r testRequestInfo) BaseURL() string { return r.base }

func (r testRequestInfo) Query(key string) string { return r.query[key] }
