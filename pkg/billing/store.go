package billing

import (
	"context"
	"net/http"
	"time"
)

// CatalogStore persists the provisioned catalog artifact.
//
// Load returns (nil, nil) when no catalog has been persisted yet. A
// non-nil catalog is authoritative: the synchronizer trusts it fully and
// performs no reconciliation against the current config.
type CatalogStore interface {
	Load(ctx context.Context) (*Catalog, error)
	Save(ctx context.Context, catalog *Catalog) error
}

// SubscriptionStore persists per-principal subscription rows. It is an
// external collaborator; implementations own locking. Callers must hold an
// external lock around a single principal's mutations to avoid lost updates.
//
// Get returns (nil, nil) when the principal has no subscription record.
type SubscriptionStore interface {
	Get(ctx context.Context, userID string) (*Subscription, error)
	Create(ctx context.Context, userID string, sub *Subscription) error
	Update(ctx context.Context, userID string, sub *Subscription) error
}

// Principal is the authenticated user on whose behalf a billing operation
// runs.
type Principal interface {
	ID() string
	Email() string
}

// Account is a minimal Principal implementation for callers that already
// hold the user's identity.
type Account struct {
	UserID    string
	UserEmail string
}

func (a Account) ID() string    { return a.UserID }
func (a Account) Email() string { return a.UserEmail }

// RequestInfo is the narrow view of the inbound request that checkout URL
// derivation and the session callback need.
type RequestInfo interface {
	// BaseURL returns scheme://host of the inbound request, without a
	// trailing slash.
	BaseURL() string

	// Query returns the named query parameter, or "".
	Query(key string) string
}

// FromHTTPRequest adapts a *http.Request into a RequestInfo.
func FromHTTPRequest(r *http.Request) RequestInfo {
	return httpRequestInfo{r: r}
}

type httpRequestInfo struct {
	r *http.Request
}

func (h httpRequestInfo) BaseURL() string {
	scheme := "http"
	if h.r.TLS != nil || h.r.Header.Get("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	return scheme + "://" + h.r.Host
}

func (h httpRequestInfo) Query(key string) string {
	return h.r.URL.Query().Get(key)
}

// TimeSource supplies the current time for trial and period arithmetic.
// Inject a fixed source in tests to make date math deterministic.
type TimeSource interface {
	Now() time.Time
}

type systemTime struct{}

func (systemTime) Now() time.Time { return time.Now() }

// SystemTimeSource returns a TimeSource backed by the system clock.
func SystemTimeSource() TimeSource { return systemTime{} }
