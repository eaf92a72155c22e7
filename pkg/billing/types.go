package billing

import (
	"context"
	"encoding/json"
	"time"
)

// BillingPeriod is the recurrence of a tier's price.
type BillingPeriod string

const (
	// PeriodNone marks a one-time price.
	PeriodNone BillingPeriod = "none"

	PeriodDaily   BillingPeriod = "daily"
	PeriodWeekly  BillingPeriod = "weekly"
	PeriodMonthly BillingPeriod = "monthly"
	PeriodYearly  BillingPeriod = "yearly"
)

// Recurring reports whether the period describes a recurring price.
func (p BillingPeriod) Recurring() bool {
	return p != PeriodNone && p != ""
}

// Interval returns the remote API interval name ("day", "week", ...).
// Returns "" for one-time prices.
func (p BillingPeriod) Interval() string {
	switch p {
	case PeriodDaily:
		return "day"
	case PeriodWeekly:
		return "week"
	case PeriodMonthly:
		return "month"
	case PeriodYearly:
		return "year"
	default:
		return ""
	}
}

// Next returns t advanced by one period unit. One-time prices return t
// unchanged.
func (p BillingPeriod) Next(t time.Time) time.Time {
	switch p {
	case PeriodDaily:
		return t.AddDate(0, 0, 1)
	case PeriodWeekly:
		return t.AddDate(0, 0, 7)
	case PeriodMonthly:
		return t.AddDate(0, 1, 0)
	case PeriodYearly:
		return t.AddDate(1, 0, 0)
	default:
		return t
	}
}

// Tier is one canonical price point. ID is the remote price identifier and is
// empty until the tier has been provisioned by the catalog synchronizer; a
// tier is immutable once it carries an ID.
type Tier struct {
	ID         string        `json:"id"`
	Name       string        `json:"name"`
	Currency   string        `json:"currency"`
	Period     BillingPeriod `json:"period"`
	UnitAmount int64         `json:"unit_amount"`
	TrialDays  int           `json:"trial_days,omitempty"`
}

// Catalog is the provisioned remote state: one product plus its prices,
// keyed by remote price ID. Once persisted it is authoritative; the
// synchronizer never diffs it against the current config.
type Catalog struct {
	Product string          `json:"product"`
	Tiers   map[string]Tier `json:"tiers"`
}

// LineItem is a single purchasable entry on a checkout session. Either Price
// references a provisioned catalog price, or Name/UnitAmount/Currency
// describe an ad-hoc one-time price.
type LineItem struct {
	Price      string `json:"price,omitempty"`
	Name       string `json:"name,omitempty"`
	UnitAmount int64  `json:"unit_amount,omitempty"`
	Currency   string `json:"currency,omitempty"`
	Quantity   int64  `json:"quantity"`
}

// CheckoutSession is a remote-hosted, time-bounded payment flow. It is never
// persisted locally; the remote provider is the sole source of truth and
// sessions are re-queried by ID for success confirmation.
type CheckoutSession struct {
	ID             string            `json:"id"`
	URL            string            `json:"url"`
	Status         string            `json:"status"`
	PaymentStatus  string            `json:"payment_status"`
	SubscriptionID string            `json:"subscription_id,omitempty"`
	Metadata       map[string]string `json:"metadata,omitempty"`
}

// Paid reports whether the session's payment has completed.
func (s *CheckoutSession) Paid() bool {
	return s.PaymentStatus == "paid"
}

// SubscriptionStatus is the lifecycle state of a local subscription record.
//
// The state machine is incomplete -> active -> {past_due <-> active} ->
// canceled. The core only ever writes StatusIncomplete at creation; every
// other transition must be applied by a webhook consumer reacting to
// normalized Events.
type SubscriptionStatus string

const (
	StatusIncomplete SubscriptionStatus = "incomplete"
	StatusActive     SubscriptionStatus = "active"
	StatusTrialing   SubscriptionStatus = "trialing"
	StatusPastDue    SubscriptionStatus = "past_due"
	StatusUnpaid     SubscriptionStatus = "unpaid"
	StatusCanceled   SubscriptionStatus = "canceled"
)

// Subscription is the locally persisted subscription row for one principal.
// PaymentSessionID denormalizes the checkout session that opened the
// subscription; the remote subscription is reached through it.
type Subscription struct {
	Name             string             `json:"name"`
	PlanID           string             `json:"plan_id"`
	PaymentSessionID string             `json:"payment_session_id"`
	Status           SubscriptionStatus `json:"status"`
	StartDate        time.Time          `json:"start_date"`
	EndDate          time.Time          `json:"end_date"`
	TrialEndsAt      *time.Time         `json:"trial_ends_at,omitempty"`
}

// Event is a verified webhook notification reduced to the provider-agnostic
// envelope. All other provider-specific fields are discarded at parse time.
// Events are transient and never persisted by this package.
type Event struct {
	ID      string          `json:"id"`
	Type    string          `json:"type"`
	Created time.Time       `json:"created"`
	Data    json.RawMessage `json:"data"`
}

// EventHandler consumes normalized webhook events. Implementations are
// expected to map event types onto subscription status writes; the core
// never transitions status itself.
type EventHandler func(ctx context.Context, event Event) error
