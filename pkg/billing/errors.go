package billing

import (
	"errors"
	"fmt"
)

var (
	// ErrProviderNotConfigured is returned when a provider is missing a
	// required secret or collaborator and cannot be constructed.
	ErrProviderNotConfigured = errors.New("billing provider not configured")

	// ErrCatalogSync is returned when remote catalog provisioning fails.
	// Synchronization is all-or-nothing: no partial cache is ever persisted
	// and the provider is unusable.
	ErrCatalogSync = errors.New("catalog synchronization failed")

	// ErrInvalidWebhookSignature is returned when webhook signature
	// verification fails.
	ErrInvalidWebhookSignature = errors.New("invalid webhook signature")

	// ErrInvalidWebhookPayload is returned when a webhook payload cannot be
	// parsed.
	ErrInvalidWebhookPayload = errors.New("invalid webhook payload")

	// ErrTierNotFound is returned when no tier matches the requested
	// identifier or name.
	ErrTierNotFound = errors.New("tier not found")

	// ErrSubscriptionNotFound is returned when a lifecycle operation needs a
	// subscription record that does not exist.
	ErrSubscriptionNotFound = errors.New("subscription not found")

	// ErrNoRequestContext is returned when redirect URLs are neither given
	// explicitly nor derivable from a request context.
	ErrNoRequestContext = errors.New("no request context for URL derivation")
)

// ErrorKind classifies a structured operation error.
type ErrorKind string

const (
	// KindConfiguration covers missing secrets or collaborators.
	KindConfiguration ErrorKind = "configuration"

	// KindRemoteAPI covers network or provider failures on outbound calls.
	KindRemoteAPI ErrorKind = "remote_api"

	// KindSignature covers webhook signature verification failures.
	KindSignature ErrorKind = "signature_verification"

	// KindStateConflict covers operations against subscription or tier
	// state that does not exist.
	KindStateConflict ErrorKind = "state_conflict"
)

// Error is a classified operation error carried inside a Result.
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Result is the outcome of a lifecycle mutation. Mutations never raise past
// the facade; failures are reported here with their classified cause instead
// of being accumulated on shared provider state.
type Result struct {
	OK  bool
	Err *Error
}

// Success returns a successful Result.
func Success() Result { return Result{OK: true} }

// Failure returns a failed Result wrapping the cause.
func Failure(kind ErrorKind, op string, err error) Result {
	return Result{Err: &Error{Kind: kind, Op: op, Err: err}}
}
