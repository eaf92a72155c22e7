// Package echo provides an Echo handler for billing webhook endpoints
package echo

import (
	"errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/mihaimyh/gobilling/pkg/billing"
)

// defaultMaxBodyBytes caps inbound webhook payloads
const defaultMaxBodyBytes = 256 * 1024

// Config holds webhook handler configuration
type Config struct {
	// Provider verifies signatures and normalizes events (required)
	Provider billing.Provider

	// Handler receives verified events (optional)
	// If nil, verified events are acknowledged and dropped
	Handler billing.EventHandler

	// SignatureHeader is the header carrying the payload signature
	// Default: "Stripe-Signature"
	SignatureHeader string

	// MaxBodyBytes caps the payload size
	// Default: 256 KiB
	MaxBodyBytes int64

	// OnRejected is called when verification or parsing fails
	// If nil, returns 400 JSON with the rejection reason
	OnRejected func(c echo.Context, err error) error

	// OnError is called when the event handler fails
	// If nil, returns 500 JSON
	OnError func(c echo.Context, err error) error
}

// WebhookHandler creates an Echo handler that verifies, normalizes and
// dispatches provider webhook deliveries
func WebhookHandler(cfg Config) echo.HandlerFunc {
	// Validate required configuration at startup (fail fast)
	if cfg.Provider == nil {
		panic("gobilling/echo: Config.Provider is required")
	}
	if cfg.SignatureHeader == "" {
		cfg.SignatureHeader = "Stripe-Signature"
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = defaultMaxBodyBytes
	}

	return func(c echo.Context) error {
		r := c.Request()
		r.Body = http.MaxBytesReader(c.Response(), r.Body, cfg.MaxBodyBytes)
		body, err := io.ReadAll(r.Body)
		if err != nil || len(body) == 0 {
			return reject(c, cfg, errors.New("invalid payload size"))
		}

		event, err := cfg.Provider.ParseEvent(body, r.Header.Get(cfg.SignatureHeader))
		if err != nil {
			return reject(c, cfg, err)
		}

		if cfg.Handler != nil {
			if err := cfg.Handler(r.Context(), *event); err != nil {
				if cfg.OnError != nil {
					return cfg.OnError(c, err)
				}
				return c.JSON(http.StatusInternalServerError, map[string]string{
					"error": "failed to process webhook",
				})
			}
		}

		return c.JSON(http.StatusOK, map[string]bool{"received": true})
	}
}

func reject(c echo.Context, cfg Config, err error) error {
	if cfg.OnRejected != nil {
		return cfg.OnRejected(c, err)
	}
	return c.JSON(http.StatusBadRequest, map[string]string{
		"error": err.Error(),
	})
}
