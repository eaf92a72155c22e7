// Package gin provides a Gin handler for billing webhook endpoints
package gin

import (
	"errors"
	"io"
	"net/http"

	gongin "github.com/gin-gonic/gin"

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
	OnRejected func(c *gongin.Context, err error)

	// OnError is called when the event handler fails
	// If nil, returns 500 JSON
	OnError func(c *gongin.Context, err error)
}

// WebhookHandler creates a Gin handler that verifies, normalizes and
// dispatches provider webhook deliveries
func WebhookHandler(cfg Config) gongin.HandlerFunc {
	// Validate required configuration at startup (fail fast)
	if cfg.Provider == nil {
		panic("gobilling/gin: Config.Provider is required")
	}
	if cfg.SignatureHeader == "" {
		cfg.SignatureHeader = "Stripe-Signature"
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = defaultMaxBodyBytes
	}

	return func(c *gongin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, cfg.MaxBodyBytes)
		body, err := io.ReadAll(c.Request.Body)
		if err != nil || len(body) == 0 {
			reject(c, cfg, errors.New("invalid payload size"))
			return
		}

		event, err := cfg.Provider.ParseEvent(body, c.GetHeader(cfg.SignatureHeader))
		if err != nil {
			reject(c, cfg, err)
			return
		}

		if cfg.Handler != nil {
			if err := cfg.Handler(c.Request.Context(), *event); err != nil {
				if cfg.OnError != nil {
					cfg.OnError(c, err)
					return
				}
				c.JSON(http.StatusInternalServerError, gongin.H{
					"error": "failed to process webhook",
				})
				return
			}
		}

		c.JSON(http.StatusOK, gongin.H{"received": true})
	}
}

func reject(c *gongin.Context, cfg Config, err error) {
	if cfg.OnRejected != nil {
		cfg.OnRejected(c, err)
		return
	}
	c.JSON(http.StatusBadRequest, gongin.H{
		"error": err.Error(),
	})
}
