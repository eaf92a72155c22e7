// Package fiber provides a Fiber handler for billing webhook endpoints
package fiber

import (
	"errors"

	"github.com/gofiber/fiber/v2"

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
	MaxBodyBytes int

	// OnRejected is called when verification or parsing fails
	// If nil, returns 400 JSON with the rejection reason
	OnRejected func(c *fiber.Ctx, err error) error

	// OnError is called when the event handler fails
	// If nil, returns 500 JSON
	OnError func(c *fiber.Ctx, err error) error
}

// WebhookHandler creates a Fiber handler that verifies, normalizes and
// dispatches provider webhook deliveries
func WebhookHandler(cfg Config) fiber.Handler {
	// Validate required configuration at startup (fail fast)
	if cfg.Provider == nil {
		panic("gobilling/fiber: Config.Provider is required")
	}
	if cfg.SignatureHeader == "" {
		cfg.SignatureHeader = "Stripe-Signature"
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = defaultMaxBodyBytes
	}

	return func(c *fiber.Ctx) error {
		body := c.Body()
		if len(body) == 0 || len(body) > cfg.MaxBodyBytes {
			return reject(c, cfg, errors.New("invalid payload size"))
		}

		event, err := cfg.Provider.ParseEvent(body, c.Get(cfg.SignatureHeader))
		if err != nil {
			return reject(c, cfg, err)
		}

		if cfg.Handler != nil {
			if err := cfg.Handler(c.UserContext(), *event); err != nil {
				if cfg.OnError != nil {
					return cfg.OnError(c, err)
				}
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
					"error": "failed to process webhook",
				})
			}
		}

		return c.JSON(fiber.Map{"received": true})
	}
}

func reject(c *fiber.Ctx, cfg Config, err error) error {
	if cfg.OnRejected != nil {
		return cfg.OnRejected(c, err)
	}
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": err.Error(),
	})
}
