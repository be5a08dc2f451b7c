package webhook

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/mattjoyce/gatehouse/internal/dispatch"
	"github.com/mattjoyce/gatehouse/internal/event"
)

// Dispatcher projects a parsed event into state.
type Dispatcher interface {
	Dispatch(ctx context.Context, ev event.Event) (dispatch.Outcome, error)
}

// Pinger reports store liveness for /healthz.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ErrSecretNotConfigured is returned when a provider endpoint is hit but no
// secret was resolved for it at startup.
var ErrSecretNotConfigured = errors.New("webhook secret not configured")

var errMissingHeaders = errors.New("missing signature headers")

// Config holds webhook server configuration.
type Config struct {
	Listen          string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration

	Clerk  EndpointConfig
	Stripe EndpointConfig
}

// EndpointConfig defines a single provider endpoint.
type EndpointConfig struct {
	// Path is the URL path for this webhook (e.g., "/stripe-webhook")
	Path string

	// Secret is the provider signing secret. Empty means not configured:
	// the endpoint stays mounted and answers 500.
	Secret string

	// Tolerance is the replay window; zero disables the timestamp check.
	Tolerance time.Duration

	// MaxBodySize is the maximum allowed request body size in bytes (default: 1MB)
	MaxBodySize int64
}

// Request is one inbound delivery. It is never persisted.
type Request struct {
	Body       []byte
	Header     http.Header
	ReceivedAt time.Time
}

// clerkResponse is the success body for identity-provider deliveries.
type clerkResponse struct {
	Success bool `json:"success"`
}

// stripeResponse is the success body for payment-provider deliveries.
type stripeResponse struct {
	Received bool `json:"received"`
}

type healthResponse struct {
	Status string `json:"status"`
}

// Default values
const (
	DefaultMaxBodySize     = 1048576 // 1 MB
	DefaultReadTimeout     = 10 * time.Second
	DefaultWriteTimeout    = 10 * time.Second
	DefaultShutdownTimeout = 5 * time.Second
)

// Svix delivery headers. Svix also sends the unbranded webhook-* names.
const (
	headerSvixID        = "svix-id"
	headerSvixTimestamp = "svix-timestamp"
	headerSvixSignature = "svix-signature"

	headerWebhookID        = "webhook-id"
	headerWebhookTimestamp = "webhook-timestamp"
	headerWebhookSignature = "webhook-signature"

	headerStripeSignature = "Stripe-Signature"
)
