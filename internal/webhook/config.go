package webhook

import (
	"fmt"

	"github.com/mattjoyce/gatehouse/internal/config"
	"github.com/mattjoyce/gatehouse/internal/secrets"
)

// FromGlobalConfig converts the loaded configuration to webhook.Config.
// Secret references are resolved through sp; an unresolved reference leaves
// the endpoint unconfigured rather than failing startup.
func FromGlobalConfig(cfg *config.Config, sp secrets.Provider) (Config, error) {
	if cfg == nil {
		return Config{}, fmt.Errorf("config is nil")
	}

	clerk, err := endpointFrom("clerk", cfg.Webhooks.Clerk, sp)
	if err != nil {
		return Config{}, err
	}
	stripe, err := endpointFrom("stripe", cfg.Webhooks.Stripe, sp)
	if err != nil {
		return Config{}, err
	}

	return Config{
		Listen:          cfg.HTTP.Listen,
		ReadTimeout:     cfg.HTTP.ReadTimeout,
		WriteTimeout:    cfg.HTTP.WriteTimeout,
		ShutdownTimeout: cfg.HTTP.ShutdownTimeout,
		Clerk:           clerk,
		Stripe:          stripe,
	}, nil
}

func endpointFrom(name string, ep config.EndpointConfig, sp secrets.Provider) (EndpointConfig, error) {
	tolerance, err := config.ParseTolerance(ep.Tolerance)
	if err != nil {
		return EndpointConfig{}, fmt.Errorf("webhook endpoint %q: invalid tolerance %q: %w", name, ep.Tolerance, err)
	}

	maxBodySize, err := config.ParseMaxBodySize(ep.MaxBodySize)
	if err != nil {
		return EndpointConfig{}, fmt.Errorf("webhook endpoint %q: invalid max_body_size %q: %w", name, ep.MaxBodySize, err)
	}

	var secret string
	if sp != nil && ep.SecretRef != "" {
		secret, _ = sp.Lookup(ep.SecretRef)
	}

	return EndpointConfig{
		Path:        ep.Path,
		Secret:      secret,
		Tolerance:   tolerance,
		MaxBodySize: maxBodySize,
	}, nil
}
