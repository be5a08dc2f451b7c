package config

import "time"

// Config represents the complete gatehouse configuration.
type Config struct {
	Service  ServiceConfig     `yaml:"service"`
	HTTP     HTTPConfig        `yaml:"http"`
	Store    StoreConfig       `yaml:"store"`
	Secrets  map[string]string `yaml:"secrets,omitempty"`
	Webhooks WebhooksConfig    `yaml:"webhooks"`

	// SourcePath is the absolute path of the file the config was loaded from.
	SourcePath string `yaml:"-"`
}

// ServiceConfig defines core service settings.
type ServiceConfig struct {
	Name      string `yaml:"name"`
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// HTTPConfig defines the listener serving the webhook endpoints.
type HTTPConfig struct {
	Listen          string        `yaml:"listen"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// Store drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// StoreConfig selects the persistent store.
type StoreConfig struct {
	Driver string `yaml:"driver"`
	Path   string `yaml:"path,omitempty"` // sqlite
	DSN    string `yaml:"dsn,omitempty"`  // postgres
}

// WebhooksConfig holds one endpoint per provider.
type WebhooksConfig struct {
	Clerk  EndpointConfig `yaml:"clerk"`
	Stripe EndpointConfig `yaml:"stripe"`
}

// EndpointConfig defines a single provider endpoint.
type EndpointConfig struct {
	Path string `yaml:"path"`

	// SecretRef names an entry in the secrets section.
	SecretRef string `yaml:"secret_ref"`

	// Tolerance is the replay window, e.g. "5m". "0" or "off" disables it.
	Tolerance string `yaml:"tolerance,omitempty"`

	// MaxBodySize accepts plain bytes or a KB/MB/GB suffix (default 1MB).
	MaxBodySize string `yaml:"max_body_size,omitempty"`
}

// Defaults returns a Config with the values used when a key is omitted.
func Defaults() *Config {
	return &Config{
		Service: ServiceConfig{
			Name:      "gatehouse",
			LogLevel:  "info",
			LogFormat: "json",
		},
		HTTP: HTTPConfig{
			Listen:          "127.0.0.1:8080",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			ShutdownTimeout: 5 * time.Second,
		},
		Store: StoreConfig{
			Driver: DriverSQLite,
			Path:   "./data/gatehouse.db",
		},
		Secrets: map[string]string{},
		Webhooks: WebhooksConfig{
			Clerk: EndpointConfig{
				Path:      "/clerk-users-webhook",
				SecretRef: "clerk_webhook_secret",
				Tolerance: "5m",
			},
			Stripe: EndpointConfig{
				Path:      "/stripe-webhook",
				SecretRef: "stripe_webhook_secret",
				Tolerance: "5m",
			},
		},
	}
}
