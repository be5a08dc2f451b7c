package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// DefaultTolerance applies when an endpoint omits tolerance.
const DefaultTolerance = 5 * time.Minute

// DefaultMaxBodySize is 1 MB.
const DefaultMaxBodySize int64 = 1048576

// Load reads, interpolates, defaults, integrity-checks and validates the
// configuration at configPath. A directory path means config.yaml inside it.
func Load(configPath string) (*Config, error) {
	absPath, err := resolveConfigFile(configPath)
	if err != nil {
		return nil, err
	}

	if err := VerifyIntegrity(absPath); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", absPath, err)
	}

	cfg := Defaults()
	if err := yaml.Unmarshal([]byte(interpolateEnv(string(data))), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", absPath, err)
	}
	cfg.SourcePath = absPath
	applyDefaults(cfg)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func resolveConfigFile(configPath string) (string, error) {
	absPath, err := filepath.Abs(configPath)
	if err != nil {
		return "", fmt.Errorf("failed to resolve config path %q: %w", configPath, err)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return "", fmt.Errorf("config file not found: %s\n"+
			"Hint: Check the path or run with --config flag", absPath)
	}
	if info.IsDir() {
		absPath = filepath.Join(absPath, "config.yaml")
		if !fileExists(absPath) {
			return "", fmt.Errorf("directory provided but config.yaml not found: %s", absPath)
		}
	}
	return absPath, nil
}

// applyDefaults fills keys that were present in the file but left empty.
func applyDefaults(cfg *Config) {
	def := Defaults()
	if cfg.Service.Name == "" {
		cfg.Service.Name = def.Service.Name
	}
	if cfg.Service.LogLevel == "" {
		cfg.Service.LogLevel = def.Service.LogLevel
	}
	cfg.Service.LogLevel = strings.ToLower(cfg.Service.LogLevel)
	if cfg.Service.LogFormat == "" {
		cfg.Service.LogFormat = def.Service.LogFormat
	}
	if cfg.Store.Driver == "" {
		cfg.Store.Driver = def.Store.Driver
	}
	if cfg.Store.Driver == DriverSQLite && cfg.Store.Path == "" {
		cfg.Store.Path = def.Store.Path
	}
	if cfg.Secrets == nil {
		cfg.Secrets = map[string]string{}
	}
	fillEndpoint(&cfg.Webhooks.Clerk, def.Webhooks.Clerk)
	fillEndpoint(&cfg.Webhooks.Stripe, def.Webhooks.Stripe)
}

func fillEndpoint(ep *EndpointConfig, def EndpointConfig) {
	if ep.Path == "" {
		ep.Path = def.Path
	}
	if ep.SecretRef == "" {
		ep.SecretRef = def.SecretRef
	}
}

// interpolateEnv replaces ${VAR} with environment variable values. Unset
// variables are left as-is so callers can detect them.
func interpolateEnv(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		varName := envVarPattern.FindStringSubmatch(match)[1]
		if value, exists := os.LookupEnv(varName); exists {
			return value
		}
		return match
	})
}

// UnresolvedSecrets returns the names of secrets whose value still holds an
// unset ${VAR} reference.
func (c *Config) UnresolvedSecrets() []string {
	var names []string
	for name, v := range c.Secrets {
		if envVarPattern.MatchString(v) {
			names = append(names, name)
		}
	}
	return names
}

func validate(cfg *Config) error {
	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[cfg.Service.LogLevel] {
		return fmt.Errorf("service.log_level must be one of: debug, info, warn, error (got %q)", cfg.Service.LogLevel)
	}
	if cfg.Service.LogFormat != "json" && cfg.Service.LogFormat != "text" {
		return fmt.Errorf("service.log_format must be json or text (got %q)", cfg.Service.LogFormat)
	}

	if cfg.HTTP.Listen == "" {
		return fmt.Errorf("http.listen is required")
	}
	if cfg.HTTP.ReadTimeout < 0 || cfg.HTTP.WriteTimeout < 0 || cfg.HTTP.ShutdownTimeout < 0 {
		return fmt.Errorf("http timeouts must not be negative")
	}

	switch cfg.Store.Driver {
	case DriverSQLite:
		if cfg.Store.Path == "" {
			return fmt.Errorf("store.path is required for the sqlite driver")
		}
	case DriverPostgres:
		if cfg.Store.DSN == "" {
			return fmt.Errorf("store.dsn is required for the postgres driver")
		}
		if envVarPattern.MatchString(cfg.Store.DSN) {
			return fmt.Errorf("store.dsn: environment variable ${%s} is not set", envVarPattern.FindStringSubmatch(cfg.Store.DSN)[1])
		}
	default:
		return fmt.Errorf("store.driver must be %q or %q (got %q)", DriverSQLite, DriverPostgres, cfg.Store.Driver)
	}

	endpoints := map[string]EndpointConfig{
		"clerk":  cfg.Webhooks.Clerk,
		"stripe": cfg.Webhooks.Stripe,
	}
	for name, ep := range endpoints {
		if !strings.HasPrefix(ep.Path, "/") {
			return fmt.Errorf("webhooks.%s.path must start with / (got %q)", name, ep.Path)
		}
		if _, err := ParseTolerance(ep.Tolerance); err != nil {
			return fmt.Errorf("webhooks.%s.tolerance: %w", name, err)
		}
		if _, err := ParseMaxBodySize(ep.MaxBodySize); err != nil {
			return fmt.Errorf("webhooks.%s.max_body_size: %w", name, err)
		}
	}
	if cfg.Webhooks.Clerk.Path == cfg.Webhooks.Stripe.Path {
		return fmt.Errorf("webhooks.clerk.path and webhooks.stripe.path must differ")
	}

	return nil
}

// ParseTolerance parses a replay window. Empty means DefaultTolerance;
// "0", "off" and "disabled" mean no window.
func ParseTolerance(s string) (time.Duration, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return DefaultTolerance, nil
	case "0", "off", "disabled":
		return 0, nil
	}
	d, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", s, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("must not be negative (got %s)", s)
	}
	return d, nil
}

// ParseMaxBodySize parses size strings like "1MB", "512KB" or "2048576".
// Returns DefaultMaxBodySize if empty.
func ParseMaxBodySize(size string) (int64, error) {
	if size == "" {
		return DefaultMaxBodySize, nil
	}

	upper := strings.ToUpper(strings.TrimSpace(size))
	multiplier := int64(1)
	for _, unit := range []struct {
		suffix string
		mult   int64
	}{
		{"KB", 1024},
		{"MB", 1024 * 1024},
		{"GB", 1024 * 1024 * 1024},
	} {
		if strings.HasSuffix(upper, unit.suffix) {
			multiplier = unit.mult
			upper = strings.TrimSuffix(upper, unit.suffix)
			break
		}
	}

	value, err := strconv.ParseInt(strings.TrimSpace(upper), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size value: %w", err)
	}
	if value <= 0 {
		return 0, fmt.Errorf("size must be positive")
	}

	result := value * multiplier
	if result/multiplier != value {
		return 0, fmt.Errorf("size too large")
	}
	return result, nil
}

// Redacted returns a copy with secret values masked, for display.
func (c *Config) Redacted() *Config {
	out := *c
	out.Secrets = make(map[string]string, len(c.Secrets))
	for name, v := range c.Secrets {
		if envVarPattern.MatchString(v) {
			out.Secrets[name] = v
			continue
		}
		out.Secrets[name] = "***"
	}
	if c.Store.DSN != "" {
		out.Store.DSN = "***"
	}
	return &out
}
