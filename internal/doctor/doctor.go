// Package doctor validates a loaded gatehouse configuration beyond what
// config.Load enforces: secret resolution, secret format, replay windows and
// store placement.
package doctor

import (
	"encoding/json"
	"fmt"
	"net"
	"sort"
	"strings"
	"time"

	"github.com/mattjoyce/gatehouse/internal/config"
	"github.com/mattjoyce/gatehouse/internal/secrets"
	"github.com/mattjoyce/gatehouse/internal/signature"
	"github.com/mattjoyce/gatehouse/internal/storage"
)

// Result holds the outcome of a validation run.
type Result struct {
	Valid    bool    `json:"valid"`
	Errors   []Issue `json:"errors,omitempty"`
	Warnings []Issue `json:"warnings,omitempty"`
}

// Issue describes a single validation error or warning.
type Issue struct {
	Category string `json:"category"`
	Message  string `json:"message"`
	Field    string `json:"field,omitempty"`
}

// maxSaneTolerance flags replay windows wide enough to make capture-and-replay
// practical.
const maxSaneTolerance = time.Hour

// Doctor validates a loaded configuration.
type Doctor struct {
	cfg     *config.Config
	secrets secrets.Provider
}

// New creates a Doctor. Secrets are looked up through sp exactly as the
// server will at startup.
func New(cfg *config.Config, sp secrets.Provider) *Doctor {
	return &Doctor{cfg: cfg, secrets: sp}
}

// Validate runs all checks and returns a result.
func (d *Doctor) Validate() *Result {
	r := &Result{Valid: true}

	d.validateListen(r)
	d.validateEndpoint(r, "clerk", d.cfg.Webhooks.Clerk, checkSvixSecret)
	d.validateEndpoint(r, "stripe", d.cfg.Webhooks.Stripe, checkStripeSecret)
	d.validateStore(r)
	d.warnUnusedSecrets(r)

	r.Valid = len(r.Errors) == 0
	return r
}

func (d *Doctor) addError(r *Result, category, field, msg string) {
	r.Errors = append(r.Errors, Issue{Category: category, Field: field, Message: msg})
}

func (d *Doctor) addWarning(r *Result, category, field, msg string) {
	r.Warnings = append(r.Warnings, Issue{Category: category, Field: field, Message: msg})
}

func (d *Doctor) validateListen(r *Result) {
	host, _, err := net.SplitHostPort(d.cfg.HTTP.Listen)
	if err != nil {
		d.addError(r, "http", "http.listen", fmt.Sprintf("invalid listen address %q: %v", d.cfg.HTTP.Listen, err))
		return
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		d.addWarning(r, "http", "http.listen",
			"listening on all interfaces; terminate TLS in front of the gateway")
	}
}

type secretCheck func(secret string) (warning string, err error)

func checkSvixSecret(secret string) (string, error) {
	_, err := signature.NewSvixVerifier(secret)
	if err != nil {
		return "", err
	}
	if !strings.HasPrefix(secret, "whsec_") {
		return "secret has no whsec_ prefix; it will be used as raw base64", nil
	}
	return "", nil
}

func checkStripeSecret(secret string) (string, error) {
	if _, err := signature.NewStripeVerifier(secret); err != nil {
		return "", err
	}
	if !strings.HasPrefix(secret, "whsec_") {
		return "secret does not look like a Stripe endpoint secret (whsec_...)", nil
	}
	return "", nil
}

// validateEndpoint checks the secret reference resolves and parses, and that
// the replay window is reasonable.
func (d *Doctor) validateEndpoint(r *Result, name string, ep config.EndpointConfig, check secretCheck) {
	field := "webhooks." + name

	secret, ok := d.secrets.Lookup(ep.SecretRef)
	switch {
	case !ok:
		if raw, declared := d.cfg.Secrets[ep.SecretRef]; declared && !secrets.Resolved(raw) {
			d.addWarning(r, "secrets", field+".secret_ref",
				fmt.Sprintf("secret %q references an unset environment variable; %s will answer 500", ep.SecretRef, ep.Path))
		} else {
			d.addWarning(r, "secrets", field+".secret_ref",
				fmt.Sprintf("secret %q is not defined; %s will answer 500", ep.SecretRef, ep.Path))
		}
	default:
		warning, err := check(secret)
		if err != nil {
			d.addError(r, "secrets", "secrets."+ep.SecretRef, err.Error())
		} else if warning != "" {
			d.addWarning(r, "secrets", "secrets."+ep.SecretRef, warning)
		}
	}

	tolerance, err := config.ParseTolerance(ep.Tolerance)
	if err != nil {
		d.addError(r, "webhooks", field+".tolerance", err.Error())
		return
	}
	switch {
	case tolerance == 0:
		d.addWarning(r, "webhooks", field+".tolerance", "replay window disabled; captured deliveries can be replayed indefinitely")
	case tolerance > maxSaneTolerance:
		d.addWarning(r, "webhooks", field+".tolerance",
			fmt.Sprintf("replay window %s is unusually wide", tolerance))
	}
}

func (d *Doctor) validateStore(r *Result) {
	if d.cfg.Store.Driver != config.DriverSQLite {
		return
	}
	if err := storage.CheckLocalFilesystem(d.cfg.Store.Path); err != nil {
		d.addError(r, "store", "store.path", err.Error())
	}
}

// warnUnusedSecrets flags secrets no endpoint refers to.
func (d *Doctor) warnUnusedSecrets(r *Result) {
	used := map[string]bool{
		d.cfg.Webhooks.Clerk.SecretRef:  true,
		d.cfg.Webhooks.Stripe.SecretRef: true,
	}
	var unused []string
	for name := range d.cfg.Secrets {
		if !used[name] {
			unused = append(unused, name)
		}
	}
	sort.Strings(unused)
	for _, name := range unused {
		d.addWarning(r, "secrets", "secrets."+name, "secret is not referenced by any webhook")
	}
}

// FormatHuman returns a human-readable validation report.
func FormatHuman(r *Result) string {
	var b strings.Builder

	switch {
	case r.Valid && len(r.Warnings) == 0:
		b.WriteString("Configuration valid.\n")
		return b.String()
	case r.Valid:
		fmt.Fprintf(&b, "Configuration valid (%d warning(s))\n", len(r.Warnings))
	default:
		fmt.Fprintf(&b, "Configuration invalid (%d error(s), %d warning(s))\n", len(r.Errors), len(r.Warnings))
	}

	writeIssues(&b, "ERROR", r.Errors)
	writeIssues(&b, "WARN ", r.Warnings)
	return b.String()
}

func writeIssues(b *strings.Builder, label string, issues []Issue) {
	for _, i := range issues {
		if i.Field != "" {
			fmt.Fprintf(b, "  %s [%s] %s: %s\n", label, i.Category, i.Field, i.Message)
		} else {
			fmt.Fprintf(b, "  %s [%s] %s\n", label, i.Category, i.Message)
		}
	}
}

// FormatJSON returns the result as indented JSON.
func FormatJSON(r *Result) (string, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
