// Package signature verifies webhook deliveries from the identity provider
// (Svix-signed Clerk events) and the payment provider (Stripe).
//
// Verifiers are constructed once with their shared secret and are safe for
// concurrent use. They never return the secret and only expose computed
// signatures through Result for diagnostics; callers should log them via
// Redact.
package signature

import (
	"crypto/subtle"
	"errors"
	"time"
)

// DefaultTolerance is the replay window applied to delivery timestamps.
const DefaultTolerance = 5 * time.Minute

var (
	// ErrInvalidSignature is the generic verification failure. It is used for
	// both tampered and malformed signatures so callers cannot act as an oracle.
	ErrInvalidSignature = errors.New("invalid signature")

	// ErrMalformedSecret means the configured secret cannot be used as a key.
	ErrMalformedSecret = errors.New("malformed webhook secret")
)

// Result is the outcome of a verification.
type Result struct {
	Authentic bool

	// Reason is a short, non-secret explanation when Authentic is false.
	Reason string

	// Expected is the signature computed locally. Candidates are the values
	// offered by the request. Diagnostics only.
	Expected   string
	Candidates []string
}

// Err returns ErrInvalidSignature when the result is not authentic.
func (r Result) Err() error {
	if r.Authentic {
		return nil
	}
	return ErrInvalidSignature
}

// Equal reports whether a and b are equal without short-circuiting on the
// first differing byte. Lengths are compared first; length is not secret.
func Equal(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// Redact keeps enough of a signature to correlate log lines.
func Redact(sig string) string {
	const keep = 6
	if len(sig) <= keep {
		return "***"
	}
	return sig[:keep] + "..."
}

// Option configures a verifier.
type Option func(*options)

type options struct {
	tolerance time.Duration
	now       func() time.Time
}

func defaultOptions() options {
	return options{
		tolerance: DefaultTolerance,
		now:       time.Now,
	}
}

// WithTolerance sets the replay window. Zero disables the timestamp check.
func WithTolerance(d time.Duration) Option {
	return func(o *options) {
		if d < 0 {
			d = 0
		}
		o.tolerance = d
	}
}

// WithClock overrides the time source used for the replay window.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// withinTolerance reports whether unixSeconds lies within ±tolerance of now.
func (o options) withinTolerance(unixSeconds int64) bool {
	if o.tolerance == 0 {
		return true
	}
	delta := o.now().Sub(time.Unix(unixSeconds, 0))
	if delta < 0 {
		delta = -delta
	}
	return delta <= o.tolerance
}
