package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

// StripeVerifier checks the Stripe-Signature header:
// hex(HMAC-SHA256(secret, "{t}.{body}")) compared against every v1 entry.
type StripeVerifier struct {
	secret []byte
	opts   options
}

// NewStripeVerifier returns a verifier keyed by the plain endpoint secret.
func NewStripeVerifier(secret string, opts ...Option) (*StripeVerifier, error) {
	if secret == "" {
		return nil, fmt.Errorf("%w: empty secret", ErrMalformedSecret)
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &StripeVerifier{secret: []byte(secret), opts: o}, nil
}

// StripeHeader is the parsed form of a Stripe-Signature header.
type StripeHeader struct {
	Timestamp  string
	Signatures []string
}

// ParseStripeHeader splits "t=...,v1=...,v0=..." into its timestamp and v1
// signatures. Unknown keys are ignored.
func ParseStripeHeader(header string) (StripeHeader, bool) {
	var h StripeHeader
	for _, pair := range strings.Split(header, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok {
			continue
		}
		switch key {
		case "t":
			if h.Timestamp == "" {
				h.Timestamp = value
			}
		case "v1":
			if value != "" {
				h.Signatures = append(h.Signatures, value)
			}
		}
	}
	return h, h.Timestamp != "" && len(h.Signatures) > 0
}

// Sign computes the expected hex signature for timestamp and body.
func (v *StripeVerifier) Sign(timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, v.secret)
	mac.Write([]byte(timestamp))
	mac.Write([]byte{'.'})
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify reports whether header carries a valid signature for body.
func (v *StripeVerifier) Verify(header string, body []byte) Result {
	h, ok := ParseStripeHeader(header)
	if !ok {
		return Result{Reason: "malformed signature header"}
	}

	if v.opts.tolerance > 0 {
		ts, err := strconv.ParseInt(h.Timestamp, 10, 64)
		if err != nil {
			return Result{Reason: "unparseable timestamp"}
		}
		if !v.opts.withinTolerance(ts) {
			return Result{Reason: "timestamp outside tolerance"}
		}
	}

	res := Result{
		Expected:   v.Sign(h.Timestamp, body),
		Candidates: h.Signatures,
	}
	for _, sig := range h.Signatures {
		if Equal(sig, res.Expected) {
			res.Authentic = true
		}
	}
	if !res.Authentic {
		res.Reason = "no matching signature"
	}
	return res
}
