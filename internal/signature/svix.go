package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
)

const svixSecretPrefix = "whsec_"

// SvixVerifier checks the Svix signature scheme used for identity-provider
// deliveries: base64(HMAC-SHA256(key, "{id}.{timestamp}.{body}")) compared
// against each "<version>,<signature>" entry of the signature header.
type SvixVerifier struct {
	key  []byte
	opts options
}

// NewSvixVerifier decodes a whsec_-prefixed secret into the signing key.
func NewSvixVerifier(secret string, opts ...Option) (*SvixVerifier, error) {
	encoded := strings.TrimPrefix(secret, svixSecretPrefix)
	if encoded == "" {
		return nil, fmt.Errorf("%w: empty key", ErrMalformedSecret)
	}
	key, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSecret, err)
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &SvixVerifier{key: key, opts: o}, nil
}

// Sign computes the expected signature for a delivery.
func (v *SvixVerifier) Sign(msgID, timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, v.key)
	mac.Write([]byte(msgID))
	mac.Write([]byte{'.'})
	mac.Write([]byte(timestamp))
	mac.Write([]byte{'.'})
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// Verify reports whether any signature in header matches the delivery.
func (v *SvixVerifier) Verify(msgID, timestamp, header string, body []byte) Result {
	if v.opts.tolerance > 0 {
		ts, err := strconv.ParseInt(timestamp, 10, 64)
		if err != nil {
			return Result{Reason: "unparseable timestamp"}
		}
		if !v.opts.withinTolerance(ts) {
			return Result{Reason: "timestamp outside tolerance"}
		}
	}

	res := Result{Expected: v.Sign(msgID, timestamp, body)}
	for _, entry := range strings.Split(header, " ") {
		_, sig, ok := strings.Cut(entry, ",")
		if !ok {
			continue
		}
		res.Candidates = append(res.Candidates, sig)
		if Equal(sig, res.Expected) {
			res.Authentic = true
		}
	}

	if !res.Authentic {
		if len(res.Candidates) == 0 {
			res.Reason = "no signature entries"
		} else {
			res.Reason = "no matching signature"
		}
	}
	return res
}
