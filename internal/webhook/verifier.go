// Package webhook authenticates inbound settlement notifications using a
// shared-secret HMAC over the canonicalized request payload. Verification
// runs before any ledger lookup so unauthenticated payloads never trigger
// expensive external calls.
package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/gowebpki/jcs"

	dErrors "repute/pkg/domain-errors"
)

// SignatureHeader carries the hex-encoded HMAC of the request body.
const SignatureHeader = "X-Webhook-Signature"

// Verifier checks settlement notification authenticity.
type Verifier struct {
	secret []byte
}

// New creates a Verifier with the pre-shared secret.
func New(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Verify authenticates payload against the supplied signature header value.
// The payload is canonicalized with RFC 8785 JCS so that semantically equal
// JSON bodies produce the same MAC regardless of key order or whitespace.
//
// Returns an unauthorized domain error when the header is missing or the MAC
// does not match. The comparison is constant time.
func (v *Verifier) Verify(payload []byte, signature string) error {
	if signature == "" {
		return dErrors.New(dErrors.CodeUnauthorized, "missing webhook signature")
	}
	// Tolerate the common "sha256=<hex>" header format.
	signature = strings.TrimPrefix(signature, "sha256=")

	canonical, err := jcs.Transform(payload)
	if err != nil {
		return dErrors.New(dErrors.CodeBadRequest, "invalid JSON payload")
	}

	mac := hmac.New(sha256.New, v.secret)
	mac.Write(canonical)
	expected := mac.Sum(nil)

	supplied, err := hex.DecodeString(signature)
	if err != nil {
		return dErrors.New(dErrors.CodeUnauthorized, "invalid webhook signature")
	}
	if !hmac.Equal(expected, supplied) {
		return dErrors.New(dErrors.CodeUnauthorized, "invalid webhook signature")
	}
	return nil
}

// Sign computes the hex-encoded MAC for a payload. Exported for test fixtures
// and for the notification sender CLI.
func (v *Verifier) Sign(payload []byte) (string, error) {
	canonical, err := jcs.Transform(payload)
	if err != nil {
		return "", dErrors.New(dErrors.CodeBadRequest, "invalid JSON payload")
	}
	mac := hmac.New(sha256.New, v.secret)
	mac.Write(canonical)
	return hex.EncodeToString(mac.Sum(nil)), nil
}
