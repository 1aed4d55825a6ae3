// Package identity validates decentralized identifiers and wallet signatures.
// It is pure: no network calls and no state. Services call ParseDID first to
// extract the owner key, then VerifySignature to authenticate the request.
package identity

import (
	"strings"

	dErrors "repute/pkg/domain-errors"
)

// ParseDID validates a candidate decentralized identifier and returns the
// owner's public key material embedded in it.
//
// A valid DID has at least three colon-delimited segments and a non-empty
// final segment, e.g. "did:sol:devnet:Abc123" -> "Abc123".
func ParseDID(did string) (string, error) {
	segments := strings.Split(did, ":")
	if len(segments) < 3 {
		return "", dErrors.New(dErrors.CodeBadRequest, "malformed DID: expected at least 3 colon-delimited segments")
	}
	ownerKey := segments[len(segments)-1]
	if ownerKey == "" {
		return "", dErrors.New(dErrors.CodeBadRequest, "malformed DID: empty public key segment")
	}
	return ownerKey, nil
}
