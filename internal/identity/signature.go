package identity

import (
	"crypto/ed25519"

	"github.com/btcsuite/btcd/btcutil/base58"

	dErrors "repute/pkg/domain-errors"
)

// VerifySignature checks that signatureB58 is a valid Ed25519 signature over
// the exact byte sequence of message by the key publicKeyB58.
//
// Malformed encodings (invalid base58 alphabet, wrong decoded length) return
// a bad_request domain error; callers at authentication boundaries map that
// to an authentication failure. A well-formed signature that does not verify
// returns (false, nil) — cryptographic mismatch is a result, not an error.
func VerifySignature(message, signatureB58, publicKeyB58 string) (bool, error) {
	sig, err := decodeBase58(signatureB58, ed25519.SignatureSize, "signature")
	if err != nil {
		return false, err
	}
	key, err := decodeBase58(publicKeyB58, ed25519.PublicKeySize, "public key")
	if err != nil {
		return false, err
	}
	return ed25519.Verify(ed25519.PublicKey(key), []byte(message), sig), nil
}

// decodeBase58 decodes s and enforces the expected byte length. base58.Decode
// returns an empty slice for any input containing characters outside the
// base58 alphabet, so the length check also rejects malformed input.
func decodeBase58(s string, wantLen int, what string) ([]byte, error) {
	if s == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "invalid encoding: empty "+what)
	}
	decoded := base58.Decode(s)
	if len(decoded) != wantLen {
		return nil, dErrors.New(dErrors.CodeBadRequest, "invalid encoding: malformed "+what)
	}
	return decoded, nil
}
