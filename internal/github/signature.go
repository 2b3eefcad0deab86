package github

import (
	"crypto/hmac"
	"crypto/sha1" //nolint:gosec // provider's legacy webhook signature scheme
	"encoding/hex"
	"strings"
)

// signaturePrefix is the scheme prefix the provider puts in front of the
// hex-encoded HMAC in the signature header.
const signaturePrefix = "sha1="

// SignBody computes the signature header value for a raw request body and
// secret. Exposed for tests and webhook redelivery tooling.
func SignBody(body []byte, secret string) string {
	mac := hmac.New(sha1.New, []byte(secret))
	mac.Write(body)
	return signaturePrefix + hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks an inbound webhook delivery against the repository's
// shared secret. It never panics or errors on a mismatch; it fails closed,
// returning false when the secret, header, or body is absent.
//
// Verification must run over the raw body bytes exactly as received. Hashing
// a re-serialized payload breaks verification through whitespace and key
// ordering drift.
func VerifySignature(body []byte, signatureHeader, secret string) bool {
	if secret == "" || signatureHeader == "" || len(body) == 0 {
		return false
	}

	if !strings.HasPrefix(signatureHeader, signaturePrefix) {
		return false
	}

	got, err := hex.DecodeString(strings.TrimPrefix(signatureHeader, signaturePrefix))
	if err != nil {
		return false
	}

	mac := hmac.New(sha1.New, []byte(secret))
	mac.Write(body)
	want := mac.Sum(nil)

	return hmac.Equal(got, want)
}
