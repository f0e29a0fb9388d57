// Package signature verifies that a webhook payload was produced by the
// payment provider.
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Header is the request header the provider signs payloads into.
const Header = "Hyperswitch-Signature"

// Verify reports whether sig is the hex-encoded HMAC-SHA256 of body under
// secret. The comparison is constant-time; an empty or malformed signature
// simply fails to match.
func Verify(body []byte, sig, secret string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(sig), []byte(expected))
}
