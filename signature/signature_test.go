package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"
)

func sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerify_ValidSignature(t *testing.T) {
	body := []byte(`{"type":"payment_intent.succeeded"}`)
	secret := "whsec_test"

	if !Verify(body, sign(body, secret), secret) {
		t.Error("Expected valid signature to verify")
	}
}

func TestVerify_FlippedByte(t *testing.T) {
	body := []byte(`{"type":"payment_intent.succeeded"}`)
	secret := "whsec_test"

	sig := []byte(sign(body, secret))
	if sig[0] == 'a' {
		sig[0] = 'b'
	} else {
		sig[0] = 'a'
	}

	if Verify(body, string(sig), secret) {
		t.Error("Expected signature with flipped byte to fail verification")
	}
}

func TestVerify_WrongSecret(t *testing.T) {
	body := []byte(`{"type":"refund.succeeded"}`)

	if Verify(body, sign(body, "whsec_other"), "whsec_test") {
		t.Error("Expected signature under wrong secret to fail verification")
	}
}

func TestVerify_MissingSignature(t *testing.T) {
	if Verify([]byte("{}"), "", "whsec_test") {
		t.Error("Expected empty signature to fail verification")
	}
}

func TestVerify_TamperedBody(t *testing.T) {
	body := []byte(`{"amount":100}`)
	secret := "whsec_test"
	sig := sign(body, secret)

	if Verify([]byte(`{"amount":999}`), sig, secret) {
		t.Error("Expected signature over different body to fail verification")
	}
}
