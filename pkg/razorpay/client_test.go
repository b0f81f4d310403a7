package razorpay

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"
)

func signBody(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifyWebhookSignature(t *testing.T) {
	c := &Client{webhookSecret: "whsec_test"}
	body := []byte(`{"event":"payment.captured"}`)

	if !c.VerifyWebhookSignature(body, signBody("whsec_test", body)) {
		t.Fatal("expected valid signature to verify")
	}
}

func TestVerifyWebhookSignatureRejectsTampered(t *testing.T) {
	c := &Client{webhookSecret: "whsec_test"}
	body := []byte(`{"event":"payment.captured"}`)
	sig := signBody("whsec_test", body)

	if c.VerifyWebhookSignature([]byte(`{"event":"payment.failed"}`), sig) {
		t.Fatal("expected tampered body to fail verification")
	}
}

func TestVerifyWebhookSignatureRejectsEmpty(t *testing.T) {
	c := &Client{webhookSecret: "whsec_test"}

	if c.VerifyWebhookSignature([]byte(`{}`), "") {
		t.Fatal("expected empty signature to fail verification")
	}
}
