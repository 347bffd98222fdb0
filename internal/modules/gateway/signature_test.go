package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
)

func sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifySignature(t *testing.T) {
	body := []byte(`{"event":"payment.captured"}`)
	secret := "whsec_test"

	assert.True(t, verifySignature(body, sign(body, secret), secret))
	assert.False(t, verifySignature(body, sign(body, "other-secret"), secret))
	assert.False(t, verifySignature(body, "deadbeef", secret))
	assert.False(t, verifySignature([]byte(`{"event":"tampered"}`), sign(body, secret), secret))
}
