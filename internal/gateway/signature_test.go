package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func signManifest(secret, dataID, requestID, ts string) string {
	manifest := fmt.Sprintf("id:%s;request-id:%s;ts:%s;", dataID, requestID, ts)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(manifest))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifySignature(t *testing.T) {
	client := NewClient("https://gateway.test", "token", "", "topsecret", time.Second)

	v1 := signManifest("topsecret", "12345", "req-abc", "1700000000")
	header := "ts=1700000000,v1=" + v1

	assert.True(t, client.VerifySignature(header, "req-abc", "12345"))

	// Whitespace around parts is tolerated.
	spaced := "ts=1700000000, v1=" + v1
	assert.True(t, client.VerifySignature(spaced, "req-abc", "12345"))
}

func TestVerifySignatureRejectsTampering(t *testing.T) {
	client := NewClient("https://gateway.test", "token", "", "topsecret", time.Second)

	v1 := signManifest("topsecret", "12345", "req-abc", "1700000000")
	header := "ts=1700000000,v1=" + v1

	assert.False(t, client.VerifySignature(header, "req-abc", "99999"), "different payment id")
	assert.False(t, client.VerifySignature(header, "req-other", "12345"), "different request id")

	wrongSecret := signManifest("othersecret", "12345", "req-abc", "1700000000")
	assert.False(t, client.VerifySignature("ts=1700000000,v1="+wrongSecret, "req-abc", "12345"))
}

func TestVerifySignatureMalformedHeader(t *testing.T) {
	client := NewClient("https://gateway.test", "token", "", "topsecret", time.Second)

	assert.False(t, client.VerifySignature("", "req-abc", "12345"))
	assert.False(t, client.VerifySignature("garbage", "req-abc", "12345"))
	assert.False(t, client.VerifySignature("ts=1700000000", "req-abc", "12345"))
	assert.False(t, client.VerifySignature("v1=deadbeef", "req-abc", "12345"))
}

func TestVerifySignatureRequiresSecret(t *testing.T) {
	client := NewClient("https://gateway.test", "token", "", "", time.Second)

	v1 := signManifest("", "12345", "req-abc", "1700000000")
	assert.False(t, client.VerifySignature("ts=1700000000,v1="+v1, "req-abc", "12345"),
		"verification must fail closed without a configured secret")
}
