package security

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/nacl/secretbox"
)

// callbackTokenTTL bounds how long an issued callback token stays decodable.
const callbackTokenTTL = 24 * time.Hour

// Signer produces and checks the gateway payment signature, an HMAC-SHA256
// over "order_id|payment_id" keyed by the gateway secret.
type Signer struct {
	secret []byte
}

func NewSigner(secret string) *Signer {
	return &Signer{secret: []byte(secret)}
}

// SignPayment returns the hex signature for an order/payment pair.
func (s *Signer) SignPayment(orderID, paymentID string) string {
	mac := hmac.New(sha256.New, s.secret)
	fmt.Fprintf(mac, "%s|%s", orderID, paymentID)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyPayment recomputes the signature and compares in constant time.
func (s *Signer) VerifyPayment(orderID, paymentID, signature string) bool {
	expected := s.SignPayment(orderID, paymentID)
	return hmac.Equal([]byte(expected), []byte(signature))
}

// VerifyWebhookSignature checks the hex HMAC-SHA256 of the raw request body
// against the value of the signature header. Must pass before the body is
// parsed as JSON.
func VerifyWebhookSignature(body []byte, signature, secret string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// TokenCodec issues and decodes opaque callback tokens carrying
// (user id, plan id, issued at) through the chat UI without server-side
// session state. Tokens are sealed with NaCl secretbox and expire after 24
// hours. Every decode failure collapses to the same invalid result.
type TokenCodec struct {
	key [32]byte
	now func() time.Time
}

// NewTokenCodec builds a codec from a 32-byte key.
func NewTokenCodec(key []byte) (*TokenCodec, error) {
	if len(key) != 32 {
		return nil, fmt.Errorf("token key must be 32 bytes, got %d", len(key))
	}
	c := &TokenCodec{now: time.Now}
	copy(c.key[:], key)
	return c, nil
}

// Issue encrypts "{user_id}:{plan_id}:{unix_timestamp}" under a fresh nonce.
func (c *TokenCodec) Issue(userID int64, planID string) (string, error) {
	var nonce [24]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return "", fmt.Errorf("token nonce: %w", err)
	}
	payload := fmt.Sprintf("%d:%s:%d", userID, planID, c.now().Unix())
	sealed := secretbox.Seal(nonce[:], []byte(payload), &nonce, &c.key)
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

// Decode returns the embedded (user id, plan id) while the token is fresh.
// Tampered, malformed, and expired tokens all return (0, "", false); callers
// get no signal about which check failed.
func (c *TokenCodec) Decode(token string) (int64, string, bool) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil || len(raw) <= 24 {
		return 0, "", false
	}

	var nonce [24]byte
	copy(nonce[:], raw[:24])
	payload, ok := secretbox.Open(nil, raw[24:], &nonce, &c.key)
	if !ok {
		return 0, "", false
	}

	parts := strings.Split(string(payload), ":")
	if len(parts) != 3 {
		return 0, "", false
	}
	userID, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return 0, "", false
	}
	issuedAt, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return 0, "", false
	}
	if c.now().Unix()-issuedAt > int64(callbackTokenTTL/time.Second) {
		return 0, "", false
	}
	return userID, parts[1], true
}
