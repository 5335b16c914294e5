// Package webhook authenticates and dispatches incoming webhooks.
package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"strconv"
	"strings"
	"time"
)

// Header names carried by signed webhook requests.
const (
	HeaderType      = "X-Webhook-Type"
	HeaderSignature = "X-Webhook-Signature"
	HeaderTimestamp = "X-Webhook-Timestamp"
)

// ErrInvalidSignature is returned for any request that fails verification.
var ErrInvalidSignature = errors.New("invalid webhook signature")

// Verifier checks HMAC-SHA256 signatures over "timestamp.body".
type Verifier struct {
	secret  []byte
	maxSkew time.Duration
	now     func() time.Time
}

// NewVerifier creates a Verifier. A maxSkew of zero disables the timestamp
// window check.
func NewVerifier(secret string, maxSkew time.Duration) *Verifier {
	return &Verifier{secret: []byte(secret), maxSkew: maxSkew, now: time.Now}
}

// Sign returns the hex signature for timestamp and body.
func (v *Verifier) Sign(timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, v.secret)
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify checks signature against timestamp and body. The timestamp is unix
// seconds.
func (v *Verifier) Verify(signature, timestamp string, body []byte) error {
	if len(v.secret) == 0 || signature == "" || timestamp == "" || len(body) == 0 {
		return ErrInvalidSignature
	}

	if v.maxSkew > 0 {
		sec, err := strconv.ParseInt(timestamp, 10, 64)
		if err != nil {
			return ErrInvalidSignature
		}
		skew := v.now().Sub(time.Unix(sec, 0))
		if skew < 0 {
			skew = -skew
		}
		if skew > v.maxSkew {
			return ErrInvalidSignature
		}
	}

	presented, err := hex.DecodeString(strings.TrimPrefix(strings.ToLower(signature), "sha256="))
	if err != nil {
		return ErrInvalidSignature
	}
	expected, _ := hex.DecodeString(v.Sign(timestamp, body))
	if !hmac.Equal(presented, expected) {
		return ErrInvalidSignature
	}
	return nil
}

// VerifyAPIKey compares presented to expected in constant time. An empty
// expected key rejects everything.
func VerifyAPIKey(presented, expected string) bool {
	if presented == "" || expected == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(presented), []byte(expected)) == 1
}
