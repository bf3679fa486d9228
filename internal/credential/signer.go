package credential

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"

	"github.com/dmitrijs2005/isoshare/internal/clock"
)

// CanonicalString builds the parameter string that gets signed.
func CanonicalString(accessKey string, timestamp, nonce int64) string {
	return fmt.Sprintf("accessKey=%s&nonce=%d&timestamp=%d", accessKey, nonce, timestamp)
}

// Sign returns the upper-case hex HMAC-SHA256 of the canonical string keyed
// with secret.
func Sign(accessKey string, secret Secret, timestamp, nonce int64) string {
	mac := hmac.New(sha256.New, secret.Bytes())
	mac.Write([]byte(CanonicalString(accessKey, timestamp, nonce)))
	return strings.ToUpper(hex.EncodeToString(mac.Sum(nil)))
}

// SignedParams is everything the token exchange needs.
type SignedParams struct {
	AccessKey string
	Timestamp int64
	Nonce     int64
	Signature string
}

// Signer stamps requests with the current time and a fresh nonce.
type Signer struct {
	clock clock.Clock

	mu        sync.Mutex
	lastNonce int64
}

func NewSigner(c clock.Clock) *Signer {
	return &Signer{clock: c}
}

// Sign signs for accessKey at the current time.
func (s *Signer) Sign(accessKey string, secret Secret) SignedParams {
	now := s.clock.Now()
	ts := now.UnixMilli()
	nonce := s.nextNonce(now.UnixMicro())
	return SignedParams{
		AccessKey: accessKey,
		Timestamp: ts,
		Nonce:     nonce,
		Signature: Sign(accessKey, secret, ts, nonce),
	}
}

// nextNonce never hands out the same value twice, even when two calls land
// in the same microsecond.
func (s *Signer) nextNonce(micros int64) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if micros <= s.lastNonce {
		micros = s.lastNonce + 1
	}
	s.lastNonce = micros
	return micros
}
