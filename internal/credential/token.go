package credential

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const redactKeep = 8

// Redact keeps the first few characters of a token for correlation and
// drops the rest.
func Redact(token string) string {
	if token == "" {
		return ""
	}
	if len(token) <= redactKeep {
		return "..."
	}
	return token[:redactKeep] + "..."
}

// TokenExpiry reads the exp claim of a JWT bearer token without verifying
// it. Opaque tokens report ok=false and are treated as non-expiring until
// the server says otherwise.
func TokenExpiry(token string) (exp time.Time, ok bool) {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}
