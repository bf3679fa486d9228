package credential

import (
	"log/slog"

	"github.com/dmitrijs2005/isoshare/internal/common"
)

const redacted = "[REDACTED]"

// Secret holds key material. It never prints its value and can be wiped
// once the run is over.
type Secret struct {
	b []byte
}

// NewSecret copies s into a new Secret.
func NewSecret(s string) Secret {
	return Secret{b: []byte(s)}
}

// SecretFromBytes takes ownership of b; the caller must not reuse it.
func SecretFromBytes(b []byte) Secret {
	return Secret{b: b}
}

// Bytes exposes the raw key for signing. Do not retain the slice.
func (s Secret) Bytes() []byte { return s.b }

// Reveal returns the key as a string for wire fields that require it.
func (s Secret) Reveal() string { return string(s.b) }

func (s Secret) Empty() bool { return len(s.b) == 0 }

// Destroy zeroes the key material in place.
func (s Secret) Destroy() { common.WipeByteArray(s.b) }

func (s Secret) String() string { return redacted }

func (s Secret) GoString() string { return redacted }

func (s Secret) LogValue() slog.Value { return slog.StringValue(redacted) }
