package pwnshieldrange

import (
	"crypto/sha1" //nolint:gosec
	"encoding/hex"
	"strings"
)

const (
	// DigestLength is the length of a hex encoded SHA-1 digest.
	DigestLength = sha1.Size * 2

	// PrefixLength is the number of digest characters disclosed to the range API.
	PrefixLength = 5

	// SuffixLength is the number of digest characters compared locally.
	SuffixLength = DigestLength - PrefixLength
)

// Digest is an uppercase hex encoded SHA-1 digest of a password.
//
// Digest must never be persisted or logged in full. Its String method
// only reveals the prefix.
type Digest string

// NewDigest computes the digest of the UTF-8 bytes of plaintext.
//
// No Unicode normalization is applied, the corpus is built over raw bytes.
func NewDigest(plaintext string) Digest {
	sum := sha1.Sum([]byte(plaintext)) //nolint:gosec

	return Digest(strings.ToUpper(hex.EncodeToString(sum[:])))
}

// Prefix returns the part of the digest that is sent to the range API.
func (d Digest) Prefix() string { return string(d[:PrefixLength]) }

// Suffix returns the part of the digest that never leaves the process.
func (d Digest) Suffix() string { return string(d[PrefixLength:]) }

// String implements fmt.Stringer. The suffix is redacted.
func (d Digest) String() string {
	if len(d) < PrefixLength {
		return "…"
	}

	return d.Prefix() + "…"
}

// IsPrefix reports whether s is a valid range prefix, that is exactly
// PrefixLength uppercase hex characters.
func IsPrefix(s string) bool {
	if len(s) != PrefixLength {
		return false
	}

	for i := range len(s) {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'A' || c > 'F') {
			return false
		}
	}

	return true
}
