// Package random produces cryptographically secure random values.
package random

import (
	"crypto/rand"
	"errors"
	"fmt"
)

// ErrInvalidAlphabet is returned when an alphabet is empty or too large
// to be sampled one byte at a time.
var ErrInvalidAlphabet = errors.New("pwnshield/random: alphabet must have between 1 and 256 characters")

// secureBytes returns a securely random byte slice of length l.
func secureBytes(l int) ([]byte, error) {
	bytes := make([]byte, l)

	_, err := rand.Read(bytes)
	if err != nil {
		return bytes, fmt.Errorf("pwnshield/random: error reading random bytes: %w", err)
	}

	return bytes, nil
}

// SecureString returns a securely random string of n characters drawn
// uniformly from alphabet.
func SecureString(n int, alphabet string) (string, error) {
	chars := []rune(alphabet)
	if len(chars) == 0 || len(chars) > 256 {
		return "", ErrInvalidAlphabet
	}

	// Bytes at or above limit would bias the modulo, they are dropped.
	limit := 256 - 256%len(chars)
	out := make([]rune, 0, n)

	for len(out) < n {
		bytes, err := secureBytes(n - len(out))
		if err != nil {
			return "", err
		}

		for _, b := range bytes {
			if int(b) >= limit {
				continue
			}

			out = append(out, chars[int(b)%len(chars)])
		}
	}

	return string(out), nil
}
