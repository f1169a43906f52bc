package pwnshieldrange

import (
	"fmt"
	"strconv"
	"strings"
)

// Candidate is a single record of a range response.
type Candidate struct {
	// Suffix is the digest suffix as delivered by the server.
	Suffix string

	// Count is the number of times the password was seen in breaches.
	//
	// Padding records, requested with Config.AddPadding, have a zero count.
	Count int
}

// IsPadding reports whether c is a padding record.
func (c Candidate) IsPadding() bool { return c.Count == 0 }

// ParseCandidate parses a "SUFFIX:COUNT" line.
//
// The suffix is kept as is, no case normalization is applied.
func ParseCandidate(line string) (Candidate, error) {
	suffix, rawCount, ok := strings.Cut(line, ":")
	if !ok || suffix == "" {
		return Candidate{}, fmt.Errorf("%w: missing delimiter", ErrMalformedResponse)
	}

	count, err := strconv.Atoi(strings.TrimSpace(rawCount))
	if err != nil {
		return Candidate{}, fmt.Errorf("%w: invalid count: %w", ErrMalformedResponse, err)
	}

	if count < 0 {
		return Candidate{}, fmt.Errorf("%w: negative count", ErrMalformedResponse)
	}

	return Candidate{Suffix: suffix, Count: count}, nil
}
