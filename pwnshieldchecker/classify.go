package pwnshieldchecker

import (
	"context"
	"errors"
	"io"
	"net"

	"go.inout.gg/pwnshield/pwnshieldrange"
)

// Class is the class of a check failure.
type Class int

const (
	// ClassNone is the class of a nil error.
	ClassNone Class = iota

	// ClassTransport covers connection, DNS and HTTP status failures.
	ClassTransport

	// ClassTimeout covers timeouts and cancellation.
	ClassTimeout

	// ClassUnexpected covers everything else, such as malformed responses.
	ClassUnexpected
)

func (c Class) String() string {
	switch c {
	case ClassNone:
		return "none"
	case ClassTransport:
		return "transport"
	case ClassTimeout:
		return "timeout"
	case ClassUnexpected:
		return "unexpected"
	default:
		return "unknown"
	}
}

// FailsClosed reports whether a failure of class c must be treated as
// a breached password.
func (c Class) FailsClosed() bool { return c == ClassUnexpected }

// Classify returns the class of err.
//
// Context errors win over everything else: a response cut short by a
// deadline or cancellation is a timeout even if the partial line it
// left behind is malformed. A connection dropped mid-body
// (io.ErrUnexpectedEOF) is a transport failure.
func Classify(err error) Class {
	if err == nil {
		return ClassNone
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return ClassTimeout
	}

	if errors.Is(err, pwnshieldrange.ErrMalformedResponse) ||
		errors.Is(err, pwnshieldrange.ErrInvalidPrefix) {
		return ClassUnexpected
	}

	if errors.Is(err, io.ErrUnexpectedEOF) {
		return ClassTransport
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return ClassTimeout
		}

		return ClassTransport
	}

	if errors.Is(err, pwnshieldrange.ErrUnexpectedStatus) {
		return ClassTransport
	}

	return ClassUnexpected
}
