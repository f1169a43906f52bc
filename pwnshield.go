// Package pwnshield checks candidate passwords against the Pwned Passwords
// breach corpus without disclosing them, and gates password changes on the result.
package pwnshield

import (
	"errors"
	"log/slog"
)

var (
	ErrUserNotFound      = errors.New("pwnshield: user not found")
	ErrPasswordIncorrect = errors.New("pwnshield: password incorrect")
)

// DefaultLogger is the logger used across when none is configured.
//
//nolint:gochecknoglobals
var DefaultLogger = slog.Default().With("module", "pwnshield")
