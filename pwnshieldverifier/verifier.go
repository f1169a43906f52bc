// Package pwnshieldverifier verifies that a password is acceptable: long
// enough, containing the required characters and not publicly breached.
package pwnshieldverifier

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/samber/lo"
	"go.inout.gg/foundations/debug"
)

var (
	_ PasswordVerifier = (*passwordVerifier)(nil)
	_ error            = (*PasswordVerificationError)(nil)
)

//nolint:gochecknoglobals
var d = debug.Debuglog("pwnshield/verifier")

// DefaultMinLength is the default minimum password length, in characters.
const DefaultMinLength = 8

type Reason string

const (
	ReasonPasswordTooShort     Reason = "Password is too short"
	ReasonMissingRequiredChars Reason = "Password is missing required characters"
	ReasonPasswordBreached     Reason = "Password is publicly known and can be used in dictionary attacks"
)

// PasswordVerificationError is returned when a password is rejected.
type PasswordVerificationError struct {
	Reasons []Reason
}

func (e *PasswordVerificationError) Error() string {
	return "pwnshield/verifier: " + strings.Join(
		lo.Map(e.Reasons, func(r Reason, _ int) string { return string(r) }),
		", ",
	)
}

// Has reports whether reason is among the rejection reasons.
func (e *PasswordVerificationError) Has(reason Reason) bool {
	return lo.Contains(e.Reasons, reason)
}

// BreachChecker reports whether a password appears in a breach corpus.
//
// It is satisfied by *pwnshieldchecker.Checker.
type BreachChecker interface {
	IsBreached(ctx context.Context, password string) bool
}

type Config struct {
	// MinLength is the minimum length of the password.
	MinLength int

	// RequiredChars is the list of required characters.
	RequiredChars PasswordRequiredChars

	// BreachChecker rejects breached passwords. It is optional.
	BreachChecker BreachChecker
}

// NewConfig creates a new Config with defaults.
//
// cfgs modifiers can be used to optionally override the defaults.
func NewConfig(cfgs ...func(*Config)) *Config {
	//nolint:exhaustruct
	config := &Config{}
	for _, f := range cfgs {
		f(config)
	}

	config.defaults()

	return config
}

// defaults set c config fields to default values.
func (c *Config) defaults() {
	if c.RequiredChars == nil {
		c.RequiredChars = DefaultPasswordRequiredChars
	}

	if c.MinLength == 0 {
		c.MinLength = DefaultMinLength
	}
}

// WithMinLength configures the minimum password length.
func WithMinLength(n int) func(*Config) {
	return func(cfg *Config) { cfg.MinLength = n }
}

// WithRequiredChars configures the required character groups.
func WithRequiredChars(chars PasswordRequiredChars) func(*Config) {
	return func(cfg *Config) { cfg.RequiredChars = chars }
}

// WithBreachChecker enables the breach check.
func WithBreachChecker(checker BreachChecker) func(*Config) {
	return func(cfg *Config) { cfg.BreachChecker = checker }
}

// PasswordVerifier verifies strongness of the password.
type PasswordVerifier interface {
	Verify(ctx context.Context, password string) error
}

type passwordVerifier struct {
	config *Config
}

// New creates a new PasswordVerifier.
//
// If config is nil, the default config is used.
func New(config *Config) (*passwordVerifier, error) {
	if config == nil {
		config = NewConfig()
	}

	debug.Assert(config.MinLength > 0, "MinLength must be positive")

	return &passwordVerifier{
		config,
	}, nil
}

// Verify verifies the password.
//
// Local rules are evaluated first and all their reasons are reported.
// The breach check is performed only when the local rules pass, so
// an already rejected password does not cost a network request.
func (v *passwordVerifier) Verify(ctx context.Context, password string) error {
	var reasons []Reason

	if utf8.RuneCountInString(password) < v.config.MinLength {
		reasons = append(reasons, ReasonPasswordTooShort)
	}

	if len(v.config.RequiredChars.Missing(password)) > 0 {
		reasons = append(reasons, ReasonMissingRequiredChars)
	}

	if len(reasons) == 0 && v.config.BreachChecker != nil &&
		v.config.BreachChecker.IsBreached(ctx, password) {
		reasons = append(reasons, ReasonPasswordBreached)
	}

	if len(reasons) > 0 {
		d("password rejected: %v", reasons)

		return &PasswordVerificationError{Reasons: reasons}
	}

	return nil
}
