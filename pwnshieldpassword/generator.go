package pwnshieldpassword

import (
	"cmp"
	"context"
	"errors"
	"fmt"

	"go.inout.gg/foundations/debug"

	"go.inout.gg/pwnshield/internal/random"
	"go.inout.gg/pwnshield/pwnshieldverifier"
)

const (
	// DefaultGeneratedLength is the length of a generated password, in characters.
	DefaultGeneratedLength = 20

	// DefaultGeneratedAlphabet leaves out characters that are easily confused,
	// such as 0 and O or 1 and l.
	DefaultGeneratedAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz23456789!#$%&*+-=?@^_"

	// DefaultGenerateAttempts is how many candidates are tried before giving up.
	DefaultGenerateAttempts = 5
)

// ErrPasswordGeneration is returned when no generated candidate passed verification.
var ErrPasswordGeneration = errors.New("pwnshield/password: failed to generate an acceptable password")

// GeneratorConfig is the configuration of the Generator.
type GeneratorConfig struct {
	Length           int                                // optional (default: DefaultGeneratedLength)
	Alphabet         string                             // optional (default: DefaultGeneratedAlphabet)
	MaxAttempts      int                                // optional (default: DefaultGenerateAttempts)
	PasswordVerifier pwnshieldverifier.PasswordVerifier // optional (default: DefaultPasswordVerifier)
}

func (c *GeneratorConfig) defaults() {
	c.Length = cmp.Or(c.Length, DefaultGeneratedLength)
	c.Alphabet = cmp.Or(c.Alphabet, DefaultGeneratedAlphabet)
	c.MaxAttempts = cmp.Or(c.MaxAttempts, DefaultGenerateAttempts)

	if c.PasswordVerifier == nil {
		c.PasswordVerifier = DefaultPasswordVerifier()
	}
}

func (c *GeneratorConfig) assert() {
	debug.Assert(c.Length > 0, "Length must be positive")
	debug.Assert(c.Alphabet != "", "Alphabet must be set")
	debug.Assert(c.MaxAttempts > 0, "MaxAttempts must be positive")
	debug.Assert(c.PasswordVerifier != nil, "PasswordVerifier must be set")
}

// NewGeneratorConfig creates a new GeneratorConfig with defaults.
func NewGeneratorConfig(opts ...func(*GeneratorConfig)) *GeneratorConfig {
	//nolint:exhaustruct
	config := GeneratorConfig{}
	for _, opt := range opts {
		opt(&config)
	}

	config.defaults()
	config.assert()

	return &config
}

// WithGeneratedLength configures the length of generated passwords.
func WithGeneratedLength(n int) func(*GeneratorConfig) {
	return func(cfg *GeneratorConfig) { cfg.Length = n }
}

// WithGeneratedAlphabet configures the characters generated passwords are drawn from.
func WithGeneratedAlphabet(alphabet string) func(*GeneratorConfig) {
	return func(cfg *GeneratorConfig) { cfg.Alphabet = alphabet }
}

// WithGenerateAttempts configures how many candidates are tried.
func WithGenerateAttempts(n int) func(*GeneratorConfig) {
	return func(cfg *GeneratorConfig) { cfg.MaxAttempts = n }
}

// WithGeneratorVerifier configures the verifier generated passwords must pass.
func WithGeneratorVerifier(verifier pwnshieldverifier.PasswordVerifier) func(*GeneratorConfig) {
	return func(cfg *GeneratorConfig) { cfg.PasswordVerifier = verifier }
}

// Generator generates random passwords that pass verification, including
// the breach check when the verifier performs one.
type Generator struct {
	config *GeneratorConfig
}

// NewGenerator creates a new Generator.
//
// If config is nil, the default config is used.
func NewGenerator(config *GeneratorConfig) *Generator {
	if config == nil {
		config = NewGeneratorConfig()
	}

	config.assert()

	return &Generator{config}
}

// Generate returns a random password accepted by the verifier.
//
// Rejected candidates are discarded and a new one is drawn, up to
// MaxAttempts times, after which ErrPasswordGeneration is returned.
func (g *Generator) Generate(ctx context.Context) (string, error) {
	for attempt := range g.config.MaxAttempts {
		password, err := random.SecureString(g.config.Length, g.config.Alphabet)
		if err != nil {
			return "", fmt.Errorf("pwnshield/password: failed to generate password: %w", err)
		}

		err = g.config.PasswordVerifier.Verify(ctx, password)
		if err == nil {
			return password, nil
		}

		var verr *pwnshieldverifier.PasswordVerificationError
		if !errors.As(err, &verr) {
			return "", fmt.Errorf("pwnshield/password: failed to verify generated password: %w", err)
		}

		d("generated password rejected on attempt %d: %v", attempt+1, verr.Reasons)

		if err := ctx.Err(); err != nil {
			return "", fmt.Errorf("pwnshield/password: failed to generate password: %w", err)
		}
	}

	return "", ErrPasswordGeneration
}
