package pwnshieldpassword

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.inout.gg/foundations/debug"
	"go.inout.gg/foundations/must"

	"go.inout.gg/pwnshield"
	"go.inout.gg/pwnshield/pwnshieldchecker"
	"go.inout.gg/pwnshield/pwnshieldverifier"
)

// ErrPasswordUnchanged is returned when the new password equals the current one.
var ErrPasswordUnchanged = errors.New("pwnshield/password: new password must differ from the current password")

// Config is the configuration for the password handler.
type Config struct {
	Logger            *slog.Logger                       // optional
	PasswordVerifier  pwnshieldverifier.PasswordVerifier // optional
	PasswordGenerator *Generator                         // optional (default: a Generator using PasswordVerifier)
}

func (c *Config) defaults() {
	c.Logger = cmp.Or(c.Logger, pwnshield.DefaultLogger)

	if c.PasswordVerifier == nil {
		c.PasswordVerifier = DefaultPasswordVerifier()
	}

	if c.PasswordGenerator == nil {
		c.PasswordGenerator = NewGenerator(NewGeneratorConfig(
			WithGeneratorVerifier(c.PasswordVerifier),
		))
	}
}

func (c *Config) assert() {
	debug.Assert(c.PasswordVerifier != nil, "PasswordVerifier must be set")
	debug.Assert(c.PasswordGenerator != nil, "PasswordGenerator must be set")
	debug.Assert(c.Logger != nil, "Logger must be set")
}

// NewConfig creates a new config.
//
// If no password verifier is configured, DefaultPasswordVerifier is used.
func NewConfig(opts ...func(*Config)) *Config {
	//nolint:exhaustruct
	config := Config{}
	for _, opt := range opts {
		opt(&config)
	}

	config.defaults()
	config.assert()

	return &config
}

// WithPasswordVerifier configures the password verifier.
func WithPasswordVerifier(verifier pwnshieldverifier.PasswordVerifier) func(*Config) {
	return func(cfg *Config) { cfg.PasswordVerifier = verifier }
}

// WithPasswordGenerator configures the password generator.
func WithPasswordGenerator(generator *Generator) func(*Config) {
	return func(cfg *Config) { cfg.PasswordGenerator = generator }
}

// WithLogger configures the logger.
func WithLogger(logger *slog.Logger) func(*Config) {
	return func(cfg *Config) { cfg.Logger = logger }
}

// DefaultPasswordVerifier returns a verifier with the default rules and
// the breach check against the public range API.
func DefaultPasswordVerifier() pwnshieldverifier.PasswordVerifier {
	return must.Must(pwnshieldverifier.New(pwnshieldverifier.NewConfig(
		pwnshieldverifier.WithBreachChecker(pwnshieldchecker.New(nil)),
	)))
}

// Handler handles password change requests.
//
// Check out the HTTPHandler for a ready to use implementation that handles
// HTTP form and JSON requests.
type Handler struct {
	config  *Config
	changer PasswordChanger
}

// NewHandler creates a new Handler.
//
// If config is nil, the default config is used.
func NewHandler(changer PasswordChanger, config *Config) *Handler {
	if config == nil {
		config = NewConfig()
	}

	config.assert()

	h := Handler{
		config:  config,
		changer: changer,
	}

	debug.Assert(h.changer != nil, "changer must be set")

	return &h
}

// HandleCheckPassword verifies password without changing anything.
//
// A rejected password results in *pwnshieldverifier.PasswordVerificationError.
func (h *Handler) HandleCheckPassword(ctx context.Context, password string) error {
	if err := h.config.PasswordVerifier.Verify(ctx, password); err != nil {
		return fmt.Errorf("pwnshield/password: password rejected: %w", err)
	}

	return nil
}

// HandleGeneratePassword generates a random password that passes verification.
func (h *Handler) HandleGeneratePassword(ctx context.Context) (string, error) {
	password, err := h.config.PasswordGenerator.Generate(ctx)
	if err != nil {
		h.config.Logger.ErrorContext(
			ctx,
			"pwnshield/password: failed to generate password",
			slog.Any("error", err),
		)

		return "", err
	}

	return password, nil
}

// HandleChangePassword changes the password of username from currentPassword
// to newPassword, provided newPassword passes verification.
//
// A rejected password results in *pwnshieldverifier.PasswordVerificationError,
// in which case the PasswordChanger is not called.
func (h *Handler) HandleChangePassword(
	ctx context.Context,
	username, currentPassword, newPassword string,
) error {
	if currentPassword == newPassword {
		return ErrPasswordUnchanged
	}

	if err := h.HandleCheckPassword(ctx, newPassword); err != nil {
		d("new password for %s rejected", username)
		return err
	}

	if err := h.changer.ChangePassword(ctx, username, currentPassword, newPassword); err != nil {
		if !errors.Is(err, pwnshield.ErrUserNotFound) &&
			!errors.Is(err, pwnshield.ErrPasswordIncorrect) {
			h.config.Logger.ErrorContext(
				ctx,
				"pwnshield/password: failed to change password",
				slog.String("username", username),
				slog.Any("error", err),
			)
		}

		return fmt.Errorf("pwnshield/password: failed to change password: %w", err)
	}

	h.config.Logger.InfoContext(
		ctx,
		"pwnshield/password: password changed",
		slog.String("username", username),
	)

	return nil
}
