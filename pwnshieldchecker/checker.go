// Package pwnshieldchecker decides whether a password appears in the Pwned
// Passwords breach corpus.
//
// Only the digest prefix is disclosed to the remote service. Failures are
// resolved locally and asymmetrically: known infrastructure failures
// (transport errors, timeouts, cancellation) fail open and report the
// password as not breached, while any other failure fails closed and reports
// the password as breached.
package pwnshieldchecker

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.inout.gg/foundations/debug"

	"go.inout.gg/pwnshield"
	"go.inout.gg/pwnshield/internal/uuidv7"
	"go.inout.gg/pwnshield/pwnshieldrange"
)

// DefaultTimeout bounds a single check, including reading the response.
const DefaultTimeout = 5 * time.Second

//nolint:gochecknoglobals
var d = debug.Debuglog("pwnshield/checker")

// Config is the configuration of the Checker.
type Config struct {
	Logger  *slog.Logger           // optional (default: pwnshield.DefaultLogger)
	Client  *pwnshieldrange.Client // optional (default: a client with default config)
	Timeout time.Duration          // optional (default: DefaultTimeout)
}

func (c *Config) defaults() {
	c.Logger = cmp.Or(c.Logger, pwnshield.DefaultLogger)
	c.Timeout = cmp.Or(c.Timeout, DefaultTimeout)

	if c.Client == nil {
		c.Client = pwnshieldrange.New(nil)
	}
}

func (c *Config) assert() {
	debug.Assert(c.Logger != nil, "Logger must be set")
	debug.Assert(c.Client != nil, "Client must be set")
	debug.Assert(c.Timeout > 0, "Timeout must be positive")
}

// NewConfig creates a new Config with defaults.
//
// opts modifiers can be used to optionally override the defaults.
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

// WithLogger configures the logger.
func WithLogger(logger *slog.Logger) func(*Config) {
	return func(cfg *Config) { cfg.Logger = logger }
}

// WithClient configures the range API client.
func WithClient(client *pwnshieldrange.Client) func(*Config) {
	return func(cfg *Config) { cfg.Client = client }
}

// WithTimeout configures the per-check timeout.
func WithTimeout(timeout time.Duration) func(*Config) {
	return func(cfg *Config) { cfg.Timeout = timeout }
}

// Result is the outcome of a completed check.
type Result struct {
	// Breached is set when the password digest is in the corpus.
	Breached bool

	// Count is the number of times the password was seen in breaches.
	Count int
}

// Checker checks passwords against the breach corpus.
//
// Checker holds no mutable state, concurrent checks are independent.
type Checker struct {
	config *Config
}

// New creates a new Checker.
//
// If config is nil, the default config is used.
func New(config *Config) *Checker {
	if config == nil {
		config = NewConfig()
	}

	config.assert()

	return &Checker{config}
}

// Check looks up plaintext in the breach corpus.
//
// An empty plaintext is never breached and costs no request.
// Errors are returned unresolved, use Classify to tell them apart
// or IsBreached to apply the failure policy.
//
// When the client requests padding, a matching zero-count record is
// padding and not a match. Without padding every record is real.
func (c *Checker) Check(ctx context.Context, plaintext string) (Result, error) {
	if plaintext == "" {
		return Result{}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	digest := pwnshieldrange.NewDigest(plaintext)
	suffix := digest.Suffix()
	padded := c.config.Client.Padding()

	for candidate, err := range c.config.Client.Range(ctx, digest.Prefix()) {
		if err != nil {
			// Reads interrupted by the deadline surface as various errors,
			// the context tells the truth.
			if ctxErr := ctx.Err(); ctxErr != nil {
				return Result{}, fmt.Errorf("pwnshield/checker: %w: %w", ctxErr, err)
			}

			return Result{}, err
		}

		if candidate.Suffix != suffix {
			continue
		}

		if padded && candidate.IsPadding() {
			d("check %s: skipped padding record", digest)
			continue
		}

		return Result{Breached: true, Count: candidate.Count}, nil
	}

	return Result{}, nil
}

// IsBreached reports whether plaintext must be treated as breached.
//
// IsBreached never fails: transport failures, timeouts and cancellation
// report false, any other failure reports true.
func (c *Checker) IsBreached(ctx context.Context, plaintext string) (breached bool) {
	if plaintext == "" {
		return false
	}

	checkID := uuidv7.Must()
	prefix := pwnshieldrange.NewDigest(plaintext).Prefix()

	defer func() {
		if r := recover(); r != nil {
			c.config.Logger.ErrorContext(
				ctx,
				"pwnshield/checker: check panicked, assuming breached password",
				slog.String("check_id", checkID.String()),
				slog.String("prefix", prefix),
				slog.Any("panic", r),
			)

			breached = true
		}
	}()

	result, err := c.Check(ctx, plaintext)
	if err != nil {
		class := Classify(err)
		breached = class.FailsClosed()

		d("check %s: failed with class %s, breached=%v", checkID, class, breached)
		c.config.Logger.WarnContext(
			ctx,
			"pwnshield/checker: check failed",
			slog.String("check_id", checkID.String()),
			slog.String("prefix", prefix),
			slog.String("class", class.String()),
			slog.Bool("breached", breached),
			slog.Any("error", err),
		)

		return breached
	}

	if result.Breached {
		d("check %s: password is publicly known, seen %d times", checkID, result.Count)
		c.config.Logger.InfoContext(
			ctx,
			"pwnshield/checker: breached password",
			slog.String("check_id", checkID.String()),
			slog.String("prefix", prefix),
		)
	}

	return result.Breached
}
