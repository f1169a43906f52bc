// Package pwnshieldrange implements a client for the Pwned Passwords range API.
//
// Only the first PrefixLength characters of a password digest are ever sent
// to the server. The server answers with every known digest suffix sharing
// that prefix, and the comparison is completed locally.
//
// See https://haveibeenpwned.com/API/v3#PwnedPasswords
package pwnshieldrange

import (
	"bufio"
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"net/http"
	"net/url"
	"strings"

	"go.inout.gg/foundations/debug"
)

const (
	DefaultEndpoint  = "https://api.pwnedpasswords.com/range/"
	DefaultUserAgent = "pwnshield"
)

var (
	ErrInvalidPrefix     = errors.New("pwnshield/range: invalid prefix")
	ErrUnexpectedStatus  = errors.New("pwnshield/range: unexpected status code")
	ErrMalformedResponse = errors.New("pwnshield/range: malformed response")
)

//nolint:gochecknoglobals
var d = debug.Debuglog("pwnshield/range")

var _ error = (*StatusError)(nil)

// StatusError is returned when the range API responds with a non-2xx status.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: %d", ErrUnexpectedStatus.Error(), e.StatusCode)
}

func (e *StatusError) Unwrap() error { return ErrUnexpectedStatus }

// Config is the configuration of the range API client.
type Config struct {
	Endpoint   string       // optional (default: DefaultEndpoint)
	HTTPClient *http.Client // optional (default: a new http.Client)
	UserAgent  string       // optional (default: DefaultUserAgent)

	// AddPadding asks the server to pad the response with zero-count
	// records so that the response size does not reveal the prefix.
	AddPadding bool
}

func (c *Config) defaults() {
	c.Endpoint = cmp.Or(c.Endpoint, DefaultEndpoint)
	c.UserAgent = cmp.Or(c.UserAgent, DefaultUserAgent)

	if !strings.HasSuffix(c.Endpoint, "/") {
		c.Endpoint += "/"
	}

	if c.HTTPClient == nil {
		//nolint:exhaustruct
		c.HTTPClient = &http.Client{}
	}
}

func (c *Config) assert() {
	_, err := url.ParseRequestURI(c.Endpoint)
	debug.Assert(err == nil, "Endpoint must be a valid URL")
	debug.Assert(c.HTTPClient != nil, "HTTPClient must be set")
	debug.Assert(c.UserAgent != "", "UserAgent must be set")
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

// WithEndpoint configures the range API endpoint, e.g. a self-hosted mirror.
func WithEndpoint(endpoint string) func(*Config) {
	return func(cfg *Config) { cfg.Endpoint = endpoint }
}

// WithHTTPClient configures the HTTP client used to reach the range API.
func WithHTTPClient(client *http.Client) func(*Config) {
	return func(cfg *Config) { cfg.HTTPClient = client }
}

// WithUserAgent configures the User-Agent header sent to the range API.
func WithUserAgent(userAgent string) func(*Config) {
	return func(cfg *Config) { cfg.UserAgent = userAgent }
}

// WithPadding enables response padding.
func WithPadding() func(*Config) {
	return func(cfg *Config) { cfg.AddPadding = true }
}

// Client queries the range API.
//
// Client holds no state besides its configuration and is safe for
// concurrent use.
type Client struct {
	config *Config
}

// New creates a new Client.
//
// If config is nil, the default config is used.
func New(config *Config) *Client {
	if config == nil {
		config = NewConfig()
	}

	config.assert()

	return &Client{config}
}

// Padding reports whether responses are requested with padding records.
//
// Only a padded response may carry zero-count records that are not real.
func (c *Client) Padding() bool { return c.config.AddPadding }

// Range returns a lazy sequence of candidates sharing the given prefix.
//
// The request is issued when the iteration starts and the response body
// is read one line at a time. The body is closed on every exit path,
// including when the consumer stops the iteration early.
//
// Any error is yielded once and ends the sequence.
func (c *Client) Range(ctx context.Context, prefix string) iter.Seq2[Candidate, error] {
	return func(yield func(Candidate, error) bool) {
		if !IsPrefix(prefix) {
			yield(Candidate{}, fmt.Errorf("%w: %q", ErrInvalidPrefix, prefix))
			return
		}

		body, err := c.fetch(ctx, prefix)
		if err != nil {
			yield(Candidate{}, err)
			return
		}

		defer func() { _ = body.Close() }()

		lines := 0
		scanner := bufio.NewScanner(body)

		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}

			lines++

			candidate, err := ParseCandidate(line)
			if err != nil {
				// The scanner hands out the fragment read before a failed
				// Read, so a broken line may be the symptom of a read error.
				if readErr := scanner.Err(); readErr != nil {
					yield(Candidate{}, fmt.Errorf("pwnshield/range: failed to read response: %w", readErr))
					return
				}

				yield(Candidate{}, fmt.Errorf("pwnshield/range: line %d: %w", lines, err))
				return
			}

			if !yield(candidate, nil) {
				d("range %s: iteration stopped after %d lines", prefix, lines)
				return
			}
		}

		if err := scanner.Err(); err != nil {
			yield(Candidate{}, fmt.Errorf("pwnshield/range: failed to read response: %w", err))
			return
		}

		d("range %s: exhausted after %d lines", prefix, lines)
	}
}

func (c *Client) fetch(ctx context.Context, prefix string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodGet,
		c.config.Endpoint+prefix,
		http.NoBody,
	)
	if err != nil {
		return nil, fmt.Errorf("pwnshield/range: failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", c.config.UserAgent)
	if c.config.AddPadding {
		req.Header.Set("Add-Padding", "true")
	}

	resp, err := c.config.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("pwnshield/range: failed to request range %s: %w", prefix, err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		_ = resp.Body.Close()
		return nil, &StatusError{StatusCode: resp.StatusCode}
	}

	d("range %s: received status %d", prefix, resp.StatusCode)

	return resp.Body, nil
}
