// Package testutil provides fake HTTP transports and response bodies
// for exercising the range API client without a network.
package testutil

import (
	"io"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
)

var (
	_ http.RoundTripper = (RoundTripFunc)(nil)
	_ http.RoundTripper = (*CountingTransport)(nil)
	_ io.ReadCloser     = (*LineBody)(nil)
)

// RoundTripFunc adapts a function to http.RoundTripper.
type RoundTripFunc func(*http.Request) (*http.Response, error)

func (f RoundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

// NewClient creates an http.Client backed by rt.
func NewClient(rt http.RoundTripper) *http.Client {
	//nolint:exhaustruct
	return &http.Client{Transport: rt}
}

// Response creates a response with the given status and body.
func Response(r *http.Request, status int, body io.ReadCloser) *http.Response {
	//nolint:exhaustruct
	return &http.Response{
		StatusCode: status,
		Status:     http.StatusText(status),
		Header:     http.Header{"Content-Type": []string{"text/plain"}},
		Body:       body,
		Request:    r,
	}
}

// CountingTransport counts round trips before delegating to Next.
type CountingTransport struct {
	Next  http.RoundTripper
	calls atomic.Int64
}

func (t *CountingTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	t.calls.Add(1)
	return t.Next.RoundTrip(r)
}

// Calls returns the number of round trips performed so far.
func (t *CountingTransport) Calls() int { return int(t.calls.Load()) }

// BlockingTransport blocks until the request context is done and
// returns its error.
func BlockingTransport() RoundTripFunc {
	return func(r *http.Request) (*http.Response, error) {
		<-r.Context().Done()
		return nil, r.Context().Err()
	}
}

// LineBody is a response body delivering at most one line per Read call.
//
// Once all lines are delivered Read returns Tail, unterminated, together
// with Err, then Err, or io.EOF when Err is nil.
type LineBody struct {
	Err  error
	Tail string

	mu      sync.Mutex
	lines   []string
	pending []byte
	reads   int
	closed  bool
}

// NewLineBody creates a LineBody delivering lines, each terminated with "\r\n".
func NewLineBody(lines ...string) *LineBody {
	return &LineBody{lines: lines}
}

func (b *LineBody) Read(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return 0, io.ErrClosedPipe
	}

	if len(b.pending) == 0 {
		if len(b.lines) == 0 {
			err := b.Err
			if err == nil {
				err = io.EOF
			}

			if b.Tail != "" {
				b.reads++
				n := copy(p, b.Tail)
				b.Tail = b.Tail[n:]

				if b.Tail != "" {
					return n, nil
				}

				return n, err
			}

			return 0, err
		}

		b.reads++
		b.pending = []byte(b.lines[0] + "\r\n")
		b.lines = b.lines[1:]
	}

	n := copy(p, b.pending)
	b.pending = b.pending[n:]

	return n, nil
}

func (b *LineBody) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.closed = true

	return nil
}

// Reads returns the number of lines handed out so far.
func (b *LineBody) Reads() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.reads
}

// Closed reports whether Close was called.
func (b *LineBody) Closed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.closed
}

// Lines joins lines the way the range API does.
func Lines(lines ...string) string {
	return strings.Join(lines, "\r\n")
}
