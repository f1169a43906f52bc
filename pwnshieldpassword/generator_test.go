package pwnshieldpassword

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.inout.gg/foundations/must"

	"go.inout.gg/pwnshield/pwnshieldverifier"
)

// recordingChecker reports the first breached candidates as breached.
type recordingChecker struct {
	mu       sync.Mutex
	breached int
	seen     []string
}

func (c *recordingChecker) IsBreached(_ context.Context, password string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.seen = append(c.seen, password)

	return len(c.seen) <= c.breached
}

func newGenerator(checker pwnshieldverifier.BreachChecker, opts ...func(*GeneratorConfig)) *Generator {
	verifier := must.Must(pwnshieldverifier.New(pwnshieldverifier.NewConfig(
		pwnshieldverifier.WithMinLength(12),
		pwnshieldverifier.WithBreachChecker(checker),
	)))

	return NewGenerator(NewGeneratorConfig(append(
		[]func(*GeneratorConfig){WithGeneratorVerifier(verifier)},
		opts...,
	)...))
}

type verifierFunc func(ctx context.Context, password string) error

func (f verifierFunc) Verify(ctx context.Context, password string) error { return f(ctx, password) }

func TestGenerator(t *testing.T) {
	t.Parallel()

	t.Run("generates a verified password", func(t *testing.T) {
		t.Parallel()

		checker := &recordingChecker{}
		g := newGenerator(checker)

		password, err := g.Generate(t.Context())

		require.NoError(t, err)
		assert.Equal(t, DefaultGeneratedLength, utf8.RuneCountInString(password))
		assert.Equal(t, []string{password}, checker.seen)

		for _, r := range password {
			assert.True(t, strings.ContainsRune(DefaultGeneratedAlphabet, r), "unexpected character %q", r)
		}
	})

	t.Run("draws again after a breached candidate", func(t *testing.T) {
		t.Parallel()

		checker := &recordingChecker{breached: 2}
		g := newGenerator(checker)

		password, err := g.Generate(t.Context())

		require.NoError(t, err)
		require.Len(t, checker.seen, 3)
		assert.Equal(t, checker.seen[2], password)
		assert.NotEqual(t, checker.seen[0], password)
	})

	t.Run("gives up after max attempts", func(t *testing.T) {
		t.Parallel()

		checker := &recordingChecker{breached: 100}
		g := newGenerator(checker, WithGenerateAttempts(3))

		password, err := g.Generate(t.Context())

		require.ErrorIs(t, err, ErrPasswordGeneration)
		assert.Empty(t, password)
		assert.Len(t, checker.seen, 3)
	})

	t.Run("honours length and alphabet", func(t *testing.T) {
		t.Parallel()

		g := newGenerator(&recordingChecker{}, WithGeneratedLength(16), WithGeneratedAlphabet("ab"))

		password, err := g.Generate(t.Context())

		require.NoError(t, err)
		assert.Len(t, password, 16)
		assert.Empty(t, strings.Trim(password, "ab"))
	})

	t.Run("too short for the verifier", func(t *testing.T) {
		t.Parallel()

		checker := &recordingChecker{}
		g := newGenerator(checker, WithGeneratedLength(8))

		_, err := g.Generate(t.Context())

		require.ErrorIs(t, err, ErrPasswordGeneration)
		assert.Empty(t, checker.seen)
	})

	t.Run("stops on verifier failure", func(t *testing.T) {
		t.Parallel()

		boom := errors.New("boom")
		calls := 0
		g := NewGenerator(NewGeneratorConfig(WithGeneratorVerifier(verifierFunc(
			func(context.Context, string) error {
				calls++
				return boom
			},
		))))

		_, err := g.Generate(t.Context())

		require.ErrorIs(t, err, boom)
		assert.Equal(t, 1, calls)
	})

	t.Run("stops when the context is done", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(t.Context())
		cancel()

		checker := &recordingChecker{breached: 100}
		g := newGenerator(checker)

		_, err := g.Generate(ctx)

		require.ErrorIs(t, err, context.Canceled)
		assert.Len(t, checker.seen, 1)
	})
}

func TestHandleGeneratePassword(t *testing.T) {
	t.Parallel()

	t.Run("uses the configured verifier", func(t *testing.T) {
		t.Parallel()

		checker := &recordingChecker{breached: 1}
		verifier := must.Must(pwnshieldverifier.New(pwnshieldverifier.NewConfig(
			pwnshieldverifier.WithBreachChecker(checker),
		)))
		h := NewHandler(&fakeChanger{}, NewConfig(WithPasswordVerifier(verifier)))

		password, err := h.HandleGeneratePassword(t.Context())

		require.NoError(t, err)
		require.Len(t, checker.seen, 2)
		assert.Equal(t, checker.seen[1], password)
		require.NoError(t, h.HandleCheckPassword(t.Context(), password))
	})

	t.Run("reports exhaustion", func(t *testing.T) {
		t.Parallel()

		g := newGenerator(&recordingChecker{breached: 100}, WithGenerateAttempts(2))
		h := NewHandler(&fakeChanger{}, NewConfig(WithPasswordGenerator(g)))

		_, err := h.HandleGeneratePassword(t.Context())

		require.ErrorIs(t, err, ErrPasswordGeneration)
		assert.Equal(t, 500, StatusCode(err))
	})
}
