package pwnshieldpassword

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.inout.gg/pwnshield"
	"go.inout.gg/pwnshield/pwnshieldverifier"
)

func formRequest(values url.Values) *http.Request {
	r := httptest.NewRequest(http.MethodPost, "/password", strings.NewReader(values.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	return r
}

func jsonRequest(body string) *http.Request {
	r := httptest.NewRequest(http.MethodPost, "/password", strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")

	return r
}

// requireStatus asserts that err is an *HTTPError reported with status.
func requireStatus(t *testing.T, err error, status int) {
	t.Helper()

	var herr *HTTPError
	require.ErrorAs(t, err, &herr)
	assert.Equal(t, status, herr.StatusCode)
	assert.Equal(t, status, StatusCode(err))
}

func TestFormHandler(t *testing.T) {
	t.Parallel()

	newHandler := func(changer PasswordChanger) *HTTPHandler {
		return NewFormHandler(changer, NewHTTPConfig(WithConfig(testConfig())))
	}

	t.Run("changes the password", func(t *testing.T) {
		t.Parallel()

		changer := &fakeChanger{}
		err := newHandler(changer).HandleChangePassword(formRequest(url.Values{
			"username":            {"  jdoe "},
			"current_password":    {"old-secret"},
			"new_password":        {"correct horse battery staple"},
			"new_password_verify": {"correct horse battery staple"},
		}))

		require.NoError(t, err)
		assert.Equal(t, []changeCall{{"jdoe", "old-secret", "correct horse battery staple"}}, changer.calls)
	})

	t.Run("rejects mismatching confirmation", func(t *testing.T) {
		t.Parallel()

		changer := &fakeChanger{}
		err := newHandler(changer).HandleChangePassword(formRequest(url.Values{
			"username":            {"jdoe"},
			"current_password":    {"old-secret"},
			"new_password":        {"correct horse battery staple"},
			"new_password_verify": {"correct horse battery stapler"},
		}))

		requireStatus(t, err, http.StatusBadRequest)
		assert.Empty(t, changer.calls)
	})

	t.Run("rejects missing fields", func(t *testing.T) {
		t.Parallel()

		changer := &fakeChanger{}
		err := newHandler(changer).HandleChangePassword(formRequest(url.Values{
			"username":     {"jdoe"},
			"new_password": {"correct horse battery staple"},
		}))

		requireStatus(t, err, http.StatusBadRequest)
		assert.Empty(t, changer.calls)
	})

	t.Run("rejects a breached password", func(t *testing.T) {
		t.Parallel()

		changer := &fakeChanger{}
		err := newHandler(changer).HandleChangePassword(formRequest(url.Values{
			"username":            {"jdoe"},
			"current_password":    {"old-secret"},
			"new_password":        {"password123"},
			"new_password_verify": {"password123"},
		}))

		requireStatus(t, err, http.StatusUnprocessableEntity)

		var verr *pwnshieldverifier.PasswordVerificationError
		require.ErrorAs(t, err, &verr)
		assert.True(t, verr.Has(pwnshieldverifier.ReasonPasswordBreached))
		assert.Empty(t, changer.calls)
	})

	t.Run("rejects an unchanged password", func(t *testing.T) {
		t.Parallel()

		changer := &fakeChanger{}
		err := newHandler(changer).HandleChangePassword(formRequest(url.Values{
			"username":            {"jdoe"},
			"current_password":    {"correct horse battery staple"},
			"new_password":        {"correct horse battery staple"},
			"new_password_verify": {"correct horse battery staple"},
		}))

		requireStatus(t, err, http.StatusUnprocessableEntity)
		assert.Empty(t, changer.calls)
	})

	t.Run("reports an incorrect current password", func(t *testing.T) {
		t.Parallel()

		changer := &fakeChanger{err: pwnshield.ErrPasswordIncorrect}
		err := newHandler(changer).HandleChangePassword(formRequest(url.Values{
			"username":            {"jdoe"},
			"current_password":    {"wrong"},
			"new_password":        {"correct horse battery staple"},
			"new_password_verify": {"correct horse battery staple"},
		}))

		requireStatus(t, err, http.StatusUnauthorized)
		assert.ErrorIs(t, err, pwnshield.ErrPasswordIncorrect)
	})

	t.Run("custom field names", func(t *testing.T) {
		t.Parallel()

		changer := &fakeChanger{}
		h := NewFormHandler(changer, NewHTTPConfig(
			WithConfig(testConfig()),
			func(c *HTTPConfig) {
				c.FieldUsername = "login"
				c.FieldNewPasswordVerify = "confirm"
			},
		))

		err := h.HandleChangePassword(formRequest(url.Values{
			"login":            {"jdoe"},
			"current_password": {"old-secret"},
			"new_password":     {"correct horse battery staple"},
			"confirm":          {"correct horse battery staple"},
		}))

		require.NoError(t, err)
		assert.Len(t, changer.calls, 1)
	})

	t.Run("checks a password", func(t *testing.T) {
		t.Parallel()

		h := newHandler(&fakeChanger{})

		assert.NoError(t, h.HandleCheckPassword(formRequest(url.Values{
			"new_password": {"correct horse battery staple"},
		})))
		requireStatus(t, h.HandleCheckPassword(formRequest(url.Values{
			"new_password": {"password123"},
		})), http.StatusUnprocessableEntity)
		requireStatus(t, h.HandleCheckPassword(formRequest(url.Values{})), http.StatusBadRequest)
	})
}

func TestUsernameRule(t *testing.T) {
	t.Parallel()

	request := func(username string) *http.Request {
		return formRequest(url.Values{
			"username":            {username},
			"current_password":    {"old-secret"},
			"new_password":        {"correct horse battery staple"},
			"new_password_verify": {"correct horse battery staple"},
		})
	}

	tests := []struct {
		name     string
		rule     string
		username string
		want     int
	}{
		{"no rule accepts anything", "", "j doe!", http.StatusOK},
		{"email accepts an address", UsernameRuleEmail, " jdoe@example.com ", http.StatusOK},
		{"email rejects a login name", UsernameRuleEmail, "jdoe", http.StatusBadRequest},
		{"username accepts a login name", UsernameRuleName, "j.doe-42_x", http.StatusOK},
		{"username rejects an address", UsernameRuleName, "jdoe@example.com", http.StatusBadRequest},
		{"username rejects a leading dot", UsernameRuleName, ".jdoe", http.StatusBadRequest},
		{"custom tag", "alphanum,max=4", "jdoe1", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			changer := &fakeChanger{}
			h := NewFormHandler(changer, NewHTTPConfig(
				WithConfig(testConfig()),
				WithUsernameRule(tt.rule),
			))

			err := h.HandleChangePassword(request(tt.username))

			if tt.want == http.StatusOK {
				require.NoError(t, err)
				assert.Len(t, changer.calls, 1)

				return
			}

			requireStatus(t, err, tt.want)
			assert.Empty(t, changer.calls)
		})
	}
}

func TestHTTPHandleGeneratePassword(t *testing.T) {
	t.Parallel()

	t.Run("returns a verified password", func(t *testing.T) {
		t.Parallel()

		h := NewJSONHandler(&fakeChanger{}, NewHTTPConfig(WithConfig(testConfig())))

		password, err := h.HandleGeneratePassword(httptest.NewRequest(http.MethodGet, "/password/generated", nil))

		require.NoError(t, err)
		assert.Len(t, password, DefaultGeneratedLength)
	})

	t.Run("reports exhaustion as a server error", func(t *testing.T) {
		t.Parallel()

		g := newGenerator(&recordingChecker{breached: 100}, WithGenerateAttempts(1))
		h := NewJSONHandler(&fakeChanger{}, NewHTTPConfig(WithConfig(NewConfig(WithPasswordGenerator(g)))))

		_, err := h.HandleGeneratePassword(httptest.NewRequest(http.MethodGet, "/password/generated", nil))

		requireStatus(t, err, http.StatusInternalServerError)
		assert.ErrorIs(t, err, ErrPasswordGeneration)
	})
}

func TestJSONHandler(t *testing.T) {
	t.Parallel()

	newHandler := func(changer PasswordChanger) *HTTPHandler {
		return NewJSONHandler(changer, NewHTTPConfig(WithConfig(testConfig())))
	}

	t.Run("changes the password", func(t *testing.T) {
		t.Parallel()

		changer := &fakeChanger{}
		err := newHandler(changer).HandleChangePassword(jsonRequest(`{
			"username": "jdoe",
			"current_password": "old-secret",
			"new_password": "correct horse battery staple",
			"new_password_verify": "correct horse battery staple"
		}`))

		require.NoError(t, err)
		assert.Len(t, changer.calls, 1)
	})

	t.Run("rejects invalid JSON", func(t *testing.T) {
		t.Parallel()

		changer := &fakeChanger{}
		err := newHandler(changer).HandleChangePassword(jsonRequest(`{"username":`))

		requireStatus(t, err, http.StatusBadRequest)
		assert.Empty(t, changer.calls)
	})

	t.Run("checks a password", func(t *testing.T) {
		t.Parallel()

		h := newHandler(&fakeChanger{})

		assert.NoError(t, h.HandleCheckPassword(jsonRequest(`{"new_password":"correct horse battery staple"}`)))
		requireStatus(t, h.HandleCheckPassword(jsonRequest(`{"new_password":"password123"}`)), http.StatusUnprocessableEntity)
		requireStatus(t, h.HandleCheckPassword(jsonRequest(`[]`)), http.StatusBadRequest)
	})
}

func TestStatusCode(t *testing.T) {
	t.Parallel()

	verr := &pwnshieldverifier.PasswordVerificationError{
		Reasons: []pwnshieldverifier.Reason{pwnshieldverifier.ReasonPasswordBreached},
	}

	tests := []struct {
		err  error
		want int
	}{
		{nil, http.StatusOK},
		{fmt.Errorf("wrapped: %w", verr), http.StatusUnprocessableEntity},
		{ErrPasswordUnchanged, http.StatusUnprocessableEntity},
		{fmt.Errorf("wrapped: %w", pwnshield.ErrPasswordIncorrect), http.StatusUnauthorized},
		{pwnshield.ErrUserNotFound, http.StatusUnauthorized},
		{errors.New("boom"), http.StatusInternalServerError},
		{newHTTPError(errors.New("boom"), http.StatusBadRequest), http.StatusBadRequest},
		{fmt.Errorf("wrapped: %w", toHTTPError(verr)), http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, StatusCode(tt.err), "error %v", tt.err)
	}
}
