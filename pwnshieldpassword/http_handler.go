package pwnshieldpassword

import (
	"cmp"
	"errors"
	"fmt"
	"net/http"
	"regexp"

	"github.com/go-playground/mold/v4/modifiers"
	"github.com/go-playground/validator/v10"
	"go.inout.gg/foundations/debug"
	"go.inout.gg/foundations/http/httperror"
	"go.inout.gg/foundations/must"

	"go.inout.gg/pwnshield"
	"go.inout.gg/pwnshield/pwnshieldverifier"
)

var _ error = (*HTTPError)(nil)

var (
	//nolint:gochecknoglobals
	FormValidator = newFormValidator()

	//nolint:gochecknoglobals
	FormModifier = modifiers.New()
)

const (
	DefaultFieldUsername          = "username"
	DefaultFieldCurrentPassword   = "current_password"
	DefaultFieldNewPassword       = "new_password"
	DefaultFieldNewPasswordVerify = "new_password_verify"
)

// Username rules accepted by HTTPConfig.UsernameRule.
const (
	// UsernameRuleEmail requires the username to be an email address.
	UsernameRuleEmail = "email"

	// UsernameRuleName requires the username to be a login name: letters,
	// digits, dots, dashes and underscores, starting with a letter or digit.
	UsernameRuleName = "username"
)

//nolint:gochecknoglobals
var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,63}$`)

func newFormValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	must.Must1(v.RegisterValidation(UsernameRuleName, func(fl validator.FieldLevel) bool {
		return usernamePattern.MatchString(fl.Field().String())
	}))

	return v
}

type HTTPConfig struct {
	*Config

	FieldUsername          string // optional (default: DefaultFieldUsername)
	FieldCurrentPassword   string // optional (default: DefaultFieldCurrentPassword)
	FieldNewPassword       string // optional (default: DefaultFieldNewPassword)
	FieldNewPasswordVerify string // optional (default: DefaultFieldNewPasswordVerify)

	// UsernameRule is a FormValidator tag the username must satisfy, such
	// as UsernameRuleEmail or UsernameRuleName. It is optional.
	UsernameRule string
}

func (c *HTTPConfig) defaults() {
	c.FieldUsername = cmp.Or(c.FieldUsername, DefaultFieldUsername)
	c.FieldCurrentPassword = cmp.Or(c.FieldCurrentPassword, DefaultFieldCurrentPassword)
	c.FieldNewPassword = cmp.Or(c.FieldNewPassword, DefaultFieldNewPassword)
	c.FieldNewPasswordVerify = cmp.Or(c.FieldNewPasswordVerify, DefaultFieldNewPasswordVerify)

	if c.Config == nil {
		c.Config = NewConfig()
	}
}

func (c *HTTPConfig) assert() {
	debug.Assert(c.Config != nil, "Config must be set")
}

// NewHTTPConfig creates a new HTTPConfig with the given configuration options.
func NewHTTPConfig(opts ...func(*HTTPConfig)) *HTTPConfig {
	//nolint:exhaustruct
	var config HTTPConfig
	for _, opt := range opts {
		opt(&config)
	}

	config.defaults()

	return &config
}

// WithConfig sets the configuration for the underlying Handler.
func WithConfig(config *Config) func(*HTTPConfig) {
	return func(cfg *HTTPConfig) { cfg.Config = config }
}

// WithUsernameRule sets the rule the username must satisfy.
func WithUsernameRule(rule string) func(*HTTPConfig) {
	return func(cfg *HTTPConfig) { cfg.UsernameRule = rule }
}

// HTTPError is an error carrying the HTTP status code it is reported with.
//
// It unwraps to both the httperror value, so error handlers built on
// httperror keep working, and the underlying cause.
type HTTPError struct {
	StatusCode int
	herr       error
	cause      error
}

func newHTTPError(err error, status int, msg ...string) *HTTPError {
	return &HTTPError{
		StatusCode: status,
		herr:       httperror.FromError(err, status, msg...),
		cause:      err,
	}
}

func (e *HTTPError) Error() string   { return e.herr.Error() }
func (e *HTTPError) Unwrap() []error { return []error{e.herr, e.cause} }

// HTTPHandler is a wrapper around Handler handling HTTP requests.
type HTTPHandler struct {
	handler *Handler
	config  *HTTPConfig
	parser  HTTPRequestParser
}

func newHTTPHandler(changer PasswordChanger, config *HTTPConfig, parser HTTPRequestParser) *HTTPHandler {
	h := HTTPHandler{
		NewHandler(changer, config.Config),
		config,
		parser,
	}

	debug.Assert(h.handler != nil, "handler must be set")
	debug.Assert(h.config != nil, "config must be set")
	debug.Assert(h.parser != nil, "parser must be set")

	return &h
}

// NewFormHandler creates a new HTTP handler that handles form requests.
//
// If config is nil, the default config is used.
func NewFormHandler(changer PasswordChanger, config *HTTPConfig) *HTTPHandler {
	if config == nil {
		config = NewHTTPConfig()
	}

	config.assert()

	return newHTTPHandler(changer, config, &formParser{config})
}

// NewJSONHandler creates a new HTTP handler that handles JSON requests.
//
// If config is nil, the default config is used.
func NewJSONHandler(changer PasswordChanger, config *HTTPConfig) *HTTPHandler {
	if config == nil {
		config = NewHTTPConfig()
	}

	config.assert()

	return newHTTPHandler(changer, config, &jsonParser{config})
}

func (h *HTTPHandler) parseChangePasswordData(r *http.Request) (*ChangePasswordData, error) {
	form, err := h.parser.ParseChangePasswordData(r)
	if err != nil {
		return nil, err
	}

	if err := FormModifier.Struct(r.Context(), form); err != nil {
		return nil, fmt.Errorf("pwnshield/password: failed to parse request form: %w", err)
	}

	if err := FormValidator.Struct(form); err != nil {
		return nil, fmt.Errorf("pwnshield/password: failed to parse request form: %w", err)
	}

	if h.config.UsernameRule != "" {
		if err := FormValidator.Var(form.Username, h.config.UsernameRule); err != nil {
			return nil, fmt.Errorf("pwnshield/password: invalid username: %w", err)
		}
	}

	return form, nil
}

// HandleChangePassword handles a password change request.
func (h *HTTPHandler) HandleChangePassword(r *http.Request) error {
	form, err := h.parseChangePasswordData(r)
	if err != nil {
		return newHTTPError(err, http.StatusBadRequest)
	}

	if err := h.handler.HandleChangePassword(
		r.Context(),
		form.Username,
		form.CurrentPassword,
		form.NewPassword,
	); err != nil {
		return toHTTPError(err)
	}

	return nil
}

// HandleCheckPassword handles a password check request.
func (h *HTTPHandler) HandleCheckPassword(r *http.Request) error {
	form, err := h.parser.ParseCheckPasswordData(r)
	if err != nil {
		return newHTTPError(err, http.StatusBadRequest)
	}

	if err := FormValidator.Struct(form); err != nil {
		return newHTTPError(
			fmt.Errorf("pwnshield/password: failed to parse request form: %w", err),
			http.StatusBadRequest,
		)
	}

	if err := h.handler.HandleCheckPassword(r.Context(), form.Password); err != nil {
		return toHTTPError(err)
	}

	return nil
}

// HandleGeneratePassword generates a password that passes verification.
func (h *HTTPHandler) HandleGeneratePassword(r *http.Request) (string, error) {
	password, err := h.handler.HandleGeneratePassword(r.Context())
	if err != nil {
		return "", toHTTPError(err)
	}

	return password, nil
}

func toHTTPError(err error) *HTTPError {
	status := StatusCode(err)
	if status == http.StatusUnauthorized {
		return newHTTPError(err, status, "either username or password is incorrect")
	}

	if status == http.StatusInternalServerError {
		return newHTTPError(err, status, "unexpected server error")
	}

	return newHTTPError(err, status)
}

// StatusCode maps an error returned by Handler or HTTPHandler to an HTTP
// status code.
func StatusCode(err error) int {
	var (
		herr *HTTPError
		verr *pwnshieldverifier.PasswordVerificationError
	)

	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &herr):
		return herr.StatusCode
	case errors.As(err, &verr), errors.Is(err, ErrPasswordUnchanged):
		return http.StatusUnprocessableEntity
	case errors.Is(err, pwnshield.ErrPasswordIncorrect),
		errors.Is(err, pwnshield.ErrUserNotFound):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
