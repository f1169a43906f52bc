package pwnshieldpassword

import (
	"encoding/json"
	"fmt"
	"net/http"
)

var (
	_ HTTPRequestParser = (*formParser)(nil)
	_ HTTPRequestParser = (*jsonParser)(nil)
)

// HTTPRequestParser parses HTTP requests to grab password change data.
type HTTPRequestParser interface {
	ParseChangePasswordData(r *http.Request) (*ChangePasswordData, error)
	ParseCheckPasswordData(r *http.Request) (*CheckPasswordData, error)
}

// ChangePasswordData is the form for a password change.
type ChangePasswordData struct {
	Username          string `mod:"trim" validate:"required"`
	CurrentPassword   string `validate:"required"`
	NewPassword       string `validate:"required"`
	NewPasswordVerify string `validate:"required,eqfield=NewPassword"`
}

// CheckPasswordData is the form for a password check.
type CheckPasswordData struct {
	Password string `validate:"required"`
}

type jsonParser struct {
	config *HTTPConfig
}

func (p *jsonParser) decode(r *http.Request) (map[string]string, error) {
	var m map[string]string
	if err := json.NewDecoder(r.Body).Decode(&m); err != nil {
		return nil, fmt.Errorf("pwnshield/password: failed to decode JSON body: %w", err)
	}

	return m, nil
}

func (p *jsonParser) ParseChangePasswordData(r *http.Request) (*ChangePasswordData, error) {
	m, err := p.decode(r)
	if err != nil {
		return nil, err
	}

	return &ChangePasswordData{
		Username:          m[p.config.FieldUsername],
		CurrentPassword:   m[p.config.FieldCurrentPassword],
		NewPassword:       m[p.config.FieldNewPassword],
		NewPasswordVerify: m[p.config.FieldNewPasswordVerify],
	}, nil
}

func (p *jsonParser) ParseCheckPasswordData(r *http.Request) (*CheckPasswordData, error) {
	m, err := p.decode(r)
	if err != nil {
		return nil, err
	}

	return &CheckPasswordData{
		Password: m[p.config.FieldNewPassword],
	}, nil
}

type formParser struct {
	config *HTTPConfig
}

func (p *formParser) ParseChangePasswordData(r *http.Request) (*ChangePasswordData, error) {
	if err := r.ParseForm(); err != nil {
		return nil, fmt.Errorf("pwnshield/password: failed to parse form: %w", err)
	}

	return &ChangePasswordData{
		Username:          r.PostFormValue(p.config.FieldUsername),
		CurrentPassword:   r.PostFormValue(p.config.FieldCurrentPassword),
		NewPassword:       r.PostFormValue(p.config.FieldNewPassword),
		NewPasswordVerify: r.PostFormValue(p.config.FieldNewPasswordVerify),
	}, nil
}

func (p *formParser) ParseCheckPasswordData(r *http.Request) (*CheckPasswordData, error) {
	if err := r.ParseForm(); err != nil {
		return nil, fmt.Errorf("pwnshield/password: failed to parse form: %w", err)
	}

	return &CheckPasswordData{
		Password: r.PostFormValue(p.config.FieldNewPassword),
	}, nil
}
