// Package pwnshieldpassword implements a password change flow gated on
// password verification, including the breach check.
//
// The actual credential mutation is delegated to a PasswordChanger,
// e.g. a directory service client.
package pwnshieldpassword

import (
	"context"

	"go.inout.gg/foundations/debug"
)

// PasswordChanger changes a user password in the backing credential store.
type PasswordChanger interface {
	// ChangePassword replaces currentPassword with newPassword for username.
	//
	// Implementations should return pwnshield.ErrUserNotFound and
	// pwnshield.ErrPasswordIncorrect where applicable.
	ChangePassword(ctx context.Context, username, currentPassword, newPassword string) error
}

// PasswordChangerFunc adapts a function to PasswordChanger.
type PasswordChangerFunc func(ctx context.Context, username, currentPassword, newPassword string) error

func (f PasswordChangerFunc) ChangePassword(
	ctx context.Context,
	username, currentPassword, newPassword string,
) error {
	return f(ctx, username, currentPassword, newPassword)
}

//nolint:gochecknoglobals
var d = debug.Debuglog("pwnshield/password")
