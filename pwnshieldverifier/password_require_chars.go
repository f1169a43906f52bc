package pwnshieldverifier

import (
	"strings"

	"github.com/samber/lo"
	"go.inout.gg/foundations/must"
)

//nolint:gochecknoglobals
var DefaultPasswordRequiredChars PasswordRequiredChars

//nolint:gochecknoinits
func init() {
	must.Must1(DefaultPasswordRequiredChars.Parse(""))
}

// PasswordRequiredChars is a list of character groups. A password must
// contain at least one character of every group.
type PasswordRequiredChars []string

// Parse parses a "::" separated list of groups, e.g. "0123456789::!@#$%".
//
// Empty groups are ignored.
func (s *PasswordRequiredChars) Parse(source string) error {
	*s = PasswordRequiredChars(lo.Compact(strings.Split(source, "::")))

	return nil
}

// String implements fmt.Stringer.
func (s PasswordRequiredChars) String() string { return strings.Join(s, "::") }

// Missing returns the groups not represented in password.
func (s PasswordRequiredChars) Missing(password string) []string {
	return lo.Reject(s, func(group string, _ int) bool {
		return strings.ContainsAny(password, group)
	})
}
