// Package uuidv7 generates time-ordered identifiers for correlating log records.
package uuidv7

import (
	"github.com/google/uuid"
	"go.inout.gg/foundations/must"
)

// Must returns a new UUIDv7. It panics if the random source fails.
func Must() uuid.UUID {
	return must.Must(uuid.NewV7())
}
