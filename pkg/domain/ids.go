// Package domain holds the shared value types of the identity graph: entity
// IDs, source systems, permission levels, edge kinds, and currency amounts.
// Construct values via the Parse functions at trust boundaries; direct casting
// bypasses validation.
package domain

import (
	"fmt"
	"regexp"

	dErrors "unigraph/pkg/domain-errors"
)

// EntityID identifies a unified entity. The wire format is fixed for upstream
// callers: "UNI-" followed by a zero-padded ordinal, e.g. "UNI-0042".
type EntityID string

var entityIDPattern = regexp.MustCompile(`^UNI-\d{4,}$`)

// NewEntityID formats the nth entity ID of a resolution run. Ordinals start
// at 1.
func NewEntityID(n int) EntityID {
	return EntityID(fmt.Sprintf("UNI-%04d", n))
}

// ParseEntityID validates an externally supplied entity ID.
func ParseEntityID(s string) (EntityID, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "entity id cannot be empty")
	}
	if !entityIDPattern.MatchString(s) {
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "malformed entity id %q", s)
	}
	return EntityID(s), nil
}

func (id EntityID) String() string { return string(id) }

// IsEntityID reports whether s looks like an entity ID rather than a name.
// Used by lookups that accept either.
func IsEntityID(s string) bool { return entityIDPattern.MatchString(s) }

// RecordRef points back at the source record a unified entity was built from.
type RecordRef struct {
	Source  SourceSystem `json:"source"`
	LocalID string       `json:"id"`
}

func (r RecordRef) String() string {
	return fmt.Sprintf("%s/%s", r.Source, r.LocalID)
}
