package domain

import dErrors "unigraph/pkg/domain-errors"

// EntityKind distinguishes people from businesses. People participate in
// household closure; businesses are reached through BUSINESS_OWNER edges.
type EntityKind string

const (
	KindPerson   EntityKind = "PERSON"
	KindBusiness EntityKind = "BUSINESS"
)

// ParseEntityKind constructs an EntityKind from external input.
func ParseEntityKind(s string) (EntityKind, error) {
	switch EntityKind(s) {
	case KindPerson:
		return KindPerson, nil
	case KindBusiness:
		return KindBusiness, nil
	}
	return "", dErrors.Newf(dErrors.CodeInvalidInput, "unknown entity kind %q", s)
}

func (k EntityKind) String() string { return string(k) }
