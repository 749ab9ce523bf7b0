package domain

import dErrors "unigraph/pkg/domain-errors"

// EdgeKind is the type of a relationship edge between two unified entities.
type EdgeKind string

const (
	EdgeSpouse        EdgeKind = "SPOUSE"
	EdgeHousehold     EdgeKind = "HOUSEHOLD"
	EdgeBusinessOwner EdgeKind = "BUSINESS_OWNER"
)

var validEdgeKinds = map[EdgeKind]bool{
	EdgeSpouse:        true,
	EdgeHousehold:     true,
	EdgeBusinessOwner: true,
}

// ParseEdgeKind constructs an EdgeKind from external input (explicit
// relationship ingestion).
func ParseEdgeKind(s string) (EdgeKind, error) {
	k := EdgeKind(s)
	if !validEdgeKinds[k] {
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "unknown edge kind %q", s)
	}
	return k, nil
}

// IsValid checks membership in the closed edge-kind set.
func (k EdgeKind) IsValid() bool { return validEdgeKinds[k] }

func (k EdgeKind) String() string { return string(k) }

// Familial reports whether the edge participates in household closure
// (SPOUSE and HOUSEHOLD edges do; BUSINESS_OWNER does not).
func (k EdgeKind) Familial() bool {
	return k == EdgeSpouse || k == EdgeHousehold
}
