package domain

import dErrors "unigraph/pkg/domain-errors"

// SourceSystem identifies the line-of-business ledger a record originated
// from. The set is closed; records from unknown systems are rejected at
// ingestion.
type SourceSystem string

const (
	SourceConsumer   SourceSystem = "CONSUMER_CORE"
	SourceCommercial SourceSystem = "COMMERCIAL_CORE"
	SourceWealth     SourceSystem = "WEALTH_ADVISORY"
)

// AllSources lists every line of business, in stable order.
var AllSources = []SourceSystem{SourceConsumer, SourceCommercial, SourceWealth}

var validSources = map[SourceSystem]bool{
	SourceConsumer:   true,
	SourceCommercial: true,
	SourceWealth:     true,
}

// ParseSourceSystem constructs a SourceSystem from external input.
func ParseSourceSystem(s string) (SourceSystem, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "source system cannot be empty")
	}
	src := SourceSystem(s)
	if !validSources[src] {
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "unknown source system %q", s)
	}
	return src, nil
}

// IsValid checks membership in the closed source-system set.
func (s SourceSystem) IsValid() bool { return validSources[s] }

func (s SourceSystem) String() string { return string(s) }
