package resolve

import (
	"fmt"
	"time"

	"unigraph/internal/graph"
	"unigraph/internal/normalize"
	"unigraph/pkg/domain"
	"unigraph/pkg/platform/sentinel"
)

// Signal weights. The weighted sum lies in [0,1]; a missing signal
// contributes 0 to its term rather than excluding the term, so thresholds are
// comparable across record pairs.
const (
	weightTaxID   = 0.40
	weightDOB     = 0.20
	weightName    = 0.15
	weightAddress = 0.15
	weightContact = 0.10
)

// Disposition thresholds.
const (
	autoMergeThreshold = 0.95
	reviewThreshold    = 0.70
)

// DecisionState tracks a match decision through its lifecycle.
//
//	PENDING → AUTO_MERGED | QUEUED | REJECTED
//	QUEUED  → MERGED | REJECTED   (human reviewer)
//
// AUTO_MERGED, MERGED, and REJECTED are terminal.
type DecisionState string

const (
	StatePending    DecisionState = "PENDING"
	StateAutoMerged DecisionState = "AUTO_MERGED"
	StateQueued     DecisionState = "QUEUED"
	StateMerged     DecisionState = "MERGED"
	StateRejected   DecisionState = "REJECTED"
)

// Terminal reports whether no further transition is allowed.
func (s DecisionState) Terminal() bool {
	return s == StateAutoMerged || s == StateMerged || s == StateRejected
}

// CandidatePair is two records that share a block. Ephemeral; exists only
// during a resolution run.
type CandidatePair struct {
	A, B normalize.Record
}

// Key is the order-independent identity of the pair.
func (p CandidatePair) Key() string {
	a, b := p.A.Ref().String(), p.B.Ref().String()
	if b < a {
		a, b = b, a
	}
	return a + "~" + b
}

// MatchScore is the per-signal breakdown of one comparison. Carried on the
// decision so reviewers can see why the engine scored a pair the way it did.
type MatchScore struct {
	TaxID   float64 `json:"tax_id_score"`
	DOB     float64 `json:"dob_score"`
	Name    float64 `json:"name_score"`
	Address float64 `json:"address_score"`
	Contact float64 `json:"contact_score"`

	Total float64 `json:"total_score"`

	MatchReasons    []string `json:"match_reasons,omitempty"`
	MismatchReasons []string `json:"mismatch_reasons,omitempty"`
}

// Decision is a scored candidate pair with its disposition.
type Decision struct {
	ID    string           `json:"decision_id"`
	Pair  CandidatePair    `json:"pair"`
	Score MatchScore       `json:"score"`
	State DecisionState    `json:"state"`

	ReviewedBy string    `json:"reviewed_by,omitempty"`
	ReviewedAt time.Time `json:"reviewed_at,omitempty"`
}

// Merged reports whether the decision merges its pair, either automatically
// or by reviewer approval.
func (d *Decision) Merged() bool {
	return d.State == StateAutoMerged || d.State == StateMerged
}

// transition enforces the decision state machine.
func (d *Decision) transition(next DecisionState) error {
	if d.State.Terminal() {
		return fmt.Errorf("decision %s is terminal in state %s: %w", d.ID, d.State, sentinel.ErrInvalidState)
	}
	switch d.State {
	case StatePending:
		if next == StateAutoMerged || next == StateQueued || next == StateRejected {
			d.State = next
			return nil
		}
	case StateQueued:
		if next == StateMerged || next == StateRejected {
			d.State = next
			return nil
		}
	}
	return fmt.Errorf("decision %s: %s → %s: %w", d.ID, d.State, next, sentinel.ErrInvalidState)
}

// Result is the output of one resolution run: the built snapshot, every
// decision made, and the records skipped as malformed. The snapshot is
// published to the graph store only when the whole run succeeds.
type Result struct {
	RunID     string
	Snapshot  *graph.Snapshot
	Decisions []*Decision
	Skipped   []SkippedRecord

	ComparedPairs int
}

// SkippedRecord reports a record excluded from blocking, with why.
type SkippedRecord struct {
	Source  domain.SourceSystem `json:"source_system"`
	LocalID string              `json:"source_id"`
	Reason  string              `json:"reason"`
}
