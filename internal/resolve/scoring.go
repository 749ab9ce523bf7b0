package resolve

import (
	"fmt"

	"unigraph/internal/normalize"
)

// Score computes the weighted similarity of a candidate pair. It is pure,
// deterministic, and symmetric: Score(a,b) == Score(b,a).
func Score(a, b normalize.Record) MatchScore {
	var s MatchScore

	// Tax-ID fragment: exact or nothing.
	if a.TaxIDLast4 != "" && b.TaxIDLast4 != "" {
		if a.TaxIDLast4 == b.TaxIDLast4 {
			s.TaxID = 1
			s.MatchReasons = append(s.MatchReasons, fmt.Sprintf("tax id last4 match: ***-**-%s", a.TaxIDLast4))
		} else {
			s.MismatchReasons = append(s.MismatchReasons, "tax id last4 mismatch")
		}
	}

	// Date of birth: exact or nothing.
	if a.DateOfBirth != "" && b.DateOfBirth != "" {
		if a.DateOfBirth == b.DateOfBirth {
			s.DOB = 1
			s.MatchReasons = append(s.MatchReasons, "date of birth match: "+a.DateOfBirth)
		} else {
			s.MismatchReasons = append(s.MismatchReasons, "date of birth mismatch")
		}
	}

	// Name: fuzzy, nickname-aware.
	s.Name = nameSimilarity(a.Name, b.Name)
	if s.Name >= 0.8 {
		s.MatchReasons = append(s.MatchReasons,
			fmt.Sprintf("name match (%.0f%%): %s ~ %s", s.Name*100, a.Name.Full, b.Name.Full))
	} else if s.Name < 0.5 {
		s.MismatchReasons = append(s.MismatchReasons,
			fmt.Sprintf("name mismatch (%.0f%%): %s vs %s", s.Name*100, a.Name.Full, b.Name.Full))
	}

	// Address: exact 1.0, same street different unit 0.5.
	s.Address = addressSimilarity(a.Address, b.Address)
	if s.Address == 1 {
		s.MatchReasons = append(s.MatchReasons, "address match: "+a.Address.Full)
	}

	// Contact: exact match on phone or email.
	if (a.Phone != "" && a.Phone == b.Phone) || (a.Email != "" && a.Email == b.Email) {
		s.Contact = 1
		s.MatchReasons = append(s.MatchReasons, "contact match")
	}

	s.Total = s.TaxID*weightTaxID +
		s.DOB*weightDOB +
		s.Name*weightName +
		s.Address*weightAddress +
		s.Contact*weightContact
	return s
}

// Disposition maps a total score onto the decision state a fresh pair lands
// in. Pairs below the review threshold stay separate and produce no decision.
func Disposition(total float64) DecisionState {
	switch {
	case total >= autoMergeThreshold:
		return StateAutoMerged
	case total >= reviewThreshold:
		return StateQueued
	default:
		return StateRejected
	}
}
