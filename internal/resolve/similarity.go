package resolve

import (
	"strings"

	"unigraph/internal/normalize"
)

// nicknames maps canonical first names to common short forms. Two records
// using a canonical/nickname pair score high without being an exact match.
var nicknames = map[string][]string{
	"ROBERT":    {"BOB", "ROB", "BOBBY", "ROBBIE"},
	"WILLIAM":   {"WILL", "BILL", "BILLY", "WILLY"},
	"RICHARD":   {"RICK", "DICK", "RICH"},
	"MICHAEL":   {"MIKE", "MIKEY"},
	"JAMES":     {"JIM", "JIMMY", "JAMIE"},
	"JOHN":      {"JACK", "JOHNNY", "JON", "JONATHAN"},
	"JONATHAN":  {"JOHN", "JON", "JACK"},
	"ELIZABETH": {"LIZ", "BETH", "LIZZY", "BETTY"},
	"MARGARET":  {"MAGGIE", "MEG", "PEGGY"},
	"KATHERINE": {"KATE", "KATHY", "KATIE", "KAT"},
	"SARAH":     {"SARA"},
	"MARIA":     {"MARIE"},
}

// levenshtein calculates edit distance between two strings.
func levenshtein(s1, s2 string) int {
	if len(s1) == 0 {
		return len(s2)
	}
	if len(s2) == 0 {
		return len(s1)
	}

	prev := make([]int, len(s2)+1)
	cur := make([]int, len(s2)+1)
	for j := 0; j <= len(s2); j++ {
		prev[j] = j
	}
	for i := 1; i <= len(s1); i++ {
		cur[0] = i
		for j := 1; j <= len(s2); j++ {
			cost := 1
			if s1[i-1] == s2[j-1] {
				cost = 0
			}
			cur[j] = min(prev[j]+1, min(cur[j-1]+1, prev[j-1]+cost))
		}
		prev, cur = cur, prev
	}
	return prev[len(s2)]
}

// stringSimilarity is an edit-distance-derived ratio in [0,1]. Identical
// strings score 1.0.
func stringSimilarity(s1, s2 string) float64 {
	s1 = strings.ToUpper(strings.TrimSpace(s1))
	s2 = strings.ToUpper(strings.TrimSpace(s2))
	if s1 == "" || s2 == "" {
		return 0
	}
	if s1 == s2 {
		return 1
	}
	longest := len(s1)
	if len(s2) > longest {
		longest = len(s2)
	}
	return 1 - float64(levenshtein(s1, s2))/float64(longest)
}

// nameSimilarity scores two canonical names in [0,1]. Last names gate the
// score; first names match exactly, by initial, via the nickname table, or by
// edit-distance ratio; matching middle names add a small bonus.
func nameSimilarity(n1, n2 normalize.Name) float64 {
	lastSim := stringSimilarity(n1.Last, n2.Last)
	if lastSim < 0.8 {
		return lastSim * 0.5
	}

	firstSim := 0.0
	switch {
	case n1.First == n2.First && n1.First != "":
		firstSim = 1.0
	case len(n1.First) == 1 || len(n2.First) == 1:
		if n1.First != "" && n2.First != "" && n1.First[0] == n2.First[0] {
			firstSim = 0.8
		}
	default:
		firstSim = nicknameSimilarity(n1.First, n2.First)
		if firstSim == 0 {
			firstSim = stringSimilarity(n1.First, n2.First)
		}
	}

	middleBonus := 0.0
	if n1.Middle != "" && n2.Middle != "" {
		if n1.Middle == n2.Middle {
			middleBonus = 0.1
		} else if n1.Middle[0] == n2.Middle[0] {
			middleBonus = 0.05
		}
	}

	score := lastSim*0.5 + firstSim*0.4 + middleBonus
	if score > 1 {
		score = 1
	}
	return score
}

func nicknameSimilarity(first1, first2 string) float64 {
	for canonical, nicks := range nicknames {
		in1 := first1 == canonical
		in2 := first2 == canonical
		nick1 := contains(nicks, first1)
		nick2 := contains(nicks, first2)
		switch {
		case in1 && nick2, in2 && nick1:
			return 0.9
		case nick1 && nick2:
			return 0.85
		}
	}
	return 0
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// addressSimilarity: exact normalized match scores 1.0; same zip with a
// different unit scores 0.5; anything else scores 0.
func addressSimilarity(a1, a2 normalize.Address) float64 {
	if a1.IsZero() || a2.IsZero() || a1.Zip5 == "" || a2.Zip5 == "" {
		return 0
	}
	if a1.Full == a2.Full {
		return 1
	}
	if a1.Zip5 == a2.Zip5 && a1.Line1 == a2.Line1 {
		return 0.5
	}
	return 0
}
