package resolve

import (
	"sort"

	"unigraph/internal/normalize"
	"unigraph/pkg/domain"
)

// block is one bucket of person records sharing a blocking key. Buckets are
// independent of each other; only same-bucket pairs are ever compared.
type block struct {
	key     string
	records []normalize.Record
}

// buildBlocks indexes person records by zip5 + last-name prefix. Businesses
// never enter blocking; they are linked by signer inference instead of
// identity merging. Output order is deterministic.
func buildBlocks(records []normalize.Record) []block {
	byKey := make(map[string][]normalize.Record)
	for _, rec := range records {
		if rec.Kind == domain.KindBusiness {
			continue
		}
		key := rec.BlockKey()
		byKey[key] = append(byKey[key], rec)
	}

	keys := make([]string, 0, len(byKey))
	for key, members := range byKey {
		if len(members) < 2 {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	blocks := make([]block, 0, len(keys))
	for _, key := range keys {
		members := byKey[key]
		sort.Slice(members, func(i, j int) bool {
			return members[i].Ref().String() < members[j].Ref().String()
		})
		blocks = append(blocks, block{key: key, records: members})
	}
	return blocks
}

// pairs enumerates the candidate pairs of a block. Records from the same
// source ledger are assumed distinct customers and never compared.
func (b block) pairs() []CandidatePair {
	var out []CandidatePair
	for i := 0; i < len(b.records); i++ {
		for j := i + 1; j < len(b.records); j++ {
			if b.records[i].Source == b.records[j].Source {
				continue
			}
			out = append(out, CandidatePair{A: b.records[i], B: b.records[j]})
		}
	}
	return out
}
