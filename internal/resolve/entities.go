package resolve

import (
	"fmt"
	"sort"

	"unigraph/internal/graph"
	"unigraph/internal/normalize"
	"unigraph/pkg/domain"
	"unigraph/pkg/platform/sentinel"
	pstrings "unigraph/pkg/platform/strings"
)

// Relationship inference constants. Signer and related-name matches below
// the floor are treated as no match at all.
const (
	relatedNameFloor = 0.80
	signerNameFloor  = 0.80

	confidenceHousehold = 0.85
	confidenceSpouse    = 0.90
)

// buildSnapshot turns the run's partition into entities and inferred edges.
// Entity IDs are assigned in sorted component order, so re-running on the
// same records yields the same IDs.
func buildSnapshot(records []normalize.Record, uf *unionFind, explicit []ExplicitEdge) (*graph.Snapshot, error) {
	byRef := make(map[string]normalize.Record, len(records))
	components := make(map[string][]normalize.Record)
	for _, rec := range records {
		ref := rec.Ref().String()
		byRef[ref] = rec
		root := uf.find(ref)
		components[root] = append(components[root], rec)
	}

	roots := make([]string, 0, len(components))
	for root, members := range components {
		sort.Slice(members, func(i, j int) bool {
			return members[i].Ref().String() < members[j].Ref().String()
		})
		components[root] = members
		roots = append(roots, root)
	}
	sort.Slice(roots, func(i, j int) bool {
		return components[roots[i]][0].Ref().String() < components[roots[j]][0].Ref().String()
	})

	entities := make([]*graph.Entity, 0, len(roots))
	refToID := make(map[string]domain.EntityID, len(records))
	for i, root := range roots {
		e := buildEntity(domain.NewEntityID(i+1), components[root])
		entities = append(entities, e)
		for _, ref := range e.Records {
			refToID[ref.String()] = e.ID
		}
	}

	edges := inferEdges(entities, byRef)
	for _, ex := range explicit {
		from, okFrom := refToID[ex.From.String()]
		to, okTo := refToID[ex.To.String()]
		if !okFrom || !okTo {
			return nil, fmt.Errorf("explicit %s edge %s → %s references unknown record: %w",
				ex.Kind, ex.From, ex.To, sentinel.ErrNotFound)
		}
		edges = append(edges, graph.Edge{
			From:         from,
			To:           to,
			Kind:         ex.Kind,
			OwnershipPct: ex.OwnershipPct,
			Role:         ex.Role,
			Confidence:   1.0,
			Evidence:     []string{"explicitly ingested relationship"},
		})
	}

	return graph.NewSnapshot(entities, dedupeEdges(edges))
}

// buildEntity collapses one component into an entity. The canonical record
// is the richest member: date of birth beats none, then longest email, then
// longest name, then reference order.
func buildEntity(id domain.EntityID, members []normalize.Record) *graph.Entity {
	canonical := members[0]
	for _, rec := range members[1:] {
		if richer(rec, canonical) {
			canonical = rec
		}
	}

	e := &graph.Entity{
		ID:            id,
		Kind:          canonical.Kind,
		CanonicalName: canonical.Name.Full,
		LastName:      lastNameOf(canonical.Name),
		Accounts:      make(map[domain.SourceSystem][]normalize.Account),
	}

	seenAddr := make(map[string]bool)
	var phones, emails []string
	for _, rec := range members {
		e.Records = append(e.Records, rec.Ref())
		if e.TaxIDLast4 == "" {
			e.TaxIDLast4 = rec.TaxIDLast4
		}
		if e.DateOfBirth == "" {
			e.DateOfBirth = rec.DateOfBirth
		}
		if !rec.Address.IsZero() && !seenAddr[rec.Address.Full] {
			seenAddr[rec.Address.Full] = true
			e.Addresses = append(e.Addresses, rec.Address)
		}
		phones = append(phones, rec.Phone)
		emails = append(emails, rec.Email)
		for _, acct := range rec.Accounts {
			e.Accounts[rec.Source] = append(e.Accounts[rec.Source], acct)
		}
	}
	e.Phones = pstrings.DedupeAndTrim(phones)
	e.Emails = pstrings.DedupeAndTrimLower(emails)
	return e
}

func richer(a, b normalize.Record) bool {
	if (a.DateOfBirth != "") != (b.DateOfBirth != "") {
		return a.DateOfBirth != ""
	}
	if len(a.Email) != len(b.Email) {
		return len(a.Email) > len(b.Email)
	}
	if len(a.Name.Full) != len(b.Name.Full) {
		return len(a.Name.Full) > len(b.Name.Full)
	}
	return a.Ref().String() < b.Ref().String()
}

// inferEdges derives SPOUSE, HOUSEHOLD, and BUSINESS_OWNER edges from the
// built entities. A SPOUSE match between two entities suppresses the
// HOUSEHOLD edge the address overlap would otherwise produce.
func inferEdges(entities []*graph.Entity, byRef map[string]normalize.Record) []graph.Edge {
	var persons, businesses []*graph.Entity
	for _, e := range entities {
		if e.Kind == domain.KindBusiness {
			businesses = append(businesses, e)
		} else {
			persons = append(persons, e)
		}
	}

	var edges []graph.Edge
	spoused := make(map[string]bool)

	// SPOUSE: a record on one entity names a related person that matches
	// another person entity sharing an address with it.
	for _, a := range persons {
		for _, ref := range a.Records {
			rec := byRef[ref.String()]
			for _, related := range rec.RelatedNames {
				relName := normalize.NormalizeName(related)
				for _, b := range persons {
					if a.ID == b.ID || !shareAddress(a, b) {
						continue
					}
					if sim := nameSimilarity(relName, splitCanonical(b)); sim >= relatedNameFloor {
						key := undirectedKey(a.ID, b.ID)
						if spoused[key] {
							continue
						}
						spoused[key] = true
						edges = append(edges, graph.Edge{
							From:       minID(a.ID, b.ID),
							To:         maxID(a.ID, b.ID),
							Kind:       domain.EdgeSpouse,
							Confidence: confidenceSpouse,
							Evidence:   []string{fmt.Sprintf("record %s names related person %q", ref, related)},
						})
					}
				}
			}
		}
	}

	// HOUSEHOLD: distinct persons at the same address with the same last
	// name and distinct tax identities.
	for i, a := range persons {
		for _, b := range persons[i+1:] {
			if spoused[undirectedKey(a.ID, b.ID)] {
				continue
			}
			if a.LastName == "" || a.LastName != b.LastName {
				continue
			}
			addr, ok := sharedAddress(a, b)
			if !ok {
				continue
			}
			if a.TaxIDLast4 != "" && a.TaxIDLast4 == b.TaxIDLast4 {
				// Same tax identity at the same address is a missed merge,
				// not a household.
				continue
			}
			edges = append(edges, graph.Edge{
				From:       minID(a.ID, b.ID),
				To:         maxID(a.ID, b.ID),
				Kind:       domain.EdgeHousehold,
				Confidence: confidenceHousehold,
				Evidence:   []string{fmt.Sprintf("shared address %s, shared surname %s", addr, a.LastName)},
			})
		}
	}

	// BUSINESS_OWNER: authorized signers on a business record matched by
	// name against person entities. Directed person → business.
	for _, biz := range businesses {
		for _, ref := range biz.Records {
			rec := byRef[ref.String()]
			for _, signer := range rec.Signers {
				owner, sim := bestSignerMatch(signer.Name, persons)
				if owner == nil {
					continue
				}
				edges = append(edges, graph.Edge{
					From:         owner.ID,
					To:           biz.ID,
					Kind:         domain.EdgeBusinessOwner,
					OwnershipPct: signer.OwnershipPct,
					Role:         signer.Title,
					Confidence:   sim,
					Evidence:     []string{fmt.Sprintf("authorized signer %q on %s", signer.Name.Full, ref)},
				})
			}
		}
	}

	return edges
}

func bestSignerMatch(name normalize.Name, persons []*graph.Entity) (*graph.Entity, float64) {
	var best *graph.Entity
	bestSim := 0.0
	for _, p := range persons {
		sim := nameSimilarity(name, splitCanonical(p))
		if sim > bestSim || (sim == bestSim && best != nil && p.ID < best.ID) {
			best, bestSim = p, sim
		}
	}
	if bestSim < signerNameFloor {
		return nil, 0
	}
	return best, bestSim
}

// splitCanonical reparses the entity's canonical name for similarity
// comparison against free-text names.
func splitCanonical(e *graph.Entity) normalize.Name {
	return normalize.NormalizeName(e.CanonicalName)
}

func shareAddress(a, b *graph.Entity) bool {
	_, ok := sharedAddress(a, b)
	return ok
}

func sharedAddress(a, b *graph.Entity) (string, bool) {
	for _, aa := range a.Addresses {
		for _, ba := range b.Addresses {
			if aa.Zip5 != "" && aa.Zip5 == ba.Zip5 && aa.Line1 == ba.Line1 {
				return aa.Full, true
			}
		}
	}
	return "", false
}

func undirectedKey(a, b domain.EntityID) string {
	return string(minID(a, b)) + "~" + string(maxID(a, b))
}

func minID(a, b domain.EntityID) domain.EntityID {
	if b < a {
		return b
	}
	return a
}

func maxID(a, b domain.EntityID) domain.EntityID {
	if b < a {
		return a
	}
	return b
}

// dedupeEdges drops exact duplicate (from, to, kind) edges, keeping the
// first occurrence.
func dedupeEdges(edges []graph.Edge) []graph.Edge {
	seen := make(map[string]bool, len(edges))
	out := edges[:0]
	for _, e := range edges {
		key := string(e.From) + "|" + string(e.To) + "|" + string(e.Kind)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, e)
	}
	return out
}
