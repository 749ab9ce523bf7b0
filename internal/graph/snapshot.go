package graph

import (
	"sort"
	"strings"

	"unigraph/pkg/domain"
	"unigraph/pkg/platform/sentinel"
)

// householdDepth bounds household closure so weakly connected extended family
// does not explode into one mega-household.
const householdDepth = 2

// Snapshot is one complete, immutable resolution result. All lookup indexes
// are built once at construction; readers share the snapshot freely without
// locks.
type Snapshot struct {
	entities []*Entity
	edges    []Edge

	byID       map[domain.EntityID]*Entity
	byLastName map[string][]*Entity
	edgesByID  map[domain.EntityID][]Edge
}

// NewSnapshot indexes the given entities and edges. It returns
// sentinel.ErrNotFound wrapped per offending edge endpoint, enforcing the
// invariant that every edge references existing entities.
func NewSnapshot(entities []*Entity, edges []Edge) (*Snapshot, error) {
	s := &Snapshot{
		entities:   entities,
		edges:      edges,
		byID:       make(map[domain.EntityID]*Entity, len(entities)),
		byLastName: make(map[string][]*Entity),
		edgesByID:  make(map[domain.EntityID][]Edge),
	}
	for _, e := range entities {
		s.byID[e.ID] = e
		if e.LastName != "" {
			key := strings.ToUpper(e.LastName)
			s.byLastName[key] = append(s.byLastName[key], e)
		}
	}
	for _, edge := range edges {
		if _, ok := s.byID[edge.From]; !ok {
			return nil, sentinelEdgeErr(edge.From)
		}
		if _, ok := s.byID[edge.To]; !ok {
			return nil, sentinelEdgeErr(edge.To)
		}
		s.edgesByID[edge.From] = append(s.edgesByID[edge.From], edge)
		s.edgesByID[edge.To] = append(s.edgesByID[edge.To], edge)
	}
	return s, nil
}

func sentinelEdgeErr(id domain.EntityID) error {
	return &edgeEndpointError{id: id}
}

type edgeEndpointError struct{ id domain.EntityID }

func (e *edgeEndpointError) Error() string {
	return "edge endpoint " + string(e.id) + ": " + sentinel.ErrNotFound.Error()
}

func (e *edgeEndpointError) Unwrap() error { return sentinel.ErrNotFound }

// Empty returns a snapshot with no entities, the state before the first
// resolution run completes.
func Empty() *Snapshot {
	s, _ := NewSnapshot(nil, nil)
	return s
}

// Entity looks up one entity by ID.
func (s *Snapshot) Entity(id domain.EntityID) (*Entity, error) {
	e, ok := s.byID[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return e, nil
}

// Entities returns all entities in insertion (ID) order.
func (s *Snapshot) Entities() []*Entity { return s.entities }

// Len reports the number of entities.
func (s *Snapshot) Len() int { return len(s.entities) }

// Edges returns every edge in the snapshot.
func (s *Snapshot) Edges() []Edge { return s.edges }

// FindByName returns entities whose last name matches, case-insensitively.
// With exact=false the match is by prefix. Businesses match on their full
// canonical name instead of a surname.
func (s *Snapshot) FindByName(lastName string, exact bool) []*Entity {
	key := strings.ToUpper(strings.TrimSpace(lastName))
	if key == "" {
		return nil
	}
	if exact {
		out := make([]*Entity, len(s.byLastName[key]))
		copy(out, s.byLastName[key])
		return out
	}
	var out []*Entity
	for name, entities := range s.byLastName {
		if strings.HasPrefix(name, key) {
			out = append(out, entities...)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Search returns entities whose canonical name contains the query,
// case-insensitively, in ID order. Each call re-executes the scan; there is
// no cursor to persist.
func (s *Snapshot) Search(query string) []*Entity {
	q := strings.ToUpper(strings.TrimSpace(query))
	if q == "" {
		return nil
	}
	var out []*Entity
	for _, e := range s.entities {
		if strings.Contains(strings.ToUpper(e.CanonicalName), q) {
			out = append(out, e)
		}
	}
	return out
}

// Neighbors returns the entities adjacent to id, with the connecting edge.
// kind filters to one edge kind when non-empty.
func (s *Snapshot) Neighbors(id domain.EntityID, kind domain.EdgeKind) ([]Neighbor, error) {
	if _, ok := s.byID[id]; !ok {
		return nil, sentinel.ErrNotFound
	}
	var out []Neighbor
	for _, edge := range s.edgesByID[id] {
		if kind != "" && edge.Kind != kind {
			continue
		}
		other := s.byID[edge.Other(id)]
		out = append(out, Neighbor{Entity: other, Edge: edge})
	}
	return out, nil
}

// Neighbor pairs an adjacent entity with the edge that reaches it.
type Neighbor struct {
	Entity *Entity
	Edge   Edge
}

// Household computes the transitive closure over SPOUSE and HOUSEHOLD edges,
// starting at id and bounded at depth 2. The start entity is included.
func (s *Snapshot) Household(id domain.EntityID) ([]*Entity, error) {
	start, ok := s.byID[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}

	visited := map[domain.EntityID]bool{id: true}
	members := []*Entity{start}
	frontier := []domain.EntityID{id}

	for depth := 0; depth < householdDepth; depth++ {
		var next []domain.EntityID
		for _, cur := range frontier {
			for _, edge := range s.edgesByID[cur] {
				if !edge.Kind.Familial() {
					continue
				}
				other := edge.Other(cur)
				if visited[other] {
					continue
				}
				visited[other] = true
				members = append(members, s.byID[other])
				next = append(next, other)
			}
		}
		frontier = next
	}

	sort.Slice(members, func(i, j int) bool { return members[i].ID < members[j].ID })
	return members, nil
}
