package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"unigraph/internal/normalize"
	"unigraph/pkg/domain"
	"unigraph/pkg/platform/sentinel"
)

func person(n int, name, last string) *Entity {
	return &Entity{
		ID:            domain.NewEntityID(n),
		Kind:          domain.KindPerson,
		CanonicalName: name,
		LastName:      last,
	}
}

func business(n int, name string) *Entity {
	return &Entity{
		ID:            domain.NewEntityID(n),
		Kind:          domain.KindBusiness,
		CanonicalName: name,
	}
}

// smithFixture builds the recurring test graph: a married couple, their
// adult child at the same address, and a business owned by one spouse.
//
//	1 JOHN SMITH ── SPOUSE ── 2 MARGARET SMITH
//	1 JOHN SMITH ── HOUSEHOLD ── 3 MICHAEL SMITH
//	1 JOHN SMITH ── BUSINESS_OWNER ─→ 4 SMITH PLUMBING LLC
func smithFixture(t *testing.T) *Snapshot {
	t.Helper()
	s, err := NewSnapshot(
		[]*Entity{
			person(1, "JOHN SMITH", "SMITH"),
			person(2, "MARGARET SMITH", "SMITH"),
			person(3, "MICHAEL SMITH", "SMITH"),
			business(4, "SMITH PLUMBING LLC"),
		},
		[]Edge{
			{From: domain.NewEntityID(1), To: domain.NewEntityID(2), Kind: domain.EdgeSpouse, Confidence: 0.9},
			{From: domain.NewEntityID(1), To: domain.NewEntityID(3), Kind: domain.EdgeHousehold, Confidence: 0.85},
			{From: domain.NewEntityID(1), To: domain.NewEntityID(4), Kind: domain.EdgeBusinessOwner, OwnershipPct: 75, Confidence: 0.95},
		},
	)
	require.NoError(t, err)
	return s
}

func TestNewSnapshot_RejectsDanglingEdge(t *testing.T) {
	_, err := NewSnapshot(
		[]*Entity{person(1, "JOHN SMITH", "SMITH")},
		[]Edge{{From: domain.NewEntityID(1), To: domain.NewEntityID(99), Kind: domain.EdgeSpouse}},
	)
	require.Error(t, err)
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestSnapshot_EntityLookup(t *testing.T) {
	s := smithFixture(t)

	e, err := s.Entity(domain.NewEntityID(2))
	require.NoError(t, err)
	assert.Equal(t, "MARGARET SMITH", e.CanonicalName)

	_, err = s.Entity(domain.NewEntityID(99))
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestSnapshot_FindByName(t *testing.T) {
	s := smithFixture(t)

	exact := s.FindByName("smith", true)
	assert.Len(t, exact, 3, "business has no surname")

	prefix := s.FindByName("SMI", false)
	assert.Len(t, prefix, 3)

	assert.Empty(t, s.FindByName("JONES", true))
	assert.Empty(t, s.FindByName("  ", false))
}

func TestSnapshot_Search(t *testing.T) {
	s := smithFixture(t)

	hits := s.Search("plumbing")
	require.Len(t, hits, 1)
	assert.Equal(t, domain.KindBusiness, hits[0].Kind)

	assert.Len(t, s.Search("SMITH"), 4)
	assert.Empty(t, s.Search(""))
}

func TestSnapshot_NeighborsFiltersByKind(t *testing.T) {
	s := smithFixture(t)

	all, err := s.Neighbors(domain.NewEntityID(1), "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	owned, err := s.Neighbors(domain.NewEntityID(1), domain.EdgeBusinessOwner)
	require.NoError(t, err)
	require.Len(t, owned, 1)
	assert.Equal(t, "SMITH PLUMBING LLC", owned[0].Entity.CanonicalName)
	assert.Equal(t, 75.0, owned[0].Edge.OwnershipPct)

	_, err = s.Neighbors(domain.NewEntityID(99), "")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestSnapshot_HouseholdClosure(t *testing.T) {
	s := smithFixture(t)

	members, err := s.Household(domain.NewEntityID(2))
	require.NoError(t, err)
	require.Len(t, members, 3, "spouse plus the household member two hops out")
	assert.Equal(t, domain.NewEntityID(1), members[0].ID)
	assert.Equal(t, domain.NewEntityID(2), members[1].ID)
	assert.Equal(t, domain.NewEntityID(3), members[2].ID)
}

func TestSnapshot_HouseholdDepthBounded(t *testing.T) {
	// Chain of household edges: 1-2-3-4. From 1, entity 4 is three hops out
	// and must not be included.
	entities := []*Entity{
		person(1, "A SMITH", "SMITH"),
		person(2, "B SMITH", "SMITH"),
		person(3, "C SMITH", "SMITH"),
		person(4, "D SMITH", "SMITH"),
	}
	var edges []Edge
	for i := 1; i < 4; i++ {
		edges = append(edges, Edge{
			From: domain.NewEntityID(i), To: domain.NewEntityID(i + 1),
			Kind: domain.EdgeHousehold, Confidence: 0.85,
		})
	}
	s, err := NewSnapshot(entities, edges)
	require.NoError(t, err)

	members, err := s.Household(domain.NewEntityID(1))
	require.NoError(t, err)
	require.Len(t, members, 3)
	for _, m := range members {
		assert.NotEqual(t, domain.NewEntityID(4), m.ID)
	}
}

func TestSnapshot_HouseholdIgnoresBusinessEdges(t *testing.T) {
	s := smithFixture(t)

	members, err := s.Household(domain.NewEntityID(1))
	require.NoError(t, err)
	for _, m := range members {
		assert.NotEqual(t, domain.KindBusiness, m.Kind, "ownership edges never join a household")
	}
}

func TestEntity_NetValueIgnoresNegativeBalances(t *testing.T) {
	e := &Entity{
		ID:   domain.NewEntityID(1),
		Kind: domain.KindPerson,
		Accounts: map[domain.SourceSystem][]normalize.Account{
			domain.SourceConsumer: {
				{Type: "CHECKING", Balance: domain.Cents(1250050)},
				{Type: "MORTGAGE", Balance: domain.Cents(-28500000)},
			},
			domain.SourceWealth: {
				{Type: "IRA", Balance: domain.Cents(50000000)},
			},
		},
	}
	assert.Equal(t, domain.Cents(51250050), e.NetValue())
	assert.Equal(t, domain.Cents(1250050), e.SourceValue(domain.SourceConsumer))
}

func TestStore_SwapPublishesAtomically(t *testing.T) {
	store := NewStore()
	assert.Equal(t, 0, store.Snapshot().Len(), "store starts with the empty snapshot")

	old := store.Snapshot()
	next := smithFixture(t)
	store.Swap(next)

	assert.Same(t, next, store.Snapshot())
	assert.Equal(t, 0, old.Len(), "prior snapshot stays valid for readers that hold it")
}
