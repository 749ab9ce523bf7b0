package assemble_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"unigraph/internal/assemble"
	"unigraph/internal/graph"
	"unigraph/internal/normalize"
	"unigraph/internal/platform/logger"
	"unigraph/internal/vault"
	"unigraph/internal/vault/store/memory"
	"unigraph/pkg/domain"
	dErrors "unigraph/pkg/domain-errors"
	"unigraph/pkg/requestcontext"
)

func cents(dollars float64) domain.Cents { return domain.CentsFromFloat(dollars) }

func accounts(src domain.SourceSystem, balances ...float64) []normalize.Account {
	var out []normalize.Account
	for _, b := range balances {
		out = append(out, normalize.Account{Type: "ACCOUNT", Number: "****1111", Balance: cents(b), Source: src})
	}
	return out
}

// smithGraph is the end-to-end fixture: three Smith household members and a
// business one of them owns 60% of.
func smithGraph(t *testing.T) *graph.Store {
	t.Helper()

	jane := &graph.Entity{
		ID: domain.NewEntityID(1), Kind: domain.KindPerson,
		CanonicalName: "JANE MARIE SMITH", LastName: "SMITH",
		Accounts: map[domain.SourceSystem][]normalize.Account{
			domain.SourceConsumer: accounts(domain.SourceConsumer, 100000.00, 200000.00, 300000.00),
			domain.SourceWealth:   accounts(domain.SourceWealth, 312450.33),
		},
	}
	john := &graph.Entity{
		ID: domain.NewEntityID(2), Kind: domain.KindPerson,
		CanonicalName: "JOHN R SMITH", LastName: "SMITH",
		Accounts: map[domain.SourceSystem][]normalize.Account{
			domain.SourceConsumer: accounts(domain.SourceConsumer, 20000.00, 17650.33, 20000.00),
		},
	}
	jonathan := &graph.Entity{
		ID: domain.NewEntityID(3), Kind: domain.KindPerson,
		CanonicalName: "JONATHAN R SMITH", LastName: "SMITH",
		Accounts: map[domain.SourceSystem][]normalize.Account{
			domain.SourceWealth: accounts(domain.SourceWealth, 500000.00, 500000.00, 500000.00, 445000.00),
		},
	}
	consulting := &graph.Entity{
		ID: domain.NewEntityID(4), Kind: domain.KindBusiness,
		CanonicalName: "SMITH CONSULTING LLC",
		Accounts: map[domain.SourceSystem][]normalize.Account{
			domain.SourceCommercial: accounts(domain.SourceCommercial, 675000.00),
		},
	}

	snap, err := graph.NewSnapshot(
		[]*graph.Entity{jane, john, jonathan, consulting},
		[]graph.Edge{
			{From: jane.ID, To: john.ID, Kind: domain.EdgeSpouse, Confidence: 0.9},
			{From: jane.ID, To: jonathan.ID, Kind: domain.EdgeHousehold, Confidence: 0.85},
			{From: jonathan.ID, To: consulting.ID, Kind: domain.EdgeBusinessOwner, OwnershipPct: 60, Role: "Principal", Confidence: 0.95},
		},
	)
	require.NoError(t, err)

	store := graph.NewStore()
	store.Swap(snap)
	return store
}

type fixture struct {
	svc        *assemble.Service
	vaultStore *memory.Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	vaultStore := memory.New()
	vaultSvc, err := vault.NewService(context.Background(), vaultStore, nil, logger.NewNop(), nil)
	require.NoError(t, err)
	return &fixture{
		svc:        assemble.NewService(smithGraph(t), vaultSvc, logger.NewNop(), nil),
		vaultStore: vaultStore,
	}
}

func callerCtx(perm domain.Permission) context.Context {
	return requestcontext.WithCaller(context.Background(), "rm.carter", perm)
}

func (f *fixture) auditCount(t *testing.T) int {
	t.Helper()
	records, err := f.vaultStore.All(context.Background())
	require.NoError(t, err)
	return len(records)
}

func TestHouseholdSummary_SmithScenario(t *testing.T) {
	f := newFixture(t)

	summary, err := f.svc.HouseholdSummary(callerCtx(domain.PermissionRelationshipManager), assemble.GetHouseholdSummary{LastName: "Smith"})
	require.NoError(t, err)

	assert.Equal(t, "SMITH HOUSEHOLD", summary.HouseholdName)
	require.Len(t, summary.Members, 3)
	assert.Equal(t, cents(912450.33), summary.Members[0].PersonalAUM)
	assert.Equal(t, 4, summary.Members[0].AccountsCount)
	assert.Equal(t, cents(57650.33), summary.Members[1].PersonalAUM)
	assert.Equal(t, 3, summary.Members[1].AccountsCount)
	assert.Equal(t, cents(1945000.00), summary.Members[2].PersonalAUM)
	assert.Equal(t, 4, summary.Members[2].AccountsCount)

	require.Len(t, summary.ConnectedBusinesses, 1)
	assert.Equal(t, "SMITH CONSULTING LLC", summary.ConnectedBusinesses[0].Name)
	assert.Equal(t, 60.0, summary.ConnectedBusinesses[0].OwnershipPct)

	assert.Equal(t, cents(2915100.66), summary.Totals.PersonalAUM)
	assert.Equal(t, cents(405000.00), summary.Totals.BusinessExposure)
	assert.Equal(t, cents(3320100.66), summary.Totals.TotalRelationshipValue)
	assert.Equal(t, summary.Totals.PersonalAUM+summary.Totals.BusinessExposure,
		summary.Totals.TotalRelationshipValue, "roll-up is exact to the cent")
	assert.Equal(t, 3, summary.Totals.MemberCount)
	assert.Equal(t, 1, summary.Totals.BusinessCount)
}

func TestHouseholdSummary_RetailRedaction(t *testing.T) {
	f := newFixture(t)

	summary, err := f.svc.HouseholdSummary(callerCtx(domain.PermissionRetail), assemble.GetHouseholdSummary{LastName: "Smith"})
	require.NoError(t, err)

	// Retail sees consumer balances only; wealth portfolios and business
	// exposure vanish rather than showing as zero-valued placeholders.
	assert.Equal(t, cents(600000.00+57650.33), summary.Totals.PersonalAUM)
	assert.Empty(t, summary.ConnectedBusinesses)
	assert.Zero(t, summary.Totals.BusinessExposure)
	assert.Equal(t, summary.Totals.PersonalAUM, summary.Totals.TotalRelationshipValue)
}

func TestHouseholdSummary_UnknownSurnameStillAudited(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.HouseholdSummary(callerCtx(domain.PermissionRetail), assemble.GetHouseholdSummary{LastName: "Nonexistent"})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))

	records, err := f.vaultStore.All(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1, "a miss is as auditable as a hit")
	assert.Equal(t, "not_found", records[0].Outcome)
	assert.Equal(t, "get_household_summary", records[0].QueryType)
	assert.Equal(t, "rm.carter", records[0].CallerID)
}

func TestCustomer360_ByEntityID(t *testing.T) {
	f := newFixture(t)

	profile, err := f.svc.Customer360(callerCtx(domain.PermissionRelationshipManager), assemble.GetCustomer360{IDOrName: "UNI-0003"})
	require.NoError(t, err)

	assert.Equal(t, "JONATHAN R SMITH", profile.CanonicalName)
	assert.Equal(t, cents(1945000.00), profile.TotalValue)
	require.Len(t, profile.BusinessConnections, 1)
	assert.Equal(t, 60.0, profile.BusinessConnections[0].OwnershipPct)
	assert.Equal(t, "Principal", profile.BusinessConnections[0].Role)
	require.Len(t, profile.Household, 1)
	assert.Equal(t, domain.EdgeHousehold, profile.Household[0].Kind)
}

func TestCustomer360_RetailNeverSeesWealthOrBusiness(t *testing.T) {
	f := newFixture(t)

	profile, err := f.svc.Customer360(callerCtx(domain.PermissionRetail), assemble.GetCustomer360{IDOrName: "UNI-0001"})
	require.NoError(t, err)

	assert.Equal(t, []domain.SourceSystem{domain.SourceConsumer}, profile.DataSources)
	assert.NotContains(t, profile.Accounts, domain.SourceWealth)
	assert.Empty(t, profile.BusinessConnections)
	assert.Equal(t, cents(600000.00), profile.TotalValue, "wealth balances excluded from the total")

	full, err := f.svc.Customer360(callerCtx(domain.PermissionRelationshipManager), assemble.GetCustomer360{IDOrName: "UNI-0001"})
	require.NoError(t, err)
	assert.Contains(t, full.Accounts, domain.SourceWealth)
	assert.Equal(t, cents(912450.33), full.TotalValue)
}

func TestCustomer360_PermissionDeniedIsDistinctAndAudited(t *testing.T) {
	f := newFixture(t)

	// The consulting firm exists only in the commercial ledger; a retail
	// caller is denied, not told it does not exist.
	_, err := f.svc.Customer360(callerCtx(domain.PermissionRetail), assemble.GetCustomer360{IDOrName: "UNI-0004"})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodePermissionDenied))
	assert.False(t, dErrors.HasCode(err, dErrors.CodeNotFound))

	records, err := f.vaultStore.All(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "permission_denied", records[0].Outcome)
	assert.Equal(t, []string{"UNI-0004"}, records[0].EntitiesAccessed)
}

func TestCustomer360_AmbiguousNameNeedsID(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Customer360(callerCtx(domain.PermissionRelationshipManager), assemble.GetCustomer360{IDOrName: "Smith"})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeAmbiguous))

	_, err = f.svc.Customer360(callerCtx(domain.PermissionRelationshipManager), assemble.GetCustomer360{IDOrName: "UNI-0099"})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}

func TestSearchEntities_FiltersByEntitlement(t *testing.T) {
	f := newFixture(t)

	hits, err := f.svc.SearchEntities(callerCtx(domain.PermissionRelationshipManager), assemble.SearchEntities{Query: "smith"})
	require.NoError(t, err)
	assert.Len(t, hits, 4)

	retail, err := f.svc.SearchEntities(callerCtx(domain.PermissionRetail), assemble.SearchEntities{Query: "smith"})
	require.NoError(t, err)
	require.Len(t, retail, 2, "wealth-only and commercial-only entities are invisible to retail")
	for _, hit := range retail {
		assert.Equal(t, []domain.SourceSystem{domain.SourceConsumer}, hit.DataSources)
	}
}

func TestSearchEntities_EachCallReExecutes(t *testing.T) {
	f := newFixture(t)
	ctx := callerCtx(domain.PermissionRelationshipManager)

	first, err := f.svc.SearchEntities(ctx, assemble.SearchEntities{Query: "consulting"})
	require.NoError(t, err)
	second, err := f.svc.SearchEntities(ctx, assemble.SearchEntities{Query: "consulting"})
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 2, f.auditCount(t), "every call lands its own audit record")
}

type failingVaultStore struct{ memory.Store }

func (f *failingVaultStore) Append(context.Context, vault.Record) error {
	return assert.AnError
}

func TestAuditFailureWithholdsResult(t *testing.T) {
	vaultSvc, err := vault.NewService(context.Background(), &failingVaultStore{}, nil, logger.NewNop(), nil)
	require.NoError(t, err)
	svc := assemble.NewService(smithGraph(t), vaultSvc, logger.NewNop(), nil)

	summary, err := svc.HouseholdSummary(callerCtx(domain.PermissionRelationshipManager), assemble.GetHouseholdSummary{LastName: "Smith"})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodePersistence))
	assert.Nil(t, summary, "an access that cannot be logged releases nothing")
}

func TestRequestValidation(t *testing.T) {
	f := newFixture(t)
	ctx := callerCtx(domain.PermissionRetail)

	_, err := f.svc.Customer360(ctx, assemble.GetCustomer360{})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))

	_, err = f.svc.HouseholdSummary(ctx, assemble.GetHouseholdSummary{})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))

	_, err = f.svc.SearchEntities(ctx, assemble.SearchEntities{})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))

	records, err := f.vaultStore.All(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 3, "malformed requests land audit records too")
	for _, rec := range records {
		assert.Equal(t, "invalid_input", rec.Outcome)
		assert.Equal(t, "rm.carter", rec.CallerID)
		assert.Empty(t, rec.EntitiesAccessed)
	}
}

func TestAudit_RecordsSourcesActuallyRead(t *testing.T) {
	f := newFixture(t)

	// John exists only in the consumer ledger. An RM is entitled to all
	// three sources, but the record lists the one the call read.
	_, err := f.svc.Customer360(callerCtx(domain.PermissionRelationshipManager), assemble.GetCustomer360{IDOrName: "UNI-0002"})
	require.NoError(t, err)

	records, err := f.vaultStore.All(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, []string{string(domain.SourceConsumer)}, records[0].DataSources)
}

func TestAudit_HouseholdSourcesSpanMembersAndBusinesses(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.HouseholdSummary(callerCtx(domain.PermissionRelationshipManager), assemble.GetHouseholdSummary{LastName: "Smith"})
	require.NoError(t, err)

	records, err := f.vaultStore.All(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.ElementsMatch(t,
		[]string{string(domain.SourceConsumer), string(domain.SourceCommercial), string(domain.SourceWealth)},
		records[0].DataSources)

	// Retail never reaches the wealth or commercial ledgers, and the
	// record says so.
	retail := newFixture(t)
	_, err = retail.svc.HouseholdSummary(callerCtx(domain.PermissionRetail), assemble.GetHouseholdSummary{LastName: "Smith"})
	require.NoError(t, err)

	records, err = retail.vaultStore.All(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, []string{string(domain.SourceConsumer)}, records[0].DataSources)
}
