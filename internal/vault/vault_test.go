package vault_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"unigraph/internal/platform/logger"
	"unigraph/internal/vault"
	"unigraph/internal/vault/store/file"
	"unigraph/internal/vault/store/memory"
	"unigraph/pkg/domain"
	dErrors "unigraph/pkg/domain-errors"
	"unigraph/pkg/requestcontext"
)

func testEntry(caller string) vault.Entry {
	return vault.Entry{
		CallerID:   caller,
		Permission: domain.PermissionRelationshipManager,
		QueryType:  "get_customer_360",
		Query:      "id_or_name=UNI-0001",
		Entities:   []domain.EntityID{domain.NewEntityID(1)},
		Sources:    []domain.SourceSystem{domain.SourceConsumer, domain.SourceWealth},
	}
}

func newService(t *testing.T, store vault.Store) *vault.Service {
	t.Helper()
	svc, err := vault.NewService(context.Background(), store, nil, logger.NewNop(), nil)
	require.NoError(t, err)
	return svc
}

func TestAppend_ChainsRecords(t *testing.T) {
	svc := newService(t, memory.New())
	ctx := requestcontext.WithTime(context.Background(), time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))

	first, err := svc.Append(ctx, testEntry("rm.carter"))
	require.NoError(t, err)
	assert.Equal(t, vault.GenesisHash, first.PreviousRecordHash)
	assert.Equal(t, vault.ComputeHash(first), first.RecordHash)
	assert.Equal(t, vault.HashQuery("id_or_name=UNI-0001"), first.QueryHash)
	assert.NotContains(t, first.QueryHash, "UNI-0001", "raw query content never persists")

	second, err := svc.Append(ctx, testEntry("rm.carter"))
	require.NoError(t, err)
	assert.Equal(t, first.RecordHash, second.PreviousRecordHash)
	assert.NotEqual(t, first.RecordHash, second.RecordHash)
}

func TestComputeHash_FieldOrderIndependent(t *testing.T) {
	rec := vault.Record{
		ID:                 "r-1",
		TimestampUTC:       time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
		CallerID:           "rm.carter",
		CallerPermission:   "relationship-manager",
		QueryType:          "search_entities",
		QueryHash:          vault.HashQuery("query=smith"),
		EntitiesAccessed:   []string{"UNI-0001", "UNI-0002"},
		DataSources:        []string{"CONSUMER_CORE"},
		PreviousRecordHash: vault.GenesisHash,
	}
	assert.Equal(t, vault.ComputeHash(rec), vault.ComputeHash(rec), "hashing is deterministic")

	tampered := rec
	tampered.CallerID = "rm.carteR"
	assert.NotEqual(t, vault.ComputeHash(rec), vault.ComputeHash(tampered))
}

func TestAppend_SealedTimestampSurvivesMicrosecondRounding(t *testing.T) {
	svc := newService(t, memory.New())

	// TIMESTAMPTZ keeps microseconds only; a hash sealed over nanoseconds
	// would stop matching after one postgres round trip.
	nano := time.Date(2026, 8, 29, 10, 30, 0, 123456789, time.UTC)
	ctx := requestcontext.WithTime(context.Background(), nano)

	rec, err := svc.Append(ctx, testEntry("rm.carter"))
	require.NoError(t, err)
	assert.Equal(t, nano.Truncate(time.Microsecond), rec.TimestampUTC)

	roundTripped := rec
	roundTripped.TimestampUTC = rec.TimestampUTC.Round(time.Microsecond)
	assert.Equal(t, rec.RecordHash, vault.ComputeHash(roundTripped),
		"recomputed hash must match after the store's microsecond precision")
}

func TestVerifyChain_ValidChain(t *testing.T) {
	store := memory.New()
	svc := newService(t, store)
	ctx := context.Background()

	for range 5 {
		_, err := svc.Append(ctx, testEntry("rm.carter"))
		require.NoError(t, err)
	}

	report, err := svc.VerifyChain(ctx)
	require.NoError(t, err)
	assert.True(t, report.Valid)
	assert.Equal(t, 5, report.Records)
	assert.Empty(t, report.BrokenAt)
}

func TestVerifyChain_DetectsSingleByteTamper(t *testing.T) {
	store := memory.New()
	svc := newService(t, store)
	ctx := context.Background()

	for range 4 {
		_, err := svc.Append(ctx, testEntry("rm.carter"))
		require.NoError(t, err)
	}
	records, err := store.All(ctx)
	require.NoError(t, err)

	// Rebuild the store with one byte of one record altered after sealing.
	tampered := memory.New()
	for i, rec := range records {
		if i == 2 {
			rec.CallerID = "rm.cartex"
		}
		require.NoError(t, tampered.Append(ctx, rec))
	}

	report, err := newService(t, tampered).VerifyChain(ctx)
	require.NoError(t, err)
	assert.False(t, report.Valid)
	assert.Equal(t, records[2].ID, report.BrokenAt, "first altered record is reported")
	assert.Equal(t, 3, report.Records, "verification stops at the break")
}

func TestVerifyChain_DetectsDroppedRecord(t *testing.T) {
	store := memory.New()
	svc := newService(t, store)
	ctx := context.Background()

	for range 3 {
		_, err := svc.Append(ctx, testEntry("rm.carter"))
		require.NoError(t, err)
	}
	records, err := store.All(ctx)
	require.NoError(t, err)

	truncated := memory.New()
	require.NoError(t, truncated.Append(ctx, records[0]))
	require.NoError(t, truncated.Append(ctx, records[2])) // record 1 silently removed

	report, err := newService(t, truncated).VerifyChain(ctx)
	require.NoError(t, err)
	assert.False(t, report.Valid)
	assert.Equal(t, records[2].ID, report.BrokenAt)
}

func TestNewService_ContinuesExistingChain(t *testing.T) {
	store := memory.New()
	ctx := context.Background()

	first, err := newService(t, store).Append(ctx, testEntry("rm.carter"))
	require.NoError(t, err)

	// A restarted service picks up the tail instead of re-seeding GENESIS.
	second, err := newService(t, store).Append(ctx, testEntry("rm.diaz"))
	require.NoError(t, err)
	assert.Equal(t, first.RecordHash, second.PreviousRecordHash)

	report, err := newService(t, store).VerifyChain(ctx)
	require.NoError(t, err)
	assert.True(t, report.Valid)
}

func TestRecent_ReturnsNewestInOrder(t *testing.T) {
	store := memory.New()
	svc := newService(t, store)
	ctx := context.Background()

	var ids []string
	for range 5 {
		rec, err := svc.Append(ctx, testEntry("rm.carter"))
		require.NoError(t, err)
		ids = append(ids, rec.ID)
	}

	recent, err := svc.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, ids[3], recent[0].ID)
	assert.Equal(t, ids[4], recent[1].ID)
}

type failingStore struct{ memory.Store }

func (f *failingStore) Append(context.Context, vault.Record) error {
	return assert.AnError
}

func TestAppend_StoreFailureDoesNotAdvanceChain(t *testing.T) {
	store := &failingStore{}
	svc := newService(t, store)
	ctx := context.Background()

	_, err := svc.Append(ctx, testEntry("rm.carter"))
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodePersistence))
}

func TestFileStore_RoundTripsChain(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.log")
	store, err := file.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	svc := newService(t, store)
	ctx := context.Background()
	for range 3 {
		_, err := svc.Append(ctx, testEntry("rm.carter"))
		require.NoError(t, err)
	}

	// Reopen from disk and verify the persisted chain.
	reopened, err := file.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = reopened.Close() })

	report, err := newService(t, reopened).VerifyChain(ctx)
	require.NoError(t, err)
	assert.True(t, report.Valid)
	assert.Equal(t, 3, report.Records)
}
