package vault

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"unigraph/internal/vault/metrics"
	"unigraph/pkg/domain"
	dErrors "unigraph/pkg/domain-errors"
	"unigraph/pkg/requestcontext"
)

// Store persists sealed records. Implementations must be append-only and
// return records in append order.
type Store interface {
	Append(ctx context.Context, rec Record) error
	All(ctx context.Context) ([]Record, error)
	Recent(ctx context.Context, limit int) ([]Record, error)
}

// Mirror receives a copy of each sealed record. Mirroring is best-effort and
// never on the durability path; a mirror failure is logged, not returned.
type Mirror interface {
	Publish(ctx context.Context, rec Record)
}

// Service is the single writer for the audit chain. All appends serialize
// through its mutex; concurrent callers each get a distinct position in the
// chain.
type Service struct {
	store   Store
	mirror  Mirror
	logger  *slog.Logger
	metrics *metrics.Metrics

	mu       sync.Mutex
	lastHash string
}

// NewService loads the chain tail from the store so appends continue an
// existing chain after restart.
func NewService(ctx context.Context, store Store, mirror Mirror, logger *slog.Logger, m *metrics.Metrics) (*Service, error) {
	existing, err := store.All(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodePersistence, "load audit chain")
	}
	last := GenesisHash
	if n := len(existing); n > 0 {
		last = existing[n-1].RecordHash
	}
	return &Service{
		store:    store,
		mirror:   mirror,
		logger:   logger,
		metrics:  m,
		lastHash: last,
	}, nil
}

// Append seals and persists one record. It returns only after the store
// confirms the write; on store failure the chain tail does not advance and
// the caller must treat its operation as unaudited and fail it.
func (s *Service) Append(ctx context.Context, e Entry) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Microsecond precision: TIMESTAMPTZ rounds nanoseconds away, and a
	// sealed timestamp must survive the store round trip bit-for-bit or
	// VerifyChain would flag an untouched log.
	rec := Record{
		ID:                 uuid.NewString(),
		TimestampUTC:       requestcontext.Now(ctx).UTC().Truncate(time.Microsecond),
		CallerID:           e.CallerID,
		CallerPermission:   string(e.Permission),
		QueryType:          e.QueryType,
		QueryHash:          HashQuery(e.Query),
		EntitiesAccessed:   entityStrings(e.Entities),
		DataSources:        sourceStrings(e.Sources),
		Outcome:            e.Outcome,
		PreviousRecordHash: s.lastHash,
	}
	rec.RecordHash = ComputeHash(rec)

	if err := s.store.Append(ctx, rec); err != nil {
		if s.metrics != nil {
			s.metrics.AppendFailures.Inc()
		}
		return Record{}, dErrors.Wrap(err, dErrors.CodePersistence, "append audit record")
	}
	s.lastHash = rec.RecordHash

	if s.metrics != nil {
		s.metrics.RecordsAppended.Inc()
	}
	if s.mirror != nil {
		s.mirror.Publish(ctx, rec)
	}
	return rec, nil
}

// VerifyChain re-walks the whole chain and reports the first break, if any.
// Verification stops at the first broken record; everything after it is
// suspect anyway.
func (s *Service) VerifyChain(ctx context.Context) (Report, error) {
	records, err := s.store.All(ctx)
	if err != nil {
		return Report{}, dErrors.Wrap(err, dErrors.CodePersistence, "read audit chain")
	}

	prev := GenesisHash
	for i, rec := range records {
		if rec.PreviousRecordHash != prev {
			return Report{
				Records:  i + 1,
				BrokenAt: rec.ID,
				Reason:   fmt.Sprintf("previous_record_hash mismatch at position %d", i),
			}, nil
		}
		if ComputeHash(rec) != rec.RecordHash {
			return Report{
				Records:  i + 1,
				BrokenAt: rec.ID,
				Reason:   fmt.Sprintf("record content does not match its hash at position %d", i),
			}, nil
		}
		prev = rec.RecordHash
	}

	s.logger.InfoContext(ctx, "audit chain verified", "records", len(records))
	return Report{Valid: true, Records: len(records)}, nil
}

// Recent returns the newest records, most recent last, for operator
// inspection.
func (s *Service) Recent(ctx context.Context, limit int) ([]Record, error) {
	records, err := s.store.Recent(ctx, limit)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodePersistence, "read recent audit records")
	}
	return records, nil
}

func entityStrings(ids []domain.EntityID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = string(id)
	}
	return out
}

func sourceStrings(sources []domain.SourceSystem) []string {
	out := make([]string, len(sources))
	for i, src := range sources {
		out[i] = string(src)
	}
	return out
}
