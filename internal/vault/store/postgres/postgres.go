// Package postgres persists the audit chain in PostgreSQL. The store issues
// INSERT and SELECT only; no UPDATE or DELETE statement exists here, so the
// append-only guarantee holds at the SQL layer too.
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"unigraph/internal/vault"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Migrate creates the audit table. seq preserves append order independently
// of timestamps, which can collide under load.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS audit_records (
			seq                  BIGSERIAL PRIMARY KEY,
			record_id            TEXT NOT NULL UNIQUE,
			timestamp_utc        TIMESTAMPTZ NOT NULL,
			caller_id            TEXT NOT NULL,
			caller_permission    TEXT NOT NULL,
			query_type           TEXT NOT NULL,
			query_hash           TEXT NOT NULL,
			entities_accessed    TEXT[] NOT NULL,
			data_sources         TEXT[] NOT NULL,
			outcome              TEXT NOT NULL,
			previous_record_hash TEXT NOT NULL,
			record_hash          TEXT NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("create audit_records: %w", err)
	}
	return nil
}

func (s *Store) Append(ctx context.Context, rec vault.Record) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_records (
			record_id, timestamp_utc, caller_id, caller_permission,
			query_type, query_hash, entities_accessed, data_sources,
			outcome, previous_record_hash, record_hash
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`,
		rec.ID, rec.TimestampUTC, rec.CallerID, rec.CallerPermission,
		rec.QueryType, rec.QueryHash, pq.Array(rec.EntitiesAccessed), pq.Array(rec.DataSources),
		rec.Outcome, rec.PreviousRecordHash, rec.RecordHash,
	)
	if err != nil {
		return fmt.Errorf("insert audit record %s: %w", rec.ID, err)
	}
	return nil
}

func (s *Store) All(ctx context.Context) ([]vault.Record, error) {
	return s.query(ctx, `
		SELECT record_id, timestamp_utc, caller_id, caller_permission,
		       query_type, query_hash, entities_accessed, data_sources,
		       outcome, previous_record_hash, record_hash
		FROM audit_records ORDER BY seq
	`)
}

func (s *Store) Recent(ctx context.Context, limit int) ([]vault.Record, error) {
	if limit <= 0 {
		return s.All(ctx)
	}
	records, err := s.query(ctx, `
		SELECT record_id, timestamp_utc, caller_id, caller_permission,
		       query_type, query_hash, entities_accessed, data_sources,
		       outcome, previous_record_hash, record_hash
		FROM (
			SELECT * FROM audit_records ORDER BY seq DESC LIMIT $1
		) tail ORDER BY seq
	`, limit)
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (s *Store) query(ctx context.Context, q string, args ...any) ([]vault.Record, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit records: %w", err)
	}
	defer rows.Close()

	var out []vault.Record
	for rows.Next() {
		var rec vault.Record
		if err := rows.Scan(
			&rec.ID, &rec.TimestampUTC, &rec.CallerID, &rec.CallerPermission,
			&rec.QueryType, &rec.QueryHash,
			pq.Array(&rec.EntitiesAccessed), pq.Array(&rec.DataSources),
			&rec.Outcome, &rec.PreviousRecordHash, &rec.RecordHash,
		); err != nil {
			return nil, fmt.Errorf("scan audit record: %w", err)
		}
		rec.TimestampUTC = rec.TimestampUTC.UTC()
		out = append(out, rec)
	}
	return out, rows.Err()
}
