// Package file persists the audit chain as one JSON record per line in an
// O_APPEND file. Suitable for single-node deployments where PostgreSQL is
// not available; the OS append guarantee plus the vault's single writer keep
// records whole and ordered.
package file

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"unigraph/internal/vault"
)

type Store struct {
	mu   sync.Mutex
	path string
	f    *os.File
}

func Open(path string) (*Store, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open audit log %s: %w", path, err)
	}
	return &Store{path: path, f: f}, nil
}

func (s *Store) Close() error { return s.f.Close() }

// Append writes and fsyncs one record. The record is durable when Append
// returns.
func (s *Store) Append(_ context.Context, rec vault.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	line, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal audit record %s: %w", rec.ID, err)
	}
	if _, err := s.f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("write audit record %s: %w", rec.ID, err)
	}
	if err := s.f.Sync(); err != nil {
		return fmt.Errorf("sync audit log: %w", err)
	}
	return nil
}

func (s *Store) All(_ context.Context) ([]vault.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open audit log %s: %w", s.path, err)
	}
	defer f.Close()

	var out []vault.Record
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		var rec vault.Record
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			return nil, fmt.Errorf("corrupt audit log line %d: %w", len(out)+1, err)
		}
		out = append(out, rec)
	}
	return out, scanner.Err()
}

func (s *Store) Recent(ctx context.Context, limit int) ([]vault.Record, error) {
	all, err := s.All(ctx)
	if err != nil {
		return nil, err
	}
	if limit <= 0 || limit > len(all) {
		limit = len(all)
	}
	return all[len(all)-limit:], nil
}
