// Package vault is the append-only audit log for entity access. Every record
// carries the hash of its predecessor, so any retroactive edit breaks the
// chain from that record forward and is detectable by re-verification.
package vault

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"unigraph/pkg/domain"
)

// GenesisHash seeds the chain; the first record's previous_record_hash.
const GenesisHash = "GENESIS"

// Entry is what callers submit. The vault assigns identity, timestamps, and
// hashes.
type Entry struct {
	CallerID   string
	Permission domain.Permission

	QueryType string
	// Query is the caller's query rendered as a stable string. Only its
	// hash is retained; raw queries may contain customer data.
	Query string

	Entities []domain.EntityID
	Sources  []domain.SourceSystem

	// Outcome is a short digest of how the call ended: "ok", "not_found",
	// "ambiguous", "permission_denied". Denials audit the same as successes.
	Outcome string
}

// Record is one sealed audit record. Append-only: no update or delete path
// exists anywhere in the module.
type Record struct {
	ID           string    `json:"record_id"`
	TimestampUTC time.Time `json:"timestamp_utc"`

	CallerID         string `json:"caller_id"`
	CallerPermission string `json:"caller_permission"`

	QueryType string `json:"query_type"`
	QueryHash string `json:"query_hash"`

	EntitiesAccessed []string `json:"entities_accessed"`
	DataSources      []string `json:"data_sources"`
	Outcome          string   `json:"outcome"`

	PreviousRecordHash string `json:"previous_record_hash"`
	RecordHash         string `json:"record_hash"`
}

// HashQuery hashes a query string for storage. The raw query never persists.
func HashQuery(query string) string {
	sum := sha256.Sum256([]byte(query))
	return hex.EncodeToString(sum[:])
}

// ComputeHash seals a record: every field except record_hash itself is
// marshalled with sorted keys and hashed. Field order in the struct is
// irrelevant; two records with equal content always hash identically.
func ComputeHash(r Record) string {
	canonical := map[string]any{
		"record_id":            r.ID,
		"timestamp_utc":        r.TimestampUTC.UTC().Format(time.RFC3339Nano),
		"caller_id":            r.CallerID,
		"caller_permission":    r.CallerPermission,
		"query_type":           r.QueryType,
		"query_hash":           r.QueryHash,
		"entities_accessed":    r.EntitiesAccessed,
		"data_sources":         r.DataSources,
		"outcome":              r.Outcome,
		"previous_record_hash": r.PreviousRecordHash,
	}
	// json.Marshal writes map keys in sorted order, which is exactly the
	// canonical form the chain needs.
	payload, err := json.Marshal(canonical)
	if err != nil {
		// Only unmarshalable types reach here, and the map holds none.
		panic("vault: canonical marshal: " + err.Error())
	}
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

// Report is the outcome of a full chain verification.
type Report struct {
	Valid    bool   `json:"valid"`
	Records  int    `json:"records_checked"`
	BrokenAt string `json:"broken_at,omitempty"`
	Reason   string `json:"reason,omitempty"`
}
