package graph

import (
	"unigraph/internal/normalize"
	"unigraph/pkg/domain"
)

// Entity is the merge closure of one or more source records. Created the
// first time any record maps to it; mutated only by later merge decisions;
// never physically deleted, only marked superseded if un-merged.
type Entity struct {
	ID   domain.EntityID   `json:"entity_id"`
	Kind domain.EntityKind `json:"entity_type"`

	CanonicalName string `json:"canonical_name"`
	LastName      string `json:"last_name"`
	TaxIDLast4    string `json:"tax_id_last4,omitempty"`
	DateOfBirth   string `json:"date_of_birth,omitempty"`

	Addresses []normalize.Address `json:"addresses,omitempty"`
	Phones    []string            `json:"phones,omitempty"`
	Emails    []string            `json:"emails,omitempty"`

	// Records lists every source record merged into this entity. Invariant:
	// at least one.
	Records []domain.RecordRef `json:"source_records"`

	// Accounts holds the entity's accounts grouped by originating ledger.
	Accounts map[domain.SourceSystem][]normalize.Account `json:"accounts,omitempty"`

	Superseded bool `json:"superseded,omitempty"`
}

// Sources returns the ledgers this entity has records in, in stable order.
func (e *Entity) Sources() []domain.SourceSystem {
	var out []domain.SourceSystem
	for _, src := range domain.AllSources {
		if len(e.Accounts[src]) > 0 {
			out = append(out, src)
			continue
		}
		for _, ref := range e.Records {
			if ref.Source == src {
				out = append(out, src)
				break
			}
		}
	}
	return out
}

// NetValue is the sum of the entity's positive account balances across every
// ledger. For businesses this is the business net value used for ownership
// exposure.
func (e *Entity) NetValue() domain.Cents {
	var total domain.Cents
	for _, accounts := range e.Accounts {
		for _, acct := range accounts {
			if acct.Balance > 0 {
				total += acct.Balance
			}
		}
	}
	return total
}

// SourceValue sums positive balances held in one ledger.
func (e *Entity) SourceValue(src domain.SourceSystem) domain.Cents {
	var total domain.Cents
	for _, acct := range e.Accounts[src] {
		if acct.Balance > 0 {
			total += acct.Balance
		}
	}
	return total
}

// Edge is a typed link between two entities. SPOUSE and HOUSEHOLD edges are
// undirected; BUSINESS_OWNER points from the person to the business and
// carries the ownership percentage.
type Edge struct {
	From domain.EntityID `json:"from"`
	To   domain.EntityID `json:"to"`
	Kind domain.EdgeKind `json:"kind"`

	OwnershipPct float64  `json:"ownership_pct,omitempty"`
	Role         string   `json:"role,omitempty"`
	Confidence   float64  `json:"confidence"`
	Evidence     []string `json:"evidence,omitempty"`
}

// Touches reports whether the edge is incident to the entity.
func (e Edge) Touches(id domain.EntityID) bool { return e.From == id || e.To == id }

// Other returns the opposite endpoint.
func (e Edge) Other(id domain.EntityID) domain.EntityID {
	if e.From == id {
		return e.To
	}
	return e.From
}
