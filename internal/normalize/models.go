package normalize

import (
	"unigraph/pkg/domain"
)

// RawRecord is one customer record exactly as a line-of-business ledger hands
// it over. Immutable once ingested; owned by its source system.
type RawRecord struct {
	Source  domain.SourceSystem `json:"source_system"`
	LocalID string              `json:"source_id"`
	Kind    domain.EntityKind   `json:"entity_type"`

	Name          string `json:"name"`
	TaxID         string `json:"tax_id"`
	DateOfBirth   string `json:"date_of_birth"`
	AddressLine1  string `json:"address_line1"`
	AddressLine2  string `json:"address_line2"`
	City          string `json:"city"`
	State         string `json:"state"`
	Zip           string `json:"zip"`
	Phone         string `json:"phone"`
	Email         string `json:"email"`
	Accounts      []RawAccount `json:"accounts"`
	RelatedNames  []string     `json:"related_names"`
	Signers       []RawSigner  `json:"authorized_signers"`
}

// RawAccount is an account balance as reported by the source ledger.
type RawAccount struct {
	Type    string  `json:"type"`
	Number  string  `json:"number"`
	Balance float64 `json:"balance"`
}

// RawSigner is an authorized signer on a business record, carrying the
// ownership percentage used for BUSINESS_OWNER edges.
type RawSigner struct {
	Name         string  `json:"name"`
	Title        string  `json:"title"`
	OwnershipPct float64 `json:"ownership_pct"`
}

// Name is a canonical-cased person or business name.
type Name struct {
	Full   string `json:"full_name"`
	First  string `json:"first_name"`
	Middle string `json:"middle_name"`
	Last   string `json:"last_name"`
	Suffix string `json:"suffix"`
}

// Address is an address parsed into a comparable structure.
type Address struct {
	Line1 string `json:"street_line1"`
	Unit  string `json:"street_line2"`
	City  string `json:"city"`
	State string `json:"state"`
	Zip5  string `json:"zip5"`
	Zip4  string `json:"zip4"`
	Full  string `json:"full_address"`
}

// IsZero reports whether no address was present on the source record.
func (a Address) IsZero() bool { return a.Full == "" }

// Account is an account with its balance carried in integer cents.
type Account struct {
	Type    string              `json:"type"`
	Number  string              `json:"number"`
	Balance domain.Cents        `json:"balance"`
	Source  domain.SourceSystem `json:"source_system"`
}

// Signer mirrors RawSigner after name canonicalization.
type Signer struct {
	Name         Name    `json:"name"`
	Title        string  `json:"title"`
	OwnershipPct float64 `json:"ownership_pct"`
}

// Record is the canonical form of one RawRecord: uppercased names, digits-only
// phone, lowercased email, parsed address, last-4 tax fragment, ISO date of
// birth. One Record per RawRecord; recomputed whenever normalization rules
// change.
type Record struct {
	Source  domain.SourceSystem `json:"source_system"`
	LocalID string              `json:"source_id"`
	Kind    domain.EntityKind   `json:"entity_type"`

	Name         Name     `json:"name"`
	TaxIDLast4   string   `json:"tax_id_last4"`
	DateOfBirth  string   `json:"date_of_birth"`
	Address      Address  `json:"address"`
	Phone        string   `json:"phone"`
	Email        string   `json:"email"`
	Accounts     []Account `json:"accounts"`
	RelatedNames []string  `json:"related_names"`
	Signers      []Signer  `json:"authorized_signers"`
}

// Ref returns the record's source reference.
func (r Record) Ref() domain.RecordRef {
	return domain.RecordRef{Source: r.Source, LocalID: r.LocalID}
}

// BlockKey is the composite blocking key: zip5 plus the first three
// characters of the last name. Records that differ in both are never
// compared; that recall trade-off is deliberate.
func (r Record) BlockKey() string {
	last := r.Name.Last
	if last == "" {
		last = r.Name.Full
	}
	prefix := last
	if len(prefix) > 3 {
		prefix = prefix[:3]
	}
	zip := r.Address.Zip5
	if zip == "" {
		zip = "UNKNOWN"
	}
	return zip + "|" + prefix
}
