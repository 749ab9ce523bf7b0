// Package assemble is the query layer external agents call. It translates
// named lookups into graph reads, applies entitlement filtering, aggregates
// financial totals in integer cents, and reports every call to the audit
// vault before releasing a result.
package assemble

import (
	"fmt"

	"github.com/asaskevich/govalidator"

	"unigraph/internal/normalize"
	"unigraph/pkg/domain"
	dErrors "unigraph/pkg/domain-errors"
)

// Request is the closed set of assembler queries. Each variant renders
// itself as a stable string for audit hashing; new query kinds are added
// here, not smuggled through string parameters.
type Request interface {
	QueryType() string
	QueryString() string
	Validate() error
}

// GetCustomer360 asks for one entity's full profile, by entity ID or name.
type GetCustomer360 struct {
	IDOrName string `json:"name_or_id"`
}

func (r GetCustomer360) QueryType() string   { return "get_customer_360" }
func (r GetCustomer360) QueryString() string { return "name_or_id=" + r.IDOrName }
func (r GetCustomer360) Validate() error {
	if !govalidator.StringLength(r.IDOrName, "1", "255") {
		return dErrors.New(dErrors.CodeInvalidInput, "name_or_id must be 1-255 characters")
	}
	return nil
}

// GetHouseholdSummary asks for the aggregate view of a surname's household.
type GetHouseholdSummary struct {
	LastName string `json:"last_name"`
}

func (r GetHouseholdSummary) QueryType() string   { return "get_household_summary" }
func (r GetHouseholdSummary) QueryString() string { return "last_name=" + r.LastName }
func (r GetHouseholdSummary) Validate() error {
	if !govalidator.StringLength(r.LastName, "1", "255") {
		return dErrors.New(dErrors.CodeInvalidInput, "last_name must be 1-255 characters")
	}
	return nil
}

// SearchEntities is a free-text lookup over canonical names. Each call
// re-executes the scan; no cursor persists between calls.
type SearchEntities struct {
	Query string `json:"query"`
}

func (r SearchEntities) QueryType() string   { return "search_entities" }
func (r SearchEntities) QueryString() string { return "query=" + r.Query }
func (r SearchEntities) Validate() error {
	if !govalidator.StringLength(r.Query, "1", "255") {
		return dErrors.New(dErrors.CodeInvalidInput, "query must be 1-255 characters")
	}
	return nil
}

// AccountView is one account as presented to an entitled caller.
type AccountView struct {
	Type    string       `json:"type"`
	Number  string       `json:"number"`
	Balance domain.Cents `json:"balance"`
}

// RelationView is one graph neighbor on a profile.
type RelationView struct {
	EntityID domain.EntityID `json:"entity_id"`
	Name     string          `json:"name"`
	Kind     domain.EdgeKind `json:"relationship"`
}

// BusinessConnection is a BUSINESS_OWNER edge as presented on a profile.
type BusinessConnection struct {
	EntityID     domain.EntityID `json:"entity_id"`
	Name         string          `json:"name"`
	Role         string          `json:"role,omitempty"`
	OwnershipPct float64         `json:"ownership_pct"`
}

// Customer360 is the full entitlement-filtered profile of one entity.
// Accounts, wealth data, and business connections outside the caller's
// entitlement are absent, not zeroed.
type Customer360 struct {
	EntityID      domain.EntityID   `json:"entity_id"`
	EntityType    domain.EntityKind `json:"entity_type"`
	CanonicalName string            `json:"canonical_name"`
	DateOfBirth   string            `json:"date_of_birth,omitempty"`
	TaxIDLast4    string            `json:"tax_id_last4,omitempty"`

	Addresses []normalize.Address `json:"addresses,omitempty"`
	Phones    []string            `json:"phones,omitempty"`
	Emails    []string            `json:"emails,omitempty"`

	DataSources []domain.SourceSystem                 `json:"data_sources"`
	Accounts    map[domain.SourceSystem][]AccountView `json:"accounts,omitempty"`
	TotalValue  domain.Cents                          `json:"total_balance"`

	Household           []RelationView       `json:"household,omitempty"`
	BusinessConnections []BusinessConnection `json:"business_connections,omitempty"`
}

// HouseholdMember is one person's line in a household summary.
type HouseholdMember struct {
	Name          string          `json:"name"`
	EntityID      domain.EntityID `json:"entity_id"`
	PersonalAUM   domain.Cents    `json:"personal_aum"`
	AccountsCount int             `json:"accounts_count"`
}

// HouseholdBusiness is one connected business with the household's aggregate
// ownership.
type HouseholdBusiness struct {
	Name         string  `json:"name"`
	Role         string  `json:"role,omitempty"`
	OwnershipPct float64 `json:"ownership_pct"`
}

// HouseholdTotals is the money roll-up. total_relationship_value is always
// exactly personal_aum + business_exposure; all three are carried in cents
// until marshalling.
type HouseholdTotals struct {
	PersonalAUM            domain.Cents `json:"personal_aum"`
	BusinessExposure       domain.Cents `json:"business_exposure"`
	TotalRelationshipValue domain.Cents `json:"total_relationship_value"`
	MemberCount            int          `json:"member_count"`
	BusinessCount          int          `json:"business_count"`
}

// HouseholdSummary is the aggregate answer for one surname's household.
type HouseholdSummary struct {
	HouseholdName       string              `json:"household_name"`
	Members             []HouseholdMember   `json:"members"`
	ConnectedBusinesses []HouseholdBusiness `json:"connected_businesses"`
	Totals              HouseholdTotals     `json:"totals"`
}

// EntitySummary is one search hit.
type EntitySummary struct {
	EntityID    domain.EntityID       `json:"entity_id"`
	Name        string                `json:"name"`
	EntityType  domain.EntityKind     `json:"entity_type"`
	DataSources []domain.SourceSystem `json:"data_sources"`
	TotalValue  domain.Cents          `json:"total_balance"`
}

// outcome digests recorded in the audit trail.
const (
	outcomeOK               = "ok"
	outcomeInvalidInput     = "invalid_input"
	outcomeNotFound         = "not_found"
	outcomeAmbiguous        = "ambiguous"
	outcomePermissionDenied = "permission_denied"
)

func ambiguousError(input string, n int) error {
	return dErrors.Newf(dErrors.CodeAmbiguous,
		"%q matches %d unrelated entities; qualify with an entity ID", input, n)
}

func notFoundError(kind, input string) error {
	return dErrors.Newf(dErrors.CodeNotFound, "no %s matches %q", kind, input)
}

func permissionDeniedError(p domain.Permission, id domain.EntityID) error {
	return dErrors.New(dErrors.CodePermissionDenied,
		fmt.Sprintf("permission %s covers none of entity %s's source systems", p, id))
}

func unknownPermissionError(p domain.Permission) error {
	return dErrors.Newf(dErrors.CodePermissionDenied, "caller permission %q is not recognized", p)
}
