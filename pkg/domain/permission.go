package domain

import dErrors "unigraph/pkg/domain-errors"

// Permission is a caller's entitlement level. The set is closed; every new
// field added to a unified entity must be classified against it explicitly
// rather than defaulting to visible.
type Permission string

const (
	PermissionRetail              Permission = "retail"
	PermissionBusiness            Permission = "business"
	PermissionWealth              Permission = "wealth"
	PermissionPrivate             Permission = "private"
	PermissionRelationshipManager Permission = "relationship-manager"
)

// entitledSources is the single declarative permission → visible-source map.
// private bankers and relationship managers see every line of business.
var entitledSources = map[Permission][]SourceSystem{
	PermissionRetail:              {SourceConsumer},
	PermissionBusiness:            {SourceCommercial},
	PermissionWealth:              {SourceWealth},
	PermissionPrivate:             {SourceConsumer, SourceCommercial, SourceWealth},
	PermissionRelationshipManager: {SourceConsumer, SourceCommercial, SourceWealth},
}

// ParsePermission constructs a Permission from external input (JWT claims,
// request parameters).
func ParsePermission(s string) (Permission, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "permission cannot be empty")
	}
	p := Permission(s)
	if _, ok := entitledSources[p]; !ok {
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "unknown permission %q", s)
	}
	return p, nil
}

// IsValid checks membership in the closed permission set.
func (p Permission) IsValid() bool {
	_, ok := entitledSources[p]
	return ok
}

// EntitledSources returns the source systems this permission may read, in
// stable order.
func (p Permission) EntitledSources() []SourceSystem {
	src := entitledSources[p]
	out := make([]SourceSystem, len(src))
	copy(out, src)
	return out
}

// CanSee reports whether the permission covers a source system.
func (p Permission) CanSee(src SourceSystem) bool {
	for _, s := range entitledSources[p] {
		if s == src {
			return true
		}
	}
	return false
}

func (p Permission) String() string { return string(p) }
