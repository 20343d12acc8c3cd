package access

import (
	"time"

	"authcore/internal/core/apperror"
	"authcore/internal/core/id"
)

// RoleKind identifies what kind of scope a role can be assigned in.
type RoleKind string

const (
	RoleGlobal      RoleKind = "global"
	RoleProject     RoleKind = "project"
	RoleWorkPackage RoleKind = "work_package"
)

// Builtin marks the roles applied automatically without explicit assignment.
type Builtin string

const (
	BuiltinNone      Builtin = ""
	BuiltinAnonymous Builtin = "anonymous"
	BuiltinNonMember Builtin = "non_member"
)

// Role is a named bundle of permission identifiers.
// A role's permission set is only meaningful relative to the contexts its
// permissions are valid in; construction rejects mismatches.
type Role struct {
	ID          id.ID     `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Kind        RoleKind  `db:"kind" json:"kind"`
	Builtin     Builtin   `db:"builtin" json:"builtin,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time `db:"updated_at" json:"updatedAt"`

	// Permissions holds permission names granted by the role.
	Permissions []string `db:"-" json:"permissions,omitempty"`
}

// contextKindFor maps a role kind to the context kind its permissions
// apply in.
func contextKindFor(kind RoleKind) ContextKind {
	switch kind {
	case RoleGlobal:
		return ContextGlobal
	case RoleWorkPackage:
		return ContextWorkPackage
	default:
		return ContextProject
	}
}

// NewRole creates a role, validating every permission against the catalog:
// the permission must exist and be valid for the role kind's context.
// Assigning an entity-only permission to a project role is a configuration
// error, not a silent no-op.
func NewRole(catalog *Catalog, name string, kind RoleKind, permissions ...string) (*Role, error) {
	contextKind := contextKindFor(kind)
	for _, permName := range permissions {
		p, ok := catalog.Permission(permName)
		if !ok {
			return nil, apperror.NewUnknownPermission(permName)
		}
		if !p.PermissibleOn(contextKind) {
			return nil, apperror.NewIllegalPermissionContext(permName, string(contextKind))
		}
	}

	now := time.Now()
	return &Role{
		ID:          id.New(),
		Name:        name,
		Kind:        kind,
		Permissions: permissions,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// NewBuiltinRole creates one of the automatically applied roles.
func NewBuiltinRole(catalog *Catalog, builtin Builtin, name string, permissions ...string) (*Role, error) {
	role, err := NewRole(catalog, name, RoleProject, permissions...)
	if err != nil {
		return nil, err
	}
	role.Builtin = builtin
	return role, nil
}

// HasPermission checks whether the role grants the named permission.
func (r *Role) HasPermission(name string) bool {
	for _, p := range r.Permissions {
		if p == name {
			return true
		}
	}
	return false
}
