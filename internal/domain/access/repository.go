package access

import (
	"context"

	"authcore/internal/core/id"
)

// PrincipalRepository defines principal read operations.
// The engine never writes principals; the identity subsystem owns them.
type PrincipalRepository interface {
	// GetByID retrieves a principal by ID.
	GetByID(ctx context.Context, principalID id.ID) (*Principal, error)

	// GroupsOf lists the groups a user belongs to.
	GroupsOf(ctx context.Context, userID id.ID) ([]Principal, error)

	// MembersOf lists the members of a group.
	MembersOf(ctx context.Context, groupID id.ID) ([]Principal, error)
}

// RoleRepository defines role read operations.
type RoleRepository interface {
	// GetByID retrieves a role with its permission set.
	GetByID(ctx context.Context, roleID id.ID) (*Role, error)

	// GetByName retrieves a role by name.
	GetByName(ctx context.Context, name string) (*Role, error)

	// Builtin retrieves one of the automatically applied roles.
	Builtin(ctx context.Context, builtin Builtin) (*Role, error)

	// List retrieves all roles.
	List(ctx context.Context) ([]Role, error)
}

// MembershipRepository defines membership storage with the inherited_from
// linkage. Reads are side-effect free and safe to run concurrently; writes
// happen inside the caller's transaction.
type MembershipRepository interface {
	// Create persists a membership.
	Create(ctx context.Context, m *Membership) error

	// UpdateRole changes the role of an existing membership.
	UpdateRole(ctx context.Context, membershipID, roleID id.ID) error

	// Delete removes a membership by ID.
	Delete(ctx context.Context, membershipID id.ID) error

	// DeleteInheritedFrom removes every membership propagated from sourceID.
	DeleteInheritedFrom(ctx context.Context, sourceID id.ID) error

	// ListInheritedFrom lists memberships propagated from sourceID.
	ListInheritedFrom(ctx context.Context, sourceID id.ID) ([]Membership, error)

	// FindDirect returns the principal's direct (non-inherited) membership
	// in the scope, or nil when none exists.
	FindDirect(ctx context.Context, principalID id.ID, scope Scope) (*Membership, error)

	// ListForPrincipal lists all memberships (direct and inherited) of the
	// principal in the scope.
	ListForPrincipal(ctx context.Context, principalID id.ID, scope Scope) ([]Membership, error)

	// ListForScope lists all memberships in the scope.
	ListForScope(ctx context.Context, scope Scope) ([]Membership, error)

	// HasAnyMembership reports whether the principal holds any membership
	// at all (used for the non-member baseline).
	HasAnyMembership(ctx context.Context, principalID id.ID) (bool, error)
}

// ProjectRepository defines project read operations.
type ProjectRepository interface {
	// GetByID retrieves a project with its enabled modules.
	GetByID(ctx context.Context, projectID id.ID) (*Project, error)
}

// WorkPackageRepository defines work package read operations.
type WorkPackageRepository interface {
	// GetByID retrieves a work package.
	GetByID(ctx context.Context, workPackageID id.ID) (*WorkPackage, error)
}
