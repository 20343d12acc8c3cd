package access

import (
	"time"

	"authcore/internal/core/id"
)

// Scope identifies where a membership applies: globally, in a project, or
// on a single shareable entity (work package).
type Scope struct {
	Kind      ContextKind `db:"scope_kind" json:"kind"`
	ProjectID id.ID       `db:"project_id" json:"projectId,omitempty"`
	EntityID  id.ID       `db:"entity_id" json:"entityId,omitempty"`
}

// GlobalScope returns the scope of global role assignments.
func GlobalScope() Scope {
	return Scope{Kind: ContextGlobal}
}

// ProjectScope returns the scope of project memberships.
func ProjectScope(projectID id.ID) Scope {
	return Scope{Kind: ContextProject, ProjectID: projectID}
}

// EntityScope returns the scope of work-package shares.
func EntityScope(entityID id.ID) Scope {
	return Scope{Kind: ContextWorkPackage, EntityID: entityID}
}

// RoleKind returns the role kind assignable in this scope.
func (s Scope) RoleKind() RoleKind {
	switch s.Kind {
	case ContextProject:
		return RoleProject
	case ContextWorkPackage:
		return RoleWorkPackage
	default:
		return RoleGlobal
	}
}

// Key returns a stable string form used for cache keys.
func (s Scope) Key() string {
	switch s.Kind {
	case ContextProject:
		return "project:" + s.ProjectID.String()
	case ContextWorkPackage:
		return "work_package:" + s.EntityID.String()
	default:
		return "global"
	}
}

// Membership associates a principal with a role in a scope.
//
// InheritedFrom is nil for direct grants; for propagated grants it points
// at the group membership that produced this one. Inherited memberships are
// derived state: they are recomputed on every change to the source
// membership or the group roster, never edited by hand. At most one direct
// membership exists per (principal, scope); granting again updates the role
// in place.
type Membership struct {
	ID            id.ID     `db:"id" json:"id"`
	PrincipalID   id.ID     `db:"principal_id" json:"principalId"`
	RoleID        id.ID     `db:"role_id" json:"roleId"`
	Scope         Scope     `db:"-" json:"scope"`
	InheritedFrom *id.ID    `db:"inherited_from" json:"inheritedFrom,omitempty"`
	CreatedAt     time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt     time.Time `db:"updated_at" json:"updatedAt"`
}

// Inherited reports whether the membership was propagated from a group.
func (m *Membership) Inherited() bool {
	return m.InheritedFrom != nil
}

// NewMembership creates a direct membership.
func NewMembership(principalID, roleID id.ID, scope Scope) *Membership {
	now := time.Now()
	return &Membership{
		ID:          id.New(),
		PrincipalID: principalID,
		RoleID:      roleID,
		Scope:       scope,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// NewInheritedMembership creates a membership propagated from sourceID.
func NewInheritedMembership(principalID, roleID id.ID, scope Scope, sourceID id.ID) *Membership {
	m := NewMembership(principalID, roleID, scope)
	m.InheritedFrom = &sourceID
	return m
}
