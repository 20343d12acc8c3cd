package access

import (
	"context"
	"fmt"
)

// RoleAssignment pairs an effective role with the membership that produced
// it. Membership is nil for built-in roles, which apply without assignment.
type RoleAssignment struct {
	Role       *Role
	Membership *Membership
}

// Inherited reports whether the assignment was propagated from a group.
func (a RoleAssignment) Inherited() bool {
	return a.Membership != nil && a.Membership.Inherited()
}

// RoleResolver produces the set of effective roles of a principal in a
// given context: built-in roles, global roles, project-membership roles and
// work-package-share roles.
type RoleResolver struct {
	roles       RoleRepository
	memberships MembershipRepository
	shares      *ShareService
}

// NewRoleResolver creates a role resolver.
func NewRoleResolver(roles RoleRepository, memberships MembershipRepository, shares *ShareService) *RoleResolver {
	return &RoleResolver{
		roles:       roles,
		memberships: memberships,
		shares:      shares,
	}
}

// RolesFor returns the effective roles of the principal in the context.
// Locked principals hold no roles anywhere; this short-circuits before any
// lookup.
func (r *RoleResolver) RolesFor(ctx context.Context, principal *Principal, ec EvalContext) ([]RoleAssignment, error) {
	if principal.Locked {
		return nil, nil
	}

	switch ec.Kind {
	case ContextWorkPackage:
		// Entity shares are independent of project membership: a user can
		// be shared a work package without being a project member, and a
		// project role grants nothing on the share path.
		return r.shares.RolesForEntity(ctx, principal, ec.WorkPackage)
	case ContextProject:
		return r.projectRoles(ctx, principal, ec.Project)
	default:
		return r.globalRoles(ctx, principal)
	}
}

func (r *RoleResolver) globalRoles(ctx context.Context, principal *Principal) ([]RoleAssignment, error) {
	if principal.Anonymous() {
		return r.builtinAssignment(ctx, BuiltinAnonymous)
	}

	memberships, err := r.memberships.ListForPrincipal(ctx, principal.ID, GlobalScope())
	if err != nil {
		return nil, fmt.Errorf("list global memberships: %w", err)
	}

	assignments, err := r.assignmentsFor(ctx, memberships)
	if err != nil {
		return nil, err
	}

	anywhere, err := r.memberships.HasAnyMembership(ctx, principal.ID)
	if err != nil {
		return nil, fmt.Errorf("check memberships: %w", err)
	}
	if !anywhere {
		nonMember, err := r.builtinAssignment(ctx, BuiltinNonMember)
		if err != nil {
			return nil, err
		}
		assignments = append(assignments, nonMember...)
	}

	return assignments, nil
}

func (r *RoleResolver) projectRoles(ctx context.Context, principal *Principal, project *Project) ([]RoleAssignment, error) {
	if principal.Anonymous() {
		if !project.Public {
			return nil, nil
		}
		return r.builtinAssignment(ctx, BuiltinAnonymous)
	}

	global, err := r.memberships.ListForPrincipal(ctx, principal.ID, GlobalScope())
	if err != nil {
		return nil, fmt.Errorf("list global memberships: %w", err)
	}

	scoped, err := r.memberships.ListForPrincipal(ctx, principal.ID, ProjectScope(project.ID))
	if err != nil {
		return nil, fmt.Errorf("list project memberships: %w", err)
	}

	assignments, err := r.assignmentsFor(ctx, append(global, dropOverriddenInherited(scoped)...))
	if err != nil {
		return nil, err
	}

	if len(scoped) == 0 && project.Public {
		nonMember, err := r.builtinAssignment(ctx, BuiltinNonMember)
		if err != nil {
			return nil, err
		}
		assignments = append(assignments, nonMember...)
	}

	return assignments, nil
}

// dropOverriddenInherited applies the tie-break rule: when a principal holds
// both a direct and an inherited membership in the same scope, the direct
// membership is authoritative and the inherited ones are ignored for the
// decision (own share overrides group share). The inherited records still
// exist for propagation bookkeeping.
func dropOverriddenInherited(memberships []Membership) []Membership {
	hasDirect := false
	for _, m := range memberships {
		if !m.Inherited() {
			hasDirect = true
			break
		}
	}
	if !hasDirect {
		return memberships
	}

	direct := make([]Membership, 0, len(memberships))
	for _, m := range memberships {
		if !m.Inherited() {
			direct = append(direct, m)
		}
	}
	return direct
}

func (r *RoleResolver) assignmentsFor(ctx context.Context, memberships []Membership) ([]RoleAssignment, error) {
	assignments := make([]RoleAssignment, 0, len(memberships))
	for i := range memberships {
		m := memberships[i]
		role, err := r.roles.GetByID(ctx, m.RoleID)
		if err != nil {
			return nil, fmt.Errorf("load role %s: %w", m.RoleID, err)
		}
		assignments = append(assignments, RoleAssignment{Role: role, Membership: &m})
	}
	return assignments, nil
}

func (r *RoleResolver) builtinAssignment(ctx context.Context, builtin Builtin) ([]RoleAssignment, error) {
	role, err := r.roles.Builtin(ctx, builtin)
	if err != nil {
		return nil, fmt.Errorf("load builtin role %s: %w", builtin, err)
	}
	if role == nil {
		return nil, nil
	}
	return []RoleAssignment{{Role: role}}, nil
}
