package access

import (
	"context"
	"fmt"

	"authcore/internal/core/apperror"
	"authcore/internal/core/id"
	"authcore/internal/core/tx"
	"authcore/pkg/logger"
)

// GrantResult describes the outcome of a share mutation for one principal.
//
// FirstTimeVisible is the notification contract: it is true only when the
// grant gave the principal their first route to the entity. A role change
// on an existing share, or a renewed grant via a different group, reports
// false so the external dispatcher sends at most one "you were granted
// access" notification per principal and entity.
type GrantResult struct {
	Membership       *Membership
	PrincipalID      id.ID
	Created          bool
	RoleChanged      bool
	FirstTimeVisible bool
}

// GroupGrantResult describes a group mutation and its per-member cascade.
type GroupGrantResult struct {
	Group   GrantResult
	Members []GrantResult
}

// GrantNotifier receives first-time-visibility signals. It is invoked
// inside the grant transaction so the signal commits atomically with the
// membership; an outbox implementation turns it into an at-least-once
// notification.
type GrantNotifier interface {
	FirstTimeVisible(ctx context.Context, principalID, workPackageID, roleID id.ID) error
}

// ShareService manages entity-level (work package) sharing: direct user
// shares, group shares, and the propagation of group shares to members.
//
// Every mutation runs in a single transaction so the group membership and
// all cascaded inherited memberships change together; a partial propagation
// is never visible to readers.
type ShareService struct {
	principals  PrincipalRepository
	roles       RoleRepository
	memberships MembershipRepository
	txm         tx.Manager
	notifier    GrantNotifier
}

// NewShareService creates a share service.
func NewShareService(
	principals PrincipalRepository,
	roles RoleRepository,
	memberships MembershipRepository,
	txm tx.Manager,
) *ShareService {
	return &ShareService{
		principals:  principals,
		roles:       roles,
		memberships: memberships,
		txm:         txm,
	}
}

// SetNotifier installs the first-time-visibility notifier. Nil disables
// notifications.
func (s *ShareService) SetNotifier(n GrantNotifier) {
	s.notifier = n
}

func (s *ShareService) notifyFirstTimeVisible(ctx context.Context, principalID, workPackageID, roleID id.ID) error {
	if s.notifier == nil {
		return nil
	}
	return s.notifier.FirstTimeVisible(ctx, principalID, workPackageID, roleID)
}

// RolesForEntity returns the principal's share roles on the entity.
// When the principal holds a direct share, only that share counts; group
// propagated shares are ignored for the decision (own share overrides
// group share). Locked principals hold nothing.
func (s *ShareService) RolesForEntity(ctx context.Context, principal *Principal, wp *WorkPackage) ([]RoleAssignment, error) {
	if principal.Locked {
		return nil, nil
	}

	memberships, err := s.memberships.ListForPrincipal(ctx, principal.ID, EntityScope(wp.ID))
	if err != nil {
		return nil, fmt.Errorf("list entity memberships: %w", err)
	}

	memberships = dropOverriddenInherited(memberships)

	assignments := make([]RoleAssignment, 0, len(memberships))
	for i := range memberships {
		m := memberships[i]
		role, err := s.roles.GetByID(ctx, m.RoleID)
		if err != nil {
			return nil, fmt.Errorf("load role %s: %w", m.RoleID, err)
		}
		assignments = append(assignments, RoleAssignment{Role: role, Membership: &m})
	}
	return assignments, nil
}

// ListShares returns every share on the entity across all principals,
// direct and inherited alike.
func (s *ShareService) ListShares(ctx context.Context, wp *WorkPackage) ([]RoleAssignment, error) {
	memberships, err := s.memberships.ListForScope(ctx, EntityScope(wp.ID))
	if err != nil {
		return nil, fmt.Errorf("list entity shares: %w", err)
	}

	assignments := make([]RoleAssignment, 0, len(memberships))
	for i := range memberships {
		m := memberships[i]
		role, err := s.roles.GetByID(ctx, m.RoleID)
		if err != nil {
			return nil, fmt.Errorf("load role %s: %w", m.RoleID, err)
		}
		assignments = append(assignments, RoleAssignment{Role: role, Membership: &m})
	}
	return assignments, nil
}

// GrantUserShare grants or updates a direct share for a single user.
// Re-granting the same role is a no-op.
func (s *ShareService) GrantUserShare(ctx context.Context, user *Principal, wp *WorkPackage, role *Role) (*GrantResult, error) {
	if err := validateShareRole(role); err != nil {
		return nil, err
	}
	if user.Group() {
		return nil, apperror.NewValidation("use GrantGroupShare for groups").
			WithDetail("principal_id", user.ID)
	}

	scope := EntityScope(wp.ID)
	result := &GrantResult{PrincipalID: user.ID}

	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		existing, err := s.memberships.FindDirect(ctx, user.ID, scope)
		if err != nil {
			return fmt.Errorf("find direct share: %w", err)
		}

		if existing != nil {
			result.Membership = existing
			if existing.RoleID == role.ID {
				return nil
			}
			if err := s.memberships.UpdateRole(ctx, existing.ID, role.ID); err != nil {
				return fmt.Errorf("update share role: %w", err)
			}
			existing.RoleID = role.ID
			result.RoleChanged = true
			return nil
		}

		visible, err := s.hasVisibility(ctx, user.ID, scope)
		if err != nil {
			return err
		}

		m := NewMembership(user.ID, role.ID, scope)
		if err := s.memberships.Create(ctx, m); err != nil {
			return fmt.Errorf("create share: %w", err)
		}
		result.Membership = m
		result.Created = true
		result.FirstTimeVisible = !visible
		if result.FirstTimeVisible {
			return s.notifyFirstTimeVisible(ctx, user.ID, wp.ID, role.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Debug(ctx, "user share granted",
		"principal_id", user.ID,
		"work_package_id", wp.ID,
		"role_id", role.ID,
		"first_time_visible", result.FirstTimeVisible,
	)
	return result, nil
}

// RevokeUserShare removes a user's direct share. Group-propagated access is
// recomputed afterwards: members of a sharing group fall back to the
// inherited share that the direct grant had been overriding. Revoking a
// share that does not exist is a no-op.
func (s *ShareService) RevokeUserShare(ctx context.Context, user *Principal, wp *WorkPackage) error {
	scope := EntityScope(wp.ID)

	return s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		direct, err := s.memberships.FindDirect(ctx, user.ID, scope)
		if err != nil {
			return fmt.Errorf("find direct share: %w", err)
		}
		if direct == nil {
			return nil
		}

		if err := s.memberships.Delete(ctx, direct.ID); err != nil {
			return fmt.Errorf("delete share: %w", err)
		}

		return s.restoreInheritedShares(ctx, user, scope)
	})
}

// GrantGroupShare grants or updates a group's share and propagates it to
// every member who lacks their own direct share. The operation is
// idempotent: re-granting the same role produces the same membership set.
func (s *ShareService) GrantGroupShare(ctx context.Context, group *Principal, wp *WorkPackage, role *Role) (*GroupGrantResult, error) {
	if err := validateShareRole(role); err != nil {
		return nil, err
	}
	if !group.Group() {
		return nil, apperror.NewValidation("principal is not a group").
			WithDetail("principal_id", group.ID)
	}

	scope := EntityScope(wp.ID)
	result := &GroupGrantResult{Group: GrantResult{PrincipalID: group.ID}}

	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		members, err := s.groupMembers(ctx, group)
		if err != nil {
			return err
		}

		groupMembership, err := s.memberships.FindDirect(ctx, group.ID, scope)
		if err != nil {
			return fmt.Errorf("find group share: %w", err)
		}

		switch {
		case groupMembership == nil:
			groupMembership = NewMembership(group.ID, role.ID, scope)
			if err := s.memberships.Create(ctx, groupMembership); err != nil {
				return fmt.Errorf("create group share: %w", err)
			}
			result.Group.Created = true
		case groupMembership.RoleID != role.ID:
			if err := s.memberships.UpdateRole(ctx, groupMembership.ID, role.ID); err != nil {
				return fmt.Errorf("update group share role: %w", err)
			}
			groupMembership.RoleID = role.ID
			result.Group.RoleChanged = true
		}
		result.Group.Membership = groupMembership

		for i := range members {
			member := &members[i]
			memberResult, err := s.propagateToMember(ctx, member, groupMembership, role, scope, result.Group.RoleChanged)
			if err != nil {
				return err
			}
			if memberResult.FirstTimeVisible {
				if err := s.notifyFirstTimeVisible(ctx, member.ID, wp.ID, role.ID); err != nil {
					return err
				}
			}
			result.Members = append(result.Members, *memberResult)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Debug(ctx, "group share granted",
		"group_id", group.ID,
		"work_package_id", wp.ID,
		"role_id", role.ID,
		"members", len(result.Members),
	)
	return result, nil
}

// RevokeGroupShare deletes the group's share and cascades the deletion to
// every membership inherited from it. Members holding an independent direct
// share are untouched. Revoking a non-existent share is a no-op.
func (s *ShareService) RevokeGroupShare(ctx context.Context, group *Principal, wp *WorkPackage) error {
	if !group.Group() {
		return apperror.NewValidation("principal is not a group").
			WithDetail("principal_id", group.ID)
	}

	scope := EntityScope(wp.ID)

	return s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		groupMembership, err := s.memberships.FindDirect(ctx, group.ID, scope)
		if err != nil {
			return fmt.Errorf("find group share: %w", err)
		}
		if groupMembership == nil {
			return nil
		}

		if err := s.memberships.DeleteInheritedFrom(ctx, groupMembership.ID); err != nil {
			return fmt.Errorf("cascade delete inherited shares: %w", err)
		}
		if err := s.memberships.Delete(ctx, groupMembership.ID); err != nil {
			return fmt.Errorf("delete group share: %w", err)
		}
		return nil
	})
}

// ChangeGroupShareRole updates the group share's role and every membership
// inherited from it, without touching independently held direct shares.
// No notification is due: visibility does not change.
func (s *ShareService) ChangeGroupShareRole(ctx context.Context, group *Principal, wp *WorkPackage, newRole *Role) (*GroupGrantResult, error) {
	if err := validateShareRole(newRole); err != nil {
		return nil, err
	}
	if !group.Group() {
		return nil, apperror.NewValidation("principal is not a group").
			WithDetail("principal_id", group.ID)
	}

	scope := EntityScope(wp.ID)
	result := &GroupGrantResult{Group: GrantResult{PrincipalID: group.ID}}

	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		groupMembership, err := s.memberships.FindDirect(ctx, group.ID, scope)
		if err != nil {
			return fmt.Errorf("find group share: %w", err)
		}
		if groupMembership == nil {
			return apperror.NewNotFound("group share", group.ID.String())
		}

		if groupMembership.RoleID != newRole.ID {
			if err := s.memberships.UpdateRole(ctx, groupMembership.ID, newRole.ID); err != nil {
				return fmt.Errorf("update group share role: %w", err)
			}
			groupMembership.RoleID = newRole.ID
			result.Group.RoleChanged = true
		}
		result.Group.Membership = groupMembership

		inherited, err := s.memberships.ListInheritedFrom(ctx, groupMembership.ID)
		if err != nil {
			return fmt.Errorf("list inherited shares: %w", err)
		}
		for i := range inherited {
			m := inherited[i]
			if m.RoleID != newRole.ID {
				if err := s.memberships.UpdateRole(ctx, m.ID, newRole.ID); err != nil {
					return fmt.Errorf("update inherited share role: %w", err)
				}
				m.RoleID = newRole.ID
			}
			result.Members = append(result.Members, GrantResult{
				Membership:  &m,
				PrincipalID: m.PrincipalID,
				RoleChanged: result.Group.RoleChanged,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// propagateToMember creates or updates one member's inherited membership.
func (s *ShareService) propagateToMember(
	ctx context.Context,
	member *Principal,
	groupMembership *Membership,
	role *Role,
	scope Scope,
	roleChanged bool,
) (*GrantResult, error) {
	result := &GrantResult{PrincipalID: member.ID}

	direct, err := s.memberships.FindDirect(ctx, member.ID, scope)
	if err != nil {
		return nil, fmt.Errorf("find member share: %w", err)
	}
	if direct != nil {
		// Own share overrides the group share; nothing to propagate.
		result.Membership = direct
		return result, nil
	}

	existing, err := s.memberships.ListForPrincipal(ctx, member.ID, scope)
	if err != nil {
		return nil, fmt.Errorf("list member shares: %w", err)
	}

	var fromThisGroup *Membership
	for i := range existing {
		if existing[i].InheritedFrom != nil && *existing[i].InheritedFrom == groupMembership.ID {
			fromThisGroup = &existing[i]
			break
		}
	}

	if fromThisGroup != nil {
		result.Membership = fromThisGroup
		if roleChanged && fromThisGroup.RoleID != role.ID {
			if err := s.memberships.UpdateRole(ctx, fromThisGroup.ID, role.ID); err != nil {
				return nil, fmt.Errorf("update inherited share role: %w", err)
			}
			fromThisGroup.RoleID = role.ID
			result.RoleChanged = true
		}
		return result, nil
	}

	m := NewInheritedMembership(member.ID, role.ID, scope, groupMembership.ID)
	if err := s.memberships.Create(ctx, m); err != nil {
		return nil, fmt.Errorf("create inherited share: %w", err)
	}
	result.Membership = m
	result.Created = true
	result.FirstTimeVisible = len(existing) == 0
	return result, nil
}

// hasVisibility reports whether the principal already holds any membership
// on the scope, inherited rows included. It decides FirstTimeVisible for a
// fresh direct grant.
func (s *ShareService) hasVisibility(ctx context.Context, principalID id.ID, scope Scope) (bool, error) {
	existing, err := s.memberships.ListForPrincipal(ctx, principalID, scope)
	if err != nil {
		return false, fmt.Errorf("list member shares: %w", err)
	}
	return len(existing) > 0, nil
}

// restoreInheritedShares re-materializes inherited memberships a direct
// share had been suppressing, so revoking an own share falls back to group
// access instead of dropping it.
func (s *ShareService) restoreInheritedShares(ctx context.Context, user *Principal, scope Scope) error {
	groups, err := s.principals.GroupsOf(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("list groups: %w", err)
	}

	existing, err := s.memberships.ListForPrincipal(ctx, user.ID, scope)
	if err != nil {
		return fmt.Errorf("list member shares: %w", err)
	}

	for i := range groups {
		groupMembership, err := s.memberships.FindDirect(ctx, groups[i].ID, scope)
		if err != nil {
			return fmt.Errorf("find group share: %w", err)
		}
		if groupMembership == nil {
			continue
		}

		alreadyInherited := false
		for j := range existing {
			if existing[j].InheritedFrom != nil && *existing[j].InheritedFrom == groupMembership.ID {
				alreadyInherited = true
				break
			}
		}
		if alreadyInherited {
			continue
		}

		m := NewInheritedMembership(user.ID, groupMembership.RoleID, scope, groupMembership.ID)
		if err := s.memberships.Create(ctx, m); err != nil {
			return fmt.Errorf("restore inherited share: %w", err)
		}
	}
	return nil
}

// groupMembers loads the group roster, enforcing the two-level hierarchy:
// groups may only contain users. Propagation is computed top-down on write,
// so rejecting nested groups here guarantees termination by construction.
func (s *ShareService) groupMembers(ctx context.Context, group *Principal) ([]Principal, error) {
	members, err := s.principals.MembersOf(ctx, group.ID)
	if err != nil {
		return nil, fmt.Errorf("list group members: %w", err)
	}
	for i := range members {
		if members[i].Group() {
			return nil, apperror.NewGroupOfGroups(group.ID, members[i].ID)
		}
	}
	return members, nil
}

func validateShareRole(role *Role) error {
	if role.Kind != RoleWorkPackage {
		return apperror.NewValidation("share role must be a work package role").
			WithDetail("role_id", role.ID).
			WithDetail("role_kind", string(role.Kind))
	}
	return nil
}
