package access

import (
	"context"
	"testing"

	"authcore/internal/core/apperror"
	"authcore/internal/core/id"
)

func TestGrantUserShare(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	user := f.user("alice")
	viewer := f.role("wp viewer", RoleWorkPackage, "view_work_packages")
	editor := f.role("wp editor", RoleWorkPackage, "view_work_packages", "edit_work_packages")
	project := f.project("demo", true, false, ModuleWorkPackageTracking)
	wp := f.workPackage(project, "task")

	result, err := f.shares.GrantUserShare(ctx, user, wp, viewer)
	if err != nil {
		t.Fatalf("grant failed: %v", err)
	}
	if !result.Created || !result.FirstTimeVisible {
		t.Errorf("first grant: expected created and first-time visible, got %+v", result)
	}

	// Re-granting the same role is a no-op.
	result, err = f.shares.GrantUserShare(ctx, user, wp, viewer)
	if err != nil {
		t.Fatalf("re-grant failed: %v", err)
	}
	if result.Created || result.RoleChanged || result.FirstTimeVisible {
		t.Errorf("idempotent re-grant: expected no-op, got %+v", result)
	}

	// Granting a different role updates in place, no notification.
	result, err = f.shares.GrantUserShare(ctx, user, wp, editor)
	if err != nil {
		t.Fatalf("role change failed: %v", err)
	}
	if result.Created || !result.RoleChanged || result.FirstTimeVisible {
		t.Errorf("role change: expected role change only, got %+v", result)
	}

	memberships, err := f.store.ListForScope(ctx, EntityScope(wp.ID))
	if err != nil {
		t.Fatal(err)
	}
	if len(memberships) != 1 {
		t.Fatalf("expected exactly one membership per principal and scope, got %d", len(memberships))
	}
	if memberships[0].RoleID != editor.ID {
		t.Error("membership should carry the updated role")
	}
}

func TestGrantUserShare_Validation(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	user := f.user("alice")
	group := f.group("team")
	projectRole := f.role("member", RoleProject, "view_work_packages")
	shareRole := f.role("wp viewer", RoleWorkPackage, "view_work_packages")
	project := f.project("demo", true, false, ModuleWorkPackageTracking)
	wp := f.workPackage(project, "task")

	if _, err := f.shares.GrantUserShare(ctx, user, wp, projectRole); !apperror.IsCode(err, apperror.CodeValidation) {
		t.Errorf("project role on a share: expected validation error, got %v", err)
	}
	if _, err := f.shares.GrantUserShare(ctx, group, wp, shareRole); !apperror.IsCode(err, apperror.CodeValidation) {
		t.Errorf("group via user grant: expected validation error, got %v", err)
	}
}

func TestRevokeUserShare(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	user := f.user("alice")
	viewer := f.role("wp viewer", RoleWorkPackage, "view_work_packages")
	project := f.project("demo", true, false, ModuleWorkPackageTracking)
	wp := f.workPackage(project, "task")

	// Revoking a non-existent share is a no-op.
	if err := f.shares.RevokeUserShare(ctx, user, wp); err != nil {
		t.Fatalf("revoke of absent share should be a no-op, got %v", err)
	}

	if _, err := f.shares.GrantUserShare(ctx, user, wp, viewer); err != nil {
		t.Fatal(err)
	}
	if err := f.shares.RevokeUserShare(ctx, user, wp); err != nil {
		t.Fatalf("revoke failed: %v", err)
	}

	memberships, _ := f.store.ListForScope(ctx, EntityScope(wp.ID))
	if len(memberships) != 0 {
		t.Errorf("expected no memberships after revoke, got %d", len(memberships))
	}
}

func TestGrantGroupShare_Propagation(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	group := f.group("team")
	alice := f.user("alice")
	bob := f.user("bob")
	f.store.link(group.ID, alice.ID)
	f.store.link(group.ID, bob.ID)

	viewer := f.role("wp viewer", RoleWorkPackage, "view_work_packages")
	project := f.project("demo", true, false, ModuleWorkPackageTracking)
	wp := f.workPackage(project, "task")

	result, err := f.shares.GrantGroupShare(ctx, group, wp, viewer)
	if err != nil {
		t.Fatalf("group grant failed: %v", err)
	}
	if !result.Group.Created {
		t.Error("group membership should be created")
	}
	if len(result.Members) != 2 {
		t.Fatalf("expected 2 member results, got %d", len(result.Members))
	}
	for _, m := range result.Members {
		if !m.Created || !m.FirstTimeVisible {
			t.Errorf("member %s: expected created and first-time visible, got %+v", m.PrincipalID, m)
		}
		if m.Membership == nil || !m.Membership.Inherited() {
			t.Errorf("member %s: propagated membership must be inherited", m.PrincipalID)
		}
	}

	// Both members now see the work package.
	for _, u := range []*Principal{alice, bob} {
		if !f.mustAllow(t, nil, u, PermissionAction("view_work_packages"), InWorkPackage(wp, project)) {
			t.Errorf("group member %s should see the work package", u.Name)
		}
	}

	// Idempotent re-grant: no duplicates, no notifications.
	result, err = f.shares.GrantGroupShare(ctx, group, wp, viewer)
	if err != nil {
		t.Fatalf("re-grant failed: %v", err)
	}
	for _, m := range result.Members {
		if m.Created || m.FirstTimeVisible {
			t.Errorf("re-grant member %s: expected no-op, got %+v", m.PrincipalID, m)
		}
	}
	memberships, _ := f.store.ListForScope(ctx, EntityScope(wp.ID))
	if len(memberships) != 3 { // group + 2 inherited
		t.Errorf("expected 3 memberships, got %d", len(memberships))
	}
}

func TestGrantGroupShare_MemberWithOwnShare(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	group := f.group("team")
	alice := f.user("alice")
	f.store.link(group.ID, alice.ID)

	viewer := f.role("wp viewer", RoleWorkPackage, "view_work_packages")
	editor := f.role("wp editor", RoleWorkPackage, "view_work_packages", "edit_work_packages")
	project := f.project("demo", true, false, ModuleWorkPackageTracking)
	wp := f.workPackage(project, "task")

	// Alice already holds her own direct share.
	if _, err := f.shares.GrantUserShare(ctx, alice, wp, editor); err != nil {
		t.Fatal(err)
	}

	result, err := f.shares.GrantGroupShare(ctx, group, wp, viewer)
	if err != nil {
		t.Fatalf("group grant failed: %v", err)
	}
	if len(result.Members) != 1 {
		t.Fatalf("expected 1 member result, got %d", len(result.Members))
	}
	if result.Members[0].Created || result.Members[0].FirstTimeVisible {
		t.Errorf("own share must suppress propagation, got %+v", result.Members[0])
	}

	// The direct share keeps deciding: alice still edits.
	if !f.mustAllow(t, nil, alice, PermissionAction("edit_work_packages"), InWorkPackage(wp, project)) {
		t.Error("own share must override the group share")
	}
}

func TestGrantGroupShare_RejectsNestedGroups(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	outer := f.group("outer")
	inner := f.group("inner")
	f.store.link(outer.ID, inner.ID)

	viewer := f.role("wp viewer", RoleWorkPackage, "view_work_packages")
	project := f.project("demo", true, false, ModuleWorkPackageTracking)
	wp := f.workPackage(project, "task")

	_, err := f.shares.GrantGroupShare(ctx, outer, wp, viewer)
	if !apperror.IsCode(err, apperror.CodeGroupOfGroups) {
		t.Fatalf("expected GROUP_OF_GROUPS, got %v", err)
	}

	// The transaction rolled back: nothing was written.
	memberships, _ := f.store.ListForScope(ctx, EntityScope(wp.ID))
	if len(memberships) != 0 {
		t.Errorf("failed grant must leave no memberships, got %d", len(memberships))
	}
}

func TestRevokeGroupShare_Cascade(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	group := f.group("team")
	alice := f.user("alice")
	bob := f.user("bob")
	f.store.link(group.ID, alice.ID)
	f.store.link(group.ID, bob.ID)

	viewer := f.role("wp viewer", RoleWorkPackage, "view_work_packages")
	editor := f.role("wp editor", RoleWorkPackage, "view_work_packages", "edit_work_packages")
	project := f.project("demo", true, false, ModuleWorkPackageTracking)
	wp := f.workPackage(project, "task")

	if _, err := f.shares.GrantGroupShare(ctx, group, wp, viewer); err != nil {
		t.Fatal(err)
	}
	// Bob also holds his own direct share.
	if _, err := f.shares.GrantUserShare(ctx, bob, wp, editor); err != nil {
		t.Fatal(err)
	}

	if err := f.shares.RevokeGroupShare(ctx, group, wp); err != nil {
		t.Fatalf("group revoke failed: %v", err)
	}

	// Alice lost access, bob keeps his direct share.
	if f.mustAllow(t, nil, alice, PermissionAction("view_work_packages"), InWorkPackage(wp, project)) {
		t.Error("alice should lose access with the group share")
	}
	if !f.mustAllow(t, nil, bob, PermissionAction("view_work_packages"), InWorkPackage(wp, project)) {
		t.Error("bob's direct share must survive the group revoke")
	}

	memberships, _ := f.store.ListForScope(ctx, EntityScope(wp.ID))
	if len(memberships) != 1 {
		t.Errorf("expected only bob's direct share to remain, got %d", len(memberships))
	}
}

func TestRevokeUserShare_FallsBackToGroupShare(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	group := f.group("team")
	alice := f.user("alice")
	f.store.link(group.ID, alice.ID)

	viewer := f.role("wp viewer", RoleWorkPackage, "view_work_packages")
	editor := f.role("wp editor", RoleWorkPackage, "view_work_packages", "edit_work_packages")
	project := f.project("demo", true, false, ModuleWorkPackageTracking)
	wp := f.workPackage(project, "task")

	// Alice holds a direct share before the group is granted, so no
	// inherited row was ever created for her.
	if _, err := f.shares.GrantUserShare(ctx, alice, wp, editor); err != nil {
		t.Fatal(err)
	}
	if _, err := f.shares.GrantGroupShare(ctx, group, wp, viewer); err != nil {
		t.Fatal(err)
	}

	if err := f.shares.RevokeUserShare(ctx, alice, wp); err != nil {
		t.Fatalf("revoke failed: %v", err)
	}

	// Alice falls back to the group share instead of losing access.
	if !f.mustAllow(t, nil, alice, PermissionAction("view_work_packages"), InWorkPackage(wp, project)) {
		t.Error("alice should fall back to the group share")
	}
	if f.mustAllow(t, nil, alice, PermissionAction("edit_work_packages"), InWorkPackage(wp, project)) {
		t.Error("the fallback carries the group role, not the revoked one")
	}
}

func TestChangeGroupShareRole(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	group := f.group("team")
	alice := f.user("alice")
	bob := f.user("bob")
	f.store.link(group.ID, alice.ID)
	f.store.link(group.ID, bob.ID)

	viewer := f.role("wp viewer", RoleWorkPackage, "view_work_packages")
	editor := f.role("wp editor", RoleWorkPackage, "view_work_packages", "edit_work_packages")
	commenter := f.role("wp commenter", RoleWorkPackage, "view_work_packages", "comment_work_packages")
	project := f.project("demo", true, false, ModuleWorkPackageTracking)
	wp := f.workPackage(project, "task")

	// Changing a share that does not exist fails.
	if _, err := f.shares.ChangeGroupShareRole(ctx, group, wp, editor); !apperror.IsCode(err, apperror.CodeNotFound) {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}

	if _, err := f.shares.GrantGroupShare(ctx, group, wp, viewer); err != nil {
		t.Fatal(err)
	}
	// Bob holds his own direct share that the change must not touch.
	if _, err := f.shares.GrantUserShare(ctx, bob, wp, commenter); err != nil {
		t.Fatal(err)
	}

	result, err := f.shares.ChangeGroupShareRole(ctx, group, wp, editor)
	if err != nil {
		t.Fatalf("role change failed: %v", err)
	}
	if !result.Group.RoleChanged {
		t.Error("group role should change")
	}
	for _, m := range result.Members {
		if m.FirstTimeVisible {
			t.Error("a role change never notifies")
		}
	}

	// Alice's inherited share follows the group role.
	if !f.mustAllow(t, nil, alice, PermissionAction("edit_work_packages"), InWorkPackage(wp, project)) {
		t.Error("alice's inherited share should carry the new role")
	}
	// Bob's own share is untouched.
	if f.mustAllow(t, nil, bob, PermissionAction("edit_work_packages"), InWorkPackage(wp, project)) {
		t.Error("bob's direct share must not change")
	}
	if !f.mustAllow(t, nil, bob, PermissionAction("comment_work_packages"), InWorkPackage(wp, project)) {
		t.Error("bob keeps his own role")
	}
}

type recordingNotifier struct {
	notified []string
}

func (n *recordingNotifier) FirstTimeVisible(ctx context.Context, principalID, workPackageID, roleID id.ID) error {
	n.notified = append(n.notified, principalID.String())
	return nil
}

func TestShareNotifier(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	notifier := &recordingNotifier{}
	f.shares.SetNotifier(notifier)

	group := f.group("team")
	alice := f.user("alice")
	bob := f.user("bob")
	f.store.link(group.ID, alice.ID)
	f.store.link(group.ID, bob.ID)

	viewer := f.role("wp viewer", RoleWorkPackage, "view_work_packages")
	editor := f.role("wp editor", RoleWorkPackage, "view_work_packages", "edit_work_packages")
	project := f.project("demo", true, false, ModuleWorkPackageTracking)
	wp := f.workPackage(project, "task")

	// Alice gains visibility via a direct share first.
	if _, err := f.shares.GrantUserShare(ctx, alice, wp, editor); err != nil {
		t.Fatal(err)
	}
	if len(notifier.notified) != 1 || notifier.notified[0] != alice.ID.String() {
		t.Fatalf("expected one notification for alice, got %v", notifier.notified)
	}

	// The group grant notifies bob only; alice is already visible.
	if _, err := f.shares.GrantGroupShare(ctx, group, wp, viewer); err != nil {
		t.Fatal(err)
	}
	if len(notifier.notified) != 2 || notifier.notified[1] != bob.ID.String() {
		t.Fatalf("expected a second notification for bob only, got %v", notifier.notified)
	}

	// Role changes never notify.
	if _, err := f.shares.ChangeGroupShareRole(ctx, group, wp, editor); err != nil {
		t.Fatal(err)
	}
	if len(notifier.notified) != 2 {
		t.Fatalf("role change must not notify, got %v", notifier.notified)
	}
}

func TestGrantGroupShare_RenewedVisibilityDoesNotNotifyTwice(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	group := f.group("team")
	alice := f.user("alice")
	f.store.link(group.ID, alice.ID)

	viewer := f.role("wp viewer", RoleWorkPackage, "view_work_packages")
	editor := f.role("wp editor", RoleWorkPackage, "view_work_packages", "edit_work_packages")
	project := f.project("demo", true, false, ModuleWorkPackageTracking)
	wp := f.workPackage(project, "task")

	// Alice gains visibility through a direct share, then the group is
	// granted too: the group propagation must not re-notify her.
	if _, err := f.shares.GrantUserShare(ctx, alice, wp, editor); err != nil {
		t.Fatal(err)
	}
	result, err := f.shares.GrantGroupShare(ctx, group, wp, viewer)
	if err != nil {
		t.Fatal(err)
	}
	for _, m := range result.Members {
		if m.FirstTimeVisible {
			t.Error("already-visible member must not be notified again")
		}
	}
}
