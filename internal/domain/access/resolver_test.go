package access

import (
	"context"
	"testing"

	"authcore/internal/core/apperror"
)

func TestNewRole_Validation(t *testing.T) {
	catalog := DefaultCatalog()

	if _, err := NewRole(catalog, "reader", RoleProject, "view_work_packages"); err != nil {
		t.Fatalf("valid role failed: %v", err)
	}

	_, err := NewRole(catalog, "bad", RoleProject, "no_such_permission")
	if !apperror.IsCode(err, apperror.CodeUnknownPermission) {
		t.Errorf("expected UNKNOWN_PERMISSION, got %v", err)
	}

	// add_work_packages is project-only; a work package role cannot carry it.
	_, err = NewRole(catalog, "bad", RoleWorkPackage, "add_work_packages")
	if !apperror.IsCode(err, apperror.CodeIllegalPermissionContext) {
		t.Errorf("expected ILLEGAL_PERMISSION_CONTEXT, got %v", err)
	}

	// Global roles take global permissions only.
	_, err = NewRole(catalog, "bad", RoleGlobal, "view_project")
	if !apperror.IsCode(err, apperror.CodeIllegalPermissionContext) {
		t.Errorf("expected ILLEGAL_PERMISSION_CONTEXT, got %v", err)
	}
	if _, err := NewRole(catalog, "creator", RoleGlobal, "add_project"); err != nil {
		t.Errorf("global role with global permission failed: %v", err)
	}
}

func TestRolesFor_LockedPrincipal(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	user := f.user("alice")
	user.Locked = true
	role := f.role("member", RoleProject, "view_work_packages")
	project := f.project("demo", true, false, ModuleWorkPackageTracking)
	f.store.addMembership(NewMembership(user.ID, role.ID, ProjectScope(project.ID)))

	assignments, err := f.resolver.RolesFor(ctx, user, InProject(project))
	if err != nil {
		t.Fatalf("roles for locked failed: %v", err)
	}
	if len(assignments) != 0 {
		t.Errorf("locked principal should hold no roles, got %d", len(assignments))
	}
}

func TestRolesFor_ProjectMembership(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	user := f.user("alice")
	role := f.role("member", RoleProject, "view_work_packages", "edit_work_packages")
	project := f.project("demo", true, false, ModuleWorkPackageTracking)
	f.store.addMembership(NewMembership(user.ID, role.ID, ProjectScope(project.ID)))

	assignments, err := f.resolver.RolesFor(ctx, user, InProject(project))
	if err != nil {
		t.Fatalf("roles failed: %v", err)
	}
	if len(assignments) != 1 {
		t.Fatalf("expected 1 assignment, got %d", len(assignments))
	}
	if assignments[0].Role.Name != "member" {
		t.Errorf("expected member role, got %s", assignments[0].Role.Name)
	}
	if assignments[0].Membership == nil {
		t.Error("membership-backed assignment should carry the membership")
	}
}

func TestRolesFor_NonMemberBaseline(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	f.builtinRole(BuiltinNonMember, "Non member", "view_project")
	user := f.user("stranger")

	public := f.project("public", true, true)
	private := f.project("private", true, false)

	assignments, err := f.resolver.RolesFor(ctx, user, InProject(public))
	if err != nil {
		t.Fatalf("roles failed: %v", err)
	}
	if len(assignments) != 1 || assignments[0].Role.Builtin != BuiltinNonMember {
		t.Errorf("expected non-member role on public project, got %v", assignments)
	}
	if assignments[0].Membership != nil {
		t.Error("builtin assignment must not carry a membership")
	}

	assignments, err = f.resolver.RolesFor(ctx, user, InProject(private))
	if err != nil {
		t.Fatalf("roles failed: %v", err)
	}
	if len(assignments) != 0 {
		t.Errorf("non-member gets nothing on private projects, got %v", assignments)
	}
}

func TestRolesFor_MemberDoesNotGetNonMember(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	f.builtinRole(BuiltinNonMember, "Non member", "view_project")
	user := f.user("alice")
	role := f.role("member", RoleProject, "view_work_packages")
	public := f.project("public", true, true, ModuleWorkPackageTracking)
	f.store.addMembership(NewMembership(user.ID, role.ID, ProjectScope(public.ID)))

	assignments, err := f.resolver.RolesFor(ctx, user, InProject(public))
	if err != nil {
		t.Fatalf("roles failed: %v", err)
	}
	for _, a := range assignments {
		if a.Role.Builtin == BuiltinNonMember {
			t.Error("project member must not receive the non-member role")
		}
	}
}

func TestRolesFor_Anonymous(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	f.builtinRole(BuiltinAnonymous, "Anonymous", "view_project")
	anon := AnonymousPrincipal()

	public := f.project("public", true, true)
	assignments, err := f.resolver.RolesFor(ctx, anon, InProject(public))
	if err != nil {
		t.Fatalf("roles failed: %v", err)
	}
	if len(assignments) != 1 || assignments[0].Role.Builtin != BuiltinAnonymous {
		t.Errorf("expected anonymous role on public project, got %v", assignments)
	}

	private := f.project("private", true, false)
	assignments, err = f.resolver.RolesFor(ctx, anon, InProject(private))
	if err != nil {
		t.Fatalf("roles failed: %v", err)
	}
	if len(assignments) != 0 {
		t.Errorf("anonymous gets nothing on private projects, got %v", assignments)
	}
}

func TestRolesFor_GlobalRoles(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	f.builtinRole(BuiltinNonMember, "Non member", "view_project")
	user := f.user("alice")
	creator := f.role("project creator", RoleGlobal, "add_project")
	f.store.addMembership(NewMembership(user.ID, creator.ID, GlobalScope()))

	assignments, err := f.resolver.RolesFor(ctx, user, Global())
	if err != nil {
		t.Fatalf("roles failed: %v", err)
	}
	if len(assignments) != 1 || assignments[0].Role.Name != "project creator" {
		t.Fatalf("expected project creator role, got %v", assignments)
	}

	// A user with no memberships anywhere falls back to the non-member role.
	stranger := f.user("stranger")
	assignments, err = f.resolver.RolesFor(ctx, stranger, Global())
	if err != nil {
		t.Fatalf("roles failed: %v", err)
	}
	if len(assignments) != 1 || assignments[0].Role.Builtin != BuiltinNonMember {
		t.Errorf("expected non-member fallback, got %v", assignments)
	}
}

func TestRolesFor_EntityContextYieldsOnlyShareRoles(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	user := f.user("alice")
	projectRole := f.role("member", RoleProject, "view_work_packages")
	shareRole := f.role("wp viewer", RoleWorkPackage, "view_work_packages")

	project := f.project("demo", true, false, ModuleWorkPackageTracking)
	wp := f.workPackage(project, "task")

	// Project membership contributes nothing on the share path.
	f.store.addMembership(NewMembership(user.ID, projectRole.ID, ProjectScope(project.ID)))

	assignments, err := f.resolver.RolesFor(ctx, user, InWorkPackage(wp, project))
	if err != nil {
		t.Fatalf("roles failed: %v", err)
	}
	if len(assignments) != 0 {
		t.Errorf("project roles must not leak into entity context, got %v", assignments)
	}

	f.store.addMembership(NewMembership(user.ID, shareRole.ID, EntityScope(wp.ID)))
	assignments, err = f.resolver.RolesFor(ctx, user, InWorkPackage(wp, project))
	if err != nil {
		t.Fatalf("roles failed: %v", err)
	}
	if len(assignments) != 1 || assignments[0].Role.Name != "wp viewer" {
		t.Errorf("expected share role, got %v", assignments)
	}
}

func TestRolesFor_DirectOverridesInherited(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	user := f.user("alice")
	editorRole := f.role("wp editor", RoleWorkPackage, "view_work_packages", "edit_work_packages")
	viewerRole := f.role("wp viewer", RoleWorkPackage, "view_work_packages")

	project := f.project("demo", true, false, ModuleWorkPackageTracking)
	wp := f.workPackage(project, "task")

	group := f.group("team")
	groupMembership := f.store.addMembership(NewMembership(group.ID, viewerRole.ID, EntityScope(wp.ID)))
	f.store.addMembership(NewInheritedMembership(user.ID, viewerRole.ID, EntityScope(wp.ID), groupMembership.ID))
	f.store.addMembership(NewMembership(user.ID, editorRole.ID, EntityScope(wp.ID)))

	assignments, err := f.resolver.RolesFor(ctx, user, InWorkPackage(wp, project))
	if err != nil {
		t.Fatalf("roles failed: %v", err)
	}
	if len(assignments) != 1 {
		t.Fatalf("direct share must suppress inherited ones, got %d assignments", len(assignments))
	}
	if assignments[0].Role.Name != "wp editor" {
		t.Errorf("expected the direct role, got %s", assignments[0].Role.Name)
	}
	if assignments[0].Inherited() {
		t.Error("direct assignment reported as inherited")
	}
}
