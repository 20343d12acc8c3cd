package access

import (
	"context"
	"testing"

	"authcore/internal/core/apperror"
)

func (f *fixture) mustAllow(t *testing.T, session *Session, p *Principal, action Action, ec EvalContext) bool {
	t.Helper()
	allowed, err := f.evaluator.Allowed(context.Background(), session, p, action, ec)
	if err != nil {
		t.Fatalf("allowed(%s) failed: %v", action.String(), err)
	}
	return allowed
}

func TestAllowed_MemberWithRole(t *testing.T) {
	f := newFixture()

	user := f.user("alice")
	role := f.role("member", RoleProject, "view_work_packages")
	project := f.project("demo", true, false, ModuleWorkPackageTracking)
	f.store.addMembership(NewMembership(user.ID, role.ID, ProjectScope(project.ID)))

	if !f.mustAllow(t, nil, user, PermissionAction("view_work_packages"), InProject(project)) {
		t.Error("member with granting role should be allowed")
	}
	if f.mustAllow(t, nil, user, PermissionAction("edit_work_packages"), InProject(project)) {
		t.Error("permission outside the role set should be denied")
	}
}

func TestAllowed_ModuleGating(t *testing.T) {
	f := newFixture()

	user := f.user("alice")
	role := f.role("member", RoleProject, "view_work_packages")
	// Project without the work package tracking module.
	project := f.project("demo", true, false, ModuleNews)
	f.store.addMembership(NewMembership(user.ID, role.ID, ProjectScope(project.ID)))

	if f.mustAllow(t, nil, user, PermissionAction("view_work_packages"), InProject(project)) {
		t.Error("module-gated permission must be denied when the module is disabled")
	}
}

func TestAllowed_AdminBypass(t *testing.T) {
	f := newFixture()

	admin := f.admin("root")
	project := f.project("demo", true, false, ModuleWorkPackageTracking)

	if !f.mustAllow(t, nil, admin, PermissionAction("edit_work_packages"), InProject(project)) {
		t.Error("admin should pass without membership")
	}

	// The bypass respects module gating.
	noModule := f.project("bare", true, false)
	if f.mustAllow(t, nil, admin, PermissionAction("edit_work_packages"), InProject(noModule)) {
		t.Error("admin bypass must not cross a disabled module")
	}

	// Inactive admin accounts get no bypass.
	admin.Active = false
	if f.mustAllow(t, nil, admin, PermissionAction("edit_work_packages"), InProject(project)) {
		t.Error("inactive admin must not pass")
	}
}

func TestAllowed_LockedPrincipal(t *testing.T) {
	f := newFixture()

	admin := f.admin("root")
	admin.Locked = true
	project := f.project("demo", true, false, ModuleWorkPackageTracking)

	if f.mustAllow(t, nil, admin, PermissionAction("view_work_packages"), InProject(project)) {
		t.Error("locked principal is denied everything, admin or not")
	}
}

func TestAllowed_ArchivedProject(t *testing.T) {
	f := newFixture()

	user := f.user("alice")
	role := f.role("member", RoleProject, "view_work_packages", "view_project")
	archived := f.project("old", false, false, ModuleWorkPackageTracking)
	f.store.addMembership(NewMembership(user.ID, role.ID, ProjectScope(archived.ID)))

	// Members lose everything on archived projects, discovery included.
	if f.mustAllow(t, nil, user, PermissionAction("view_work_packages"), InProject(archived)) {
		t.Error("archived project must deny members")
	}
	if f.mustAllow(t, nil, user, PermissionAction("view_project"), InProject(archived)) {
		t.Error("archived project must deny member discovery")
	}

	// Admins keep the discovery read path only.
	admin := f.admin("root")
	if !f.mustAllow(t, nil, admin, PermissionAction("view_project"), InProject(archived)) {
		t.Error("admin should see archived projects")
	}
	if f.mustAllow(t, nil, admin, PermissionAction("edit_project"), InProject(archived)) {
		t.Error("admin must not modify archived projects")
	}
}

func TestAllowed_PublicProject(t *testing.T) {
	f := newFixture()

	f.builtinRole(BuiltinAnonymous, "Anonymous")
	f.builtinRole(BuiltinNonMember, "Non member")

	public := f.project("public", true, true, ModuleNews)
	private := f.project("private", true, false, ModuleNews)
	anon := AnonymousPrincipal()
	user := f.user("stranger")

	// view_project and view_news are public permissions: granted on public
	// projects without any role carrying them.
	if !f.mustAllow(t, nil, anon, PermissionAction("view_project"), InProject(public)) {
		t.Error("anonymous should view public projects")
	}
	if !f.mustAllow(t, nil, user, PermissionAction("view_news"), InProject(public)) {
		t.Error("non-member should view news on public projects")
	}
	if f.mustAllow(t, nil, anon, PermissionAction("view_project"), InProject(private)) {
		t.Error("anonymous must not view private projects")
	}

	// Public permissions still respect module gating.
	bare := f.project("bare", true, true)
	if f.mustAllow(t, nil, user, PermissionAction("view_news"), InProject(bare)) {
		t.Error("public permission must not cross a disabled module")
	}
}

func TestAllowed_UnknownPermission(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	user := f.user("alice")
	project := f.project("demo", true, false)

	if f.mustAllow(t, nil, user, PermissionAction("no_such"), InProject(project)) {
		t.Error("unknown permission must evaluate to false")
	}

	_, err := f.evaluator.AllowedStrict(ctx, nil, user, PermissionAction("no_such"), InProject(project))
	if !apperror.IsCode(err, apperror.CodeUnknownPermission) {
		t.Errorf("expected UNKNOWN_PERMISSION in strict mode, got %v", err)
	}
}

func TestAllowed_DisabledPermission(t *testing.T) {
	f := newFixture()

	admin := f.admin("root")
	project := f.project("demo", true, false, ModuleWorkPackageTracking)

	// view_baselines is feature-flagged off; even the admin bypass does not
	// apply to a permission that resolves to nothing.
	if f.mustAllow(t, nil, admin, PermissionAction("view_baselines"), InProject(project)) {
		t.Error("disabled permission must evaluate to false")
	}
}

func TestAllowed_EntityShare(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	user := f.user("alice")
	shareRole := f.role("wp viewer", RoleWorkPackage, "view_work_packages")
	project := f.project("demo", true, false, ModuleWorkPackageTracking)
	wp := f.workPackage(project, "task")

	if f.mustAllow(t, nil, user, PermissionAction("view_work_packages"), InWorkPackage(wp, project)) {
		t.Error("no share yet, must be denied")
	}

	if _, err := f.shares.GrantUserShare(ctx, user, wp, shareRole); err != nil {
		t.Fatalf("grant failed: %v", err)
	}
	if !f.mustAllow(t, nil, user, PermissionAction("view_work_packages"), InWorkPackage(wp, project)) {
		t.Error("shared user should see the work package")
	}

	// The share grants nothing on the project itself.
	if f.mustAllow(t, nil, user, PermissionAction("view_work_packages"), InProject(project)) {
		t.Error("entity share must not leak into the project context")
	}
}

func TestAllowed_SessionCaching(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	user := f.user("alice")
	role := f.role("member", RoleProject, "view_work_packages", "edit_work_packages")
	project := f.project("demo", true, false, ModuleWorkPackageTracking)
	f.store.addMembership(NewMembership(user.ID, role.ID, ProjectScope(project.ID)))

	session := NewSession(user.ID)
	ec := InProject(project)

	if !f.mustAllow(t, session, user, PermissionAction("view_work_packages"), ec) {
		t.Fatal("expected allow")
	}
	listCalls := f.store.calls["ListForPrincipal"]

	// Same decision again: no store traffic at all.
	if !f.mustAllow(t, session, user, PermissionAction("view_work_packages"), ec) {
		t.Fatal("expected allow")
	}
	if f.store.calls["ListForPrincipal"] != listCalls {
		t.Error("repeated decision must come from the session cache")
	}

	// Different permission, same scope: roles are reused, no re-resolution.
	if !f.mustAllow(t, session, user, PermissionAction("edit_work_packages"), ec) {
		t.Fatal("expected allow")
	}
	if f.store.calls["ListForPrincipal"] != listCalls {
		t.Error("role assignments must be reused within a scope")
	}

	// A session is bound to one principal.
	other := f.user("bob")
	_, err := f.evaluator.Allowed(ctx, session, other, PermissionAction("view_work_packages"), ec)
	if !apperror.IsCode(err, apperror.CodeValidation) {
		t.Errorf("expected validation error on principal mismatch, got %v", err)
	}
}

func TestAllowedAny(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	user := f.user("alice")
	role := f.role("member", RoleProject, "view_work_packages")
	allowed := f.project("demo", true, false, ModuleWorkPackageTracking)
	denied := f.project("other", true, false, ModuleWorkPackageTracking)
	f.store.addMembership(NewMembership(user.ID, role.ID, ProjectScope(allowed.ID)))

	got, err := f.evaluator.AllowedAny(ctx, nil, user,
		[]Action{PermissionAction("edit_work_packages"), PermissionAction("view_work_packages")},
		[]EvalContext{InProject(denied), InProject(allowed)}, false)
	if err != nil {
		t.Fatalf("allowed any failed: %v", err)
	}
	if !got {
		t.Error("expected a match on the second context")
	}

	got, err = f.evaluator.AllowedAny(ctx, nil, user,
		[]Action{PermissionAction("edit_work_packages")},
		[]EvalContext{InProject(denied)}, false)
	if err != nil {
		t.Fatalf("allowed any failed: %v", err)
	}
	if got {
		t.Error("expected no match")
	}

	_, err = f.evaluator.AllowedAny(ctx, nil, user,
		[]Action{PermissionAction("view_work_packages")}, nil, false)
	if !apperror.IsCode(err, apperror.CodeValidation) {
		t.Errorf("expected validation error without contexts, got %v", err)
	}
}

func TestAllowed_ControllerAction(t *testing.T) {
	f := newFixture()

	user := f.user("alice")
	role := f.role("member", RoleProject, "view_work_packages")
	project := f.project("demo", true, false, ModuleWorkPackageTracking)
	f.store.addMembership(NewMembership(user.ID, role.ID, ProjectScope(project.ID)))

	if !f.mustAllow(t, nil, user, ControllerAction("work_packages", "show"), InProject(project)) {
		t.Error("mapped controller action should be allowed")
	}
	if f.mustAllow(t, nil, user, ControllerAction("work_packages", "destroy"), InProject(project)) {
		t.Error("unmapped-for-role controller action should be denied")
	}
}
