package access

import (
	"testing"

	"authcore/internal/core/apperror"
)

func TestCatalogRegister(t *testing.T) {
	c := NewCatalog()

	perm := Permission{Name: "view_thing", Contexts: []ContextKind{ContextProject}}
	if err := c.Register(perm); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	// Identical re-registration is a no-op.
	if err := c.Register(perm); err != nil {
		t.Errorf("identical re-registration should be a no-op, got %v", err)
	}

	// Same name, different definition.
	conflicting := Permission{Name: "view_thing", Contexts: []ContextKind{ContextProject}, GrantToAdmin: true}
	err := c.Register(conflicting)
	if !apperror.IsCode(err, apperror.CodeDuplicatePermission) {
		t.Errorf("expected DUPLICATE_PERMISSION, got %v", err)
	}
}

func TestCatalogRegister_Validation(t *testing.T) {
	c := NewCatalog()

	if err := c.Register(Permission{Contexts: []ContextKind{ContextProject}}); err == nil {
		t.Error("expected error for empty name")
	}
	if err := c.Register(Permission{Name: "no_contexts"}); err == nil {
		t.Error("expected error for empty context list")
	}
}

func TestCatalogResolve(t *testing.T) {
	c := DefaultCatalog()

	tests := []struct {
		name      string
		action    Action
		strict    bool
		wantPerms []string
		wantCode  string
	}{
		{
			name:      "permission by name",
			action:    PermissionAction("view_work_packages"),
			wantPerms: []string{"view_work_packages"},
		},
		{
			name:   "unknown lenient resolves empty",
			action: PermissionAction("no_such_permission"),
		},
		{
			name:     "unknown strict fails",
			action:   PermissionAction("no_such_permission"),
			strict:   true,
			wantCode: apperror.CodeUnknownPermission,
		},
		{
			name:   "disabled resolves empty even strict",
			action: PermissionAction("view_baselines"),
			strict: true,
		},
		{
			name:      "controller route",
			action:    ControllerAction("work_packages", "show"),
			wantPerms: []string{"view_work_packages"},
		},
		{
			name:      "route mapping several permissions",
			action:    ControllerAction("members", "index"),
			wantPerms: []string{"view_members", "manage_members"},
		},
		{
			name:   "unknown route lenient resolves empty",
			action: ControllerAction("gadgets", "show"),
		},
		{
			name:     "unknown route strict fails",
			action:   ControllerAction("gadgets", "show"),
			strict:   true,
			wantCode: apperror.CodeUnknownPermission,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			perms, err := c.Resolve(tt.action, tt.strict)
			if tt.wantCode != "" {
				if !apperror.IsCode(err, tt.wantCode) {
					t.Fatalf("expected %s, got %v", tt.wantCode, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("resolve failed: %v", err)
			}
			if len(perms) != len(tt.wantPerms) {
				t.Fatalf("expected %d permissions, got %d", len(tt.wantPerms), len(perms))
			}
			for i, want := range tt.wantPerms {
				if perms[i].Name != want {
					t.Errorf("permission %d: expected %s, got %s", i, want, perms[i].Name)
				}
			}
		})
	}
}

func TestCatalogContextualPermissions(t *testing.T) {
	c := DefaultCatalog()

	// view_work_packages is valid in project and work package contexts.
	perms, err := c.ContextualPermissions(PermissionAction("view_work_packages"), ContextWorkPackage, false)
	if err != nil {
		t.Fatalf("contextual permissions failed: %v", err)
	}
	if len(perms) != 1 || perms[0].Name != "view_work_packages" {
		t.Fatalf("expected view_work_packages, got %v", perms)
	}

	// add_work_packages is project-only; asking in an entity context is a
	// programming error regardless of strictness.
	_, err = c.ContextualPermissions(PermissionAction("add_work_packages"), ContextWorkPackage, false)
	if !apperror.IsCode(err, apperror.CodeIllegalPermissionContext) {
		t.Errorf("expected ILLEGAL_PERMISSION_CONTEXT, got %v", err)
	}

	// Unknown in lenient mode stays empty, never illegal-context.
	perms, err = c.ContextualPermissions(PermissionAction("no_such"), ContextProject, false)
	if err != nil || perms != nil {
		t.Errorf("expected empty resolution, got %v, %v", perms, err)
	}
}

func TestCatalogDisabled(t *testing.T) {
	c := DefaultCatalog()

	if !c.Disabled("view_baselines") {
		t.Error("view_baselines should report disabled")
	}
	if c.Disabled("view_work_packages") {
		t.Error("view_work_packages should not report disabled")
	}
	if c.Disabled("no_such") {
		t.Error("unknown permission should not report disabled")
	}
}

func TestCatalogList(t *testing.T) {
	c := NewCatalog()
	c.MustRegister(Permission{Name: "b_perm", Contexts: []ContextKind{ContextGlobal}})
	c.MustRegister(Permission{Name: "a_perm", Contexts: []ContextKind{ContextGlobal}})

	list := c.List()
	if len(list) != 2 {
		t.Fatalf("expected 2 permissions, got %d", len(list))
	}
	if list[0].Name != "a_perm" || list[1].Name != "b_perm" {
		t.Errorf("expected sorted order, got %s, %s", list[0].Name, list[1].Name)
	}
}

func TestActionString(t *testing.T) {
	if got := PermissionAction("view_project").String(); got != "view_project" {
		t.Errorf("expected view_project, got %s", got)
	}
	if got := ControllerAction("work_packages", "show").String(); got != "work_packages#show" {
		t.Errorf("expected work_packages#show, got %s", got)
	}
}
