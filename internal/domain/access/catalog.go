package access

import (
	"sort"
	"sync"

	"authcore/internal/core/apperror"
)

// Catalog is the static registry of permissions and their context rules.
// It is populated once at process start and read concurrently afterwards.
type Catalog struct {
	mu     sync.RWMutex
	perms  map[string]Permission
	routes map[routeKey][]string
}

type routeKey struct {
	controller string
	verb       string
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{
		perms:  make(map[string]Permission),
		routes: make(map[routeKey][]string),
	}
}

// Register adds a permission to the catalog.
// Registering the exact same definition twice is a no-op; registering the
// same name with a different definition fails with DUPLICATE_PERMISSION.
func (c *Catalog) Register(p Permission) error {
	if p.Name == "" {
		return apperror.NewValidation("permission name is required")
	}
	if len(p.Contexts) == 0 {
		return apperror.NewValidation("permission requires at least one context").
			WithDetail("permission", p.Name)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, ok := c.perms[p.Name]; ok {
		if samePermission(existing, p) {
			return nil
		}
		return apperror.NewDuplicatePermission(p.Name)
	}

	c.perms[p.Name] = p
	return nil
}

// MustRegister registers a permission and panics on error.
// Catalog population happens at process startup, where a bad permission
// table is fatal.
func (c *Catalog) MustRegister(p Permission) {
	if err := c.Register(p); err != nil {
		panic(err)
	}
}

// MapRoute maps a controller/verb pair onto one or more permission names.
// Unknown permission names surface later as empty resolution, matching the
// behaviour of referencing an unregistered permission directly.
func (c *Catalog) MapRoute(controller, verb string, permissions ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := routeKey{controller: controller, verb: verb}
	c.routes[key] = append(c.routes[key], permissions...)
}

// Permission returns a registered permission by name.
func (c *Catalog) Permission(name string) (Permission, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.perms[name]
	return p, ok
}

// Disabled reports whether the named permission exists but is feature-flagged off.
func (c *Catalog) Disabled(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.perms[name]
	return ok && p.Disabled
}

// Resolve normalizes an action into concrete permissions.
//   - A disabled permission resolves to an empty list and never errors.
//   - An unknown permission resolves to an empty list, or fails with
//     UNKNOWN_PERMISSION when strict is set.
func (c *Catalog) Resolve(action Action, strict bool) ([]Permission, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if action.IsControllerAction() {
		names := c.routes[routeKey{controller: action.controller, verb: action.verb}]
		var perms []Permission
		for _, name := range names {
			if p, ok := c.perms[name]; ok && !p.Disabled {
				perms = append(perms, p)
			}
		}
		if len(perms) == 0 && strict {
			return nil, apperror.NewUnknownPermission(action.String())
		}
		return perms, nil
	}

	p, ok := c.perms[action.permission]
	if !ok {
		if strict {
			return nil, apperror.NewUnknownPermission(action.permission)
		}
		return nil, nil
	}
	if p.Disabled {
		// Feature-flagged permissions never grant and never raise.
		return nil, nil
	}
	return []Permission{p}, nil
}

// ContextualPermissions resolves an action and filters the result by context
// kind. When the action resolves to permissions but none of them are valid
// for the kind, it fails with ILLEGAL_PERMISSION_CONTEXT regardless of the
// strict flag: asking for an entity-only permission against a bare project
// is a programming error, not a denied check.
func (c *Catalog) ContextualPermissions(action Action, kind ContextKind, strict bool) ([]Permission, error) {
	perms, err := c.Resolve(action, strict)
	if err != nil {
		return nil, err
	}
	if len(perms) == 0 {
		return nil, nil
	}

	contextual := make([]Permission, 0, len(perms))
	for _, p := range perms {
		if p.PermissibleOn(kind) {
			contextual = append(contextual, p)
		}
	}
	if len(contextual) == 0 {
		return nil, apperror.NewIllegalPermissionContext(action.String(), string(kind))
	}
	return contextual, nil
}

// List returns all registered permissions sorted by name.
func (c *Catalog) List() []Permission {
	c.mu.RLock()
	defer c.mu.RUnlock()

	perms := make([]Permission, 0, len(c.perms))
	for _, p := range c.perms {
		perms = append(perms, p)
	}
	sort.Slice(perms, func(i, j int) bool { return perms[i].Name < perms[j].Name })
	return perms
}

func samePermission(a, b Permission) bool {
	if a.Name != b.Name || a.GrantToAdmin != b.GrantToAdmin ||
		a.GrantToPublic != b.GrantToPublic || a.Module != b.Module ||
		a.Disabled != b.Disabled || a.VisibleOnArchived != b.VisibleOnArchived ||
		len(a.Contexts) != len(b.Contexts) {
		return false
	}
	for i := range a.Contexts {
		if a.Contexts[i] != b.Contexts[i] {
			return false
		}
	}
	return true
}

// DefaultCatalog returns the platform permission table.
// Mirrors the project-management domain: project visibility, work package
// tracking and sharing, membership management, saved queries, meetings,
// news, time tracking, plus the global administration permissions.
func DefaultCatalog() *Catalog {
	c := NewCatalog()

	// Project scope.
	c.MustRegister(Permission{Name: "view_project", Contexts: []ContextKind{ContextProject}, GrantToAdmin: true, GrantToPublic: true, VisibleOnArchived: true})
	c.MustRegister(Permission{Name: "select_project_modules", Contexts: []ContextKind{ContextProject}, GrantToAdmin: true})
	c.MustRegister(Permission{Name: "edit_project", Contexts: []ContextKind{ContextProject}, GrantToAdmin: true})
	c.MustRegister(Permission{Name: "archive_project", Contexts: []ContextKind{ContextProject}, GrantToAdmin: true})
	c.MustRegister(Permission{Name: "view_members", Contexts: []ContextKind{ContextProject}, GrantToAdmin: true})
	c.MustRegister(Permission{Name: "manage_members", Contexts: []ContextKind{ContextProject}, GrantToAdmin: true})

	// Work package tracking; permissions checkable both on a project and on
	// a single shared work package.
	c.MustRegister(Permission{Name: "view_work_packages", Contexts: []ContextKind{ContextProject, ContextWorkPackage}, GrantToAdmin: true, Module: ModuleWorkPackageTracking})
	c.MustRegister(Permission{Name: "add_work_packages", Contexts: []ContextKind{ContextProject}, GrantToAdmin: true, Module: ModuleWorkPackageTracking})
	c.MustRegister(Permission{Name: "edit_work_packages", Contexts: []ContextKind{ContextProject, ContextWorkPackage}, GrantToAdmin: true, Module: ModuleWorkPackageTracking})
	c.MustRegister(Permission{Name: "delete_work_packages", Contexts: []ContextKind{ContextProject}, GrantToAdmin: true, Module: ModuleWorkPackageTracking})
	c.MustRegister(Permission{Name: "comment_work_packages", Contexts: []ContextKind{ContextProject, ContextWorkPackage}, GrantToAdmin: true, Module: ModuleWorkPackageTracking})
	c.MustRegister(Permission{Name: "share_work_packages", Contexts: []ContextKind{ContextProject, ContextWorkPackage}, GrantToAdmin: true, Module: ModuleWorkPackageTracking})
	c.MustRegister(Permission{Name: "assign_versions", Contexts: []ContextKind{ContextProject}, GrantToAdmin: true, Module: ModuleWorkPackageTracking})

	// Saved queries.
	c.MustRegister(Permission{Name: "save_queries", Contexts: []ContextKind{ContextProject}, GrantToAdmin: true, Module: ModuleWorkPackageTracking})
	c.MustRegister(Permission{Name: "manage_public_queries", Contexts: []ContextKind{ContextProject}, GrantToAdmin: true, Module: ModuleWorkPackageTracking})

	// Module-gated collaboration features.
	c.MustRegister(Permission{Name: "view_meetings", Contexts: []ContextKind{ContextProject}, GrantToAdmin: true, Module: ModuleMeetings})
	c.MustRegister(Permission{Name: "create_meetings", Contexts: []ContextKind{ContextProject}, GrantToAdmin: true, Module: ModuleMeetings})
	c.MustRegister(Permission{Name: "view_news", Contexts: []ContextKind{ContextProject}, GrantToAdmin: true, GrantToPublic: true, Module: ModuleNews})
	c.MustRegister(Permission{Name: "manage_news", Contexts: []ContextKind{ContextProject}, GrantToAdmin: true, Module: ModuleNews})
	c.MustRegister(Permission{Name: "view_time_entries", Contexts: []ContextKind{ContextProject}, GrantToAdmin: true, Module: ModuleTimeTracking})
	c.MustRegister(Permission{Name: "log_time", Contexts: []ContextKind{ContextProject}, GrantToAdmin: true, Module: ModuleTimeTracking})
	c.MustRegister(Permission{Name: "view_wiki_pages", Contexts: []ContextKind{ContextProject}, GrantToAdmin: true, Module: ModuleWiki})

	// Global scope.
	c.MustRegister(Permission{Name: "add_project", Contexts: []ContextKind{ContextGlobal}, GrantToAdmin: true})
	c.MustRegister(Permission{Name: "create_user", Contexts: []ContextKind{ContextGlobal}, GrantToAdmin: true})
	c.MustRegister(Permission{Name: "manage_user", Contexts: []ContextKind{ContextGlobal}, GrantToAdmin: true})
	c.MustRegister(Permission{Name: "manage_placeholder_user", Contexts: []ContextKind{ContextGlobal}, GrantToAdmin: true})

	// Feature-flagged off until the baseline comparison feature ships.
	c.MustRegister(Permission{Name: "view_baselines", Contexts: []ContextKind{ContextProject}, GrantToAdmin: true, Module: ModuleWorkPackageTracking, Disabled: true})

	// Controller/verb routes used by web callers.
	c.MapRoute("work_packages", "index", "view_work_packages")
	c.MapRoute("work_packages", "show", "view_work_packages")
	c.MapRoute("work_packages", "new", "add_work_packages")
	c.MapRoute("work_packages", "create", "add_work_packages")
	c.MapRoute("work_packages", "edit", "edit_work_packages")
	c.MapRoute("work_packages", "update", "edit_work_packages")
	c.MapRoute("work_packages", "destroy", "delete_work_packages")
	c.MapRoute("projects", "show", "view_project")
	c.MapRoute("projects", "update", "edit_project")
	c.MapRoute("members", "index", "view_members", "manage_members")
	c.MapRoute("members", "create", "manage_members")
	c.MapRoute("members", "destroy", "manage_members")
	c.MapRoute("queries", "create", "save_queries")
	c.MapRoute("news", "index", "view_news")
	c.MapRoute("news", "create", "manage_news")

	return c
}
