// Package access provides the authorization decision engine: permission
// catalog, role resolution, grant evaluation and entity sharing.
package access

// ContextKind identifies the scope a permission check is evaluated against.
type ContextKind string

const (
	ContextGlobal      ContextKind = "global"
	ContextProject     ContextKind = "project"
	ContextWorkPackage ContextKind = "work_package"
)

// Module names used to gate permissions per project.
const (
	ModuleWorkPackageTracking = "work_package_tracking"
	ModuleMeetings            = "meetings"
	ModuleNews                = "news"
	ModuleTimeTracking        = "time_tracking"
	ModuleWiki                = "wiki"
)

// Permission is a named, statically registered capability.
// Permissions are immutable after registration and live for the process
// lifetime; the catalog is the only place they are created.
type Permission struct {
	// Name is the unique permission identifier, e.g. "view_work_packages".
	Name string

	// Contexts lists the context kinds the permission is valid in.
	Contexts []ContextKind

	// GrantToAdmin marks the permission as covered by the admin bypass.
	GrantToAdmin bool

	// GrantToPublic marks the permission as granted without a role
	// assignment on public projects (including anonymous access).
	GrantToPublic bool

	// Module, when set, requires the named project module to be enabled
	// for the permission to take effect in that project.
	Module string

	// VisibleOnArchived keeps the permission checkable by admins on
	// archived projects. This is the discovery read path: archived
	// projects deny everything else, admins included.
	VisibleOnArchived bool

	// Disabled marks a permission that is feature-flagged off. Disabled
	// permissions resolve to nothing and never grant access, but
	// referencing them is not an error.
	Disabled bool
}

// PermissibleOn reports whether the permission is valid for the context kind.
func (p Permission) PermissibleOn(kind ContextKind) bool {
	for _, c := range p.Contexts {
		if c == kind {
			return true
		}
	}
	return false
}

// Action is the closed set of things callers may ask the engine about:
// either a permission by name, or a controller/verb pair that the catalog
// maps onto permissions. No string-based dispatch happens outside the catalog.
type Action struct {
	permission string
	controller string
	verb       string
}

// PermissionAction builds an Action referencing a permission by name.
func PermissionAction(name string) Action {
	return Action{permission: name}
}

// ControllerAction builds an Action from a controller/verb pair as used by
// web layers, e.g. ("work_packages", "show").
func ControllerAction(controller, verb string) Action {
	return Action{controller: controller, verb: verb}
}

// IsControllerAction reports whether the action is a controller/verb pair.
func (a Action) IsControllerAction() bool {
	return a.controller != ""
}

// String returns the caller-facing description of the action.
func (a Action) String() string {
	if a.IsControllerAction() {
		return a.controller + "#" + a.verb
	}
	return a.permission
}
