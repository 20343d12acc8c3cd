package access

import (
	"time"

	"authcore/internal/core/id"
)

// Project is the primary authorization scope. Inactive (archived) projects
// deny everything except the admin discovery path.
type Project struct {
	ID         id.ID     `db:"id" json:"id"`
	Identifier string    `db:"identifier" json:"identifier"`
	Name       string    `db:"name" json:"name"`
	Active     bool      `db:"active" json:"active"`
	Public     bool      `db:"public" json:"public"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt  time.Time `db:"updated_at" json:"updatedAt"`

	// Modules holds the names of enabled modules.
	Modules []string `db:"-" json:"modules,omitempty"`
}

// ModuleEnabled reports whether the named module is enabled on the project.
func (p *Project) ModuleEnabled(name string) bool {
	for _, m := range p.Modules {
		if m == name {
			return true
		}
	}
	return false
}

// WorkPackage is the shareable entity. Shares grant access to a single work
// package independent of project membership.
type WorkPackage struct {
	ID        id.ID     `db:"id" json:"id"`
	ProjectID id.ID     `db:"project_id" json:"projectId"`
	Subject   string    `db:"subject" json:"subject"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// EvalContext is the explicit scope of a permission check. Global checks
// carry no object; project checks carry the project; entity checks carry
// the work package plus its project (used for active/module gating).
type EvalContext struct {
	Kind        ContextKind
	Project     *Project
	WorkPackage *WorkPackage
}

// Global returns the context for checks without an object.
func Global() EvalContext {
	return EvalContext{Kind: ContextGlobal}
}

// InProject returns the context for project-scoped checks.
func InProject(project *Project) EvalContext {
	return EvalContext{Kind: ContextProject, Project: project}
}

// InWorkPackage returns the context for entity-scoped checks.
// The project is the work package's project; it gates active/module rules
// but contributes no roles (shares are independent of project membership).
func InWorkPackage(wp *WorkPackage, project *Project) EvalContext {
	return EvalContext{Kind: ContextWorkPackage, WorkPackage: wp, Project: project}
}

// Scope returns the membership scope matching the context.
func (c EvalContext) Scope() Scope {
	switch c.Kind {
	case ContextProject:
		return ProjectScope(c.Project.ID)
	case ContextWorkPackage:
		return EntityScope(c.WorkPackage.ID)
	default:
		return GlobalScope()
	}
}

// Key returns a stable cache key component for the context.
func (c EvalContext) Key() string {
	return c.Scope().Key()
}
