package dto

import (
	"authcore/internal/core/apperror"
	"authcore/internal/domain/access"
)

// ActionRequest names the action being checked. Exactly one of Permission
// or Controller+Verb must be set.
type ActionRequest struct {
	Permission string `json:"permission,omitempty"`
	Controller string `json:"controller,omitempty"`
	Verb       string `json:"verb,omitempty"`
}

// ToAction converts to a domain action.
func (r ActionRequest) ToAction() (access.Action, error) {
	hasPermission := r.Permission != ""
	hasRoute := r.Controller != "" || r.Verb != ""

	switch {
	case hasPermission && hasRoute:
		return access.Action{}, apperror.NewValidation(
			"action must name either a permission or a controller/verb pair, not both")
	case hasPermission:
		return access.PermissionAction(r.Permission), nil
	case r.Controller != "" && r.Verb != "":
		return access.ControllerAction(r.Controller, r.Verb), nil
	default:
		return access.Action{}, apperror.NewValidation(
			"action must name a permission or a controller/verb pair")
	}
}

// CheckRequest for POST /authz/check.
type CheckRequest struct {
	Action        ActionRequest `json:"action" binding:"required"`
	ProjectID     string        `json:"projectId,omitempty"`
	WorkPackageID string        `json:"workPackageId,omitempty"`
	Strict        bool          `json:"strict,omitempty"`
}

// ContextRequest names one evaluation context for a check-any request.
// Empty means the global context when the request's Global flag is set.
type ContextRequest struct {
	ProjectID     string `json:"projectId,omitempty"`
	WorkPackageID string `json:"workPackageId,omitempty"`
}

// CheckAnyRequest for POST /authz/check-any.
type CheckAnyRequest struct {
	Actions  []ActionRequest  `json:"actions" binding:"required,min=1"`
	Contexts []ContextRequest `json:"contexts,omitempty"`
	Global   bool             `json:"global,omitempty"`
}

// DecisionResponse carries the evaluation outcome.
type DecisionResponse struct {
	Allowed bool `json:"allowed"`
}

// PermissionResponse describes a catalog permission.
type PermissionResponse struct {
	Name             string   `json:"name"`
	Contexts         []string `json:"contexts"`
	Module           string   `json:"module,omitempty"`
	GrantToAdmin     bool     `json:"grantToAdmin"`
	GrantToPublic    bool     `json:"grantToPublic"`
	VisibleOnArchived bool    `json:"visibleOnArchived"`
	Disabled         bool     `json:"disabled"`
}

// FromPermission converts a catalog permission.
func FromPermission(p access.Permission) PermissionResponse {
	contexts := make([]string, len(p.Contexts))
	for i, ck := range p.Contexts {
		contexts[i] = string(ck)
	}
	return PermissionResponse{
		Name:              p.Name,
		Contexts:          contexts,
		Module:            p.Module,
		GrantToAdmin:      p.GrantToAdmin,
		GrantToPublic:     p.GrantToPublic,
		VisibleOnArchived: p.VisibleOnArchived,
		Disabled:          p.Disabled,
	}
}

// RoleResponse describes a role.
type RoleResponse struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Kind        string   `json:"kind"`
	Builtin     string   `json:"builtin,omitempty"`
	Permissions []string `json:"permissions,omitempty"`
}

// FromRole converts a domain role.
func FromRole(r *access.Role) RoleResponse {
	return RoleResponse{
		ID:          r.ID.String(),
		Name:        r.Name,
		Kind:        string(r.Kind),
		Builtin:     string(r.Builtin),
		Permissions: r.Permissions,
	}
}
