package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"authcore/internal/core/apperror"
	"authcore/internal/core/id"
	"authcore/internal/domain/access"
	"authcore/internal/infrastructure/http/v1/dto"
	"authcore/internal/infrastructure/http/v1/middleware"
)

// AuthzHandler exposes permission evaluation endpoints.
type AuthzHandler struct {
	*BaseHandler
	catalog      *access.Catalog
	evaluator    *access.GrantEvaluator
	roles        access.RoleRepository
	projects     access.ProjectRepository
	workPackages access.WorkPackageRepository
}

// NewAuthzHandler creates a new authorization handler.
func NewAuthzHandler(
	base *BaseHandler,
	catalog *access.Catalog,
	evaluator *access.GrantEvaluator,
	roles access.RoleRepository,
	projects access.ProjectRepository,
	workPackages access.WorkPackageRepository,
) *AuthzHandler {
	return &AuthzHandler{
		BaseHandler:  base,
		catalog:      catalog,
		evaluator:    evaluator,
		roles:        roles,
		projects:     projects,
		workPackages: workPackages,
	}
}

// Check handles POST /authz/check
//
// Evaluates a single action for the calling principal in the named
// context. Strict mode turns unknown actions into errors instead of
// silent denial.
func (h *AuthzHandler) Check(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.CheckRequest
	if !h.BindJSON(c, &req) {
		return
	}

	action, err := req.Action.ToAction()
	if err != nil {
		h.Error(c, err)
		return
	}

	ec, err := h.buildContext(c, req.ProjectID, req.WorkPackageID)
	if err != nil {
		h.Error(c, err)
		return
	}

	principal := middleware.CurrentPrincipal(c)
	session := middleware.CurrentSession(c)

	var allowed bool
	if req.Strict {
		allowed, err = h.evaluator.AllowedStrict(ctx, session, principal, action, ec)
	} else {
		allowed, err = h.evaluator.Allowed(ctx, session, principal, action, ec)
	}
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.DecisionResponse{Allowed: allowed})
}

// CheckAny handles POST /authz/check-any
//
// Evaluates a batch of actions across a batch of contexts and reports
// whether any combination is granted.
func (h *AuthzHandler) CheckAny(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.CheckAnyRequest
	if !h.BindJSON(c, &req) {
		return
	}

	actions := make([]access.Action, 0, len(req.Actions))
	for _, ar := range req.Actions {
		action, err := ar.ToAction()
		if err != nil {
			h.Error(c, err)
			return
		}
		actions = append(actions, action)
	}

	contexts := make([]access.EvalContext, 0, len(req.Contexts))
	for _, cr := range req.Contexts {
		ec, err := h.buildContext(c, cr.ProjectID, cr.WorkPackageID)
		if err != nil {
			h.Error(c, err)
			return
		}
		contexts = append(contexts, ec)
	}

	principal := middleware.CurrentPrincipal(c)
	session := middleware.CurrentSession(c)

	allowed, err := h.evaluator.AllowedAny(ctx, session, principal, actions, contexts, req.Global)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.DecisionResponse{Allowed: allowed})
}

// GrantedPermissions handles GET /authz/permissions
//
// Returns the names of catalog permissions the calling principal holds in
// the context given by the projectId / workPackageId query parameters.
func (h *AuthzHandler) GrantedPermissions(c *gin.Context) {
	ctx := c.Request.Context()

	ec, err := h.buildContext(c, c.Query("projectId"), c.Query("workPackageId"))
	if err != nil {
		h.Error(c, err)
		return
	}

	principal := middleware.CurrentPrincipal(c)
	session := middleware.CurrentSession(c)

	var granted []string
	for _, perm := range h.catalog.List() {
		allowed, err := h.evaluator.Allowed(ctx, session, principal, access.PermissionAction(perm.Name), ec)
		if err != nil {
			h.Error(c, err)
			return
		}
		if allowed {
			granted = append(granted, perm.Name)
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"context":     ec.Key(),
		"permissions": granted,
	})
}

// ListPermissions handles GET /permissions
//
// Returns the full permission catalog, including disabled entries.
func (h *AuthzHandler) ListPermissions(c *gin.Context) {
	perms := h.catalog.List()

	items := make([]dto.PermissionResponse, len(perms))
	for i, p := range perms {
		items[i] = dto.FromPermission(p)
	}

	c.JSON(http.StatusOK, dto.ListResponse{Items: items, Count: len(items)})
}

// ListRoles handles GET /roles
func (h *AuthzHandler) ListRoles(c *gin.Context) {
	roles, err := h.roles.List(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}

	items := make([]dto.RoleResponse, len(roles))
	for i := range roles {
		items[i] = dto.FromRole(&roles[i])
	}

	c.JSON(http.StatusOK, dto.ListResponse{Items: items, Count: len(items)})
}

// buildContext resolves the evaluation context from optional project and
// work package IDs. A work package ID wins and carries its project.
func (h *AuthzHandler) buildContext(c *gin.Context, projectID, workPackageID string) (access.EvalContext, error) {
	ctx := c.Request.Context()

	if workPackageID != "" {
		wpID, err := id.Parse(workPackageID)
		if err != nil {
			return access.EvalContext{}, apperror.NewValidation("invalid work package id").
				WithDetail("id", workPackageID)
		}
		wp, err := h.workPackages.GetByID(ctx, wpID)
		if err != nil {
			return access.EvalContext{}, err
		}
		project, err := h.projects.GetByID(ctx, wp.ProjectID)
		if err != nil {
			return access.EvalContext{}, err
		}
		return access.InWorkPackage(wp, project), nil
	}

	if projectID != "" {
		pID, err := id.Parse(projectID)
		if err != nil {
			return access.EvalContext{}, apperror.NewValidation("invalid project id").
				WithDetail("id", projectID)
		}
		project, err := h.projects.GetByID(ctx, pID)
		if err != nil {
			return access.EvalContext{}, err
		}
		return access.InProject(project), nil
	}

	return access.Global(), nil
}
