package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"authcore/internal/core/apperror"
	"authcore/internal/core/id"
	"authcore/internal/domain/access"
	"authcore/internal/infrastructure/http/v1/dto"
	"authcore/internal/infrastructure/http/v1/middleware"
	"authcore/internal/infrastructure/storage/postgres"
	"authcore/pkg/logger"
)

// SharesHandler manages work package shares.
//
// The guarded routes load the work package before the handler runs, so
// handlers read it from the gin context instead of fetching again.
type SharesHandler struct {
	*BaseHandler
	shares     *access.ShareService
	principals access.PrincipalRepository
	roles      access.RoleRepository
	audit      *postgres.AuditService
	log        *logger.Logger
}

// NewSharesHandler creates a new shares handler.
func NewSharesHandler(
	base *BaseHandler,
	shares *access.ShareService,
	principals access.PrincipalRepository,
	roles access.RoleRepository,
	audit *postgres.AuditService,
	log *logger.Logger,
) *SharesHandler {
	return &SharesHandler{
		BaseHandler: base,
		shares:      shares,
		principals:  principals,
		roles:       roles,
		audit:       audit,
		log:         log,
	}
}

// logAudit records a share mutation in the audit trail. Audit failures do
// not fail the request that already committed.
func (h *SharesHandler) logAudit(c *gin.Context, wp *access.WorkPackage, action postgres.AuditAction, changes map[string]any) {
	if h.audit == nil {
		return
	}
	ctx := c.Request.Context()
	if err := h.audit.LogChange(ctx, "work_package_share", wp.ID, action, changes); err != nil {
		h.log.WithContext(ctx).Warnw("audit log failed",
			"action", string(action),
			"work_package_id", wp.ID.String(),
			"error", err,
		)
	}
}

// List handles GET /work-packages/:wpId/shares
func (h *SharesHandler) List(c *gin.Context) {
	wp := middleware.ContextWorkPackage(c)
	if wp == nil {
		h.Error(c, apperror.NewInternal(nil).WithDetail("missing", "work_package"))
		return
	}

	assignments, err := h.shares.ListShares(c.Request.Context(), wp)
	if err != nil {
		h.Error(c, err)
		return
	}

	items := make([]dto.EntityShareResponse, len(assignments))
	for i, a := range assignments {
		items[i] = dto.FromRoleAssignment(a)
	}

	c.JSON(http.StatusOK, dto.ListResponse{Items: items, Count: len(items)})
}

// History handles GET /work-packages/:wpId/shares/history
func (h *SharesHandler) History(c *gin.Context) {
	wp := middleware.ContextWorkPackage(c)
	if wp == nil {
		h.Error(c, apperror.NewInternal(nil).WithDetail("missing", "work_package"))
		return
	}

	if h.audit == nil {
		c.JSON(http.StatusOK, dto.ListResponse{Items: []dto.ShareAuditResponse{}, Count: 0})
		return
	}

	entries, err := h.audit.GetEntityHistory(c.Request.Context(), "work_package_share", wp.ID, 100)
	if err != nil {
		h.Error(c, err)
		return
	}

	items := make([]dto.ShareAuditResponse, len(entries))
	for i, e := range entries {
		items[i] = dto.ShareAuditResponse{
			ID:          e.ID.String(),
			Action:      string(e.Action),
			PrincipalID: e.PrincipalID,
			Changes:     e.Changes,
			CreatedAt:   e.CreatedAt,
		}
	}

	c.JSON(http.StatusOK, dto.ListResponse{Items: items, Count: len(items)})
}

// GrantUser handles POST /work-packages/:wpId/shares/users
func (h *SharesHandler) GrantUser(c *gin.Context) {
	ctx := c.Request.Context()

	wp := middleware.ContextWorkPackage(c)
	if wp == nil {
		h.Error(c, apperror.NewInternal(nil).WithDetail("missing", "work_package"))
		return
	}

	var req dto.ShareRequest
	if !h.BindJSON(c, &req) {
		return
	}

	principal, role, err := h.loadShareTarget(c, req.PrincipalID, req.RoleID)
	if err != nil {
		h.Error(c, err)
		return
	}

	result, err := h.shares.GrantUserShare(ctx, principal, wp, role)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.logAudit(c, wp, postgres.AuditActionGrant, map[string]any{
		"principal_id": principal.ID.String(),
		"role_id":      role.ID.String(),
		"kind":         "user",
	})

	h.OK(c, dto.FromGrantResult(result))
}

// RevokeUser handles DELETE /work-packages/:wpId/shares/users/:principalId
func (h *SharesHandler) RevokeUser(c *gin.Context) {
	ctx := c.Request.Context()

	wp := middleware.ContextWorkPackage(c)
	if wp == nil {
		h.Error(c, apperror.NewInternal(nil).WithDetail("missing", "work_package"))
		return
	}

	principal, err := h.loadPrincipal(c, c.Param("principalId"))
	if err != nil {
		h.Error(c, err)
		return
	}

	if err := h.shares.RevokeUserShare(ctx, principal, wp); err != nil {
		h.Error(c, err)
		return
	}

	h.logAudit(c, wp, postgres.AuditActionRevoke, map[string]any{
		"principal_id": principal.ID.String(),
		"kind":         "user",
	})

	h.NoContent(c)
}

// GrantGroup handles POST /work-packages/:wpId/shares/groups
func (h *SharesHandler) GrantGroup(c *gin.Context) {
	ctx := c.Request.Context()

	wp := middleware.ContextWorkPackage(c)
	if wp == nil {
		h.Error(c, apperror.NewInternal(nil).WithDetail("missing", "work_package"))
		return
	}

	var req dto.ShareRequest
	if !h.BindJSON(c, &req) {
		return
	}

	group, role, err := h.loadShareTarget(c, req.PrincipalID, req.RoleID)
	if err != nil {
		h.Error(c, err)
		return
	}

	result, err := h.shares.GrantGroupShare(ctx, group, wp, role)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.logAudit(c, wp, postgres.AuditActionGrant, map[string]any{
		"principal_id": group.ID.String(),
		"role_id":      role.ID.String(),
		"kind":         "group",
		"members":      len(result.Members),
	})

	h.OK(c, dto.FromGroupGrantResult(result))
}

// ChangeGroupRole handles PUT /work-packages/:wpId/shares/groups
func (h *SharesHandler) ChangeGroupRole(c *gin.Context) {
	ctx := c.Request.Context()

	wp := middleware.ContextWorkPackage(c)
	if wp == nil {
		h.Error(c, apperror.NewInternal(nil).WithDetail("missing", "work_package"))
		return
	}

	var req dto.ChangeShareRoleRequest
	if !h.BindJSON(c, &req) {
		return
	}

	group, role, err := h.loadShareTarget(c, req.PrincipalID, req.RoleID)
	if err != nil {
		h.Error(c, err)
		return
	}

	result, err := h.shares.ChangeGroupShareRole(ctx, group, wp, role)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.logAudit(c, wp, postgres.AuditActionUpdate, map[string]any{
		"principal_id": group.ID.String(),
		"role_id":      role.ID.String(),
		"kind":         "group",
	})

	h.OK(c, dto.FromGroupGrantResult(result))
}

// RevokeGroup handles DELETE /work-packages/:wpId/shares/groups/:principalId
func (h *SharesHandler) RevokeGroup(c *gin.Context) {
	ctx := c.Request.Context()

	wp := middleware.ContextWorkPackage(c)
	if wp == nil {
		h.Error(c, apperror.NewInternal(nil).WithDetail("missing", "work_package"))
		return
	}

	group, err := h.loadPrincipal(c, c.Param("principalId"))
	if err != nil {
		h.Error(c, err)
		return
	}

	if err := h.shares.RevokeGroupShare(ctx, group, wp); err != nil {
		h.Error(c, err)
		return
	}

	h.logAudit(c, wp, postgres.AuditActionRevoke, map[string]any{
		"principal_id": group.ID.String(),
		"kind":         "group",
	})

	h.NoContent(c)
}

func (h *SharesHandler) loadShareTarget(c *gin.Context, rawPrincipalID, rawRoleID string) (*access.Principal, *access.Role, error) {
	principal, err := h.loadPrincipal(c, rawPrincipalID)
	if err != nil {
		return nil, nil, err
	}

	roleID, err := id.Parse(rawRoleID)
	if err != nil {
		return nil, nil, apperror.NewValidation("invalid role id").WithDetail("id", rawRoleID)
	}
	role, err := h.roles.GetByID(c.Request.Context(), roleID)
	if err != nil {
		return nil, nil, err
	}

	return principal, role, nil
}

func (h *SharesHandler) loadPrincipal(c *gin.Context, raw string) (*access.Principal, error) {
	principalID, err := id.Parse(raw)
	if err != nil {
		return nil, apperror.NewValidation("invalid principal id").WithDetail("id", raw)
	}
	return h.principals.GetByID(c.Request.Context(), principalID)
}
