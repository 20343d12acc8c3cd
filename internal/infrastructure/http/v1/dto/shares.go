package dto

import (
	"encoding/json"
	"time"

	"authcore/internal/domain/access"
)

// ShareRequest grants or updates a share for a principal on a work package.
type ShareRequest struct {
	PrincipalID string `json:"principalId" binding:"required"`
	RoleID      string `json:"roleId" binding:"required"`
}

// RevokeShareRequest removes a principal's share.
type RevokeShareRequest struct {
	PrincipalID string `json:"principalId" binding:"required"`
}

// ChangeShareRoleRequest changes the role of an existing group share.
type ChangeShareRoleRequest struct {
	PrincipalID string `json:"principalId" binding:"required"`
	RoleID      string `json:"roleId" binding:"required"`
}

// ShareResponse describes the outcome of a share mutation for one principal.
type ShareResponse struct {
	PrincipalID      string `json:"principalId"`
	MembershipID     string `json:"membershipId,omitempty"`
	RoleID           string `json:"roleId,omitempty"`
	Created          bool   `json:"created"`
	RoleChanged      bool   `json:"roleChanged"`
	FirstTimeVisible bool   `json:"firstTimeVisible"`
}

// FromGrantResult converts a domain grant result.
func FromGrantResult(r *access.GrantResult) ShareResponse {
	resp := ShareResponse{
		PrincipalID:      r.PrincipalID.String(),
		Created:          r.Created,
		RoleChanged:      r.RoleChanged,
		FirstTimeVisible: r.FirstTimeVisible,
	}
	if r.Membership != nil {
		resp.MembershipID = r.Membership.ID.String()
		resp.RoleID = r.Membership.RoleID.String()
	}
	return resp
}

// GroupShareResponse describes a group mutation and its per-member cascade.
type GroupShareResponse struct {
	Group   ShareResponse   `json:"group"`
	Members []ShareResponse `json:"members"`
}

// FromGroupGrantResult converts a domain group grant result.
func FromGroupGrantResult(r *access.GroupGrantResult) GroupShareResponse {
	members := make([]ShareResponse, len(r.Members))
	for i := range r.Members {
		members[i] = FromGrantResult(&r.Members[i])
	}
	return GroupShareResponse{
		Group:   FromGrantResult(&r.Group),
		Members: members,
	}
}

// EntityShareResponse lists a principal's share roles on a work package.
type EntityShareResponse struct {
	PrincipalID  string   `json:"principalId"`
	MembershipID string   `json:"membershipId"`
	RoleID       string   `json:"roleId"`
	RoleName     string   `json:"roleName"`
	Inherited    bool     `json:"inherited"`
	Permissions  []string `json:"permissions,omitempty"`
}

// FromRoleAssignment converts a resolved share assignment.
func FromRoleAssignment(a access.RoleAssignment) EntityShareResponse {
	resp := EntityShareResponse{
		RoleID:      a.Role.ID.String(),
		RoleName:    a.Role.Name,
		Inherited:   a.Inherited(),
		Permissions: a.Role.Permissions,
	}
	if a.Membership != nil {
		resp.PrincipalID = a.Membership.PrincipalID.String()
		resp.MembershipID = a.Membership.ID.String()
	}
	return resp
}

// ShareAuditResponse is one entry in a work package's share audit trail.
type ShareAuditResponse struct {
	ID          string          `json:"id"`
	Action      string          `json:"action"`
	PrincipalID string          `json:"principalId"`
	Changes     json.RawMessage `json:"changes,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
}
