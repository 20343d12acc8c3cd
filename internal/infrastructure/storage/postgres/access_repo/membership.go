// Package access_repo provides PostgreSQL implementations for the access
// domain repositories.
package access_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"authcore/internal/core/id"
	"authcore/internal/domain/access"
	"authcore/internal/infrastructure/storage/postgres"
)

// membershipRow is the flat table shape; scope columns are nullable and
// folded back into access.Scope on read.
type membershipRow struct {
	ID            id.ID      `db:"id"`
	PrincipalID   id.ID      `db:"principal_id"`
	RoleID        id.ID      `db:"role_id"`
	ScopeKind     string     `db:"scope_kind"`
	ProjectID     *id.ID     `db:"project_id"`
	EntityID      *id.ID     `db:"entity_id"`
	InheritedFrom *id.ID     `db:"inherited_from"`
	CreatedAt     time.Time  `db:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at"`
}

var membershipCols = postgres.ExtractDBColumns[membershipRow]()

func (r membershipRow) toDomain() access.Membership {
	scope := access.Scope{Kind: access.ContextKind(r.ScopeKind)}
	if r.ProjectID != nil {
		scope.ProjectID = *r.ProjectID
	}
	if r.EntityID != nil {
		scope.EntityID = *r.EntityID
	}
	return access.Membership{
		ID:            r.ID,
		PrincipalID:   r.PrincipalID,
		RoleID:        r.RoleID,
		Scope:         scope,
		InheritedFrom: r.InheritedFrom,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

func toRow(m *access.Membership) membershipRow {
	row := membershipRow{
		ID:            m.ID,
		PrincipalID:   m.PrincipalID,
		RoleID:        m.RoleID,
		ScopeKind:     string(m.Scope.Kind),
		InheritedFrom: m.InheritedFrom,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
	if !id.IsNil(m.Scope.ProjectID) {
		projectID := m.Scope.ProjectID
		row.ProjectID = &projectID
	}
	if !id.IsNil(m.Scope.EntityID) {
		entityID := m.Scope.EntityID
		row.EntityID = &entityID
	}
	return row
}

// scopeEq builds the WHERE clause matching a scope. Unused dimensions match
// NULL, so a global scope never matches project rows.
func scopeEq(scope access.Scope) squirrel.Eq {
	eq := squirrel.Eq{
		"scope_kind": string(scope.Kind),
		"project_id": nil,
		"entity_id":  nil,
	}
	if !id.IsNil(scope.ProjectID) {
		eq["project_id"] = scope.ProjectID
	}
	if !id.IsNil(scope.EntityID) {
		eq["entity_id"] = scope.EntityID
	}
	return eq
}

// MembershipRepo implements access.MembershipRepository.
type MembershipRepo struct {
	txm *postgres.TxManager
}

var _ access.MembershipRepository = (*MembershipRepo)(nil)

// NewMembershipRepo creates a new membership repository.
func NewMembershipRepo(txm *postgres.TxManager) *MembershipRepo {
	return &MembershipRepo{txm: txm}
}

func (r *MembershipRepo) builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

// Create persists a membership.
func (r *MembershipRepo) Create(ctx context.Context, m *access.Membership) error {
	row := toRow(m)

	q := r.builder().
		Insert("memberships").
		SetMap(postgres.StructToMap(row))

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert membership: %w", err)
	}
	return nil
}

// UpdateRole changes the role of an existing membership.
func (r *MembershipRepo) UpdateRole(ctx context.Context, membershipID, roleID id.ID) error {
	query := `UPDATE memberships SET role_id = $2, updated_at = now() WHERE id = $1`

	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, query, membershipID, roleID); err != nil {
		return fmt.Errorf("update membership role: %w", err)
	}
	return nil
}

// Delete removes a membership by ID.
func (r *MembershipRepo) Delete(ctx context.Context, membershipID id.ID) error {
	query := `DELETE FROM memberships WHERE id = $1`

	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, query, membershipID); err != nil {
		return fmt.Errorf("delete membership: %w", err)
	}
	return nil
}

// DeleteInheritedFrom removes every membership propagated from sourceID.
func (r *MembershipRepo) DeleteInheritedFrom(ctx context.Context, sourceID id.ID) error {
	query := `DELETE FROM memberships WHERE inherited_from = $1`

	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, query, sourceID); err != nil {
		return fmt.Errorf("delete inherited memberships: %w", err)
	}
	return nil
}

// ListInheritedFrom lists memberships propagated from sourceID.
func (r *MembershipRepo) ListInheritedFrom(ctx context.Context, sourceID id.ID) ([]access.Membership, error) {
	q := r.builder().
		Select(membershipCols...).
		From("memberships").
		Where(squirrel.Eq{"inherited_from": sourceID}).
		OrderBy("created_at")

	return r.selectMemberships(ctx, q)
}

// FindDirect returns the principal's direct membership in the scope, or nil.
func (r *MembershipRepo) FindDirect(ctx context.Context, principalID id.ID, scope access.Scope) (*access.Membership, error) {
	q := r.builder().
		Select(membershipCols...).
		From("memberships").
		Where(squirrel.Eq{"principal_id": principalID}).
		Where(scopeEq(scope)).
		Where("inherited_from IS NULL")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var row membershipRow
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &row, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("query direct membership: %w", err)
	}

	m := row.toDomain()
	return &m, nil
}

// ListForPrincipal lists all memberships of the principal in the scope.
func (r *MembershipRepo) ListForPrincipal(ctx context.Context, principalID id.ID, scope access.Scope) ([]access.Membership, error) {
	q := r.builder().
		Select(membershipCols...).
		From("memberships").
		Where(squirrel.Eq{"principal_id": principalID}).
		Where(scopeEq(scope)).
		OrderBy("created_at")

	return r.selectMemberships(ctx, q)
}

// ListForScope lists all memberships in the scope.
func (r *MembershipRepo) ListForScope(ctx context.Context, scope access.Scope) ([]access.Membership, error) {
	q := r.builder().
		Select(membershipCols...).
		From("memberships").
		Where(scopeEq(scope)).
		OrderBy("created_at")

	return r.selectMemberships(ctx, q)
}

// HasAnyMembership reports whether the principal holds any membership.
func (r *MembershipRepo) HasAnyMembership(ctx context.Context, principalID id.ID) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM memberships WHERE principal_id = $1)`

	var exists bool
	err := r.txm.GetQuerier(ctx).QueryRow(ctx, query, principalID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("query membership existence: %w", err)
	}
	return exists, nil
}

func (r *MembershipRepo) selectMemberships(ctx context.Context, q squirrel.SelectBuilder) ([]access.Membership, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var rows []membershipRow
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("query memberships: %w", err)
	}

	memberships := make([]access.Membership, 0, len(rows))
	for _, row := range rows {
		memberships = append(memberships, row.toDomain())
	}
	return memberships, nil
}
