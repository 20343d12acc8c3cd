package access_repo

import (
	"context"
	"fmt"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"

	"authcore/internal/core/apperror"
	"authcore/internal/core/id"
	"authcore/internal/domain/access"
	"authcore/internal/infrastructure/storage/postgres"
)

// PrincipalRepo implements access.PrincipalRepository. Principals are owned
// by the identity subsystem; this repository only reads them.
type PrincipalRepo struct {
	txm *postgres.TxManager
}

var _ access.PrincipalRepository = (*PrincipalRepo)(nil)

// NewPrincipalRepo creates a new principal repository.
func NewPrincipalRepo(txm *postgres.TxManager) *PrincipalRepo {
	return &PrincipalRepo{txm: txm}
}

// GetByID retrieves a principal by ID.
func (r *PrincipalRepo) GetByID(ctx context.Context, principalID id.ID) (*access.Principal, error) {
	query := `
		SELECT id, name, kind, admin, active, locked, created_at, updated_at
		FROM principals WHERE id = $1
	`

	var p access.Principal
	err := r.txm.GetQuerier(ctx).QueryRow(ctx, query, principalID).Scan(
		&p.ID, &p.Name, &p.Kind, &p.Admin, &p.Active, &p.Locked,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, apperror.NewNotFound("principal", principalID.String())
	}
	if err != nil {
		return nil, fmt.Errorf("query principal: %w", err)
	}

	return &p, nil
}

// GroupsOf lists the groups a user belongs to.
func (r *PrincipalRepo) GroupsOf(ctx context.Context, userID id.ID) ([]access.Principal, error) {
	query := `
		SELECT p.id, p.name, p.kind, p.admin, p.active, p.locked, p.created_at, p.updated_at
		FROM principals p
		JOIN group_users gu ON gu.group_id = p.id
		WHERE gu.user_id = $1
		ORDER BY p.name
	`

	var groups []access.Principal
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &groups, query, userID); err != nil {
		return nil, fmt.Errorf("query groups: %w", err)
	}
	return groups, nil
}

// MembersOf lists the members of a group.
func (r *PrincipalRepo) MembersOf(ctx context.Context, groupID id.ID) ([]access.Principal, error) {
	query := `
		SELECT p.id, p.name, p.kind, p.admin, p.active, p.locked, p.created_at, p.updated_at
		FROM principals p
		JOIN group_users gu ON gu.user_id = p.id
		WHERE gu.group_id = $1
		ORDER BY p.name
	`

	var members []access.Principal
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &members, query, groupID); err != nil {
		return nil, fmt.Errorf("query group members: %w", err)
	}
	return members, nil
}
