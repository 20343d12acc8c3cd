package access_repo

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"authcore/internal/core/apperror"
	"authcore/internal/core/id"
	"authcore/internal/domain/access"
	"authcore/internal/infrastructure/storage/postgres"
)

// roleSelect aggregates the permission set in one round-trip; roles are
// small and always used together with their permissions.
const roleSelect = `
	SELECT r.id, r.name, r.kind, r.builtin, r.created_at, r.updated_at,
	       COALESCE(array_agg(rp.permission ORDER BY rp.permission)
	                FILTER (WHERE rp.permission IS NOT NULL), '{}') AS permissions
	FROM roles r
	LEFT JOIN role_permissions rp ON rp.role_id = r.id
`

// RoleRepo implements access.RoleRepository.
type RoleRepo struct {
	txm *postgres.TxManager
}

var _ access.RoleRepository = (*RoleRepo)(nil)

// NewRoleRepo creates a new role repository.
func NewRoleRepo(txm *postgres.TxManager) *RoleRepo {
	return &RoleRepo{txm: txm}
}

// Create persists a role with its permission set.
func (r *RoleRepo) Create(ctx context.Context, role *access.Role) error {
	q := r.txm.GetQuerier(ctx)

	query := `
		INSERT INTO roles (id, name, kind, builtin, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := q.Exec(ctx, query,
		role.ID, role.Name, role.Kind, role.Builtin, role.CreatedAt, role.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert role: %w", err)
	}

	for _, perm := range role.Permissions {
		_, err := q.Exec(ctx,
			`INSERT INTO role_permissions (role_id, permission) VALUES ($1, $2)`,
			role.ID, perm,
		)
		if err != nil {
			return fmt.Errorf("insert role permission: %w", err)
		}
	}
	return nil
}

// GetByID retrieves a role with its permission set.
func (r *RoleRepo) GetByID(ctx context.Context, roleID id.ID) (*access.Role, error) {
	query := roleSelect + ` WHERE r.id = $1 GROUP BY r.id`

	role, err := r.scanRole(r.txm.GetQuerier(ctx).QueryRow(ctx, query, roleID))
	if err == pgx.ErrNoRows {
		return nil, apperror.NewNotFound("role", roleID.String())
	}
	if err != nil {
		return nil, fmt.Errorf("query role: %w", err)
	}
	return role, nil
}

// GetByName retrieves a role by name.
func (r *RoleRepo) GetByName(ctx context.Context, name string) (*access.Role, error) {
	query := roleSelect + ` WHERE r.name = $1 GROUP BY r.id`

	role, err := r.scanRole(r.txm.GetQuerier(ctx).QueryRow(ctx, query, name))
	if err == pgx.ErrNoRows {
		return nil, apperror.NewNotFound("role", name)
	}
	if err != nil {
		return nil, fmt.Errorf("query role: %w", err)
	}
	return role, nil
}

// Builtin retrieves one of the automatically applied roles, or nil when the
// installation does not define it.
func (r *RoleRepo) Builtin(ctx context.Context, builtin access.Builtin) (*access.Role, error) {
	if builtin == access.BuiltinNone {
		return nil, nil
	}

	query := roleSelect + ` WHERE r.builtin = $1 GROUP BY r.id`

	role, err := r.scanRole(r.txm.GetQuerier(ctx).QueryRow(ctx, query, builtin))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query builtin role: %w", err)
	}
	return role, nil
}

// List retrieves all roles.
func (r *RoleRepo) List(ctx context.Context) ([]access.Role, error) {
	query := roleSelect + ` GROUP BY r.id ORDER BY r.name`

	rows, err := r.txm.GetQuerier(ctx).Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query roles: %w", err)
	}
	defer rows.Close()

	var roles []access.Role
	for rows.Next() {
		role, err := r.scanRole(rows)
		if err != nil {
			return nil, fmt.Errorf("scan role: %w", err)
		}
		roles = append(roles, *role)
	}
	return roles, rows.Err()
}

func (r *RoleRepo) scanRole(row pgx.Row) (*access.Role, error) {
	var role access.Role
	err := row.Scan(
		&role.ID, &role.Name, &role.Kind, &role.Builtin,
		&role.CreatedAt, &role.UpdatedAt, &role.Permissions,
	)
	if err != nil {
		return nil, err
	}
	return &role, nil
}
