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

// ProjectRepo implements access.ProjectRepository.
type ProjectRepo struct {
	txm *postgres.TxManager
}

var _ access.ProjectRepository = (*ProjectRepo)(nil)

// NewProjectRepo creates a new project repository.
func NewProjectRepo(txm *postgres.TxManager) *ProjectRepo {
	return &ProjectRepo{txm: txm}
}

// GetByID retrieves a project with its enabled modules.
func (r *ProjectRepo) GetByID(ctx context.Context, projectID id.ID) (*access.Project, error) {
	query := `
		SELECT p.id, p.identifier, p.name, p.active, p.public,
		       p.created_at, p.updated_at,
		       COALESCE(array_agg(pm.module ORDER BY pm.module)
		                FILTER (WHERE pm.module IS NOT NULL), '{}') AS modules
		FROM projects p
		LEFT JOIN project_modules pm ON pm.project_id = p.id
		WHERE p.id = $1
		GROUP BY p.id
	`

	var project access.Project
	err := r.txm.GetQuerier(ctx).QueryRow(ctx, query, projectID).Scan(
		&project.ID, &project.Identifier, &project.Name,
		&project.Active, &project.Public,
		&project.CreatedAt, &project.UpdatedAt, &project.Modules,
	)
	if err == pgx.ErrNoRows {
		return nil, apperror.NewNotFound("project", projectID.String())
	}
	if err != nil {
		return nil, fmt.Errorf("query project: %w", err)
	}
	return &project, nil
}
