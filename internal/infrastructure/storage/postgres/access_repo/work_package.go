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

// WorkPackageRepo implements access.WorkPackageRepository.
type WorkPackageRepo struct {
	txm *postgres.TxManager
}

var _ access.WorkPackageRepository = (*WorkPackageRepo)(nil)

// NewWorkPackageRepo creates a new work package repository.
func NewWorkPackageRepo(txm *postgres.TxManager) *WorkPackageRepo {
	return &WorkPackageRepo{txm: txm}
}

// GetByID retrieves a work package.
func (r *WorkPackageRepo) GetByID(ctx context.Context, workPackageID id.ID) (*access.WorkPackage, error) {
	query := `
		SELECT id, project_id, subject, created_at, updated_at
		FROM work_packages
		WHERE id = $1
	`

	var wp access.WorkPackage
	err := r.txm.GetQuerier(ctx).QueryRow(ctx, query, workPackageID).Scan(
		&wp.ID, &wp.ProjectID, &wp.Subject, &wp.CreatedAt, &wp.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, apperror.NewNotFound("work_package", workPackageID.String())
	}
	if err != nil {
		return nil, fmt.Errorf("query work package: %w", err)
	}
	return &wp, nil
}
