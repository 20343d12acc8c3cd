// Package auth_repo provides PostgreSQL implementations for the auth
// domain repositories.
package auth_repo

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"authcore/internal/core/apperror"
	"authcore/internal/core/id"
	"authcore/internal/domain/auth"
	"authcore/internal/infrastructure/storage/postgres"
)

const credentialSelect = `
	SELECT id, principal_id, login, password_hash,
	       failed_login_attempts, locked_until, last_login_at,
	       created_at, updated_at
	FROM credentials
`

// CredentialRepo implements auth.CredentialRepository.
type CredentialRepo struct {
	txm *postgres.TxManager
}

var _ auth.CredentialRepository = (*CredentialRepo)(nil)

// NewCredentialRepo creates a new credential repository.
func NewCredentialRepo(txm *postgres.TxManager) *CredentialRepo {
	return &CredentialRepo{txm: txm}
}

// Create creates a credential record.
func (r *CredentialRepo) Create(ctx context.Context, cred *auth.Credential) error {
	query := `
		INSERT INTO credentials (
			id, principal_id, login, password_hash,
			failed_login_attempts, locked_until, last_login_at,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.txm.GetQuerier(ctx).Exec(ctx, query,
		cred.ID, cred.PrincipalID, cred.Login, cred.PasswordHash,
		cred.FailedLoginAttempts, cred.LockedUntil, cred.LastLoginAt,
		cred.CreatedAt, cred.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert credential: %w", err)
	}
	return nil
}

// GetByLogin retrieves a credential by login.
func (r *CredentialRepo) GetByLogin(ctx context.Context, login string) (*auth.Credential, error) {
	return r.get(ctx, credentialSelect+` WHERE login = $1`, login)
}

// GetByPrincipalID retrieves a credential by principal.
func (r *CredentialRepo) GetByPrincipalID(ctx context.Context, principalID id.ID) (*auth.Credential, error) {
	return r.get(ctx, credentialSelect+` WHERE principal_id = $1`, principalID)
}

// Update updates the authentication state of a credential.
func (r *CredentialRepo) Update(ctx context.Context, cred *auth.Credential) error {
	query := `
		UPDATE credentials
		SET login = $2, password_hash = $3,
		    failed_login_attempts = $4, locked_until = $5, last_login_at = $6,
		    updated_at = now()
		WHERE id = $1
	`
	_, err := r.txm.GetQuerier(ctx).Exec(ctx, query,
		cred.ID, cred.Login, cred.PasswordHash,
		cred.FailedLoginAttempts, cred.LockedUntil, cred.LastLoginAt,
	)
	if err != nil {
		return fmt.Errorf("update credential: %w", err)
	}
	return nil
}

func (r *CredentialRepo) get(ctx context.Context, query string, arg any) (*auth.Credential, error) {
	var cred auth.Credential
	err := r.txm.GetQuerier(ctx).QueryRow(ctx, query, arg).Scan(
		&cred.ID, &cred.PrincipalID, &cred.Login, &cred.PasswordHash,
		&cred.FailedLoginAttempts, &cred.LockedUntil, &cred.LastLoginAt,
		&cred.CreatedAt, &cred.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, apperror.NewNotFound("credential", arg)
	}
	if err != nil {
		return nil, fmt.Errorf("query credential: %w", err)
	}
	return &cred, nil
}
