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

// TokenRepo implements auth.TokenRepository.
type TokenRepo struct {
	txm *postgres.TxManager
}

var _ auth.TokenRepository = (*TokenRepo)(nil)

// NewTokenRepo creates a new refresh token repository.
func NewTokenRepo(txm *postgres.TxManager) *TokenRepo {
	return &TokenRepo{txm: txm}
}

// SaveRefreshToken saves a refresh token.
func (r *TokenRepo) SaveRefreshToken(ctx context.Context, token *auth.RefreshToken) error {
	query := `
		INSERT INTO refresh_tokens (
			id, principal_id, token_hash, expires_at, created_at,
			revoked_at, revoked_reason, user_agent, ip_address
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.txm.GetQuerier(ctx).Exec(ctx, query,
		token.ID, token.PrincipalID, token.TokenHash, token.ExpiresAt, token.CreatedAt,
		token.RevokedAt, token.RevokedReason, token.UserAgent, token.IPAddress,
	)
	if err != nil {
		return fmt.Errorf("insert refresh token: %w", err)
	}
	return nil
}

// GetRefreshToken retrieves refresh token by hash.
func (r *TokenRepo) GetRefreshToken(ctx context.Context, tokenHash string) (*auth.RefreshToken, error) {
	query := `
		SELECT id, principal_id, token_hash, expires_at, created_at,
		       revoked_at, COALESCE(revoked_reason, ''),
		       COALESCE(user_agent, ''), COALESCE(ip_address, '')
		FROM refresh_tokens
		WHERE token_hash = $1
	`

	var token auth.RefreshToken
	err := r.txm.GetQuerier(ctx).QueryRow(ctx, query, tokenHash).Scan(
		&token.ID, &token.PrincipalID, &token.TokenHash, &token.ExpiresAt, &token.CreatedAt,
		&token.RevokedAt, &token.RevokedReason, &token.UserAgent, &token.IPAddress,
	)
	if err == pgx.ErrNoRows {
		return nil, apperror.NewNotFound("refresh_token", "hash")
	}
	if err != nil {
		return nil, fmt.Errorf("query refresh token: %w", err)
	}
	return &token, nil
}

// RevokeRefreshToken revokes a refresh token.
func (r *TokenRepo) RevokeRefreshToken(ctx context.Context, tokenID id.ID, reason string) error {
	query := `
		UPDATE refresh_tokens
		SET revoked_at = now(), revoked_reason = $2
		WHERE id = $1 AND revoked_at IS NULL
	`
	_, err := r.txm.GetQuerier(ctx).Exec(ctx, query, tokenID, reason)
	if err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	return nil
}

// RevokeAllPrincipalTokens revokes all tokens for a principal.
func (r *TokenRepo) RevokeAllPrincipalTokens(ctx context.Context, principalID id.ID, reason string) error {
	query := `
		UPDATE refresh_tokens
		SET revoked_at = now(), revoked_reason = $2
		WHERE principal_id = $1 AND revoked_at IS NULL
	`
	_, err := r.txm.GetQuerier(ctx).Exec(ctx, query, principalID, reason)
	if err != nil {
		return fmt.Errorf("revoke principal tokens: %w", err)
	}
	return nil
}

// CleanupExpiredTokens removes expired tokens.
func (r *TokenRepo) CleanupExpiredTokens(ctx context.Context) (int, error) {
	tag, err := r.txm.GetQuerier(ctx).Exec(ctx,
		`DELETE FROM refresh_tokens WHERE expires_at < now()`,
	)
	if err != nil {
		return 0, fmt.Errorf("cleanup refresh tokens: %w", err)
	}
	return int(tag.RowsAffected()), nil
}
