package auth

import (
	"context"

	"authcore/internal/core/id"
)

// CredentialRepository defines credential storage operations.
type CredentialRepository interface {
	// Create creates a credential record.
	Create(ctx context.Context, cred *Credential) error

	// GetByLogin retrieves a credential by login.
	GetByLogin(ctx context.Context, login string) (*Credential, error)

	// GetByPrincipalID retrieves a credential by principal.
	GetByPrincipalID(ctx context.Context, principalID id.ID) (*Credential, error)

	// Update updates the authentication state of a credential.
	Update(ctx context.Context, cred *Credential) error
}

// TokenRepository defines refresh token storage operations.
type TokenRepository interface {
	// SaveRefreshToken saves a refresh token.
	SaveRefreshToken(ctx context.Context, token *RefreshToken) error

	// GetRefreshToken retrieves refresh token by hash.
	GetRefreshToken(ctx context.Context, tokenHash string) (*RefreshToken, error)

	// RevokeRefreshToken revokes a refresh token.
	RevokeRefreshToken(ctx context.Context, tokenID id.ID, reason string) error

	// RevokeAllPrincipalTokens revokes all tokens for a principal.
	RevokeAllPrincipalTokens(ctx context.Context, principalID id.ID, reason string) error

	// CleanupExpiredTokens removes expired tokens.
	CleanupExpiredTokens(ctx context.Context) (int, error)
}
