package dto

import (
	"time"

	"authcore/internal/domain/access"
	"authcore/internal/domain/auth"
)

// LoginRequest for POST /auth/login.
type LoginRequest struct {
	Login    string `json:"login" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// ToCredentials converts to domain credentials.
func (r LoginRequest) ToCredentials() auth.Credentials {
	return auth.Credentials{Login: r.Login, Password: r.Password}
}

// RefreshTokenRequest for POST /auth/refresh.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

// TokenPairResponse carries issued tokens.
type TokenPairResponse struct {
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken"`
	ExpiresAt    time.Time `json:"expiresAt"`
	TokenType    string    `json:"tokenType"`
}

// FromTokenPair converts a domain token pair.
func FromTokenPair(t *auth.TokenPair) TokenPairResponse {
	return TokenPairResponse{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		ExpiresAt:    t.ExpiresAt,
		TokenType:    t.TokenType,
	}
}

// PrincipalResponse describes a principal.
type PrincipalResponse struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Kind   string `json:"kind"`
	Admin  bool   `json:"admin"`
	Active bool   `json:"active"`
	Locked bool   `json:"locked"`
}

// FromPrincipal converts a domain principal.
func FromPrincipal(p *access.Principal) PrincipalResponse {
	return PrincipalResponse{
		ID:     p.ID.String(),
		Name:   p.Name,
		Kind:   string(p.Kind),
		Admin:  p.Admin,
		Active: p.Active,
		Locked: p.Locked,
	}
}

// LoginResponse for successful login.
type LoginResponse struct {
	Tokens    TokenPairResponse `json:"tokens"`
	Principal PrincipalResponse `json:"principal"`
}
