package auth

import (
	"time"

	"authcore/internal/core/apperror"
	"authcore/internal/core/id"
)

// Credential holds login secrets for a principal. Identity attributes
// (name, admin flag, active, locked) live on the principal record in the
// access domain; only the authentication state lives here.
type Credential struct {
	ID                  id.ID      `db:"id"`
	PrincipalID         id.ID      `db:"principal_id"`
	Login               string     `db:"login"`
	PasswordHash        string     `db:"password_hash"`
	FailedLoginAttempts int        `db:"failed_login_attempts"`
	LockedUntil         *time.Time `db:"locked_until"`
	LastLoginAt         *time.Time `db:"last_login_at"`
	CreatedAt           time.Time  `db:"created_at"`
	UpdatedAt           time.Time  `db:"updated_at"`
}

// NewCredential creates a credential for a principal.
func NewCredential(principalID id.ID, login, passwordHash string) *Credential {
	now := time.Now()
	return &Credential{
		ID:           id.New(),
		PrincipalID:  principalID,
		Login:        login,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// TemporarilyLocked reports whether the credential is under a failed-login
// lockout. Distinct from the administrative lock on the principal itself.
func (c *Credential) TemporarilyLocked() bool {
	if c.LockedUntil == nil {
		return false
	}
	return time.Now().Before(*c.LockedUntil)
}

// RecordFailedLogin increments the failed login counter.
func (c *Credential) RecordFailedLogin(maxAttempts int, lockDuration time.Duration) {
	c.FailedLoginAttempts++
	if c.FailedLoginAttempts >= maxAttempts {
		lockUntil := time.Now().Add(lockDuration)
		c.LockedUntil = &lockUntil
	}
}

// RecordSuccessfulLogin resets the failed login counter.
func (c *Credential) RecordSuccessfulLogin() {
	c.FailedLoginAttempts = 0
	c.LockedUntil = nil
	now := time.Now()
	c.LastLoginAt = &now
}

// RefreshToken represents a refresh token for JWT refresh.
type RefreshToken struct {
	ID            id.ID      `db:"id"`
	PrincipalID   id.ID      `db:"principal_id"`
	TokenHash     string     `db:"token_hash"`
	ExpiresAt     time.Time  `db:"expires_at"`
	CreatedAt     time.Time  `db:"created_at"`
	RevokedAt     *time.Time `db:"revoked_at"`
	RevokedReason string     `db:"revoked_reason"`
	UserAgent     string     `db:"user_agent"`
	IPAddress     string     `db:"ip_address"`
}

// IsValid checks if refresh token is valid.
func (t *RefreshToken) IsValid() bool {
	if t.RevokedAt != nil {
		return false
	}
	return time.Now().Before(t.ExpiresAt)
}

// TokenPair contains access and refresh tokens.
type TokenPair struct {
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken"`
	ExpiresAt    time.Time `json:"expiresAt"`
	TokenType    string    `json:"tokenType"`
}

// Credentials for login.
type Credentials struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

// Validate checks the login request shape.
func (c Credentials) Validate() error {
	if c.Login == "" {
		return apperror.NewValidation("login is required").WithDetail("field", "login")
	}
	if c.Password == "" {
		return apperror.NewValidation("password is required").WithDetail("field", "password")
	}
	return nil
}
