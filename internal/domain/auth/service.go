package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"authcore/internal/core/apperror"
	"authcore/internal/core/id"
	"authcore/internal/domain/access"
	"authcore/pkg/logger"
)

// ServiceConfig holds auth service configuration.
type ServiceConfig struct {
	MaxLoginAttempts   int
	LockDuration       time.Duration
	PasswordMinLength  int
	RefreshTokenExpiry time.Duration
}

// DefaultServiceConfig returns default configuration.
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		MaxLoginAttempts:   5,
		LockDuration:       15 * time.Minute,
		PasswordMinLength:  8,
		RefreshTokenExpiry: 7 * 24 * time.Hour,
	}
}

// Service authenticates principals and issues token pairs.
type Service struct {
	credRepo   CredentialRepository
	tokenRepo  TokenRepository
	principals access.PrincipalRepository
	jwtService *JWTService
	config     ServiceConfig
}

// NewService creates a new auth service.
func NewService(
	credRepo CredentialRepository,
	tokenRepo TokenRepository,
	principals access.PrincipalRepository,
	jwtService *JWTService,
	config ServiceConfig,
) *Service {
	return &Service{
		credRepo:   credRepo,
		tokenRepo:  tokenRepo,
		principals: principals,
		jwtService: jwtService,
		config:     config,
	}
}

// Login authenticates a principal and returns tokens.
func (s *Service) Login(ctx context.Context, creds Credentials) (*TokenPair, *access.Principal, error) {
	if err := creds.Validate(); err != nil {
		return nil, nil, err
	}

	cred, err := s.credRepo.GetByLogin(ctx, creds.Login)
	if err != nil {
		return nil, nil, apperror.NewUnauthorized("invalid credentials")
	}

	principal, err := s.principals.GetByID(ctx, cred.PrincipalID)
	if err != nil {
		return nil, nil, apperror.NewUnauthorized("invalid credentials")
	}

	if principal.Kind != access.PrincipalUser {
		return nil, nil, apperror.NewUnauthorized("invalid credentials")
	}
	if !principal.Active {
		return nil, nil, apperror.NewForbidden("account is disabled")
	}
	if principal.Locked {
		return nil, nil, apperror.NewForbidden("account is locked")
	}
	if cred.TemporarilyLocked() {
		return nil, nil, apperror.NewForbidden("account is temporarily locked")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(creds.Password)); err != nil {
		cred.RecordFailedLogin(s.config.MaxLoginAttempts, s.config.LockDuration)
		_ = s.credRepo.Update(ctx, cred)
		return nil, nil, apperror.NewUnauthorized("invalid credentials")
	}

	tokens, err := s.generateTokenPair(ctx, principal)
	if err != nil {
		return nil, nil, fmt.Errorf("generate tokens: %w", err)
	}

	cred.RecordSuccessfulLogin()
	_ = s.credRepo.Update(ctx, cred)

	logger.Info(ctx, "principal logged in",
		"principal_id", principal.ID,
		"login", cred.Login)

	return tokens, principal, nil
}

// RefreshToken refreshes access token using a refresh token.
func (s *Service) RefreshToken(ctx context.Context, refreshToken string) (*TokenPair, error) {
	tokenHash := hashToken(refreshToken)

	token, err := s.tokenRepo.GetRefreshToken(ctx, tokenHash)
	if err != nil {
		return nil, apperror.NewUnauthorized("invalid refresh token")
	}
	if !token.IsValid() {
		return nil, apperror.NewUnauthorized("refresh token expired or revoked")
	}

	principal, err := s.principals.GetByID(ctx, token.PrincipalID)
	if err != nil {
		return nil, apperror.NewUnauthorized("principal not found")
	}
	if !principal.Active || principal.Locked {
		return nil, apperror.NewForbidden("account is disabled or locked")
	}

	// Rotate: the old refresh token is single-use.
	_ = s.tokenRepo.RevokeRefreshToken(ctx, token.ID, "refreshed")

	return s.generateTokenPair(ctx, principal)
}

// Logout revokes all refresh tokens of a principal.
func (s *Service) Logout(ctx context.Context, principalID id.ID) error {
	return s.tokenRepo.RevokeAllPrincipalTokens(ctx, principalID, "logout")
}

// SetPassword creates or replaces a credential for a principal.
func (s *Service) SetPassword(ctx context.Context, principalID id.ID, login, password string) error {
	if len(password) < s.config.PasswordMinLength {
		return apperror.NewValidation(
			fmt.Sprintf("password must be at least %d characters", s.config.PasswordMinLength),
		).WithDetail("field", "password")
	}

	principal, err := s.principals.GetByID(ctx, principalID)
	if err != nil {
		return err
	}
	if principal.Kind != access.PrincipalUser {
		return apperror.NewValidation("only users can have credentials").
			WithDetail("kind", string(principal.Kind))
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	existing, err := s.credRepo.GetByPrincipalID(ctx, principalID)
	if err == nil && existing != nil {
		existing.Login = login
		existing.PasswordHash = string(passwordHash)
		existing.FailedLoginAttempts = 0
		existing.LockedUntil = nil
		return s.credRepo.Update(ctx, existing)
	}

	return s.credRepo.Create(ctx, NewCredential(principalID, login, string(passwordHash)))
}

// generateTokenPair creates access and refresh tokens.
func (s *Service) generateTokenPair(ctx context.Context, principal *access.Principal) (*TokenPair, error) {
	sessionID := id.New().String()

	accessToken, expiresAt, err := s.jwtService.GenerateAccessToken(
		principal.ID.String(), principal.Name, sessionID, principal.Admin,
	)
	if err != nil {
		return nil, fmt.Errorf("generate access token: %w", err)
	}

	refreshTokenRaw, err := generateRandomToken(32)
	if err != nil {
		return nil, fmt.Errorf("generate refresh token: %w", err)
	}

	refreshToken := &RefreshToken{
		ID:          id.New(),
		PrincipalID: principal.ID,
		TokenHash:   hashToken(refreshTokenRaw),
		ExpiresAt:   time.Now().Add(s.config.RefreshTokenExpiry),
		CreatedAt:   time.Now(),
	}

	if err := s.tokenRepo.SaveRefreshToken(ctx, refreshToken); err != nil {
		return nil, fmt.Errorf("save refresh token: %w", err)
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshTokenRaw,
		ExpiresAt:    expiresAt,
		TokenType:    "Bearer",
	}, nil
}

// hashToken creates SHA256 hash of token.
func hashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}

// generateRandomToken generates a random token string.
func generateRandomToken(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}
