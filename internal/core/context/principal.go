// Package context provides request-scoped values extraction.
package context

import (
	"context"
)

// PrincipalContext contains the authenticated principal's claims.
// It carries identity only; authorization decisions are always made
// against the persisted principal record, never against these claims.
type PrincipalContext struct {
	PrincipalID string
	Name        string
	Admin       bool
	SessionID   string
}

type principalContextKey struct{}

// WithPrincipal adds PrincipalContext to context.
func WithPrincipal(ctx context.Context, principal *PrincipalContext) context.Context {
	return context.WithValue(ctx, principalContextKey{}, principal)
}

// GetPrincipal returns PrincipalContext from context.
func GetPrincipal(ctx context.Context) *PrincipalContext {
	if v, ok := ctx.Value(principalContextKey{}).(*PrincipalContext); ok {
		return v
	}
	return nil
}

// GetPrincipalID returns principal ID from context or empty string.
func GetPrincipalID(ctx context.Context) string {
	if p := GetPrincipal(ctx); p != nil {
		return p.PrincipalID
	}
	return ""
}
