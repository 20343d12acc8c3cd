package access

import (
	"time"

	"authcore/internal/core/id"
)

// PrincipalKind distinguishes the actor types subject to authorization.
type PrincipalKind string

const (
	PrincipalUser      PrincipalKind = "user"
	PrincipalGroup     PrincipalKind = "group"
	PrincipalAnonymous PrincipalKind = "anonymous"
	PrincipalSystem    PrincipalKind = "system"
)

// Principal is a user, group or system/anonymous actor.
// The identity subsystem owns principal lifecycle; the engine only reads
// principal state.
type Principal struct {
	ID        id.ID         `db:"id" json:"id"`
	Name      string        `db:"name" json:"name"`
	Kind      PrincipalKind `db:"kind" json:"kind"`
	Admin     bool          `db:"admin" json:"admin"`
	Active    bool          `db:"active" json:"active"`
	Locked    bool          `db:"locked" json:"locked"`
	CreatedAt time.Time     `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time     `db:"updated_at" json:"updatedAt"`
}

// Anonymous reports whether the principal is the unauthenticated actor.
func (p *Principal) Anonymous() bool {
	return p.Kind == PrincipalAnonymous
}

// Group reports whether the principal is a group.
func (p *Principal) Group() bool {
	return p.Kind == PrincipalGroup
}

// AnonymousPrincipal returns the singleton unauthenticated actor.
// It is never persisted; checks against it use built-in roles only.
func AnonymousPrincipal() *Principal {
	return &Principal{
		ID:     id.Nil(),
		Name:   "Anonymous",
		Kind:   PrincipalAnonymous,
		Active: true,
	}
}
