package access

import (
	"sort"
	"strings"
	"sync"

	"authcore/internal/core/id"
)

// Session memoizes authorization work for a single evaluation session, e.g.
// one web request or one batch operation. It is bound to one principal and
// must be discarded at the end of the session. It is a snapshot, not a live
// view: concurrent membership mutations elsewhere do not invalidate it.
type Session struct {
	principalID id.ID

	mu          sync.Mutex
	decisions   map[string]bool
	assignments map[string][]RoleAssignment
}

// NewSession creates a session for the given principal.
func NewSession(principalID id.ID) *Session {
	return &Session{
		principalID: principalID,
		decisions:   make(map[string]bool),
		assignments: make(map[string][]RoleAssignment),
	}
}

// PrincipalID returns the principal this session belongs to.
func (s *Session) PrincipalID() id.ID {
	return s.principalID
}

// CachedDecision returns a memoized decision for the (context, permission
// set) pair. The second result is false when nothing is cached.
func (s *Session) CachedDecision(contextKey string, perms []Permission) (bool, bool) {
	if s == nil {
		return false, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	allowed, ok := s.decisions[decisionKey(contextKey, perms)]
	return allowed, ok
}

// StoreDecision memoizes a decision for the (context, permission set) pair.
func (s *Session) StoreDecision(contextKey string, perms []Permission, allowed bool) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.decisions[decisionKey(contextKey, perms)] = allowed
}

// cachedAssignments returns memoized role assignments for a scope key.
// Rendering a list of fifty work packages in one project must compute the
// project role union once, not fifty times.
func (s *Session) cachedAssignments(scopeKey string) ([]RoleAssignment, bool) {
	if s == nil {
		return nil, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	assignments, ok := s.assignments[scopeKey]
	return assignments, ok
}

// storeAssignments memoizes role assignments for a scope key.
func (s *Session) storeAssignments(scopeKey string, assignments []RoleAssignment) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assignments[scopeKey] = assignments
}

// matches reports whether the session belongs to the principal.
// A session must never be reused across principals.
func (s *Session) matches(principalID id.ID) bool {
	return s != nil && s.principalID == principalID
}

func decisionKey(contextKey string, perms []Permission) string {
	names := make([]string, len(perms))
	for i, p := range perms {
		names[i] = p.Name
	}
	sort.Strings(names)
	return contextKey + "|" + strings.Join(names, ",")
}
