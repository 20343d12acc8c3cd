package access

import (
	"testing"

	"authcore/internal/core/id"
)

func TestSessionDecisionCache(t *testing.T) {
	s := NewSession(id.New())
	perms := []Permission{{Name: "view_work_packages"}, {Name: "edit_work_packages"}}

	if _, ok := s.CachedDecision("project:x", perms); ok {
		t.Fatal("empty session should miss")
	}

	s.StoreDecision("project:x", perms, true)

	allowed, ok := s.CachedDecision("project:x", perms)
	if !ok || !allowed {
		t.Error("stored decision should be returned")
	}

	// Permission order does not matter for the key.
	reversed := []Permission{perms[1], perms[0]}
	if _, ok := s.CachedDecision("project:x", reversed); !ok {
		t.Error("decision key must be order-insensitive")
	}

	// Other contexts and other permission sets miss.
	if _, ok := s.CachedDecision("project:y", perms); ok {
		t.Error("different context must miss")
	}
	if _, ok := s.CachedDecision("project:x", perms[:1]); ok {
		t.Error("different permission set must miss")
	}
}

func TestSessionNilSafe(t *testing.T) {
	var s *Session

	if _, ok := s.CachedDecision("k", nil); ok {
		t.Error("nil session must miss")
	}
	s.StoreDecision("k", nil, true)
	if _, ok := s.cachedAssignments("k"); ok {
		t.Error("nil session must miss")
	}
	s.storeAssignments("k", nil)
	if s.matches(id.New()) {
		t.Error("nil session matches nobody")
	}
}

func TestSessionMatches(t *testing.T) {
	principalID := id.New()
	s := NewSession(principalID)

	if !s.matches(principalID) {
		t.Error("session should match its principal")
	}
	if s.matches(id.New()) {
		t.Error("session must not match another principal")
	}
}
