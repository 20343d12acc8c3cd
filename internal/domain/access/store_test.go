package access

import (
	"context"
	"sync"

	"authcore/internal/core/apperror"
	"authcore/internal/core/id"
)

// memStore is an in-memory backend for the repository interfaces and
// tx.Manager used across the package tests. principalRepo and roleRepo are
// thin views over it; membership and transaction methods live on the store
// itself. Transactions snapshot the membership table and restore it on
// error.
type memStore struct {
	mu          sync.Mutex
	principals  map[id.ID]*Principal
	groupLinks  map[id.ID][]id.ID // group -> member IDs
	roles       map[id.ID]*Role
	memberships map[id.ID]*Membership

	calls map[string]int
}

func newMemStore() *memStore {
	return &memStore{
		principals:  make(map[id.ID]*Principal),
		groupLinks:  make(map[id.ID][]id.ID),
		roles:       make(map[id.ID]*Role),
		memberships: make(map[id.ID]*Membership),
		calls:       make(map[string]int),
	}
}

func (s *memStore) count(method string) {
	s.calls[method]++
}

func (s *memStore) addPrincipal(p *Principal) *Principal {
	s.principals[p.ID] = p
	return p
}

func (s *memStore) addRole(r *Role) *Role {
	s.roles[r.ID] = r
	return r
}

func (s *memStore) addMembership(m *Membership) *Membership {
	s.memberships[m.ID] = m
	return m
}

func (s *memStore) link(groupID, memberID id.ID) {
	s.groupLinks[groupID] = append(s.groupLinks[groupID], memberID)
}

type principalRepo struct {
	s *memStore
}

func (r principalRepo) GetByID(ctx context.Context, principalID id.ID) (*Principal, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.principals[principalID]
	if !ok {
		return nil, apperror.NewNotFound("principal", principalID.String())
	}
	cp := *p
	return &cp, nil
}

func (r principalRepo) GroupsOf(ctx context.Context, userID id.ID) ([]Principal, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var groups []Principal
	for groupID, members := range r.s.groupLinks {
		for _, m := range members {
			if m == userID {
				groups = append(groups, *r.s.principals[groupID])
			}
		}
	}
	return groups, nil
}

func (r principalRepo) MembersOf(ctx context.Context, groupID id.ID) ([]Principal, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var members []Principal
	for _, memberID := range r.s.groupLinks[groupID] {
		members = append(members, *r.s.principals[memberID])
	}
	return members, nil
}

type roleRepo struct {
	s *memStore
}

func (r roleRepo) GetByID(ctx context.Context, roleID id.ID) (*Role, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.count("RoleGetByID")
	role, ok := r.s.roles[roleID]
	if !ok {
		return nil, apperror.NewNotFound("role", roleID.String())
	}
	cp := *role
	return &cp, nil
}

func (r roleRepo) GetByName(ctx context.Context, name string) (*Role, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, role := range r.s.roles {
		if role.Name == name {
			cp := *role
			return &cp, nil
		}
	}
	return nil, apperror.NewNotFound("role", name)
}

func (r roleRepo) Builtin(ctx context.Context, builtin Builtin) (*Role, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.count("Builtin")
	for _, role := range r.s.roles {
		if role.Builtin == builtin && builtin != BuiltinNone {
			cp := *role
			return &cp, nil
		}
	}
	return nil, nil
}

func (r roleRepo) List(ctx context.Context) ([]Role, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	roles := make([]Role, 0, len(r.s.roles))
	for _, role := range r.s.roles {
		roles = append(roles, *role)
	}
	return roles, nil
}

// MembershipRepository

func (s *memStore) Create(ctx context.Context, m *Membership) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.count("Create")
	cp := *m
	s.memberships[m.ID] = &cp
	return nil
}

func (s *memStore) UpdateRole(ctx context.Context, membershipID, roleID id.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.count("UpdateRole")
	m, ok := s.memberships[membershipID]
	if !ok {
		return apperror.NewNotFound("membership", membershipID.String())
	}
	m.RoleID = roleID
	return nil
}

func (s *memStore) Delete(ctx context.Context, membershipID id.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.count("Delete")
	delete(s.memberships, membershipID)
	return nil
}

func (s *memStore) DeleteInheritedFrom(ctx context.Context, sourceID id.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for mid, m := range s.memberships {
		if m.InheritedFrom != nil && *m.InheritedFrom == sourceID {
			delete(s.memberships, mid)
		}
	}
	return nil
}

func (s *memStore) ListInheritedFrom(ctx context.Context, sourceID id.ID) ([]Membership, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Membership
	for _, m := range s.memberships {
		if m.InheritedFrom != nil && *m.InheritedFrom == sourceID {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (s *memStore) FindDirect(ctx context.Context, principalID id.ID, scope Scope) (*Membership, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.memberships {
		if m.PrincipalID == principalID && m.Scope == scope && !m.Inherited() {
			cp := *m
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *memStore) ListForPrincipal(ctx context.Context, principalID id.ID, scope Scope) ([]Membership, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.count("ListForPrincipal")
	var out []Membership
	for _, m := range s.memberships {
		if m.PrincipalID == principalID && m.Scope == scope {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (s *memStore) ListForScope(ctx context.Context, scope Scope) ([]Membership, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Membership
	for _, m := range s.memberships {
		if m.Scope == scope {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (s *memStore) HasAnyMembership(ctx context.Context, principalID id.ID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.memberships {
		if m.PrincipalID == principalID {
			return true, nil
		}
	}
	return false, nil
}

// tx.Manager

func (s *memStore) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	s.mu.Lock()
	snapshot := make(map[id.ID]*Membership, len(s.memberships))
	for mid, m := range s.memberships {
		cp := *m
		snapshot[mid] = &cp
	}
	s.mu.Unlock()

	if err := fn(ctx); err != nil {
		s.mu.Lock()
		s.memberships = snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

// fixture wires the whole service graph over one store.
type fixture struct {
	store     *memStore
	catalog   *Catalog
	shares    *ShareService
	resolver  *RoleResolver
	evaluator *GrantEvaluator
}

func newFixture() *fixture {
	store := newMemStore()
	catalog := DefaultCatalog()
	shares := NewShareService(principalRepo{store}, roleRepo{store}, store, store)
	resolver := NewRoleResolver(roleRepo{store}, store, shares)
	return &fixture{
		store:     store,
		catalog:   catalog,
		shares:    shares,
		resolver:  resolver,
		evaluator: NewGrantEvaluator(catalog, resolver),
	}
}

func (f *fixture) user(name string) *Principal {
	return f.store.addPrincipal(&Principal{
		ID:     id.New(),
		Name:   name,
		Kind:   PrincipalUser,
		Active: true,
	})
}

func (f *fixture) admin(name string) *Principal {
	p := f.user(name)
	p.Admin = true
	return p
}

func (f *fixture) group(name string) *Principal {
	return f.store.addPrincipal(&Principal{
		ID:     id.New(),
		Name:   name,
		Kind:   PrincipalGroup,
		Active: true,
	})
}

func (f *fixture) role(name string, kind RoleKind, permissions ...string) *Role {
	role, err := NewRole(f.catalog, name, kind, permissions...)
	if err != nil {
		panic(err)
	}
	return f.store.addRole(role)
}

func (f *fixture) builtinRole(builtin Builtin, name string, permissions ...string) *Role {
	role, err := NewBuiltinRole(f.catalog, builtin, name, permissions...)
	if err != nil {
		panic(err)
	}
	return f.store.addRole(role)
}

func (f *fixture) project(name string, active, public bool, modules ...string) *Project {
	return &Project{
		ID:         id.New(),
		Identifier: name,
		Name:       name,
		Active:     active,
		Public:     public,
		Modules:    modules,
	}
}

func (f *fixture) workPackage(project *Project, subject string) *WorkPackage {
	return &WorkPackage{
		ID:        id.New(),
		ProjectID: project.ID,
		Subject:   subject,
	}
}
