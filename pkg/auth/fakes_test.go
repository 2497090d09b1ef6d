package auth_test

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/veridian-labs/veridian/pkg/identity"
	"github.com/veridian-labs/veridian/pkg/kernel"
)

// fakeState is an in-memory identity store shared by the per-port fakes.
// It mirrors the store's uniqueness constraints so conflict paths behave
// like the real adapter.
type fakeState struct {
	mu        sync.Mutex
	users     map[string]*identity.User
	roles     map[string]*identity.Role // keyed by lowercase name
	userRoles map[string][]kernel.RoleID
	links     []*identity.ProviderLink
}

func newFakeState() *fakeState {
	return &fakeState{
		users:     make(map[string]*identity.User),
		roles:     make(map[string]*identity.Role),
		userRoles: make(map[string][]kernel.RoleID),
	}
}

func (s *fakeState) addRole(name string) *identity.Role {
	s.mu.Lock()
	defer s.mu.Unlock()
	role := &identity.Role{ID: kernel.NewRoleID(uuid.NewString()), Name: name, CreatedAt: time.Now()}
	s.roles[strings.ToLower(name)] = role
	return role
}

func (s *fakeState) addUser(email, username string, passwordHash *string) *identity.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	user := &identity.User{
		ID:           kernel.NewUserID(uuid.NewString()),
		Email:        strings.ToLower(email),
		Username:     username,
		PasswordHash: passwordHash,
	}
	s.users[user.ID.String()] = user
	return user
}

func (s *fakeState) addLink(userID kernel.UserID, provider, providerUserID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.links = append(s.links, &identity.ProviderLink{
		ID:             uuid.NewString(),
		UserID:         userID,
		Provider:       provider,
		ProviderUserID: providerUserID,
	})
}

func (s *fakeState) assign(userID kernel.UserID, roleID kernel.RoleID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.userRoles[userID.String()] = append(s.userRoles[userID.String()], roleID)
}

func (s *fakeState) linkCount(userID kernel.UserID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, l := range s.links {
		if l.UserID == userID {
			n++
		}
	}
	return n
}

// --- UserRepository ---

type fakeUsers struct{ s *fakeState }

func (f *fakeUsers) FindByID(_ context.Context, id kernel.UserID) (*identity.User, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	user, ok := f.s.users[id.String()]
	if !ok || user.IsDeleted() {
		return nil, identity.ErrUserNotFound()
	}
	clone := *user
	return &clone, nil
}

func (f *fakeUsers) FindByEmail(_ context.Context, email string) (*identity.User, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, user := range f.s.users {
		if strings.EqualFold(user.Email, email) && !user.IsDeleted() {
			clone := *user
			return &clone, nil
		}
	}
	return nil, identity.ErrUserNotFound()
}

func (f *fakeUsers) Create(_ context.Context, user *identity.User) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, existing := range f.s.users {
		if strings.EqualFold(existing.Email, user.Email) {
			return identity.ErrDuplicateEmail()
		}
	}
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	clone := *user
	f.s.users[user.ID.String()] = &clone
	return nil
}

func (f *fakeUsers) Update(_ context.Context, user *identity.User) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if _, ok := f.s.users[user.ID.String()]; !ok {
		return identity.ErrUserNotFound()
	}
	clone := *user
	f.s.users[user.ID.String()] = &clone
	return nil
}

func (f *fakeUsers) SoftDelete(_ context.Context, id kernel.UserID) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	user, ok := f.s.users[id.String()]
	if !ok || user.IsDeleted() {
		return identity.ErrUserNotFound()
	}
	now := time.Now()
	user.DeletedAt = &now
	return nil
}

func (f *fakeUsers) Restore(_ context.Context, id kernel.UserID) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	user, ok := f.s.users[id.String()]
	if !ok || !user.IsDeleted() {
		return identity.ErrUserNotFound()
	}
	user.DeletedAt = nil
	return nil
}

func (f *fakeUsers) HardDelete(_ context.Context, id kernel.UserID) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if _, ok := f.s.users[id.String()]; !ok {
		return identity.ErrUserNotFound()
	}
	delete(f.s.users, id.String())
	return nil
}

// --- RoleRepository ---

type fakeRoles struct{ s *fakeState }

func (f *fakeRoles) FindByName(_ context.Context, name string) (*identity.Role, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	role, ok := f.s.roles[strings.ToLower(name)]
	if !ok {
		return nil, identity.ErrRoleNotFound()
	}
	return role, nil
}

func (f *fakeRoles) Create(_ context.Context, role *identity.Role) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	key := strings.ToLower(role.Name)
	if _, ok := f.s.roles[key]; ok {
		return identity.ErrDuplicateRole()
	}
	f.s.roles[key] = role
	return nil
}

func (f *fakeRoles) FindByUser(_ context.Context, userID kernel.UserID) ([]identity.Role, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var out []identity.Role
	for _, roleID := range f.s.userRoles[userID.String()] {
		for _, role := range f.s.roles {
			if role.ID == roleID {
				out = append(out, *role)
			}
		}
	}
	return out, nil
}

// --- UserRoleRepository ---

type fakeUserRoles struct{ s *fakeState }

func (f *fakeUserRoles) Create(_ context.Context, assignment *identity.UserRole) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, roleID := range f.s.userRoles[assignment.UserID.String()] {
		if roleID == assignment.RoleID {
			return identity.ErrDuplicateRole()
		}
	}
	f.s.userRoles[assignment.UserID.String()] = append(f.s.userRoles[assignment.UserID.String()], assignment.RoleID)
	return nil
}

func (f *fakeUserRoles) Find(_ context.Context, userID kernel.UserID, roleID kernel.RoleID) (*identity.UserRole, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, id := range f.s.userRoles[userID.String()] {
		if id == roleID {
			return &identity.UserRole{UserID: userID, RoleID: roleID}, nil
		}
	}
	return nil, identity.ErrRoleNotFound()
}

// --- ProviderLinkRepository ---

type fakeLinks struct{ s *fakeState }

func (f *fakeLinks) Find(_ context.Context, userID kernel.UserID, provider string) (*identity.ProviderLink, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, l := range f.s.links {
		if l.UserID == userID && l.Provider == provider {
			clone := *l
			return &clone, nil
		}
	}
	return nil, identity.ErrLinkNotFound()
}

func (f *fakeLinks) FindByProviderID(_ context.Context, provider, providerUserID string) (*identity.ProviderLink, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, l := range f.s.links {
		if l.Provider == provider && l.ProviderUserID == providerUserID {
			clone := *l
			return &clone, nil
		}
	}
	return nil, identity.ErrLinkNotFound()
}

func (f *fakeLinks) Create(_ context.Context, link *identity.ProviderLink) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, l := range f.s.links {
		if l.UserID == link.UserID && l.Provider == link.Provider {
			return identity.ErrDuplicateLink()
		}
		if l.Provider == link.Provider && l.ProviderUserID == link.ProviderUserID {
			return identity.ErrDuplicateLink()
		}
	}
	clone := *link
	f.s.links = append(f.s.links, &clone)
	return nil
}

func (f *fakeLinks) Delete(_ context.Context, userID kernel.UserID, provider string) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for i, l := range f.s.links {
		if l.UserID == userID && l.Provider == provider {
			f.s.links = append(f.s.links[:i], f.s.links[i+1:]...)
			return nil
		}
	}
	return identity.ErrLinkNotFound()
}

func (f *fakeLinks) CountExcluding(_ context.Context, userID kernel.UserID, provider string) (int, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	n := 0
	for _, l := range f.s.links {
		if l.UserID == userID && l.Provider != provider {
			n++
		}
	}
	return n, nil
}
