package auth

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/veridian-labs/veridian/pkg/errx"
	"github.com/veridian-labs/veridian/pkg/identity"
	"github.com/veridian-labs/veridian/pkg/kernel"
	"github.com/veridian-labs/veridian/pkg/logx"
	"github.com/veridian-labs/veridian/pkg/notify"
)

// TokenPair is a freshly minted session.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
}

// RegisterInput is the payload for password registration.
type RegisterInput struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role,omitempty"`
}

// Service implements password login, registration, token refresh, and
// provider unlinking against the identity store.
type Service struct {
	users     identity.UserRepository
	roles     identity.RoleRepository
	userRoles identity.UserRoleRepository
	links     identity.ProviderLinkRepository
	tokens    TokenService
	passwords PasswordService
	notifier  notify.Notifier

	defaultRole string
}

// NewService creates the auth service.
func NewService(
	users identity.UserRepository,
	roles identity.RoleRepository,
	userRoles identity.UserRoleRepository,
	links identity.ProviderLinkRepository,
	tokens TokenService,
	passwords PasswordService,
	notifier notify.Notifier,
	defaultRole string,
) *Service {
	return &Service{
		users:       users,
		roles:       roles,
		userRoles:   userRoles,
		links:       links,
		tokens:      tokens,
		passwords:   passwords,
		notifier:    notifier,
		defaultRole: defaultRole,
	}
}

// Login authenticates an email/password pair and mints both token classes.
// Unknown email, missing password hash, and wrong password all collapse to
// the same 401 so the response gives no account oracle.
func (s *Service) Login(ctx context.Context, email, password string) (*identity.User, *TokenPair, error) {
	if email == "" || password == "" {
		return nil, nil, errx.Validation("email and password are required")
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errx.IsType(err, errx.TypeNotFound) {
			return nil, nil, ErrInvalidCredentials()
		}
		return nil, nil, err
	}

	if !user.HasPassword() || !s.passwords.Compare(*user.PasswordHash, password) {
		return nil, nil, ErrInvalidCredentials()
	}

	pair, err := s.mintPair(user.ID)
	if err != nil {
		return nil, nil, err
	}

	if err := s.loadRoles(ctx, user); err != nil {
		return nil, nil, err
	}

	return user, pair, nil
}

// Register creates a password principal with the requested (or default)
// role. The duplicate-email check is the store's unique index; the friendly
// 409 comes straight from the repository.
func (s *Service) Register(ctx context.Context, input RegisterInput) (*identity.User, *TokenPair, error) {
	if err := validateRegistration(input); err != nil {
		return nil, nil, err
	}

	roleName := input.Role
	if roleName == "" {
		roleName = s.defaultRole
	}
	role, err := s.roles.FindByName(ctx, roleName)
	if err != nil {
		if errx.IsType(err, errx.TypeNotFound) {
			return nil, nil, errx.Validation("unknown role: " + roleName)
		}
		return nil, nil, err
	}

	hash, err := s.passwords.Hash(input.Password)
	if err != nil {
		return nil, nil, errx.Wrap(err, "failed to hash password", errx.TypeInternal)
	}

	user := &identity.User{
		ID:           kernel.NewUserID(uuid.NewString()),
		Email:        strings.ToLower(strings.TrimSpace(input.Email)),
		Username:     strings.TrimSpace(input.Username),
		PasswordHash: &hash,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, nil, err
	}

	if err := s.userRoles.Create(ctx, &identity.UserRole{UserID: user.ID, RoleID: role.ID}); err != nil {
		return nil, nil, err
	}
	user.Roles = []string{role.Name}

	pair, err := s.mintPair(user.ID)
	if err != nil {
		return nil, nil, err
	}

	s.announce(ctx, notify.Event{
		Kind:     notify.EventRegistered,
		Email:    user.Email,
		Username: user.Username,
	})

	return user, pair, nil
}

// Refresh verifies a refresh token and mints a new access token only. A
// subject deleted since issuance is rejected the same way as a bad token.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (string, error) {
	claims, err := s.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		logx.WithFields(logx.Fields{"kind": errCode(err)}).Warn("refresh token rejected")
		return "", ErrUnauthorized()
	}

	if _, err := s.users.FindByID(ctx, claims.UserID); err != nil {
		return "", ErrUnauthorized()
	}

	access, err := s.tokens.IssueAccess(claims.UserID)
	if err != nil {
		return "", err
	}
	return access, nil
}

// Unlink removes a provider link. It is refused when it would leave the
// principal with no password and no other linked provider.
func (s *Service) Unlink(ctx context.Context, userID kernel.UserID, provider string) error {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return err
	}

	if _, err := s.links.Find(ctx, userID, provider); err != nil {
		return err
	}

	if !user.HasPassword() {
		others, err := s.links.CountExcluding(ctx, userID, provider)
		if err != nil {
			return err
		}
		if others == 0 {
			return ErrLastAuthMethod()
		}
	}

	if err := s.links.Delete(ctx, userID, provider); err != nil {
		return err
	}

	s.announce(ctx, notify.Event{
		Kind:     notify.EventProviderUnlinked,
		Email:    user.Email,
		Username: user.Username,
		Provider: provider,
	})

	return nil
}

func (s *Service) mintPair(userID kernel.UserID) (*TokenPair, error) {
	access, err := s.tokens.IssueAccess(userID)
	if err != nil {
		return nil, err
	}
	refresh, err := s.tokens.IssueRefresh(userID)
	if err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func (s *Service) loadRoles(ctx context.Context, user *identity.User) error {
	roles, err := s.roles.FindByUser(ctx, user.ID)
	if err != nil {
		return err
	}
	names := make([]string, len(roles))
	for i, role := range roles {
		names[i] = role.Name
	}
	user.Roles = names
	return nil
}

func (s *Service) announce(ctx context.Context, event notify.Event) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Send(ctx, event); err != nil {
		logx.WithFields(logx.Fields{"kind": string(event.Kind)}).
			Warnf("notification delivery failed: %v", err)
	}
}

func validateRegistration(input RegisterInput) error {
	if len(strings.TrimSpace(input.Username)) < 3 {
		return errx.Validation("username must be at least 3 characters")
	}
	email := strings.TrimSpace(input.Email)
	at := strings.IndexByte(email, '@')
	if at <= 0 || at == len(email)-1 {
		return errx.Validation("email is invalid")
	}
	if len(input.Password) < 8 {
		return errx.Validation("password must be at least 8 characters")
	}
	return nil
}

func errCode(err error) string {
	var e *errx.Error
	if errx.As(err, &e) {
		return e.Code
	}
	return "UNKNOWN"
}
