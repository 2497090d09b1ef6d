package auth

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/veridian-labs/veridian/pkg/auth/oauthx"
	"github.com/veridian-labs/veridian/pkg/errx"
	"github.com/veridian-labs/veridian/pkg/identity"
	"github.com/veridian-labs/veridian/pkg/kernel"
	"github.com/veridian-labs/veridian/pkg/logx"
	"github.com/veridian-labs/veridian/pkg/notify"
)

// OutcomeKind tags the reconciliation result.
type OutcomeKind string

const (
	OutcomeLogin      OutcomeKind = "login"
	OutcomeRegistered OutcomeKind = "registered"
	OutcomeLinked     OutcomeKind = "linked"
)

// Outcome is the tagged result of reconciling a verified OAuth profile.
type Outcome struct {
	Kind OutcomeKind
	User *identity.User

	// SessionToken is set only for Linked outcomes: the linking token is
	// reused as the session token, preserving continuity for a mid-session
	// linking action. For Login and Registered the caller mints fresh
	// tokens.
	SessionToken string
}

// Reconciler decides login vs. registration vs. provider linking for a
// verified OAuth profile. Its existence checks produce friendly errors in
// the common case; the identity store's uniqueness constraints are the
// actual enforcement under concurrent attempts.
type Reconciler struct {
	users     identity.UserRepository
	roles     identity.RoleRepository
	userRoles identity.UserRoleRepository
	links     identity.ProviderLinkRepository
	tokens    TokenService
	notifier  notify.Notifier

	defaultRole string
}

// NewReconciler creates the reconciliation engine.
func NewReconciler(
	users identity.UserRepository,
	roles identity.RoleRepository,
	userRoles identity.UserRoleRepository,
	links identity.ProviderLinkRepository,
	tokens TokenService,
	notifier notify.Notifier,
	defaultRole string,
) *Reconciler {
	return &Reconciler{
		users:       users,
		roles:       roles,
		userRoles:   userRoles,
		links:       links,
		tokens:      tokens,
		notifier:    notifier,
		defaultRole: defaultRole,
	}
}

// Reconcile runs the decision procedure. A non-empty linkingToken marks the
// flow as provider linking for an already-authenticated principal; otherwise
// the profile either logs in an existing linked user or registers a new one.
func (r *Reconciler) Reconcile(ctx context.Context, profile *oauthx.Profile, linkingToken string) (*Outcome, error) {
	if linkingToken != "" {
		return r.link(ctx, profile, linkingToken)
	}
	return r.loginOrRegister(ctx, profile)
}

// link attaches the provider identity to the principal referenced by the
// linking token. Cross-account linking is never permitted, even for a
// plausible same-human email match: silently merging would let an attacker
// controlling a matching OAuth email hijack an unrelated password account.
func (r *Reconciler) link(ctx context.Context, profile *oauthx.Profile, linkingToken string) (*Outcome, error) {
	claims, err := r.tokens.VerifyAccess(linkingToken)
	if err != nil {
		// The failure kind (expired, malformed, bad signature, invalid
		// payload) stays distinguished for the caller's 401 mapping.
		return nil, err
	}

	user, err := r.users.FindByID(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}

	if _, err := r.links.Find(ctx, user.ID, profile.Provider); err == nil {
		return nil, ErrAlreadyLinked().WithDetail("provider", profile.Provider)
	} else if !errx.IsType(err, errx.TypeNotFound) {
		return nil, err
	}

	if !strings.EqualFold(profile.Email, user.Email) {
		return nil, ErrLinkEmailMismatch().WithDetail("provider", profile.Provider)
	}

	link := &identity.ProviderLink{
		ID:             uuid.NewString(),
		UserID:         user.ID,
		Provider:       profile.Provider,
		ProviderUserID: profile.ProviderUserID,
	}
	if err := r.links.Create(ctx, link); err != nil {
		// A concurrent attempt may have won the race past the existence
		// check; the unique index turns it into the same conflict.
		return nil, err
	}

	if err := r.loadRoles(ctx, user); err != nil {
		return nil, err
	}

	r.announce(ctx, notify.Event{
		Kind:     notify.EventProviderLinked,
		Email:    user.Email,
		Username: user.Username,
		Provider: profile.Provider,
	})

	return &Outcome{Kind: OutcomeLinked, User: user, SessionToken: linkingToken}, nil
}

func (r *Reconciler) loginOrRegister(ctx context.Context, profile *oauthx.Profile) (*Outcome, error) {
	if profile.Email == "" {
		return nil, ErrProviderNoEmail().WithDetail("provider", profile.Provider)
	}

	user, err := r.users.FindByEmail(ctx, profile.Email)
	if err != nil {
		if errx.IsType(err, errx.TypeNotFound) {
			return r.register(ctx, profile)
		}
		return nil, err
	}

	// An email match alone never becomes a provider link: that requires a
	// prior authenticated session (the linking flow).
	if _, err := r.links.Find(ctx, user.ID, profile.Provider); err != nil {
		if errx.IsType(err, errx.TypeNotFound) {
			return nil, ErrEmailNotLinked().WithDetail("provider", profile.Provider)
		}
		return nil, err
	}

	if err := r.loadRoles(ctx, user); err != nil {
		return nil, err
	}

	return &Outcome{Kind: OutcomeLogin, User: user}, nil
}

// register creates a new pure-OAuth principal: no password hash, one
// provider link, the default role. The user is never left without either a
// password or a link.
func (r *Reconciler) register(ctx context.Context, profile *oauthx.Profile) (*Outcome, error) {
	role, err := r.roles.FindByName(ctx, r.defaultRole)
	if err != nil {
		// Startup guarantees the default role exists; its absence here is
		// an internal failure, not a client error.
		return nil, errx.Wrap(err, "default role missing during OAuth registration", errx.TypeInternal)
	}

	user := &identity.User{
		ID:       kernel.NewUserID(uuid.NewString()),
		Email:    strings.ToLower(profile.Email),
		Username: usernameFromProfile(profile),
	}
	if err := r.users.Create(ctx, user); err != nil {
		return nil, err
	}

	link := &identity.ProviderLink{
		ID:             uuid.NewString(),
		UserID:         user.ID,
		Provider:       profile.Provider,
		ProviderUserID: profile.ProviderUserID,
	}
	if err := r.links.Create(ctx, link); err != nil {
		return nil, err
	}

	if err := r.userRoles.Create(ctx, &identity.UserRole{UserID: user.ID, RoleID: role.ID}); err != nil {
		return nil, err
	}
	user.Roles = []string{role.Name}

	r.announce(ctx, notify.Event{
		Kind:     notify.EventRegistered,
		Email:    user.Email,
		Username: user.Username,
	})

	return &Outcome{Kind: OutcomeRegistered, User: user}, nil
}

func (r *Reconciler) loadRoles(ctx context.Context, user *identity.User) error {
	roles, err := r.roles.FindByUser(ctx, user.ID)
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

func (r *Reconciler) announce(ctx context.Context, event notify.Event) {
	if r.notifier == nil {
		return
	}
	if err := r.notifier.Send(ctx, event); err != nil {
		logx.WithFields(logx.Fields{"kind": string(event.Kind)}).
			Warnf("notification delivery failed: %v", err)
	}
}

func usernameFromProfile(profile *oauthx.Profile) string {
	if profile.Name != "" {
		return profile.Name
	}
	if at := strings.IndexByte(profile.Email, '@'); at > 0 {
		return profile.Email[:at]
	}
	return profile.Provider + "-" + profile.ProviderUserID
}
