package auth

import (
	"net/url"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/veridian-labs/veridian/pkg/auth/oauthx"
	"github.com/veridian-labs/veridian/pkg/config"
	"github.com/veridian-labs/veridian/pkg/errx"
)

// Handlers exposes the auth HTTP surface on a fiber app.
type Handlers struct {
	service    *Service
	reconciler *Reconciler
	providers  oauthx.Registry
	states     StateStore
	tokens     TokenService
	oauthCfg   *config.OAuthConfig
}

// NewHandlers creates the handler set.
func NewHandlers(
	service *Service,
	reconciler *Reconciler,
	providers oauthx.Registry,
	states StateStore,
	tokens TokenService,
	oauthCfg *config.OAuthConfig,
) *Handlers {
	return &Handlers{
		service:    service,
		reconciler: reconciler,
		providers:  providers,
		states:     states,
		tokens:     tokens,
		oauthCfg:   oauthCfg,
	}
}

// RouteLimiters carries the per-route-class fixed-window policies, applied
// before each handler.
type RouteLimiters struct {
	Login       fiber.Handler
	Register    fiber.Handler
	Refresh     fiber.Handler
	OAuthLogin  fiber.Handler
	OAuthLink   fiber.Handler
	OAuthUnlink fiber.Handler
}

// RegisterRoutes wires the auth endpoints. protected is the full chain for
// authenticated routes: authentication, role-derived limiter, role gate.
func (h *Handlers) RegisterRoutes(app fiber.Router, protected []fiber.Handler, rl RouteLimiters) {
	app.Post("/auth/login", use(rl.Login), h.Login)
	app.Post("/auth/register", use(rl.Register), h.Register)
	app.Post("/auth/refresh", use(rl.Refresh), h.Refresh)

	// /auth/me must register before the :provider wildcard.
	app.Get("/auth/me", chain(protected, h.Me)...)
	app.Get("/auth/:provider/callback", use(rl.OAuthLogin), h.OAuthCallback)

	// Linking requests are a separate route class from plain OAuth logins.
	beginLimiter := func(c *fiber.Ctx) error {
		if c.QueryBool("linking") && rl.OAuthLink != nil {
			return rl.OAuthLink(c)
		}
		return use(rl.OAuthLogin)(c)
	}
	app.Get("/auth/:provider", beginLimiter, h.OAuthBegin)

	// The route-class IP policy runs before the protected chain, matching
	// the inbound control flow: IP limiter, then authentication.
	unlinkChain := append([]fiber.Handler{use(rl.OAuthUnlink)}, protected...)
	app.Delete("/auth/unlink/:provider", chain(unlinkChain, h.Unlink)...)
}

func chain(protected []fiber.Handler, handlers ...fiber.Handler) []fiber.Handler {
	out := make([]fiber.Handler, 0, len(protected)+len(handlers))
	out = append(out, protected...)
	out = append(out, handlers...)
	return out
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login handles POST /auth/login.
func (h *Handlers) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return errx.Validation("invalid request body")
	}

	_, pair, err := h.service.Login(c.Context(), req.Email, req.Password)
	if err != nil {
		return err
	}

	return c.JSON(pair)
}

// Register handles POST /auth/register.
func (h *Handlers) Register(c *fiber.Ctx) error {
	var req RegisterInput
	if err := c.BodyParser(&req); err != nil {
		return errx.Validation("invalid request body")
	}

	user, pair, err := h.service.Register(c.Context(), req)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"accessToken": pair.AccessToken,
		"user":        user,
	})
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// Refresh handles POST /auth/refresh.
func (h *Handlers) Refresh(c *fiber.Ctx) error {
	var req refreshRequest
	if err := c.BodyParser(&req); err != nil {
		return errx.Validation("invalid request body")
	}
	if req.RefreshToken == "" {
		return errx.Validation("refreshToken is required")
	}

	access, err := h.service.Refresh(c.Context(), req.RefreshToken)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"accessToken": access})
}

// OAuthBegin handles GET /auth/:provider. With ?linking=true&token=... the
// caller's access token becomes the redirect state, proving the linking
// request was initiated by an authenticated principal; otherwise a one-shot
// nonce is stored for the callback.
func (h *Handlers) OAuthBegin(c *fiber.Ctx) error {
	provider, ok := h.providers.Get(c.Params("provider"))
	if !ok {
		return ErrInvalidProvider().WithDetail("provider", c.Params("provider"))
	}

	var state string
	if c.QueryBool("linking") {
		token := c.Query("token")
		if token == "" {
			return errx.Validation("token is required for a linking request")
		}
		// Reject a bad linking token before the provider round-trip; the
		// failure kind stays distinguished.
		if _, err := h.tokens.VerifyAccess(token); err != nil {
			return err
		}
		state = token
	} else {
		state = uuid.NewString()
		if err := h.states.Save(c.Context(), state, provider.Name(), h.oauthCfg.StateTTL); err != nil {
			return err
		}
	}

	return c.Redirect(provider.AuthCodeURL(state), fiber.StatusFound)
}

// OAuthCallback handles GET /auth/:provider/callback. The state is either a
// known login nonce or a linking token; reconciliation decides the rest.
func (h *Handlers) OAuthCallback(c *fiber.Ctx) error {
	provider, ok := h.providers.Get(c.Params("provider"))
	if !ok {
		return ErrInvalidProvider().WithDetail("provider", c.Params("provider"))
	}

	if provErr := c.Query("error"); provErr != "" {
		return errx.Validation("oauth provider returned an error").WithDetail("provider_error", provErr)
	}

	code := c.Query("code")
	state := c.Query("state")
	if code == "" || state == "" {
		return errx.Validation("code and state are required")
	}

	linkingToken := ""
	stateProvider, found, err := h.states.Consume(c.Context(), state)
	if err != nil {
		return err
	}
	if found {
		if stateProvider != provider.Name() {
			return ErrInvalidState()
		}
	} else {
		// Not a stored nonce: the state must be a linking token. The
		// reconciler verifies it and maps each failure kind to its own 401.
		linkingToken = state
	}

	profile, err := provider.Exchange(c.Context(), code)
	if err != nil {
		return err
	}

	outcome, err := h.reconciler.Reconcile(c.Context(), profile, linkingToken)
	if err != nil {
		return err
	}

	sessionToken := outcome.SessionToken
	if sessionToken == "" {
		sessionToken, err = h.tokens.IssueAccess(outcome.User.ID)
		if err != nil {
			return err
		}
	}

	redirect := h.oauthCfg.SuccessRedirect + "?" + url.Values{
		"token":   {sessionToken},
		"user_id": {outcome.User.ID.String()},
		"kind":    {string(outcome.Kind)},
	}.Encode()

	return c.Redirect(redirect, fiber.StatusFound)
}

// Unlink handles DELETE /auth/unlink/:provider for an authenticated caller.
func (h *Handlers) Unlink(c *fiber.Ctx) error {
	authCtx, ok := FromContext(c)
	if !ok {
		return ErrUnauthorized()
	}

	provider := c.Params("provider")
	if _, known := h.providers.Get(provider); !known {
		return ErrInvalidProvider().WithDetail("provider", provider)
	}

	if err := h.service.Unlink(c.Context(), authCtx.UserID, provider); err != nil {
		return err
	}

	return c.JSON(fiber.Map{"message": "provider unlinked"})
}

// Me handles GET /auth/me, echoing the resolved principal.
func (h *Handlers) Me(c *fiber.Ctx) error {
	authCtx, ok := FromContext(c)
	if !ok {
		return ErrUnauthorized()
	}
	return c.JSON(authCtx)
}

// use turns a nil middleware into a pass-through so route registration does
// not need nil checks.
func use(handler fiber.Handler) fiber.Handler {
	if handler != nil {
		return handler
	}
	return func(c *fiber.Ctx) error { return c.Next() }
}
