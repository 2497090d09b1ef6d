package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/veridian-labs/veridian/pkg/errx"
	"github.com/veridian-labs/veridian/pkg/identity"
	"github.com/veridian-labs/veridian/pkg/kernel"
	"github.com/veridian-labs/veridian/pkg/logx"
)

// TokenMiddleware authenticates requests from a bearer access token and
// attaches the resolved principal to the request context.
type TokenMiddleware struct {
	tokens TokenService
	users  identity.UserRepository
	roles  identity.RoleRepository
}

// NewTokenMiddleware creates the authentication middleware.
func NewTokenMiddleware(tokens TokenService, users identity.UserRepository, roles identity.RoleRepository) *TokenMiddleware {
	return &TokenMiddleware{tokens: tokens, users: users, roles: roles}
}

// Authenticate verifies the bearer token, loads the subject with roles, and
// stores a kernel.AuthContext in the request locals. Every failure returns
// the same uniform 401; the specific token-failure kind is logged
// server-side only, never exposed, to avoid giving an oracle on token
// structure.
func (am *TokenMiddleware) Authenticate() fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := bearerToken(c)
		if token == "" {
			return ErrUnauthorized()
		}

		claims, err := am.tokens.VerifyAccess(token)
		if err != nil {
			logVerifyFailure(c, err)
			return ErrUnauthorized()
		}

		user, err := am.users.FindByID(c.Context(), claims.UserID)
		if err != nil {
			// A deleted or unknown subject is indistinguishable from a bad
			// token as far as the client is concerned.
			logx.WithFields(logx.Fields{
				"user_id": claims.UserID.String(),
				"path":    c.Path(),
			}).Warn("token subject could not be loaded")
			return ErrUnauthorized()
		}

		roles, err := am.roles.FindByUser(c.Context(), user.ID)
		if err != nil {
			return errx.Wrap(err, "failed to load roles for authenticated user", errx.TypeInternal)
		}

		names := make([]string, len(roles))
		for i, role := range roles {
			names[i] = role.Name
		}
		user.Roles = names

		c.Locals(string(kernel.AuthContextKey), &kernel.AuthContext{
			UserID:   user.ID,
			Email:    user.Email,
			Username: user.Username,
			Roles:    names,
		})

		return c.Next()
	}
}

// RequireRoles gates a route on the role intersection. Run it after
// Authenticate.
func (am *TokenMiddleware) RequireRoles(required ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authCtx, ok := FromContext(c)
		if !ok {
			return ErrUnauthorized()
		}
		if !Allow(required, authCtx.Roles) {
			return ErrAccessDenied()
		}
		return c.Next()
	}
}

// FromContext retrieves the AuthContext attached by Authenticate.
func FromContext(c *fiber.Ctx) (*kernel.AuthContext, bool) {
	authCtx, ok := c.Locals(string(kernel.AuthContextKey)).(*kernel.AuthContext)
	if !ok || !authCtx.IsValid() {
		return nil, false
	}
	return authCtx, true
}

func bearerToken(c *fiber.Ctx) string {
	header := c.Get(fiber.HeaderAuthorization)
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}

func logVerifyFailure(c *fiber.Ctx, err error) {
	fields := logx.Fields{
		"path": c.Path(),
		"ip":   c.IP(),
	}
	var e *errx.Error
	if errx.As(err, &e) {
		fields["kind"] = e.Code
	}
	logx.WithFields(fields).Warn("access token rejected")
}
