// Package auth implements the identity/session subsystem: issuance and
// verification of the two token classes, the OAuth reconciliation engine,
// the bearer-token middleware, and the role gate.
package auth

import (
	"net/http"
	"time"

	"github.com/veridian-labs/veridian/pkg/errx"
	"github.com/veridian-labs/veridian/pkg/kernel"
)

// TokenClaims is the verified payload of either token class.
type TokenClaims struct {
	UserID    kernel.UserID `json:"id"`
	IssuedAt  time.Time     `json:"iat"`
	ExpiresAt time.Time     `json:"exp"`
}

// ============================================================================
// Error Registry
// ============================================================================

var ErrRegistry = errx.NewRegistry("AUTH")

var (
	// Token verification failure kinds. All map to 401; the kind is for
	// server-side logging and the reconciliation engine, never for clients.
	CodeTokenExpired        = ErrRegistry.Register("TOKEN_EXPIRED", errx.TypeAuthentication, http.StatusUnauthorized, "Token has expired")
	CodeTokenMalformed      = ErrRegistry.Register("TOKEN_MALFORMED", errx.TypeAuthentication, http.StatusUnauthorized, "Token is malformed")
	CodeTokenBadSignature   = ErrRegistry.Register("TOKEN_BAD_SIGNATURE", errx.TypeAuthentication, http.StatusUnauthorized, "Token signature is invalid")
	CodeTokenInvalidPayload = ErrRegistry.Register("TOKEN_INVALID_PAYLOAD", errx.TypeAuthentication, http.StatusUnauthorized, "Token payload is invalid")

	CodeTokenGenerationFailed = ErrRegistry.Register("TOKEN_GENERATION_FAILED", errx.TypeInternal, http.StatusInternalServerError, "Token generation failed")

	// Uniform client-facing authentication failures.
	CodeUnauthorized       = ErrRegistry.Register("UNAUTHORIZED", errx.TypeAuthentication, http.StatusUnauthorized, "Unauthorized")
	CodeInvalidCredentials = ErrRegistry.Register("INVALID_CREDENTIALS", errx.TypeAuthentication, http.StatusUnauthorized, "Invalid email or password")
	CodeAccessDenied       = ErrRegistry.Register("ACCESS_DENIED", errx.TypeAuthorization, http.StatusForbidden, "Access denied")

	// OAuth flow failures.
	CodeInvalidProvider   = ErrRegistry.Register("INVALID_PROVIDER", errx.TypeValidation, http.StatusBadRequest, "Invalid OAuth provider")
	CodeInvalidState      = ErrRegistry.Register("INVALID_STATE", errx.TypeAuthentication, http.StatusUnauthorized, "Invalid OAuth state")
	CodeProviderFailure   = ErrRegistry.Register("PROVIDER_FAILURE", errx.TypeExternal, http.StatusBadGateway, "OAuth provider request failed")
	CodeProviderNoEmail   = ErrRegistry.Register("PROVIDER_NO_EMAIL", errx.TypeValidation, http.StatusBadRequest, "OAuth provider did not supply an email address")
	CodeEmailNotLinked    = ErrRegistry.Register("EMAIL_NOT_LINKED", errx.TypeConflict, http.StatusConflict, "account exists with this email, but this provider is not linked")
	CodeAlreadyLinked     = ErrRegistry.Register("ALREADY_LINKED", errx.TypeConflict, http.StatusConflict, "This provider is already linked to your account")
	CodeLinkEmailMismatch = ErrRegistry.Register("LINK_EMAIL_MISMATCH", errx.TypeConflict, http.StatusConflict, "The OAuth account email does not match your account email")
	CodeLastAuthMethod    = ErrRegistry.Register("LAST_AUTH_METHOD", errx.TypeValidation, http.StatusBadRequest, "cannot unlink the last authentication method")
)

func ErrTokenExpired() *errx.Error        { return ErrRegistry.New(CodeTokenExpired) }
func ErrTokenMalformed() *errx.Error      { return ErrRegistry.New(CodeTokenMalformed) }
func ErrTokenBadSignature() *errx.Error   { return ErrRegistry.New(CodeTokenBadSignature) }
func ErrTokenInvalidPayload() *errx.Error { return ErrRegistry.New(CodeTokenInvalidPayload) }

func ErrUnauthorized() *errx.Error       { return ErrRegistry.New(CodeUnauthorized) }
func ErrInvalidCredentials() *errx.Error { return ErrRegistry.New(CodeInvalidCredentials) }
func ErrAccessDenied() *errx.Error       { return ErrRegistry.New(CodeAccessDenied) }

func ErrInvalidProvider() *errx.Error   { return ErrRegistry.New(CodeInvalidProvider) }
func ErrInvalidState() *errx.Error      { return ErrRegistry.New(CodeInvalidState) }
func ErrProviderNoEmail() *errx.Error   { return ErrRegistry.New(CodeProviderNoEmail) }
func ErrEmailNotLinked() *errx.Error    { return ErrRegistry.New(CodeEmailNotLinked) }
func ErrAlreadyLinked() *errx.Error     { return ErrRegistry.New(CodeAlreadyLinked) }
func ErrLinkEmailMismatch() *errx.Error { return ErrRegistry.New(CodeLinkEmailMismatch) }
func ErrLastAuthMethod() *errx.Error    { return ErrRegistry.New(CodeLastAuthMethod) }
