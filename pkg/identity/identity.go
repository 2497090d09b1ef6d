// Package identity holds the persistent identity graph: principals (users),
// roles, role assignments, and OAuth provider links. The package owns the
// domain types and repository ports; pkg/identity/identityinfra provides the
// PostgreSQL implementations.
package identity

import (
	"net/http"

	"github.com/veridian-labs/veridian/pkg/errx"
)

// ============================================================================
// Error Registry
// ============================================================================

var ErrRegistry = errx.NewRegistry("IDENTITY")

var (
	CodeUserNotFound   = ErrRegistry.Register("USER_NOT_FOUND", errx.TypeNotFound, http.StatusNotFound, "User not found")
	CodeRoleNotFound   = ErrRegistry.Register("ROLE_NOT_FOUND", errx.TypeNotFound, http.StatusNotFound, "Role not found")
	CodeLinkNotFound   = ErrRegistry.Register("LINK_NOT_FOUND", errx.TypeNotFound, http.StatusNotFound, "Provider is not linked to this account")
	CodeDuplicateEmail = ErrRegistry.Register("DUPLICATE_EMAIL", errx.TypeConflict, http.StatusConflict, "An account with this email already exists")
	CodeDuplicateRole  = ErrRegistry.Register("DUPLICATE_ROLE", errx.TypeConflict, http.StatusConflict, "Role already exists")
	CodeDuplicateLink  = ErrRegistry.Register("DUPLICATE_LINK", errx.TypeConflict, http.StatusConflict, "This provider is already linked")
	CodeStoreFailure   = ErrRegistry.Register("STORE_FAILURE", errx.TypeInternal, http.StatusInternalServerError, "Identity store failure")
)

func ErrUserNotFound() *errx.Error   { return ErrRegistry.New(CodeUserNotFound) }
func ErrRoleNotFound() *errx.Error   { return ErrRegistry.New(CodeRoleNotFound) }
func ErrLinkNotFound() *errx.Error   { return ErrRegistry.New(CodeLinkNotFound) }
func ErrDuplicateEmail() *errx.Error { return ErrRegistry.New(CodeDuplicateEmail) }
func ErrDuplicateRole() *errx.Error  { return ErrRegistry.New(CodeDuplicateRole) }
func ErrDuplicateLink() *errx.Error  { return ErrRegistry.New(CodeDuplicateLink) }
