package kernel

import "strings"

// AuthContext is the per-request authentication context produced by the
// token middleware and consumed by every downstream stage. It is passed
// explicitly (fiber Locals), never hung off a shared request object.
type AuthContext struct {
	UserID   UserID   `json:"user_id"`
	Email    string   `json:"email"`
	Username string   `json:"username"`
	Roles    []string `json:"roles"`
}

// IsValid verifies the AuthContext carries a resolved principal
func (ac *AuthContext) IsValid() bool {
	return ac != nil && !ac.UserID.IsEmpty()
}

// HasRole checks whether the principal holds a role (case-insensitive)
func (ac *AuthContext) HasRole(role string) bool {
	for _, r := range ac.Roles {
		if strings.EqualFold(r, role) {
			return true
		}
	}
	return false
}

// HasAnyRole checks whether the principal holds any of the given roles
func (ac *AuthContext) HasAnyRole(roles ...string) bool {
	for _, role := range roles {
		if ac.HasRole(role) {
			return true
		}
	}
	return false
}

type ContextKey string

const (
	// AuthContextKey is the fiber Locals key holding the AuthContext
	AuthContextKey ContextKey = "auth_context"

	// RequestIDKey is the key holding the request ID
	RequestIDKey ContextKey = "request_id"
)
