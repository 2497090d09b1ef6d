package identity

import (
	"context"

	"github.com/veridian-labs/veridian/pkg/kernel"
)

// UserRepository defines the contract for principal persistence.
// Implementations must surface distinguishable not-found, conflict, and
// transport failures (identity error registry codes).
type UserRepository interface {
	FindByID(ctx context.Context, id kernel.UserID) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	Create(ctx context.Context, user *User) error
	Update(ctx context.Context, user *User) error
	SoftDelete(ctx context.Context, id kernel.UserID) error
	Restore(ctx context.Context, id kernel.UserID) error
	HardDelete(ctx context.Context, id kernel.UserID) error
}

// RoleRepository defines the contract for role persistence.
type RoleRepository interface {
	// FindByName matches case-insensitively.
	FindByName(ctx context.Context, name string) (*Role, error)
	Create(ctx context.Context, role *Role) error
	FindByUser(ctx context.Context, userID kernel.UserID) ([]Role, error)
}

// UserRoleRepository defines the contract for role assignments.
type UserRoleRepository interface {
	Create(ctx context.Context, assignment *UserRole) error
	Find(ctx context.Context, userID kernel.UserID, roleID kernel.RoleID) (*UserRole, error)
}

// ProviderLinkRepository defines the contract for provider links.
type ProviderLinkRepository interface {
	Find(ctx context.Context, userID kernel.UserID, provider string) (*ProviderLink, error)
	FindByProviderID(ctx context.Context, provider, providerUserID string) (*ProviderLink, error)
	Create(ctx context.Context, link *ProviderLink) error
	Delete(ctx context.Context, userID kernel.UserID, provider string) error
	// CountExcluding counts the user's links to providers other than the
	// given one; the unlink guard uses it to detect a last auth method.
	CountExcluding(ctx context.Context, userID kernel.UserID, provider string) (int, error)
}
