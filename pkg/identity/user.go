package identity

import (
	"time"

	"github.com/veridian-labs/veridian/pkg/kernel"
)

// User is a principal. Email is the identity key; PasswordHash is nil for
// pure-OAuth accounts. A user with no password hash and no provider link
// must never result from a create-time operation.
type User struct {
	ID           kernel.UserID `db:"id" json:"id"`
	Email        string        `db:"email" json:"email"`
	Username     string        `db:"username" json:"username"`
	PasswordHash *string       `db:"password_hash" json:"-"`
	DeletedAt    *time.Time    `db:"deleted_at" json:"deleted_at,omitempty"`
	CreatedAt    time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time     `db:"updated_at" json:"updated_at"`

	// Roles is populated by the service layer, not the users table.
	Roles []string `db:"-" json:"roles,omitempty"`
}

// HasPassword reports whether the user can authenticate with a password
func (u *User) HasPassword() bool {
	return u.PasswordHash != nil && *u.PasswordHash != ""
}

// IsDeleted reports whether the user is soft-deleted
func (u *User) IsDeleted() bool {
	return u.DeletedAt != nil
}

// Role is a named grant, unique by case-insensitive name.
type Role struct {
	ID        kernel.RoleID `db:"id" json:"id"`
	Name      string        `db:"name" json:"name"`
	CreatedAt time.Time     `db:"created_at" json:"created_at"`
}

// UserRole is the user↔role assignment edge.
type UserRole struct {
	UserID     kernel.UserID `db:"user_id" json:"user_id"`
	RoleID     kernel.RoleID `db:"role_id" json:"role_id"`
	AssignedAt time.Time     `db:"assigned_at" json:"assigned_at"`
}
