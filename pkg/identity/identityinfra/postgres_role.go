package identityinfra

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/veridian-labs/veridian/pkg/errx"
	"github.com/veridian-labs/veridian/pkg/identity"
	"github.com/veridian-labs/veridian/pkg/kernel"
)

// PostgresRoleRepository is the PostgreSQL implementation of RoleRepository.
type PostgresRoleRepository struct {
	db *sqlx.DB
}

// NewPostgresRoleRepository creates a new repository instance.
func NewPostgresRoleRepository(db *sqlx.DB) identity.RoleRepository {
	return &PostgresRoleRepository{db: db}
}

// FindByName matches role names case-insensitively.
func (r *PostgresRoleRepository) FindByName(ctx context.Context, name string) (*identity.Role, error) {
	var role identity.Role
	query := `SELECT id, name, created_at FROM roles WHERE LOWER(name) = LOWER($1)`
	err := r.db.GetContext(ctx, &role, query, name)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, identity.ErrRoleNotFound()
		}
		return nil, errx.Wrap(err, "failed to find role by name", errx.TypeInternal).
			WithDetail("role", name)
	}
	return &role, nil
}

// Create inserts a new role.
func (r *PostgresRoleRepository) Create(ctx context.Context, role *identity.Role) error {
	role.CreatedAt = time.Now().UTC()

	query := `INSERT INTO roles (id, name, created_at) VALUES (:id, :name, :created_at)`
	_, err := r.db.NamedExecContext(ctx, query, role)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == uniqueViolation {
			return identity.ErrDuplicateRole()
		}
		return errx.Wrap(err, "failed to create role", errx.TypeInternal).
			WithDetail("role", role.Name)
	}
	return nil
}

// FindByUser returns the roles assigned to a user.
func (r *PostgresRoleRepository) FindByUser(ctx context.Context, userID kernel.UserID) ([]identity.Role, error) {
	var roles []identity.Role
	query := `
		SELECT r.id, r.name, r.created_at
		FROM roles r
		JOIN user_roles ur ON ur.role_id = r.id
		WHERE ur.user_id = $1
		ORDER BY r.name`
	err := r.db.SelectContext(ctx, &roles, query, userID.String())
	if err != nil {
		return nil, errx.Wrap(err, "failed to load user roles", errx.TypeInternal).
			WithDetail("user_id", userID.String())
	}
	return roles, nil
}

// PostgresUserRoleRepository is the PostgreSQL implementation of UserRoleRepository.
type PostgresUserRoleRepository struct {
	db *sqlx.DB
}

// NewPostgresUserRoleRepository creates a new repository instance.
func NewPostgresUserRoleRepository(db *sqlx.DB) identity.UserRoleRepository {
	return &PostgresUserRoleRepository{db: db}
}

// Create inserts a role assignment.
func (r *PostgresUserRoleRepository) Create(ctx context.Context, assignment *identity.UserRole) error {
	if assignment.AssignedAt.IsZero() {
		assignment.AssignedAt = time.Now().UTC()
	}

	query := `INSERT INTO user_roles (user_id, role_id, assigned_at)
		VALUES (:user_id, :role_id, :assigned_at)`
	_, err := r.db.NamedExecContext(ctx, query, assignment)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == uniqueViolation {
			return identity.ErrDuplicateRole().WithMessage("Role already assigned to this user")
		}
		return errx.Wrap(err, "failed to assign role", errx.TypeInternal)
	}
	return nil
}

// Find loads a single assignment edge.
func (r *PostgresUserRoleRepository) Find(ctx context.Context, userID kernel.UserID, roleID kernel.RoleID) (*identity.UserRole, error) {
	var assignment identity.UserRole
	query := `SELECT user_id, role_id, assigned_at FROM user_roles WHERE user_id = $1 AND role_id = $2`
	err := r.db.GetContext(ctx, &assignment, query, userID.String(), roleID.String())
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, identity.ErrRoleNotFound().WithMessage("Role is not assigned to this user")
		}
		return nil, errx.Wrap(err, "failed to find role assignment", errx.TypeInternal)
	}
	return &assignment, nil
}
