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

const uniqueViolation = "23505"

// PostgresUserRepository is the PostgreSQL implementation of UserRepository.
type PostgresUserRepository struct {
	db *sqlx.DB
}

// NewPostgresUserRepository creates a new repository instance.
func NewPostgresUserRepository(db *sqlx.DB) identity.UserRepository {
	return &PostgresUserRepository{db: db}
}

// FindByID loads a user by id. Soft-deleted rows are excluded.
func (r *PostgresUserRepository) FindByID(ctx context.Context, id kernel.UserID) (*identity.User, error) {
	var user identity.User
	query := `SELECT id, email, username, password_hash, deleted_at, created_at, updated_at
		FROM users WHERE id = $1 AND deleted_at IS NULL`
	err := r.db.GetContext(ctx, &user, query, id.String())
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, identity.ErrUserNotFound()
		}
		return nil, errx.Wrap(err, "failed to find user by id", errx.TypeInternal).
			WithDetail("user_id", id.String())
	}
	return &user, nil
}

// FindByEmail loads a user by its identity key. Soft-deleted rows are excluded.
func (r *PostgresUserRepository) FindByEmail(ctx context.Context, email string) (*identity.User, error) {
	var user identity.User
	query := `SELECT id, email, username, password_hash, deleted_at, created_at, updated_at
		FROM users WHERE LOWER(email) = LOWER($1) AND deleted_at IS NULL`
	err := r.db.GetContext(ctx, &user, query, email)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, identity.ErrUserNotFound()
		}
		return nil, errx.Wrap(err, "failed to find user by email", errx.TypeInternal)
	}
	return &user, nil
}

// Create inserts a new user. A duplicate email surfaces as a conflict; the
// unique index is the authoritative guard, not the caller's existence check.
func (r *PostgresUserRepository) Create(ctx context.Context, user *identity.User) error {
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	query := `
		INSERT INTO users (id, email, username, password_hash, created_at, updated_at)
		VALUES (:id, :email, :username, :password_hash, :created_at, :updated_at)`

	_, err := r.db.NamedExecContext(ctx, query, user)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == uniqueViolation {
			return identity.ErrDuplicateEmail()
		}
		return errx.Wrap(err, "failed to create user", errx.TypeInternal).
			WithDetail("email", user.Email)
	}
	return nil
}

// Update persists mutable user fields.
func (r *PostgresUserRepository) Update(ctx context.Context, user *identity.User) error {
	user.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE users SET
			email = :email,
			username = :username,
			password_hash = :password_hash,
			updated_at = :updated_at
		WHERE id = :id AND deleted_at IS NULL`

	result, err := r.db.NamedExecContext(ctx, query, user)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == uniqueViolation {
			return identity.ErrDuplicateEmail()
		}
		return errx.Wrap(err, "failed to update user", errx.TypeInternal).
			WithDetail("user_id", user.ID.String())
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return errx.Wrap(err, "failed to get rows affected on update", errx.TypeInternal)
	}
	if rows == 0 {
		return identity.ErrUserNotFound()
	}
	return nil
}

// SoftDelete stamps deleted_at; the row survives for restore.
func (r *PostgresUserRepository) SoftDelete(ctx context.Context, id kernel.UserID) error {
	return r.stamp(ctx, id,
		`UPDATE users SET deleted_at = $1, updated_at = $1 WHERE id = $2 AND deleted_at IS NULL`)
}

// Restore clears deleted_at on a soft-deleted user.
func (r *PostgresUserRepository) Restore(ctx context.Context, id kernel.UserID) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET deleted_at = NULL, updated_at = $1 WHERE id = $2 AND deleted_at IS NOT NULL`,
		time.Now().UTC(), id.String())
	if err != nil {
		return errx.Wrap(err, "failed to restore user", errx.TypeInternal)
	}
	return checkAffected(result)
}

// HardDelete removes the row permanently. Role assignments and provider
// links go with it via ON DELETE CASCADE.
func (r *PostgresUserRepository) HardDelete(ctx context.Context, id kernel.UserID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id.String())
	if err != nil {
		return errx.Wrap(err, "failed to hard delete user", errx.TypeInternal)
	}
	return checkAffected(result)
}

func (r *PostgresUserRepository) stamp(ctx context.Context, id kernel.UserID, query string) error {
	result, err := r.db.ExecContext(ctx, query, time.Now().UTC(), id.String())
	if err != nil {
		return errx.Wrap(err, "failed to soft delete user", errx.TypeInternal)
	}
	return checkAffected(result)
}

func checkAffected(result sql.Result) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return errx.Wrap(err, "failed to get rows affected", errx.TypeInternal)
	}
	if rows == 0 {
		return identity.ErrUserNotFound()
	}
	return nil
}
