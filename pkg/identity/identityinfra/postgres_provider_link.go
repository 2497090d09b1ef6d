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

// PostgresProviderLinkRepository is the PostgreSQL implementation of
// ProviderLinkRepository.
type PostgresProviderLinkRepository struct {
	db *sqlx.DB
}

// NewPostgresProviderLinkRepository creates a new repository instance.
func NewPostgresProviderLinkRepository(db *sqlx.DB) identity.ProviderLinkRepository {
	return &PostgresProviderLinkRepository{db: db}
}

// Find loads the link for (user, provider).
func (r *PostgresProviderLinkRepository) Find(ctx context.Context, userID kernel.UserID, provider string) (*identity.ProviderLink, error) {
	var link identity.ProviderLink
	query := `SELECT id, user_id, provider, provider_user_id, created_at
		FROM provider_links WHERE user_id = $1 AND provider = $2`
	err := r.db.GetContext(ctx, &link, query, userID.String(), provider)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, identity.ErrLinkNotFound()
		}
		return nil, errx.Wrap(err, "failed to find provider link", errx.TypeInternal).
			WithDetail("provider", provider)
	}
	return &link, nil
}

// FindByProviderID loads the link for an external identity.
func (r *PostgresProviderLinkRepository) FindByProviderID(ctx context.Context, provider, providerUserID string) (*identity.ProviderLink, error) {
	var link identity.ProviderLink
	query := `SELECT id, user_id, provider, provider_user_id, created_at
		FROM provider_links WHERE provider = $1 AND provider_user_id = $2`
	err := r.db.GetContext(ctx, &link, query, provider, providerUserID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, identity.ErrLinkNotFound()
		}
		return nil, errx.Wrap(err, "failed to find provider link by external id", errx.TypeInternal).
			WithDetail("provider", provider)
	}
	return &link, nil
}

// Create inserts a link. Both unique edges, (provider, provider_user_id)
// and (user_id, provider), are enforced by indexes; concurrent linking
// attempts that pass the engine's existence check still collapse to one row.
func (r *PostgresProviderLinkRepository) Create(ctx context.Context, link *identity.ProviderLink) error {
	link.CreatedAt = time.Now().UTC()

	query := `INSERT INTO provider_links (id, user_id, provider, provider_user_id, created_at)
		VALUES (:id, :user_id, :provider, :provider_user_id, :created_at)`
	_, err := r.db.NamedExecContext(ctx, query, link)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == uniqueViolation {
			return identity.ErrDuplicateLink()
		}
		return errx.Wrap(err, "failed to create provider link", errx.TypeInternal).
			WithDetail("provider", link.Provider)
	}
	return nil
}

// Delete removes the link for (user, provider).
func (r *PostgresProviderLinkRepository) Delete(ctx context.Context, userID kernel.UserID, provider string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM provider_links WHERE user_id = $1 AND provider = $2`,
		userID.String(), provider)
	if err != nil {
		return errx.Wrap(err, "failed to delete provider link", errx.TypeInternal).
			WithDetail("provider", provider)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return errx.Wrap(err, "failed to get rows affected", errx.TypeInternal)
	}
	if rows == 0 {
		return identity.ErrLinkNotFound()
	}
	return nil
}

// CountExcluding counts the user's links to other providers.
func (r *PostgresProviderLinkRepository) CountExcluding(ctx context.Context, userID kernel.UserID, provider string) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM provider_links WHERE user_id = $1 AND provider <> $2`
	err := r.db.GetContext(ctx, &count, query, userID.String(), provider)
	if err != nil {
		return 0, errx.Wrap(err, "failed to count provider links", errx.TypeInternal)
	}
	return count, nil
}
