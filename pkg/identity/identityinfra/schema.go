package identityinfra

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/veridian-labs/veridian/pkg/errx"
)

// schema is the identity-graph DDL. Idempotent; applied at startup.
const schema = `
CREATE TABLE IF NOT EXISTS users (
	id            UUID PRIMARY KEY,
	email         TEXT NOT NULL,
	username      TEXT NOT NULL,
	password_hash TEXT,
	deleted_at    TIMESTAMPTZ,
	created_at    TIMESTAMPTZ NOT NULL,
	updated_at    TIMESTAMPTZ NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS users_email_key ON users (LOWER(email));

CREATE TABLE IF NOT EXISTS roles (
	id         UUID PRIMARY KEY,
	name       TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS roles_name_key ON roles (LOWER(name));

CREATE TABLE IF NOT EXISTS user_roles (
	user_id     UUID NOT NULL REFERENCES users (id) ON DELETE CASCADE,
	role_id     UUID NOT NULL REFERENCES roles (id) ON DELETE CASCADE,
	assigned_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (user_id, role_id)
);

CREATE TABLE IF NOT EXISTS provider_links (
	id               UUID PRIMARY KEY,
	user_id          UUID NOT NULL REFERENCES users (id) ON DELETE CASCADE,
	provider         TEXT NOT NULL,
	provider_user_id TEXT NOT NULL,
	created_at       TIMESTAMPTZ NOT NULL,
	UNIQUE (provider, provider_user_id),
	UNIQUE (user_id, provider)
);
`

// EnsureSchema applies the identity DDL.
func EnsureSchema(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return errx.Wrap(err, "failed to apply identity schema", errx.TypeInternal)
	}
	return nil
}
