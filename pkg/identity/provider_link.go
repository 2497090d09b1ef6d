package identity

import (
	"time"

	"github.com/veridian-labs/veridian/pkg/kernel"
)

// ProviderLink records that a principal can authenticate via an external
// OAuth identity. Two uniqueness edges hold: (provider, provider_user_id)
// maps one external identity to one local user, and (user_id, provider)
// allows one link per provider per user. Links are created only by the
// reconciliation engine and removed only by an explicit unlink.
type ProviderLink struct {
	ID             string        `db:"id" json:"id"`
	UserID         kernel.UserID `db:"user_id" json:"user_id"`
	Provider       string        `db:"provider" json:"provider"`
	ProviderUserID string        `db:"provider_user_id" json:"provider_user_id"`
	CreatedAt      time.Time     `db:"created_at" json:"created_at"`
}
