package auth

import (
	"context"
	"time"

	"github.com/veridian-labs/veridian/pkg/kernel"
)

// TokenService defines the contract for the two independent token classes.
// Verification is synchronous and CPU-bound; it never suspends and never
// panics for business reasons; each failure is a registered error code.
type TokenService interface {
	IssueAccess(userID kernel.UserID) (string, error)
	IssueRefresh(userID kernel.UserID) (string, error)
	VerifyAccess(token string) (*TokenClaims, error)
	VerifyRefresh(token string) (*TokenClaims, error)
}

// PasswordService defines the contract for password hashing.
type PasswordService interface {
	Hash(password string) (string, error)
	Compare(hash, password string) bool
}

// StateStore holds OAuth CSRF state nonces across the redirect round-trip.
// Consume is one-shot: a nonce can only ever be redeemed once.
type StateStore interface {
	Save(ctx context.Context, state, provider string, ttl time.Duration) error
	Consume(ctx context.Context, state string) (provider string, ok bool, err error)
}
