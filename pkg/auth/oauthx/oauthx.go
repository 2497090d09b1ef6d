// Package oauthx adapts external OAuth identity providers behind a small
// interface. Adapters return identity facts only; login, registration, and
// linking decisions belong to the reconciliation engine.
package oauthx

import (
	"context"
	"net/http"

	"github.com/veridian-labs/veridian/pkg/errx"
)

// Profile is a normalized external identity.
type Profile struct {
	Provider       string `json:"provider"`
	ProviderUserID string `json:"provider_user_id"`
	Email          string `json:"email"` // may be empty
	Name           string `json:"name"`
}

// Provider is the contract every external identity provider implements.
type Provider interface {
	// Name returns the provider identifier (e.g. "google", "github").
	Name() string

	// AuthCodeURL returns the provider consent URL carrying the state.
	AuthCodeURL(state string) string

	// Exchange trades the authorization code for a normalized profile.
	Exchange(ctx context.Context, code string) (*Profile, error)
}

// Registry maps provider names to adapters.
type Registry map[string]Provider

// Get looks up a provider by name.
func (r Registry) Get(name string) (Provider, bool) {
	p, ok := r[name]
	return p, ok
}

var ErrRegistryX = errx.NewRegistry("OAUTHX")

var (
	CodeExchangeFailed = ErrRegistryX.Register("EXCHANGE_FAILED", errx.TypeExternal, http.StatusBadGateway, "Failed to exchange authorization code")
	CodeProfileFailed  = ErrRegistryX.Register("PROFILE_FAILED", errx.TypeExternal, http.StatusBadGateway, "Failed to fetch user profile")
)
