package config

import "time"

// OAuthConfig configures the external identity providers.
type OAuthConfig struct {
	Google OAuthProviderConfig `envPrefix:"OAUTH_GOOGLE_"`
	GitHub OAuthProviderConfig `envPrefix:"OAUTH_GITHUB_"`

	// StateTTL bounds how long a CSRF state nonce stays valid between the
	// redirect to the provider and the callback.
	StateTTL time.Duration `env:"OAUTH_STATE_TTL" envDefault:"10m"`

	// SuccessRedirect is where the callback sends the browser with the
	// issued token attached.
	SuccessRedirect string `env:"OAUTH_SUCCESS_REDIRECT" envDefault:"/"`
}

type OAuthProviderConfig struct {
	Enabled      bool   `env:"ENABLED" envDefault:"false"`
	ClientID     string `env:"CLIENT_ID"`
	ClientSecret string `env:"CLIENT_SECRET"`
	RedirectURL  string `env:"REDIRECT_URL"`
}
