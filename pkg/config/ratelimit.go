package config

import "time"

// RateLimitConfig configures the fixed-window IP policies and the
// role-derived quotas.
type RateLimitConfig struct {
	// AllowList holds client IPs that bypass every policy.
	AllowList []string `env:"RATELIMIT_ALLOWLIST" envSeparator:","`

	Generic     WindowConfig `envPrefix:"RATELIMIT_GENERIC_"`
	Login       WindowConfig `envPrefix:"RATELIMIT_LOGIN_"`
	Register    WindowConfig `envPrefix:"RATELIMIT_REGISTER_"`
	Refresh     WindowConfig `envPrefix:"RATELIMIT_REFRESH_"`
	OAuthLogin  WindowConfig `envPrefix:"RATELIMIT_OAUTH_LOGIN_"`
	OAuthLink   WindowConfig `envPrefix:"RATELIMIT_OAUTH_LINK_"`
	OAuthUnlink WindowConfig `envPrefix:"RATELIMIT_OAUTH_UNLINK_"`

	// Role quotas, highest priority first: admin > user > default.
	Admin   WindowConfig `envPrefix:"RATELIMIT_ROLE_ADMIN_"`
	User    WindowConfig `envPrefix:"RATELIMIT_ROLE_USER_"`
	Default WindowConfig `envPrefix:"RATELIMIT_ROLE_DEFAULT_"`
}

// WindowConfig is one fixed-window ceiling: Max requests per Window.
type WindowConfig struct {
	Max    int64         `env:"MAX" envDefault:"60"`
	Window time.Duration `env:"WINDOW" envDefault:"1m"`
}
