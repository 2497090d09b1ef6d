package config

import "time"

// AuthConfig configures token signing and password hashing.
type AuthConfig struct {
	JWT      JWTConfig
	Password PasswordConfig

	// DefaultRole is assigned to every new principal. Its absence in the
	// identity store is a fatal startup condition.
	DefaultRole string `env:"AUTH_DEFAULT_ROLE" envDefault:"user"`
}

// JWTConfig carries the two independent token classes. Access and refresh
// tokens are signed with distinct secrets so one class can never be
// replayed as the other.
type JWTConfig struct {
	AccessSecret  string        `env:"JWT_ACCESS_SECRET,notEmpty"`
	RefreshSecret string        `env:"JWT_REFRESH_SECRET,notEmpty"`
	AccessTTL     time.Duration `env:"JWT_ACCESS_TTL" envDefault:"15m"`
	RefreshTTL    time.Duration `env:"JWT_REFRESH_TTL" envDefault:"168h"`
	Issuer        string        `env:"JWT_ISSUER" envDefault:"veridian"`
}

type PasswordConfig struct {
	BcryptCost int `env:"AUTH_BCRYPT_COST" envDefault:"12"`
}
