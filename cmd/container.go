// cmd/container.go
//
// Root composition root. Owns infrastructure (DB, Redis, mailer) and wires
// the auth, identity, and rate-limit modules. This is the only place that
// knows about ALL modules.
package main

import (
	"context"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/veridian-labs/veridian/pkg/auth"
	"github.com/veridian-labs/veridian/pkg/auth/authinfra"
	"github.com/veridian-labs/veridian/pkg/auth/oauthx"
	"github.com/veridian-labs/veridian/pkg/config"
	"github.com/veridian-labs/veridian/pkg/errx"
	"github.com/veridian-labs/veridian/pkg/identity"
	"github.com/veridian-labs/veridian/pkg/identity/identityinfra"
	"github.com/veridian-labs/veridian/pkg/kernel"
	"github.com/veridian-labs/veridian/pkg/logx"
	"github.com/veridian-labs/veridian/pkg/notify"
	"github.com/veridian-labs/veridian/pkg/ratelimit"
)

// Container holds shared infrastructure and the composed modules.
type Container struct {
	Config *config.Config

	DB    *sqlx.DB
	Redis *redis.Client

	AuthHandlers   *auth.Handlers
	AuthMiddleware *auth.TokenMiddleware
	Limiter        *ratelimit.Limiter
	RouteLimiters  auth.RouteLimiters
	RoleQuotas     []ratelimit.RoleQuota
}

func NewContainer(cfg *config.Config) *Container {
	logx.Info("Initializing application container...")

	c := &Container{Config: cfg}

	c.initInfrastructure()
	c.initModules()

	logx.Info("Application container initialized")
	return c
}

// ---------------------------------------------------------------------------
// Infrastructure: DB, Redis
// ---------------------------------------------------------------------------

func (c *Container) initInfrastructure() {
	db, err := sqlx.Connect("postgres", c.Config.Database.DSN())
	if err != nil {
		logx.Fatalf("Failed to connect to database: %v", err)
	}
	db.SetMaxOpenConns(c.Config.Database.MaxOpenConns)
	db.SetMaxIdleConns(c.Config.Database.MaxIdleConns)
	db.SetConnMaxLifetime(c.Config.Database.ConnMaxLifetime)
	c.DB = db
	logx.Info("Database connected")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := identityinfra.EnsureSchema(ctx, db); err != nil {
		logx.Fatalf("Failed to apply identity schema: %v", err)
	}

	if c.Config.Redis.Enabled {
		c.Redis = redis.NewClient(&redis.Options{
			Addr:     c.Config.Redis.Address(),
			Password: c.Config.Redis.Password,
			DB:       c.Config.Redis.DB,
		})
		if _, err := c.Redis.Ping(ctx).Result(); err != nil {
			logx.Fatalf("Failed to connect to Redis: %v", err)
		}
		logx.Info("Redis connected")
	}
}

// ---------------------------------------------------------------------------
// Module composition
// ---------------------------------------------------------------------------

func (c *Container) initModules() {
	cfg := c.Config

	// Repositories

	userRepo := identityinfra.NewPostgresUserRepository(c.DB)
	roleRepo := identityinfra.NewPostgresRoleRepository(c.DB)
	userRoleRepo := identityinfra.NewPostgresUserRoleRepository(c.DB)
	linkRepo := identityinfra.NewPostgresProviderLinkRepository(c.DB)

	c.ensureDefaultRole(roleRepo)

	// Infrastructure services

	tokens := auth.NewJWTServiceFromConfig(&cfg.Auth.JWT)
	passwords := authinfra.NewBcryptPasswordService(cfg.Auth.Password.BcryptCost)
	notifier := c.buildNotifier()

	var states auth.StateStore
	var counters ratelimit.CounterStore
	if c.Redis != nil {
		states = authinfra.NewRedisStateStore(c.Redis)
		counters = ratelimit.NewRedisStore(c.Redis)
		logx.Info("Using Redis for OAuth state and rate-limit counters")
	} else {
		states = authinfra.NewMemoryStateStore()
		counters = ratelimit.NewMemoryStore()
		logx.Warn("Using in-memory OAuth state and rate-limit counters (single process only)")
	}

	// OAuth providers

	providers := oauthx.Registry{}
	if cfg.OAuth.Google.Enabled {
		providers["google"] = oauthx.NewGoogleProvider(&cfg.OAuth.Google)
		logx.Info("Google OAuth enabled")
	}
	if cfg.OAuth.GitHub.Enabled {
		providers["github"] = oauthx.NewGitHubProvider(&cfg.OAuth.GitHub)
		logx.Info("GitHub OAuth enabled")
	}

	// Domain services

	service := auth.NewService(
		userRepo, roleRepo, userRoleRepo, linkRepo,
		tokens, passwords, notifier, cfg.Auth.DefaultRole,
	)

	reconciler := auth.NewReconciler(
		userRepo, roleRepo, userRoleRepo, linkRepo,
		tokens, notifier, cfg.Auth.DefaultRole,
	)

	// Middleware and handlers

	c.AuthMiddleware = auth.NewTokenMiddleware(tokens, userRepo, roleRepo)

	c.Limiter = ratelimit.NewLimiter(counters, cfg.RateLimit.AllowList)
	c.RouteLimiters = auth.RouteLimiters{
		Login:       c.Limiter.ByIP(ratelimit.PolicyFromConfig("login", cfg.RateLimit.Login)),
		Register:    c.Limiter.ByIP(ratelimit.PolicyFromConfig("register", cfg.RateLimit.Register)),
		Refresh:     c.Limiter.ByIP(ratelimit.PolicyFromConfig("refresh", cfg.RateLimit.Refresh)),
		OAuthLogin:  c.Limiter.ByIP(ratelimit.PolicyFromConfig("oauth-login", cfg.RateLimit.OAuthLogin)),
		OAuthLink:   c.Limiter.ByIP(ratelimit.PolicyFromConfig("oauth-link", cfg.RateLimit.OAuthLink)),
		OAuthUnlink: c.Limiter.ByIP(ratelimit.PolicyFromConfig("oauth-unlink", cfg.RateLimit.OAuthUnlink)),
	}

	// Role quotas, highest priority first; the empty role is the fallback.
	c.RoleQuotas = []ratelimit.RoleQuota{
		{Role: "admin", Max: cfg.RateLimit.Admin.Max, Window: cfg.RateLimit.Admin.Window},
		{Role: "user", Max: cfg.RateLimit.User.Max, Window: cfg.RateLimit.User.Window},
		{Role: "", Max: cfg.RateLimit.Default.Max, Window: cfg.RateLimit.Default.Window},
	}

	c.AuthHandlers = auth.NewHandlers(service, reconciler, providers, states, tokens, &cfg.OAuth)
}

// ensureDefaultRole guarantees the configured default role exists. Its
// absence is a fatal startup condition, not a per-request error.
func (c *Container) ensureDefaultRole(roles identity.RoleRepository) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	name := c.Config.Auth.DefaultRole
	if _, err := roles.FindByName(ctx, name); err == nil {
		return
	} else if !errx.IsType(err, errx.TypeNotFound) {
		logx.Fatalf("Failed to look up default role %q: %v", name, err)
	}

	role := &identity.Role{ID: kernel.NewRoleID(uuid.NewString()), Name: name}
	if err := roles.Create(ctx, role); err != nil && !errx.IsType(err, errx.TypeConflict) {
		logx.Fatalf("Default role %q is missing and could not be created: %v", name, err)
	}
	logx.Infof("Default role %q created", name)
}

func (c *Container) buildNotifier() notify.Notifier {
	if c.Config.Notify.Mode != "ses" {
		return notify.NewConsoleNotifier()
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(c.Config.Notify.AWSRegion))
	if err != nil {
		logx.Fatalf("Unable to load AWS SDK config: %v", err)
	}
	logx.Info("SES notifier enabled")
	return notify.NewSESNotifier(ses.NewFromConfig(awsCfg), c.Config.Notify.Sender)
}

// ---------------------------------------------------------------------------
// Lifecycle
// ---------------------------------------------------------------------------

func (c *Container) Cleanup() {
	logx.Info("Cleaning up resources...")

	if c.DB != nil {
		if err := c.DB.Close(); err != nil {
			logx.Errorf("Error closing database: %v", err)
		}
	}

	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			logx.Errorf("Error closing Redis: %v", err)
		}
	}
}
