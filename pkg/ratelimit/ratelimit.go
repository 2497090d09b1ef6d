// Package ratelimit implements layered fixed-window rate limiting: per-IP
// policies for each sensitive route class, and a role-derived policy for
// authenticated traffic. Counters live behind a pluggable CounterStore so a
// multi-process deployment can swap the in-memory store for Redis.
package ratelimit

import (
	"net/http"
	"time"

	"github.com/veridian-labs/veridian/pkg/config"
	"github.com/veridian-labs/veridian/pkg/errx"
)

var ErrRegistry = errx.NewRegistry("RATELIMIT")

var CodeLimitExceeded = ErrRegistry.Register("LIMIT_EXCEEDED", errx.TypeRateLimit, http.StatusTooManyRequests, "Too many requests")

// ErrLimitExceeded builds the 429 carrying the retry hint. The caller must
// back off; the server never retries or escalates.
func ErrLimitExceeded(retryAfter time.Duration) *errx.Error {
	return ErrRegistry.New(CodeLimitExceeded).
		WithDetail("retry_after_seconds", int64(retryAfter.Seconds())+1)
}

// Policy is one fixed-window ceiling for a route class.
type Policy struct {
	Name   string
	Max    int64
	Window time.Duration
}

// PolicyFromConfig builds a named policy from its config section.
func PolicyFromConfig(name string, cfg config.WindowConfig) Policy {
	return Policy{Name: name, Max: cfg.Max, Window: cfg.Window}
}

// RoleQuota binds a quota to a role. An empty Role is the fallback for
// principals holding none of the listed roles.
type RoleQuota struct {
	Role   string
	Max    int64
	Window time.Duration
}
