package ratelimit

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/veridian-labs/veridian/pkg/kernel"
	"github.com/veridian-labs/veridian/pkg/logx"
)

// Limiter builds fiber middleware for the configured policies. All policies
// share one counter store and one IP allow-list; an allow-listed client
// bypasses every policy unconditionally.
type Limiter struct {
	store CounterStore
	allow map[string]struct{}
}

// NewLimiter creates a limiter over the given store.
func NewLimiter(store CounterStore, allowList []string) *Limiter {
	allow := make(map[string]struct{}, len(allowList))
	for _, ip := range allowList {
		allow[ip] = struct{}{}
	}
	return &Limiter{store: store, allow: allow}
}

// ByIP limits a route class per client IP with a fixed window.
func (l *Limiter) ByIP(policy Policy) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if l.bypassed(c.IP()) {
			return c.Next()
		}
		return l.check(c, policy, policy.Name+":ip:"+c.IP())
	}
}

// ByRole limits authenticated traffic per user id, selecting the quota of
// the highest-priority held role. Quotas are ordered highest priority first;
// an empty Role is the fallback. Run it after the authentication middleware.
func (l *Limiter) ByRole(quotas []RoleQuota) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if l.bypassed(c.IP()) {
			return c.Next()
		}

		authCtx, _ := c.Locals(string(kernel.AuthContextKey)).(*kernel.AuthContext)

		quota := selectQuota(quotas, authCtx)
		policy := Policy{Name: "role:" + quotaLabel(quota), Max: quota.Max, Window: quota.Window}

		key := policy.Name + ":"
		if authCtx != nil && authCtx.IsValid() {
			key += "user:" + authCtx.UserID.String()
		} else {
			// No resolved principal (route misconfiguration): fall back to
			// the default quota keyed by IP rather than failing open.
			key += "ip:" + c.IP()
		}

		return l.check(c, policy, key)
	}
}

func (l *Limiter) check(c *fiber.Ctx, policy Policy, key string) error {
	count, remaining, err := l.store.Incr(c.Context(), key, policy.Window)
	if err != nil {
		// Fail open: losing rate limiting is preferable to refusing all
		// traffic while the counter store is down.
		logx.WithFields(logx.Fields{"policy": policy.Name}).
			Warnf("rate-limit store failure, allowing request: %v", err)
		return c.Next()
	}

	if count > policy.Max {
		c.Set(fiber.HeaderRetryAfter, strconv.FormatInt(int64(remaining.Seconds())+1, 10))
		return ErrLimitExceeded(remaining).WithDetail("policy", policy.Name)
	}

	return c.Next()
}

func (l *Limiter) bypassed(ip string) bool {
	_, ok := l.allow[ip]
	return ok
}

func selectQuota(quotas []RoleQuota, authCtx *kernel.AuthContext) RoleQuota {
	for _, q := range quotas {
		if q.Role == "" {
			return q
		}
		if authCtx != nil && authCtx.HasRole(q.Role) {
			return q
		}
	}
	if len(quotas) > 0 {
		return quotas[len(quotas)-1]
	}
	// No quotas configured; effectively unlimited.
	return RoleQuota{Max: int64(^uint64(0) >> 1), Window: 0}
}

func quotaLabel(q RoleQuota) string {
	if q.Role == "" {
		return "default"
	}
	return q.Role
}
