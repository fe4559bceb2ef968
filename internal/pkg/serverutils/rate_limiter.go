package serverutils

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
)

// RateLimiter enforces fixed one-minute windows per caller per route.
// Counters live in Redis so limits hold across replicas; when Redis is down
// the limiter degrades to a per-instance in-memory window instead of
// failing requests.
type RateLimiter struct {
	rdb       *redis.Client
	local     *cache.Cache
	localMu   sync.Mutex
	onLimited func(ctx *fiber.Ctx, caller string)
}

// NewRateLimiter builds a limiter over the given Redis client. onLimited,
// when non-nil, is invoked with the caller key each time a request is
// rejected.
func NewRateLimiter(rdb *redis.Client, onLimited func(ctx *fiber.Ctx, caller string)) *RateLimiter {
	return &RateLimiter{
		rdb:       rdb,
		local:     cache.New(2*time.Minute, 5*time.Minute),
		onLimited: onLimited,
	}
}

// Limit returns a middleware allowing perMinute requests per caller.
// The caller key is the authenticated user id when present, otherwise the
// client IP (honoring X-Forwarded-For from the edge proxy).
func (rl *RateLimiter) Limit(perMinute int) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		caller := rl.callerKey(ctx)
		window := time.Now().Unix() / 60
		key := fmt.Sprintf("ratelimit:%s:%s:%d", ctx.Route().Path, caller, window)

		count, err := rl.incr(ctx, key)
		if err != nil {
			count = rl.incrLocal(key)
		}

		if count > int64(perMinute) {
			if rl.onLimited != nil {
				rl.onLimited(ctx, caller)
			}
			retryAfter := 60 - time.Now().Unix()%60
			ctx.Set("Retry-After", strconv.FormatInt(retryAfter, 10))
			return ctx.Status(fiber.StatusTooManyRequests).
				JSON(ErrorResponse("RATE_LIMIT_EXCEEDED", "Too many requests, slow down"))
		}
		return ctx.Next()
	}
}

func (rl *RateLimiter) callerKey(ctx *fiber.Ctx) string {
	if userId, ok := ctx.Locals("user_id").(string); ok && userId != "" {
		return userId
	}
	if fwd := ctx.Get("X-Forwarded-For"); fwd != "" {
		if idx := strings.Index(fwd, ","); idx > 0 {
			return strings.TrimSpace(fwd[:idx])
		}
		return strings.TrimSpace(fwd)
	}
	return ctx.IP()
}

func (rl *RateLimiter) incr(ctx *fiber.Ctx, key string) (int64, error) {
	if rl.rdb == nil {
		return 0, fmt.Errorf("redis not configured")
	}
	pipe := rl.rdb.TxPipeline()
	incr := pipe.Incr(ctx.UserContext(), key)
	pipe.Expire(ctx.UserContext(), key, 2*time.Minute)
	if _, err := pipe.Exec(ctx.UserContext()); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

// incrLocal holds a mutex across the increment-or-init so two concurrent
// first requests in a window cannot both observe a count of 1.
func (rl *RateLimiter) incrLocal(key string) int64 {
	rl.localMu.Lock()
	defer rl.localMu.Unlock()
	n, err := rl.local.IncrementInt64(key, 1)
	if err != nil {
		rl.local.Set(key, int64(1), cache.DefaultExpiration)
		return 1
	}
	return n
}
