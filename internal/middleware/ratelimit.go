package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/AnshRaj112/vibes-platform/pkg/clientip"
)

const (
	// RateLimitWindow is 120 seconds
	RateLimitWindow = 120 * time.Second
	// RateLimitMaxRequests is the maximum number of auth attempts allowed in the window
	RateLimitMaxRequests = 25
	// RateLimitKeyPrefix is the Redis key prefix for rate limiting
	RateLimitKeyPrefix = "ratelimit:"
	// BlockedIPKeyPrefix is the Redis key prefix for blocked IPs
	BlockedIPKeyPrefix = "blocked_ip:"
	// BlockedIPDuration is how long an IP stays blocked
	BlockedIPDuration = time.Hour
)

// RedisAuthLimit counts credential and invite-check attempts per IP across
// every BFF instance and blocks an IP that exceeds RateLimitMaxRequests within
// RateLimitWindow. Redis failures fail open.
func RedisAuthLimit(client *redis.Client) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if client == nil || !authPaths[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}
			ctx := r.Context()
			ip := clientip.FromRequest(r)
			blockedKey := BlockedIPKeyPrefix + ip

			blocked, err := client.Exists(ctx, blockedKey).Result()
			if err == nil && blocked > 0 {
				tooManyRequests(w, "Your IP has been temporarily blocked due to excessive requests. Please try again later.")
				return
			}

			pipe := client.TxPipeline()
			incr := pipe.Incr(ctx, RateLimitKeyPrefix+ip)
			pipe.ExpireNX(ctx, RateLimitKeyPrefix+ip, RateLimitWindow)
			if _, err := pipe.Exec(ctx); err != nil {
				next.ServeHTTP(w, r)
				return
			}
			count := int(incr.Val())

			if count > RateLimitMaxRequests {
				client.Set(ctx, blockedKey, "1", BlockedIPDuration)
				w.Header().Set("Retry-After", fmt.Sprint(int(BlockedIPDuration.Seconds())))
				tooManyRequests(w, "Rate limit exceeded. Your IP has been temporarily blocked. Please try again later.")
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(RateLimitMaxRequests))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(RateLimitMaxRequests-count))
			next.ServeHTTP(w, r)
		})
	}
}
