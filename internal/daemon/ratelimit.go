package daemon

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/felixgeelhaar/fortify/ratelimit"
)

// learnerLimiter rate limits the expensive per-learner endpoints
type learnerLimiter struct {
	limiter ratelimit.RateLimiter
	retry   time.Duration
}

// newLearnerLimiter allows perMinute requests per learner with bursts of
// the same size. It returns nil when perMinute is not positive.
func newLearnerLimiter(perMinute int) *learnerLimiter {
	if perMinute <= 0 {
		return nil
	}
	return &learnerLimiter{
		limiter: ratelimit.New(&ratelimit.Config{
			Rate:     perMinute,
			Burst:    perMinute,
			Interval: time.Minute,
		}),
		retry: time.Minute / time.Duration(perMinute),
	}
}

// wrap limits next by the {id} path value
func (l *learnerLimiter) wrap(next http.HandlerFunc) http.HandlerFunc {
	if l == nil {
		return next
	}
	return func(w http.ResponseWriter, r *http.Request) {
		key := r.PathValue("id")
		if !l.limiter.Allow(r.Context(), key) {
			slog.Warn("rate limit exceeded",
				"user_id", key,
				"path", r.URL.Path,
				"correlation_id", GetCorrelationID(r.Context()),
			)
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", strconv.Itoa(max(int(l.retry.Seconds()), 1)))
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":"too many evaluation requests, please wait before trying again","status":429}` + "\n"))
			return
		}
		next(w, r)
	}
}

func (l *learnerLimiter) close(context.Context) error {
	if l == nil {
		return nil
	}
	return l.limiter.Close()
}
