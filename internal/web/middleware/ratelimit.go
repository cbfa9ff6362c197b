package middleware

import (
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/conduit-lang/metastore/internal/web/auth"
	webcontext "github.com/conduit-lang/metastore/internal/web/context"
	"github.com/conduit-lang/metastore/internal/web/ratelimit"
	"github.com/conduit-lang/metastore/internal/web/response"
)

// RateLimit throttles requests per acting principal, or per client address
// for anonymous requests. Admins are not limited. Limiter errors let the
// request through.
func RateLimit(limiter ratelimit.Limiter, logger *zap.Logger) Middleware {
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if auth.IsAdmin(r.Context()) {
				next.ServeHTTP(w, r)
				return
			}

			info, err := limiter.Allow(r.Context(), RateLimitKey(r))
			if err != nil {
				logger.Warn("rate limit check failed",
					zap.String("request_id", webcontext.GetRequestID(r.Context())),
					zap.Error(err),
				)
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(info.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(info.Remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(info.ResetAt.Unix(), 10))

			if !info.Allowed {
				w.Header().Set("Retry-After", strconv.FormatInt(info.RetryAfter(time.Now()), 10))
				response.RenderError(w, r, http.StatusTooManyRequests, fmt.Errorf("rate limit exceeded"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RateLimitKey is "principal:<guid>" for logged-in requests and
// "ip:<addr>" otherwise
func RateLimitKey(r *http.Request) string {
	if guid := webcontext.GetPrincipal(r.Context()); guid != 0 {
		return "principal:" + strconv.FormatInt(guid, 10)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}
