package middleware

import (
	"fmt"
	"net/http"

	"go.uber.org/zap"

	webcontext "github.com/conduit-lang/metastore/internal/web/context"
	"github.com/conduit-lang/metastore/internal/web/response"
)

// Recovery creates a middleware that turns panics into 500 responses
func Recovery(logger *zap.Logger) Middleware {
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if v := recover(); v != nil {
					logger.Error("panic recovered",
						zap.String("request_id", webcontext.GetRequestID(r.Context())),
						zap.Any("panic", v),
						zap.Stack("stack"),
					)
					response.RenderError(w, r, http.StatusInternalServerError, fmt.Errorf("an unexpected error occurred"))
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
