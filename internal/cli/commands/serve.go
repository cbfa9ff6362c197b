package commands

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/conduit-lang/metastore/internal/web/cache"
	webcontext "github.com/conduit-lang/metastore/internal/web/context"
	"github.com/conduit-lang/metastore/internal/web/export"
	"github.com/conduit-lang/metastore/internal/web/middleware"
	"github.com/conduit-lang/metastore/internal/web/ratelimit"
	"github.com/conduit-lang/metastore/internal/web/server"
)

func newServeCommand(flags *globalFlags) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve metadata export URLs and metrics over HTTP",
		Long: `Serve the export routes behind the URLs printed by "metastore url":

  GET /export/metadata/{id}
  GET /export/entity/{guid}/metadata
  GET /metrics

Requests run as the principal given by --as.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			cmd.SetContext(ctx)

			return withApp(cmd, flags, func(_ context.Context, a *app) error {
				cfg := a.cfg.Server
				if port != 0 {
					cfg.Port = port
				}

				chain := []middleware.Middleware{
					middleware.Timeout(cfg.RequestTimeout),
					middleware.Acting(flags.as, flags.roles...),
					visibilityMiddleware(flags),
				}
				var closeLimiter server.ShutdownHook
				if cfg.RateLimit > 0 {
					limiter, closer, err := newRateLimiter(a, cfg.RateLimit)
					if err != nil {
						return err
					}
					closeLimiter = closer
					chain = append(chain, middleware.RateLimit(limiter, a.logger.Named("ratelimit")))
				}

				router := export.NewRouter(a.store, export.Options{
					Logger:     a.logger.Named("http"),
					Gatherer:   a.registry,
					Pprof:      cfg.Pprof,
					Middleware: chain,
				})

				writeTimeout := 15 * time.Second
				if cfg.RequestTimeout > 0 {
					writeTimeout = cfg.RequestTimeout + 5*time.Second
				}
				srv, err := server.New(cfg.Addr(), router, server.WithTimeouts(15*time.Second, writeTimeout))
				if err != nil {
					return err
				}
				if err := srv.Listen(); err != nil {
					return err
				}

				gs := server.NewGracefulShutdown(srv, 0, a.logger.Named("server"))
				if closeLimiter != nil {
					gs.RegisterHook("ratelimit", closeLimiter)
				}

				fmt.Fprintf(cmd.OutOrStdout(), "Serving metadata on %s\n", srv.URL())
				if err := gs.Run(ctx); err != nil {
					a.logger.Error("server stopped", zap.Error(err))
					return err
				}
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "listen port (overrides server.port)")
	return cmd
}

// visibilityMiddleware applies --ignore-access and --show-hidden to requests
func visibilityMiddleware(flags *globalFlags) middleware.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := webcontext.WithIgnoreAccess(r.Context(), flags.ignoreAccess)
			ctx = webcontext.WithShowHidden(ctx, flags.showHidden)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// newRateLimiter shares limits through Redis when the cache does, and keeps
// them in process otherwise
func newRateLimiter(a *app, perMinute int) (ratelimit.Limiter, server.ShutdownHook, error) {
	if rc, ok := a.backend.(*cache.RedisCache); ok {
		limiter, err := ratelimit.NewRedisLimiter(ratelimit.RedisLimiterConfig{
			Client: rc.Client(),
			Limit:  perMinute,
			Window: time.Minute,
			Prefix: a.cfg.Cache.Prefix + "ratelimit:",
		})
		if err != nil {
			return nil, nil, err
		}
		return limiter, func(context.Context) error { return nil }, nil
	}

	tb := ratelimit.NewTokenBucket(ratelimit.TokenBucketConfig{
		Capacity:        perMinute,
		Window:          time.Minute,
		CleanupInterval: 5 * time.Minute,
	})
	return tb, func(context.Context) error { return tb.Close() }, nil
}
