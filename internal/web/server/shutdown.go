package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ShutdownHook releases a resource once the server has stopped
type ShutdownHook func(ctx context.Context) error

type namedHook struct {
	name string
	fn   ShutdownHook
}

// GracefulShutdown serves until its context is cancelled, then drains
// in-flight requests and runs the registered hooks.
type GracefulShutdown struct {
	server  *Server
	hooks   []namedHook
	timeout time.Duration
	logger  *zap.Logger
	mu      sync.Mutex
}

// NewGracefulShutdown creates a new graceful shutdown handler
func NewGracefulShutdown(server *Server, timeout time.Duration, logger *zap.Logger) *GracefulShutdown {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GracefulShutdown{
		server:  server,
		timeout: timeout,
		logger:  logger,
	}
}

// RegisterHook adds a hook run after the server stops. Hooks run in reverse
// registration order.
func (gs *GracefulShutdown) RegisterHook(name string, hook ShutdownHook) {
	gs.mu.Lock()
	defer gs.mu.Unlock()
	gs.hooks = append(gs.hooks, namedHook{name: name, fn: hook})
}

// Run serves until ctx is done or the server fails. Callers wire OS
// signals into ctx with signal.NotifyContext.
func (gs *GracefulShutdown) Run(ctx context.Context) error {
	if err := gs.server.Listen(); err != nil {
		return err
	}

	errChan := make(chan error, 1)
	go func() {
		gs.logger.Info("server listening", zap.String("url", gs.server.URL()))
		if err := gs.server.Serve(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("server failed: %w", err)
		}
		close(errChan)
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
	}

	gs.logger.Info("shutting down", zap.Duration("timeout", gs.timeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), gs.timeout)
	defer cancel()

	var shutdownErr error
	if err := gs.server.Shutdown(shutdownCtx); err != nil {
		shutdownErr = fmt.Errorf("server shutdown error: %w", err)
	}

	gs.mu.Lock()
	hooks := make([]namedHook, len(gs.hooks))
	copy(hooks, gs.hooks)
	gs.mu.Unlock()

	for i := len(hooks) - 1; i >= 0; i-- {
		if err := hooks[i].fn(shutdownCtx); err != nil {
			gs.logger.Warn("shutdown hook failed", zap.String("hook", hooks[i].name), zap.Error(err))
		}
	}

	return shutdownErr
}
