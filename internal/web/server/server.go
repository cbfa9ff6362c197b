// Package server runs the export HTTP server and stops it gracefully.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"
)

// DefaultAddress is used when New is given an empty address
const DefaultAddress = ":3000"

// Server serves one handler on a TCP listener
type Server struct {
	httpServer *http.Server

	mu       sync.Mutex
	listener net.Listener
}

// Option tunes the underlying http.Server
type Option func(*http.Server)

// WithTimeouts sets the read and write deadlines. The write deadline should
// exceed any per-request timeout so handlers can still render their error.
func WithTimeouts(read, write time.Duration) Option {
	return func(s *http.Server) {
		s.ReadTimeout = read
		s.WriteTimeout = write
	}
}

// WithIdleTimeout sets how long keep-alive connections stay open
func WithIdleTimeout(d time.Duration) Option {
	return func(s *http.Server) {
		s.IdleTimeout = d
	}
}

// New creates a server for handler on addr
func New(addr string, handler http.Handler, opts ...Option) (*Server, error) {
	if handler == nil {
		return nil, errors.New("server: handler cannot be nil")
	}
	if addr == "" {
		addr = DefaultAddress
	}

	hs := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		MaxHeaderBytes:    64 << 10,
	}
	for _, opt := range opts {
		opt(hs)
	}
	return &Server{httpServer: hs}, nil
}

// Listen binds the address without serving yet. Calling it again is a no-op.
func (s *Server) Listen() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener != nil {
		return nil
	}
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("server: listen on %s: %w", s.httpServer.Addr, err)
	}
	s.listener = ln
	return nil
}

// Serve accepts connections until Shutdown, binding first if needed
func (s *Server) Serve() error {
	if err := s.Listen(); err != nil {
		return err
	}
	s.mu.Lock()
	ln := s.listener
	s.mu.Unlock()
	return s.httpServer.Serve(ln)
}

// Shutdown stops accepting connections and waits for in-flight requests
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Addr returns the bound address once listening, or the configured one
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.httpServer.Addr
}

// URL returns the base URL clients use to reach the server
func (s *Server) URL() string {
	addr := s.Addr()
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "http://" + addr
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	return "http://" + net.JoinHostPort(host, port)
}
