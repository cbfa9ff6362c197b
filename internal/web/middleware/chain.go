// Package middleware holds the HTTP middleware wrapped around the export
// routes.
package middleware

import "net/http"

// Middleware wraps an http.Handler
type Middleware func(http.Handler) http.Handler

// Chain lists middleware outermost first
type Chain []Middleware

// Then wraps h so the first middleware in the chain sees the request first
func (c Chain) Then(h http.Handler) http.Handler {
	for i := len(c) - 1; i >= 0; i-- {
		h = c[i](h)
	}
	return h
}

// Handlers converts the chain for chi's Router.Use
func (c Chain) Handlers() []func(http.Handler) http.Handler {
	out := make([]func(http.Handler) http.Handler, len(c))
	for i, m := range c {
		out[i] = m
	}
	return out
}
