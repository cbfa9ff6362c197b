package auth

import "context"

// Session exposes the principal acting in the current request
type Session interface {
	CurrentPrincipalID(ctx context.Context) int64
}

// ContextSession reads the principal from the request context
type ContextSession struct{}

// CurrentPrincipalID implements Session
func (ContextSession) CurrentPrincipalID(ctx context.Context) int64 {
	return GetCurrentPrincipal(ctx)
}

// StaticSession always reports the same principal; used by the CLI
type StaticSession int64

// CurrentPrincipalID implements Session
func (s StaticSession) CurrentPrincipalID(ctx context.Context) int64 {
	if guid := GetCurrentPrincipal(ctx); guid != 0 {
		return guid
	}
	return int64(s)
}
