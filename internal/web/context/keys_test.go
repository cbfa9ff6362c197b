package context

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrincipal(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, int64(0), GetPrincipal(ctx))

	ctx = SetPrincipal(ctx, 42)
	assert.Equal(t, int64(42), GetPrincipal(ctx))
}

func TestVisibilityFlags(t *testing.T) {
	ctx := context.Background()
	assert.False(t, ShowHidden(ctx))
	assert.False(t, IgnoreAccess(ctx))

	ctx = WithShowHidden(ctx, true)
	ctx = WithIgnoreAccess(ctx, true)
	assert.True(t, ShowHidden(ctx))
	assert.True(t, IgnoreAccess(ctx))

	assert.False(t, ShowHidden(WithShowHidden(ctx, false)))
}

func TestRequestIDAndRoles(t *testing.T) {
	ctx := SetRequestID(context.Background(), "req-1")
	ctx = SetUserRoles(ctx, []string{"admin"})

	assert.Equal(t, "req-1", GetRequestID(ctx))
	assert.Equal(t, []string{"admin"}, GetUserRoles(ctx))
	assert.Nil(t, GetUserRoles(context.Background()))
}
