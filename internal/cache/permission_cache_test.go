package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCacheExpiry(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(time.Minute)
	now := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	require.NoError(t, c.Set(ctx, "role-a", []string{"inventory.view"}))

	codes, ok, err := c.Get(ctx, "role-a")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{"inventory.view"}, codes)

	now = now.Add(2 * time.Minute)
	_, ok, err = c.Get(ctx, "role-a")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryCacheInvalidate(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(time.Minute)
	require.NoError(t, c.Set(ctx, "a", []string{"x.view"}))
	require.NoError(t, c.Set(ctx, "b", []string{"y.view"}))

	require.NoError(t, c.Invalidate(ctx, "a"))
	_, ok, _ := c.Get(ctx, "a")
	assert.False(t, ok)
	_, ok, _ = c.Get(ctx, "b")
	assert.True(t, ok)

	require.NoError(t, c.Invalidate(ctx, ""))
	_, ok, _ = c.Get(ctx, "b")
	assert.False(t, ok)
}
