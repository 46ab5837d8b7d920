package ristretto

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache(t *testing.T) {
	c, err := New(1 << 20)
	require.NoError(t, err)
	defer c.Close()
	ctx := context.Background()

	_, ok, err := c.Get(ctx, "apr_1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "apr_1", []byte(`{"status":"approved"}`), 0))
	value, ok, err := c.Get(ctx, "apr_1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `{"status":"approved"}`, string(value))

	require.NoError(t, c.Delete(ctx, "apr_1"))
	_, ok, _ = c.Get(ctx, "apr_1")
	assert.False(t, ok)
}
