package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient(t *testing.T) {
	mr := miniredis.RunT(t)

	c, err := NewClient(context.Background(), Options{Addr: mr.Addr(), PoolSize: 4}, nil)
	require.NoError(t, err)
	defer c.Close()
	assert.NoError(t, c.Check(context.Background()))

	mr.Close()
	assert.Error(t, c.Check(context.Background()))
}

func TestNewClientUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := NewClient(context.Background(), Options{Addr: addr}, nil)
	assert.Error(t, err)
}
