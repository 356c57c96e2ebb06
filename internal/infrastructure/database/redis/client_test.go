package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haebom/tariff/internal/infrastructure/monitoring/logging"
	pkgerrors "github.com/haebom/tariff/pkg/errors"
)

func newTestClient(t *testing.T, prefix string) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c, err := NewClient(context.Background(), Options{Addr: mr.Addr(), KeyPrefix: prefix}, logging.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func TestNewClient_Success(t *testing.T) {
	c, _ := newTestClient(t, "")
	assert.NoError(t, c.Ping(context.Background()))
}

func TestNewClient_ConnectionFailed(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	c, err := NewClient(context.Background(), Options{Addr: addr}, logging.NewNopLogger())
	require.Error(t, err)
	assert.Nil(t, c)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.ErrCodeServiceUnavailable))
}

func TestClient_Key(t *testing.T) {
	c, _ := newTestClient(t, "tariff:")
	assert.Equal(t, "tariff:news:abc", c.Key("news", "abc"))
	assert.Equal(t, "tariff:", c.Prefix())
}

func TestClient_CloseTwice(t *testing.T) {
	c, _ := newTestClient(t, "")
	require.NoError(t, c.Close())
	assert.NoError(t, c.Close())
	assert.ErrorIs(t, c.Ping(context.Background()), ErrClientClosed)
}
