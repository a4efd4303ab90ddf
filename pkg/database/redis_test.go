package database

import (
	"context"
	"testing"

	"support-chat-go/internal/config"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitRedis_NoAddress(t *testing.T) {
	client, err := InitRedis(config.RedisConfig{})
	require.NoError(t, err)
	assert.Nil(t, client)
}

func TestInitRedis_Connects(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := InitRedis(config.RedisConfig{Addr: mr.Addr()})
	require.NoError(t, err)
	require.NotNil(t, client)
	t.Cleanup(func() { _ = client.Close() })

	require.NoError(t, client.Set(context.Background(), "k", "v", 0).Err())
	got, err := mr.Get("k")
	require.NoError(t, err)
	assert.Equal(t, "v", got)
}

func TestInitRedis_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	client, err := InitRedis(config.RedisConfig{Addr: addr})
	require.Error(t, err)
	assert.Nil(t, client)
}
