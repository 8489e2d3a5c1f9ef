package cache

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectRedis(t *testing.T) {
	s := miniredis.RunT(t)

	rdb, err := ConnectRedis(context.Background(), s.Addr(), "", 0)
	require.NoError(t, err)
	defer DisconnectRedis(rdb)

	require.NoError(t, rdb.Set(context.Background(), "k", "v", 0).Err())
	got, err := s.Get("k")
	require.NoError(t, err)
	assert.Equal(t, "v", got)
}

func TestConnectRedis_Unreachable(t *testing.T) {
	s := miniredis.RunT(t)
	addr := s.Addr()
	s.Close()

	rdb, err := ConnectRedis(context.Background(), addr, "", 0)
	assert.Error(t, err)
	assert.Nil(t, rdb)
}

func TestDisconnectRedis_Nil(t *testing.T) {
	assert.NoError(t, DisconnectRedis(nil))
}
