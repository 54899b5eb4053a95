package redis

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/ikkim/tshirt-backend/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit(t *testing.T) {
	mr := miniredis.RunT(t)

	c, err := Init(&config.RedisConfig{Host: mr.Host(), Port: mr.Port()})
	require.NoError(t, err)
	assert.Same(t, c, GetClient())

	require.NoError(t, Close())
	assert.Nil(t, GetClient())
	assert.NoError(t, Close())
}

func TestInit_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	host, port := mr.Host(), mr.Port()
	mr.Close()

	c, err := Init(&config.RedisConfig{Host: host, Port: port})
	assert.Error(t, err)
	assert.Nil(t, c)
}
