package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sudo-init-do/staybook/internal/config"
)

func TestOpenStoreMemory(t *testing.T) {
	cfg := &config.Config{Server: config.ServerConfig{StoreDriver: "memory"}}
	st, closeStore, err := OpenStore(context.Background(), cfg)
	require.NoError(t, err)
	defer closeStore()
	assert.NoError(t, st.Ping(context.Background()))
}

func TestOpenStoreUnknownDriver(t *testing.T) {
	cfg := &config.Config{Server: config.ServerConfig{StoreDriver: "sqlite"}}
	_, _, err := OpenStore(context.Background(), cfg)
	assert.ErrorContains(t, err, "sqlite")
}

func TestAsynqRedisMirrorsConfig(t *testing.T) {
	opt := AsynqRedis(config.RedisConfig{Addr: "cache:6380", Password: "pw", DB: 2})
	assert.Equal(t, "cache:6380", opt.Addr)
	assert.Equal(t, "pw", opt.Password)
	assert.Equal(t, 2, opt.DB)
}

func TestRequireSharedStore(t *testing.T) {
	memoryCfg := &config.Config{Server: config.ServerConfig{StoreDriver: "memory"}}
	assert.ErrorContains(t, RequireSharedStore(memoryCfg), "postgres")

	pgCfg := &config.Config{Server: config.ServerConfig{StoreDriver: "postgres"}}
	assert.NoError(t, RequireSharedStore(pgCfg))
}
