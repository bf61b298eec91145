package main

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/and161185/rollbook/internal/config"
	"github.com/and161185/rollbook/internal/limiter"
	"github.com/and161185/rollbook/internal/store"
)

func TestOpenBackend(t *testing.T) {
	ctx := context.Background()
	log := zaptest.NewLogger(t)
	mr := miniredis.RunT(t)

	cases := []struct {
		name string
		cfg  config.App
	}{
		{"memory", config.App{StoreBackend: config.BackendMemory}},
		{"file", config.App{StoreBackend: config.BackendFile, DataDir: t.TempDir(), QuotaBytes: store.DefaultFileQuota}},
		{"redis", config.App{StoreBackend: config.BackendRedis, RedisAddr: mr.Addr(), RedisPrefix: "t:"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tc.cfg.Login = limiter.DefaultPolicy
			b, err := openBackend(ctx, tc.cfg, log)
			require.NoError(t, err)
			defer b.close()

			require.NoError(t, b.store.Set(ctx, "k", "v"))
			v, found, err := b.store.Get(ctx, "k")
			require.NoError(t, err)
			require.True(t, found)
			require.Equal(t, "v", v)
			require.NoError(t, store.Ping(ctx, b.store))

			ok, _, err := b.limiter.Allow(ctx, "ann", limiter.HashIP("ip"))
			require.NoError(t, err)
			require.True(t, ok)
		})
	}

	require.True(t, mr.Exists("t:k"))

	_, err := openBackend(ctx, config.App{StoreBackend: "tape"}, log)
	require.Error(t, err)
}
