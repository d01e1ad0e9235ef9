package cache

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"recipe-suggester/internal/infrastructure/config"
	"recipe-suggester/internal/pkg/common"
)

func TestMain(m *testing.M) {
	common.Logger = zap.NewNop()
	os.Exit(m.Run())
}

func cacheConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Cache.Enabled = true
	cfg.Cache.Backend = "memory"
	cfg.Cache.MaxSize = 3
	cfg.Cache.TTL = time.Minute
	cfg.Cache.CleanupInterval = time.Minute
	return cfg
}

func TestManagerSetGet(t *testing.T) {
	m := NewManager(cacheConfig())
	require.NotNil(t, m)
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "k", "v"))
	got, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", got)

	hits, misses, _ := m.Stats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(0), misses)
}

func TestManagerMiss(t *testing.T) {
	m := NewManager(cacheConfig())
	_, err := m.Get(context.Background(), "absent")
	assert.ErrorIs(t, err, common.ErrCacheMiss)

	_, misses, _ := m.Stats()
	assert.Equal(t, int64(1), misses)
}

func TestManagerExpiry(t *testing.T) {
	cfg := cacheConfig()
	cfg.Cache.TTL = 10 * time.Millisecond
	m := NewManager(cfg)
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "k", "v"))
	time.Sleep(20 * time.Millisecond)

	_, err := m.Get(ctx, "k")
	assert.ErrorIs(t, err, common.ErrCacheMiss, "過期條目視同未命中")
}

func TestManagerEviction(t *testing.T) {
	m := NewManager(cacheConfig())
	ctx := context.Background()

	// 容量 3，寫第 4 筆時淘汰最久未訪問的條目
	for i := 0; i < 3; i++ {
		require.NoError(t, m.Set(ctx, fmt.Sprintf("k%d", i), "v"))
		time.Sleep(time.Millisecond)
	}
	_, err := m.Get(ctx, "k0") // 讓 k0 變成最近訪問
	require.NoError(t, err)

	require.NoError(t, m.Set(ctx, "k3", "v"))

	_, err = m.Get(ctx, "k0")
	assert.NoError(t, err)
	_, err = m.Get(ctx, "k1")
	assert.ErrorIs(t, err, common.ErrCacheMiss)
}

func TestNewManagerDisabled(t *testing.T) {
	cfg := cacheConfig()
	cfg.Cache.Enabled = false
	assert.Nil(t, NewManager(cfg))
}

func TestNewStoreBackendSelection(t *testing.T) {
	cfg := cacheConfig()
	s, err := NewStore(cfg)
	require.NoError(t, err)
	_, ok := s.(*Manager)
	assert.True(t, ok, "memory 後端應使用記憶體管理器")

	cfg.Cache.Enabled = false
	s, err = NewStore(cfg)
	require.NoError(t, err)
	assert.Nil(t, s)
}
