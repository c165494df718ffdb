package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/VNP-Solutions/vnp-scraper-backend-sub000/internal/domain"
	"github.com/VNP-Solutions/vnp-scraper-backend-sub000/internal/repository"
	"github.com/VNP-Solutions/vnp-scraper-backend-sub000/internal/store"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestResolveAccessiblePropertyIDs_Union(t *testing.T) {
	s := newFixture(t)
	grant(t, s, "u1", domain.SubPortfolioScope("sp-D"))
	grant(t, s, "u1", domain.PropertyScope("prop-X"))
	// 同时直接授权了 sp-D 下的物业：不应重复
	grant(t, s, "u1", domain.PropertyScope("prop-Z"))

	ids, err := newResolver(s).ResolveAccessiblePropertyIDs(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"prop-W", "prop-X", "prop-Z"}, ids)
}

func TestResolveAccessiblePropertyIDs_PortfolioExpansion(t *testing.T) {
	s := newFixture(t)
	grant(t, s, "u1", domain.PortfolioScope("pf-A"))

	ids, err := newResolver(s).ResolveAccessiblePropertyIDs(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"prop-X", "prop-Y"}, ids)
}

func TestResolveAccessibleSubPortfolioIDs(t *testing.T) {
	s := newFixture(t)
	grant(t, s, "u1", domain.PortfolioScope("pf-A"))
	grant(t, s, "u1", domain.SubPortfolioScope("sp-D"))
	// 属性级授权不影响子组合可见性
	grant(t, s, "u2", domain.PropertyScope("prop-X"))

	r := newResolver(s)
	ids, err := r.ResolveAccessibleSubPortfolioIDs(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"sp-B", "sp-D"}, ids)

	ids, err = r.ResolveAccessibleSubPortfolioIDs(context.Background(), "u2")
	require.NoError(t, err)
	assert.Empty(t, ids)
	assert.NotNil(t, ids)
}

func TestResolveAccessiblePortfolioIDs(t *testing.T) {
	s := newFixture(t)
	grant(t, s, "u1", domain.PortfolioScope("pf-C"))
	grant(t, s, "u1", domain.SubPortfolioScope("sp-B"))

	ids, err := newResolver(s).ResolveAccessiblePortfolioIDs(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"pf-C"}, ids)
}

func TestResolve_NoGrantsIsEmptySet(t *testing.T) {
	s := newFixture(t)
	ids, err := newResolver(s).ResolveAccessiblePropertyIDs(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Empty(t, ids)
	assert.NotNil(t, ids)
}

func TestResolve_DanglingGrantExpandsToNothing(t *testing.T) {
	s := newFixture(t)
	grant(t, s, "u1", domain.SubPortfolioScope("sp-deleted"))

	ids, err := newResolver(s).ResolveAccessiblePropertyIDs(context.Background(), "u1")
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestResolve_StorageErrorsPropagate(t *testing.T) {
	s := newFixture(t)
	grant(t, s, "u1", domain.PortfolioScope("pf-A"))

	r := NewPermissionResolver(&failingGrants{s}, s, s, zap.NewNop())
	_, err := r.ResolveAccessiblePropertyIDs(context.Background(), "u1")
	assert.ErrorIs(t, err, errStorage)

	r = NewPermissionResolver(s, &failingExpansion{s}, s, zap.NewNop())
	ids, err := r.ResolveAccessiblePropertyIDs(context.Background(), "u1")
	assert.ErrorIs(t, err, errStorage)
	assert.Nil(t, ids)
}

func newRedisCache(t *testing.T, ttl time.Duration) (*miniredis.Miniredis, *RedisAccessCache) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	c := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = c.Close() })
	return mr, NewRedisAccessCache(store.NewRedisKV(c), "test:access:", ttl, zap.NewNop())
}

func TestResolve_UsesCache(t *testing.T) {
	s := newFixture(t)
	grant(t, s, "u1", domain.PropertyScope("prop-V"))
	counting := &countingGrants{MemoryStore: s}

	mr, cache := newRedisCache(t, time.Minute)
	r := NewPermissionResolver(counting, s, s, zap.NewNop()).WithCache(cache)
	ctx := context.Background()

	ids, err := r.ResolveAccessiblePropertyIDs(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"prop-V"}, ids)

	ids, err = r.ResolveAccessiblePropertyIDs(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"prop-V"}, ids)
	assert.Equal(t, int32(1), counting.calls.Load())
	assert.True(t, mr.Exists("test:access:properties:u1:0"))

	// 失效后重新解析
	cache.Invalidate(ctx, "u1")
	gen, err := mr.Get("test:access:gen:u1")
	require.NoError(t, err)
	assert.Equal(t, "1", gen)
	assert.False(t, mr.Exists("test:access:properties:u1:0"))

	_, err = r.ResolveAccessiblePropertyIDs(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int32(2), counting.calls.Load())
	assert.True(t, mr.Exists("test:access:properties:u1:1"))
}

// revokeAfterList 第一次 ListGrantsByUser 返回之后执行 revoke，模拟解析过程中授权被删除
type revokeAfterList struct {
	*repository.MemoryStore
	once   sync.Once
	revoke func()
}

func (r *revokeAfterList) ListGrantsByUser(ctx context.Context, userID string) ([]domain.Grant, error) {
	gs, err := r.MemoryStore.ListGrantsByUser(ctx, userID)
	r.once.Do(r.revoke)
	return gs, err
}

func TestResolve_RevokeDuringResolveIsNotCached(t *testing.T) {
	s := newFixture(t)
	g := grant(t, s, "u1", domain.PropertyScope("prop-V"))
	ctx := context.Background()

	_, cache := newRedisCache(t, time.Minute)
	svc := NewGrantService(s, zap.NewNop()).WithCache(cache)
	grants := &revokeAfterList{MemoryStore: s, revoke: func() {
		_, err := svc.Delete(ctx, "admin-1", g.ID)
		require.NoError(t, err)
	}}
	r := NewPermissionResolver(grants, s, s, zap.NewNop()).WithCache(cache)

	// 这次读到的是删除前的授权
	ids, err := r.ResolveAccessiblePropertyIDs(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"prop-V"}, ids)

	left, err := s.ListGrantsByUser(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, left)

	ids, err = r.ResolveAccessiblePropertyIDs(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestResolve_CacheFailureFallsThrough(t *testing.T) {
	s := newFixture(t)
	grant(t, s, "u1", domain.PropertyScope("prop-V"))

	// 没有 Redis 监听的地址：读写都失败
	c := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1})
	defer c.Close()
	cache := NewRedisAccessCache(store.NewRedisKV(c), "test:access:", time.Minute, zap.NewNop())

	r := newResolver(s).WithCache(cache)
	ids, err := r.ResolveAccessiblePropertyIDs(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"prop-V"}, ids)
}

func TestResolve_CorruptCacheEntryIsMiss(t *testing.T) {
	s := newFixture(t)
	grant(t, s, "u1", domain.PropertyScope("prop-V"))

	mr, cache := newRedisCache(t, time.Minute)
	require.NoError(t, mr.Set("test:access:properties:u1:0", "not-json"))

	ids, err := newResolver(s).WithCache(cache).ResolveAccessiblePropertyIDs(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"prop-V"}, ids)
}

func TestPropertyCandidates(t *testing.T) {
	p := &domain.Property{
		ID:             "prop-1",
		PortfolioID:    strPtr("pf-1"),
		SubPortfolioID: strPtr("sp-1"),
		SubPortfolio:   &domain.SubPortfolioRef{ID: "sp-1", PortfolioID: "pf-1"},
	}
	assert.Equal(t, []domain.GrantScope{
		domain.PropertyScope("prop-1"),
		domain.SubPortfolioScope("sp-1"),
		domain.PortfolioScope("pf-1"),
	}, propertyCandidates(p))

	assert.Equal(t, []domain.GrantScope{domain.PropertyScope("orphan")}, propertyCandidates(&domain.Property{ID: "orphan"}))
}
