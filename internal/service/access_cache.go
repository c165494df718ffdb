package service

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/VNP-Solutions/vnp-scraper-backend-sub000/internal/store"

	"go.uber.org/zap"
)

// AccessCache 已解析的权限集合缓存
// 实现必须把读写错误当作未命中处理，不能影响权限判断结果
//
// Get 同时返回当前代号 gen，调用方在加载授权之后用同一个 gen 调用 Set。
// Invalidate 推进代号，之后旧代号下写入的值不会再被读到。
// gen 为空表示代号不可用，Set 不写入。
type AccessCache interface {
	Get(ctx context.Context, userID string, kind AccessKind) (ids []string, gen string, ok bool)
	Set(ctx context.Context, userID string, kind AccessKind, gen string, ids []string)
	Invalidate(ctx context.Context, userID string)
}

// RedisAccessCache 基于 KV（Redis）的权限集合缓存
// 代号 key: <prefix>gen:<userID>（INCR，不过期）
// 值 key: <prefix><kind>:<userID>:<gen>，value: JSON 数组，按 ttl 过期
type RedisAccessCache struct {
	kv     store.KV
	prefix string
	ttl    time.Duration
	logger *zap.Logger
}

func NewRedisAccessCache(kv store.KV, prefix string, ttl time.Duration, logger *zap.Logger) *RedisAccessCache {
	return &RedisAccessCache{kv: kv, prefix: prefix, ttl: ttl, logger: logger}
}

var _ AccessCache = (*RedisAccessCache)(nil)

var accessKinds = []AccessKind{AccessProperties, AccessSubPortfolios, AccessPortfolios}

func (c *RedisAccessCache) genKey(userID string) string {
	return c.prefix + "gen:" + userID
}

func (c *RedisAccessCache) key(userID string, kind AccessKind, gen string) string {
	return c.prefix + string(kind) + ":" + userID + ":" + gen
}

// generation 没有代号 key 时为 "0"
func (c *RedisAccessCache) generation(ctx context.Context, userID string) (string, error) {
	gen, err := c.kv.Get(ctx, c.genKey(userID))
	if errors.Is(err, store.ErrMiss) {
		return "0", nil
	}
	return gen, err
}

func (c *RedisAccessCache) Get(ctx context.Context, userID string, kind AccessKind) ([]string, string, bool) {
	gen, err := c.generation(ctx, userID)
	if err != nil {
		c.logger.Warn("Access cache generation read failed", zap.String("user_id", userID), zap.Error(err))
		return nil, "", false
	}
	ids, err := store.GetJSON[[]string](ctx, c.kv, c.key(userID, kind, gen))
	if err != nil {
		if !errors.Is(err, store.ErrMiss) {
			c.logger.Warn("Access cache read failed", zap.String("user_id", userID), zap.Error(err))
		}
		return nil, gen, false
	}
	if ids == nil {
		ids = []string{}
	}
	return ids, gen, true
}

func (c *RedisAccessCache) Set(ctx context.Context, userID string, kind AccessKind, gen string, ids []string) {
	if gen == "" {
		return
	}
	if err := store.SetJSON(ctx, c.kv, c.key(userID, kind, gen), ids, c.ttl); err != nil {
		c.logger.Warn("Access cache write failed", zap.String("user_id", userID), zap.Error(err))
	}
}

// Invalidate 推进代号并删除上一代的值
// INCR 失败时旧值最多保留 ttl
func (c *RedisAccessCache) Invalidate(ctx context.Context, userID string) {
	next, err := c.kv.Incr(ctx, c.genKey(userID))
	if err != nil {
		c.logger.Warn("Access cache invalidation failed", zap.String("user_id", userID), zap.Error(err))
		return
	}
	prev := strconv.FormatInt(next-1, 10)
	keys := make([]string, 0, len(accessKinds))
	for _, k := range accessKinds {
		keys = append(keys, c.key(userID, k, prev))
	}
	if err := c.kv.Del(ctx, keys...); err != nil {
		c.logger.Debug("Access cache cleanup failed", zap.String("user_id", userID), zap.Error(err))
	}
}
