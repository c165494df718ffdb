package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/VNP-Solutions/vnp-scraper-backend-sub000/internal/domain"
	"github.com/VNP-Solutions/vnp-scraper-backend-sub000/internal/repository"

	"go.uber.org/zap"
)

// AccessKind 权限集合的资源层级
type AccessKind string

const (
	AccessProperties    AccessKind = "properties"
	AccessSubPortfolios AccessKind = "sub_portfolios"
	AccessPortfolios    AccessKind = "portfolios"
)

// PermissionResolver 把用户授权展开为可访问的资源 id 集合
// 调用方负责 admin 短路：admin 不经过这里
type PermissionResolver struct {
	grants        repository.GrantsRepository
	properties    repository.PropertiesRepository
	subPortfolios repository.SubPortfoliosRepository
	cache         AccessCache
	logger        *zap.Logger
}

func NewPermissionResolver(
	grants repository.GrantsRepository,
	properties repository.PropertiesRepository,
	subPortfolios repository.SubPortfoliosRepository,
	logger *zap.Logger,
) *PermissionResolver {
	return &PermissionResolver{
		grants:        grants,
		properties:    properties,
		subPortfolios: subPortfolios,
		logger:        logger,
	}
}

// WithCache 启用权限集合缓存（nil 表示不缓存）
func (r *PermissionResolver) WithCache(cache AccessCache) *PermissionResolver {
	r.cache = cache
	return r
}

// grantBuckets 按层级拆分的授权 id
type grantBuckets struct {
	portfolioIDs    []string
	subPortfolioIDs []string
	propertyIDs     []string
}

func (r *PermissionResolver) loadGrants(ctx context.Context, userID string) (*grantBuckets, error) {
	grants, err := r.grants.ListGrantsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load grants for user %s: %w", userID, err)
	}
	b := &grantBuckets{}
	for _, g := range grants {
		if g.PortfolioID != nil && *g.PortfolioID != "" {
			b.portfolioIDs = append(b.portfolioIDs, *g.PortfolioID)
		}
		if g.SubPortfolioID != nil && *g.SubPortfolioID != "" {
			b.subPortfolioIDs = append(b.subPortfolioIDs, *g.SubPortfolioID)
		}
		if g.PropertyID != nil && *g.PropertyID != "" {
			b.propertyIDs = append(b.propertyIDs, *g.PropertyID)
		}
	}
	return b, nil
}

// ResolveAccessiblePropertyIDs 属性级授权 ∪ 子组合下的物业 ∪ 组合下（直属或经由子组合）的物业
// 返回去重、排序后的 id；空集合是合法结果，存储错误原样返回
func (r *PermissionResolver) ResolveAccessiblePropertyIDs(ctx context.Context, userID string) ([]string, error) {
	return r.resolve(ctx, userID, AccessProperties, func(b *grantBuckets) ([]string, error) {
		ids := append([]string{}, b.propertyIDs...)

		fromPortfolios, err := r.properties.ListPropertyIDsByPortfolios(ctx, dedupe(b.portfolioIDs))
		if err != nil {
			return nil, fmt.Errorf("failed to expand portfolio grants: %w", err)
		}
		ids = append(ids, fromPortfolios...)

		fromSubPortfolios, err := r.properties.ListPropertyIDsBySubPortfolios(ctx, dedupe(b.subPortfolioIDs))
		if err != nil {
			return nil, fmt.Errorf("failed to expand sub portfolio grants: %w", err)
		}
		return append(ids, fromSubPortfolios...), nil
	})
}

// ResolveAccessibleSubPortfolioIDs 子组合级授权 ∪ 组合下的子组合（属性级授权不参与）
func (r *PermissionResolver) ResolveAccessibleSubPortfolioIDs(ctx context.Context, userID string) ([]string, error) {
	return r.resolve(ctx, userID, AccessSubPortfolios, func(b *grantBuckets) ([]string, error) {
		ids := append([]string{}, b.subPortfolioIDs...)

		fromPortfolios, err := r.subPortfolios.ListSubPortfolioIDsByPortfolios(ctx, dedupe(b.portfolioIDs))
		if err != nil {
			return nil, fmt.Errorf("failed to expand portfolio grants: %w", err)
		}
		return append(ids, fromPortfolios...), nil
	})
}

// ResolveAccessiblePortfolioIDs 只有组合级授权
func (r *PermissionResolver) ResolveAccessiblePortfolioIDs(ctx context.Context, userID string) ([]string, error) {
	return r.resolve(ctx, userID, AccessPortfolios, func(b *grantBuckets) ([]string, error) {
		return b.portfolioIDs, nil
	})
}

func (r *PermissionResolver) resolve(ctx context.Context, userID string, kind AccessKind, expand func(*grantBuckets) ([]string, error)) ([]string, error) {
	var gen string
	if r.cache != nil {
		ids, g, ok := r.cache.Get(ctx, userID, kind)
		if ok {
			return ids, nil
		}
		// 代号在加载授权之前读取：加载期间发生的失效会让这次写入作废
		gen = g
	}

	buckets, err := r.loadGrants(ctx, userID)
	if err != nil {
		return nil, err
	}
	ids, err := expand(buckets)
	if err != nil {
		return nil, err
	}
	ids = dedupe(ids)

	r.logger.Debug("Resolved accessible ids",
		zap.String("user_id", userID),
		zap.String("kind", string(kind)),
		zap.Int("count", len(ids)),
	)

	if r.cache != nil {
		r.cache.Set(ctx, userID, kind, gen, ids)
	}
	return ids, nil
}

// dedupe 去重并排序；总是返回非 nil
func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// propertyCandidates 物业自身、所属子组合、子组合的组合、直属组合
func propertyCandidates(p *domain.Property) []domain.GrantScope {
	candidates := []domain.GrantScope{domain.PropertyScope(p.ID)}
	seenPortfolio := ""
	if p.SubPortfolioID != nil && *p.SubPortfolioID != "" {
		candidates = append(candidates, domain.SubPortfolioScope(*p.SubPortfolioID))
		if p.SubPortfolio != nil && p.SubPortfolio.PortfolioID != "" {
			seenPortfolio = p.SubPortfolio.PortfolioID
			candidates = append(candidates, domain.PortfolioScope(seenPortfolio))
		}
	}
	if p.PortfolioID != nil && *p.PortfolioID != "" && *p.PortfolioID != seenPortfolio {
		candidates = append(candidates, domain.PortfolioScope(*p.PortfolioID))
	}
	return candidates
}
