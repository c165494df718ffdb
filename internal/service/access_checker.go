package service

import (
	"context"
	"fmt"

	"github.com/VNP-Solutions/vnp-scraper-backend-sub000/internal/domain"
	"github.com/VNP-Solutions/vnp-scraper-backend-sub000/internal/repository"

	"go.uber.org/zap"
)

// AccessChecker 单个资源的访问判断
// 资源不存在返回 repository.ErrNotFound；存储错误原样返回，不当作有/无权限
type AccessChecker struct {
	grants        repository.GrantsRepository
	properties    repository.PropertiesRepository
	subPortfolios repository.SubPortfoliosRepository
	portfolios    repository.PortfoliosRepository
	logger        *zap.Logger
}

func NewAccessChecker(
	grants repository.GrantsRepository,
	properties repository.PropertiesRepository,
	subPortfolios repository.SubPortfoliosRepository,
	portfolios repository.PortfoliosRepository,
	logger *zap.Logger,
) *AccessChecker {
	return &AccessChecker{
		grants:        grants,
		properties:    properties,
		subPortfolios: subPortfolios,
		portfolios:    portfolios,
		logger:        logger,
	}
}

// CheckPropertyAccess 返回第一条适用的授权；没有返回 nil
func (c *AccessChecker) CheckPropertyAccess(ctx context.Context, propertyID, userID string) (*domain.Grant, error) {
	p, err := c.properties.GetProperty(ctx, propertyID)
	if err != nil {
		return nil, err
	}
	return c.matchProperty(ctx, p, userID)
}

func (c *AccessChecker) matchProperty(ctx context.Context, p *domain.Property, userID string) (*domain.Grant, error) {
	g, err := c.grants.FindFirstMatchingGrant(ctx, userID, propertyCandidates(p))
	if err != nil {
		return nil, fmt.Errorf("failed to check property access: %w", err)
	}
	return g, nil
}

// CheckSubPortfolioAccess 先查子组合授权，没有再查其组合授权
func (c *AccessChecker) CheckSubPortfolioAccess(ctx context.Context, subPortfolioID, userID string) (*domain.Grant, error) {
	sp, err := c.subPortfolios.GetSubPortfolio(ctx, subPortfolioID)
	if err != nil {
		return nil, err
	}
	return c.matchSubPortfolio(ctx, sp, userID)
}

// matchSubPortfolio 与 ResolveAccessibleSubPortfolioIDs 一致：
// 授权中任一 scope 字段命中即适用，多字段授权不要求其他字段相同
func (c *AccessChecker) matchSubPortfolio(ctx context.Context, sp *domain.SubPortfolio, userID string) (*domain.Grant, error) {
	g, err := c.grants.FindFirstMatchingGrant(ctx, userID, []domain.GrantScope{domain.SubPortfolioScope(sp.ID)})
	if err != nil {
		return nil, fmt.Errorf("failed to check sub portfolio access: %w", err)
	}
	if g != nil || sp.PortfolioID == "" {
		return g, nil
	}
	g, err = c.grants.FindFirstMatchingGrant(ctx, userID, []domain.GrantScope{domain.PortfolioScope(sp.PortfolioID)})
	if err != nil {
		return nil, fmt.Errorf("failed to check portfolio access: %w", err)
	}
	return g, nil
}

// CheckPortfolioAccess 只有 portfolio_id 字段适用
func (c *AccessChecker) CheckPortfolioAccess(ctx context.Context, portfolioID, userID string) (*domain.Grant, error) {
	if _, err := c.portfolios.GetPortfolio(ctx, portfolioID); err != nil {
		return nil, err
	}
	g, err := c.grants.FindFirstMatchingGrant(ctx, userID, []domain.GrantScope{domain.PortfolioScope(portfolioID)})
	if err != nil {
		return nil, fmt.Errorf("failed to check portfolio access: %w", err)
	}
	return g, nil
}

// AuthorizeProperty 加载物业并校验权限：不存在 -> ErrNotFound，无授权 -> ErrForbidden
func (c *AccessChecker) AuthorizeProperty(ctx context.Context, principal domain.Principal, propertyID string) (*domain.Property, error) {
	p, err := c.properties.GetProperty(ctx, propertyID)
	if err != nil {
		return nil, err
	}
	if principal.IsAdmin() {
		return p, nil
	}
	g, err := c.matchProperty(ctx, p, principal.UserID)
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, fmt.Errorf("property %s: %w", propertyID, ErrForbidden)
	}
	return p, nil
}

// AuthorizeSubPortfolio 同 AuthorizeProperty
func (c *AccessChecker) AuthorizeSubPortfolio(ctx context.Context, principal domain.Principal, subPortfolioID string) (*domain.SubPortfolio, error) {
	sp, err := c.subPortfolios.GetSubPortfolio(ctx, subPortfolioID)
	if err != nil {
		return nil, err
	}
	if principal.IsAdmin() {
		return sp, nil
	}
	g, err := c.matchSubPortfolio(ctx, sp, principal.UserID)
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, fmt.Errorf("sub portfolio %s: %w", subPortfolioID, ErrForbidden)
	}
	return sp, nil
}
