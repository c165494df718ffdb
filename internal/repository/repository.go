package repository

import (
	"context"
	"errors"

	"github.com/VNP-Solutions/vnp-scraper-backend-sub000/internal/domain"
	"github.com/VNP-Solutions/vnp-scraper-backend-sub000/internal/query"
)

// ErrNotFound 单条记录不存在
var ErrNotFound = errors.New("not found")

// ListOptions 列表查询参数
type ListOptions struct {
	Filter query.FilterSpec
	// Restrict 为 true 时只返回 IDs 内的记录（IDs 为空则没有结果）
	Restrict bool
	IDs      []string
}

// PropertiesRepository 物业 Repository
type PropertiesRepository interface {
	// ListProperties 列表（count 与分页查询使用同一条件）
	// Filter.PortfolioID 匹配直属该 portfolio 或其子组合下的物业
	ListProperties(ctx context.Context, opts ListOptions) ([]domain.Property, int, error)
	// GetProperty 带父级链（sub_portfolio 及其 portfolio_id、直属 portfolio）
	GetProperty(ctx context.Context, propertyID string) (*domain.Property, error)
	// ListPropertyIDsByPortfolios 直属或经由子组合属于这些 portfolio 的物业
	ListPropertyIDsByPortfolios(ctx context.Context, portfolioIDs []string) ([]string, error)
	ListPropertyIDsBySubPortfolios(ctx context.Context, subPortfolioIDs []string) ([]string, error)
	// ListCredentials 密码为密文
	ListCredentials(ctx context.Context, propertyID string) ([]domain.PropertyCredential, error)
}

// SubPortfoliosRepository 子组合 Repository
type SubPortfoliosRepository interface {
	// ListSubPortfolios 每行带 PropertyCount（同一查询计算）
	ListSubPortfolios(ctx context.Context, opts ListOptions) ([]domain.SubPortfolioSummary, int, error)
	GetSubPortfolio(ctx context.Context, subPortfolioID string) (*domain.SubPortfolio, error)
	ListSubPortfolioIDsByPortfolios(ctx context.Context, portfolioIDs []string) ([]string, error)
}

// PortfoliosRepository 组合 Repository
type PortfoliosRepository interface {
	ListPortfolios(ctx context.Context, opts ListOptions) ([]domain.PortfolioSummary, int, error)
	GetPortfolio(ctx context.Context, portfolioID string) (*domain.Portfolio, error)
}

// GrantsRepository 用户授权 Repository
type GrantsRepository interface {
	// UpsertGrant 以 (user_id, portfolio_id, sub_portfolio_id, property_id) 为键原子 upsert
	UpsertGrant(ctx context.Context, userID string, scope domain.GrantScope) (*domain.Grant, error)
	ListGrants(ctx context.Context, filter query.FilterSpec) ([]domain.Grant, int, error)
	GetGrant(ctx context.Context, grantID string) (*domain.Grant, error)
	// DeleteGrant 返回被删除的授权
	DeleteGrant(ctx context.Context, grantID string) (*domain.Grant, error)
	// FindGrantByUserAndScope 精确匹配范围（nil 字段匹配 NULL）；不存在返回 nil, nil
	FindGrantByUserAndScope(ctx context.Context, userID string, scope domain.GrantScope) (*domain.Grant, error)
	ListGrantsByUser(ctx context.Context, userID string) ([]domain.Grant, error)
	// FindFirstMatchingGrant 返回匹配任一候选范围的第一条授权；没有返回 nil, nil
	FindFirstMatchingGrant(ctx context.Context, userID string, candidates []domain.GrantScope) (*domain.Grant, error)
}
