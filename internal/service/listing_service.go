package service

import (
	"context"
	"fmt"

	"github.com/VNP-Solutions/vnp-scraper-backend-sub000/internal/domain"
	"github.com/VNP-Solutions/vnp-scraper-backend-sub000/internal/query"
	"github.com/VNP-Solutions/vnp-scraper-backend-sub000/internal/repository"

	"go.uber.org/zap"
)

const (
	exportPageSize = 200
	// maxExportRows 导出上限
	maxExportRows = 10000
)

// ListingService 按权限收窄的列表查询
type ListingService struct {
	resolver      *PermissionResolver
	properties    repository.PropertiesRepository
	subPortfolios repository.SubPortfoliosRepository
	portfolios    repository.PortfoliosRepository
	logger        *zap.Logger
}

func NewListingService(
	resolver *PermissionResolver,
	properties repository.PropertiesRepository,
	subPortfolios repository.SubPortfoliosRepository,
	portfolios repository.PortfoliosRepository,
	logger *zap.Logger,
) *ListingService {
	return &ListingService{
		resolver:      resolver,
		properties:    properties,
		subPortfolios: subPortfolios,
		portfolios:    portfolios,
		logger:        logger,
	}
}

// scope 非 admin 时解析可访问 id；返回 false 表示集合为空，调用方直接返回空页
func (s *ListingService) scope(ctx context.Context, userID string, isAdmin bool, spec query.FilterSpec, resolve func(context.Context, string) ([]string, error)) (repository.ListOptions, bool, error) {
	opts := repository.ListOptions{Filter: spec}
	if isAdmin {
		return opts, true, nil
	}
	ids, err := resolve(ctx, userID)
	if err != nil {
		return opts, false, fmt.Errorf("failed to resolve access: %w", err)
	}
	if len(ids) == 0 {
		return opts, false, nil
	}
	opts.Restrict = true
	opts.IDs = ids
	return opts, true, nil
}

// ListProperties 物业列表
func (s *ListingService) ListProperties(ctx context.Context, userID string, isAdmin bool, spec query.FilterSpec) (*query.Page[domain.Property], error) {
	opts, ok, err := s.scope(ctx, userID, isAdmin, spec, s.resolver.ResolveAccessiblePropertyIDs)
	if err != nil {
		return nil, err
	}
	if !ok {
		return query.EmptyPage[domain.Property](spec), nil
	}

	items, total, err := s.properties.ListProperties(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list properties: %w", err)
	}
	return &query.Page[domain.Property]{Items: items, Metadata: query.NewMetadata(total, spec)}, nil
}

// ListSubPortfolios 子组合列表（每行带 propertyCount）
func (s *ListingService) ListSubPortfolios(ctx context.Context, userID string, isAdmin bool, spec query.FilterSpec) (*query.Page[domain.SubPortfolioSummary], error) {
	opts, ok, err := s.scope(ctx, userID, isAdmin, spec, s.resolver.ResolveAccessibleSubPortfolioIDs)
	if err != nil {
		return nil, err
	}
	if !ok {
		return query.EmptyPage[domain.SubPortfolioSummary](spec), nil
	}

	items, total, err := s.subPortfolios.ListSubPortfolios(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list sub portfolios: %w", err)
	}
	return &query.Page[domain.SubPortfolioSummary]{Items: items, Metadata: query.NewMetadata(total, spec)}, nil
}

// ListPortfolios 组合列表（每行带 subPortfolioCount / propertyCount）
func (s *ListingService) ListPortfolios(ctx context.Context, userID string, isAdmin bool, spec query.FilterSpec) (*query.Page[domain.PortfolioSummary], error) {
	opts, ok, err := s.scope(ctx, userID, isAdmin, spec, s.resolver.ResolveAccessiblePortfolioIDs)
	if err != nil {
		return nil, err
	}
	if !ok {
		return query.EmptyPage[domain.PortfolioSummary](spec), nil
	}

	items, total, err := s.portfolios.ListPortfolios(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list portfolios: %w", err)
	}
	return &query.Page[domain.PortfolioSummary]{Items: items, Metadata: query.NewMetadata(total, spec)}, nil
}

// ExportProperties 与 ListProperties 相同的过滤条件，取全部页（最多 maxExportRows 行）
// spec 中的 page/limit 被忽略；权限只解析一次
func (s *ListingService) ExportProperties(ctx context.Context, userID string, isAdmin bool, spec query.FilterSpec) ([]domain.Property, error) {
	opts, ok, err := s.scope(ctx, userID, isAdmin, spec, s.resolver.ResolveAccessiblePropertyIDs)
	if err != nil {
		return nil, err
	}
	out := []domain.Property{}
	if !ok {
		return out, nil
	}

	opts.Filter.Limit = exportPageSize
	for page := 1; len(out) < maxExportRows; page++ {
		opts.Filter.Page = page
		items, total, err := s.properties.ListProperties(ctx, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to export properties: %w", err)
		}
		out = append(out, items...)
		if len(items) < exportPageSize || len(out) >= total {
			break
		}
	}
	if len(out) > maxExportRows {
		out = out[:maxExportRows]
	}
	return out, nil
}
