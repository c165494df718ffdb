package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/VNP-Solutions/vnp-scraper-backend-sub000/internal/domain"
	"github.com/VNP-Solutions/vnp-scraper-backend-sub000/internal/query"
	"github.com/VNP-Solutions/vnp-scraper-backend-sub000/internal/repository"

	"go.uber.org/zap"
)

// GrantService 授权管理（admin 接口）
type GrantService struct {
	grants    repository.GrantsRepository
	cache     AccessCache
	publisher ActivityPublisher
	logger    *zap.Logger
}

func NewGrantService(grants repository.GrantsRepository, logger *zap.Logger) *GrantService {
	return &GrantService{grants: grants, logger: logger}
}

// WithCache 授权变更后失效该用户的权限缓存
func (s *GrantService) WithCache(cache AccessCache) *GrantService {
	s.cache = cache
	return s
}

// WithPublisher 授权变更写入审计流
func (s *GrantService) WithPublisher(p ActivityPublisher) *GrantService {
	s.publisher = p
	return s
}

// UpsertGrantRequest 创建/更新授权请求
type UpsertGrantRequest struct {
	UserID         string  `json:"user_id"`
	PortfolioID    *string `json:"portfolio_id"`
	SubPortfolioID *string `json:"sub_portfolio_id"`
	PropertyID     *string `json:"property_id"`
}

func (r UpsertGrantRequest) scope() domain.GrantScope {
	return domain.GrantScope{
		PortfolioID:    r.PortfolioID,
		SubPortfolioID: r.SubPortfolioID,
		PropertyID:     r.PropertyID,
	}.Normalize()
}

func (r UpsertGrantRequest) validate() error {
	if strings.TrimSpace(r.UserID) == "" {
		return fmt.Errorf("%w: user_id is required", ErrValidation)
	}
	if r.scope().IsEmpty() {
		return fmt.Errorf("%w: one of portfolio_id, sub_portfolio_id or property_id is required", ErrValidation)
	}
	return nil
}

// Upsert 同一 (user, scope) 只保留一条授权
func (s *GrantService) Upsert(ctx context.Context, actorID string, req UpsertGrantRequest) (*domain.Grant, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	return s.upsert(ctx, actorID, req)
}

func (s *GrantService) upsert(ctx context.Context, actorID string, req UpsertGrantRequest) (*domain.Grant, error) {
	userID := strings.TrimSpace(req.UserID)
	g, err := s.grants.UpsertGrant(ctx, userID, req.scope())
	if err != nil {
		return nil, fmt.Errorf("failed to upsert grant: %w", err)
	}
	s.logger.Info("Grant upserted",
		zap.String("grant_id", g.ID),
		zap.String("user_id", g.UserID),
		zap.String("actor_id", actorID),
	)
	s.afterChange(ctx, ActivityGrantUpserted, actorID, *g)
	return g, nil
}

// UpsertMany 先校验全部请求，再按顺序逐条 upsert
// 中途失败立即返回错误，之前已写入的授权保留
func (s *GrantService) UpsertMany(ctx context.Context, actorID string, reqs []UpsertGrantRequest) ([]domain.Grant, error) {
	if len(reqs) == 0 {
		return nil, fmt.Errorf("%w: at least one grant is required", ErrValidation)
	}
	for i, req := range reqs {
		if err := req.validate(); err != nil {
			return nil, fmt.Errorf("grant[%d]: %w", i, err)
		}
	}

	out := make([]domain.Grant, 0, len(reqs))
	for i, req := range reqs {
		g, err := s.upsert(ctx, actorID, req)
		if err != nil {
			s.logger.Error("Batch grant upsert stopped",
				zap.Int("index", i),
				zap.Int("committed", len(out)),
				zap.Error(err),
			)
			return nil, fmt.Errorf("grant[%d]: %w", i, err)
		}
		out = append(out, *g)
	}
	return out, nil
}

// Delete 返回被删除的授权
func (s *GrantService) Delete(ctx context.Context, actorID, grantID string) (*domain.Grant, error) {
	g, err := s.grants.DeleteGrant(ctx, grantID)
	if err != nil {
		return nil, err
	}
	s.logger.Info("Grant deleted",
		zap.String("grant_id", g.ID),
		zap.String("user_id", g.UserID),
		zap.String("actor_id", actorID),
	)
	s.afterChange(ctx, ActivityGrantDeleted, actorID, *g)
	return g, nil
}

func (s *GrantService) Get(ctx context.Context, grantID string) (*domain.Grant, error) {
	return s.grants.GetGrant(ctx, grantID)
}

func (s *GrantService) List(ctx context.Context, spec query.FilterSpec) (*query.Page[domain.Grant], error) {
	items, total, err := s.grants.ListGrants(ctx, spec)
	if err != nil {
		return nil, fmt.Errorf("failed to list grants: %w", err)
	}
	return &query.Page[domain.Grant]{Items: items, Metadata: query.NewMetadata(total, spec)}, nil
}

// afterChange 缓存失效 + 审计事件；失败只记日志
func (s *GrantService) afterChange(ctx context.Context, action, actorID string, g domain.Grant) {
	if s.cache != nil {
		s.cache.Invalidate(ctx, g.UserID)
	}
	if s.publisher == nil {
		return
	}
	event := ActivityEvent{Action: action, Grant: g, ActorID: actorID, At: time.Now().UTC()}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("Failed to publish grant activity",
			zap.String("action", action),
			zap.String("grant_id", g.ID),
			zap.Error(err),
		)
	}
}
