package service

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/VNP-Solutions/vnp-scraper-backend-sub000/internal/domain"
	"github.com/VNP-Solutions/vnp-scraper-backend-sub000/internal/repository"

	"go.uber.org/zap"
)

var errStorage = errors.New("storage unavailable")

func strPtr(s string) *string { return &s }

// fixture 层级：
//
//	pf-A -> sp-B -> prop-X
//	pf-A -> prop-Y（直属）
//	pf-C -> sp-D -> prop-Z, prop-W
//	prop-V（无上级）
func newFixture(t *testing.T) *repository.MemoryStore {
	t.Helper()
	s := repository.NewMemoryStore()
	s.AddPortfolio(domain.Portfolio{ID: "pf-A", Name: "Atlantic"})
	s.AddPortfolio(domain.Portfolio{ID: "pf-C", Name: "Continental"})
	s.AddSubPortfolio(domain.SubPortfolio{ID: "sp-B", Name: "Boston", PortfolioID: "pf-A"})
	s.AddSubPortfolio(domain.SubPortfolio{ID: "sp-D", Name: "Denver", PortfolioID: "pf-C"})
	s.AddProperty(domain.Property{ID: "prop-X", Name: "Xavier Inn", SubPortfolioID: strPtr("sp-B")})
	s.AddProperty(domain.Property{ID: "prop-Y", Name: "Yale Inn", PortfolioID: strPtr("pf-A")})
	s.AddProperty(domain.Property{ID: "prop-Z", Name: "Zephyr Inn", SubPortfolioID: strPtr("sp-D")})
	s.AddProperty(domain.Property{ID: "prop-W", Name: "Willow Suites", SubPortfolioID: strPtr("sp-D")})
	s.AddProperty(domain.Property{ID: "prop-V", Name: "Valley Lodge"})
	return s
}

func grant(t *testing.T, s *repository.MemoryStore, userID string, scope domain.GrantScope) *domain.Grant {
	t.Helper()
	g, err := s.UpsertGrant(context.Background(), userID, scope)
	if err != nil {
		t.Fatalf("seed grant: %v", err)
	}
	return g
}

func newResolver(s *repository.MemoryStore) *PermissionResolver {
	return NewPermissionResolver(s, s, s, zap.NewNop())
}

// countingGrants 统计 ListGrantsByUser 调用次数
type countingGrants struct {
	*repository.MemoryStore
	calls atomic.Int32
}

func (c *countingGrants) ListGrantsByUser(ctx context.Context, userID string) ([]domain.Grant, error) {
	c.calls.Add(1)
	return c.MemoryStore.ListGrantsByUser(ctx, userID)
}

// failingGrants ListGrantsByUser / FindFirstMatchingGrant 总是失败
type failingGrants struct {
	*repository.MemoryStore
}

func (f *failingGrants) ListGrantsByUser(context.Context, string) ([]domain.Grant, error) {
	return nil, errStorage
}

func (f *failingGrants) FindFirstMatchingGrant(context.Context, string, []domain.GrantScope) (*domain.Grant, error) {
	return nil, errStorage
}

// failingExpansion 展开查询失败
type failingExpansion struct {
	*repository.MemoryStore
}

func (f *failingExpansion) ListPropertyIDsByPortfolios(context.Context, []string) ([]string, error) {
	return nil, errStorage
}

// flakyUpserts 第 failAt 次（从 1 开始）upsert 失败
type flakyUpserts struct {
	*repository.MemoryStore
	failAt int
	n      int
}

func (f *flakyUpserts) UpsertGrant(ctx context.Context, userID string, scope domain.GrantScope) (*domain.Grant, error) {
	f.n++
	if f.n == f.failAt {
		return nil, fmt.Errorf("upsert %d: %w", f.n, errStorage)
	}
	return f.MemoryStore.UpsertGrant(ctx, userID, scope)
}
