package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/VNP-Solutions/vnp-scraper-backend-sub000/internal/domain"
	"github.com/VNP-Solutions/vnp-scraper-backend-sub000/internal/query"

	"github.com/google/uuid"
)

// MemoryStore 内存版存储，DB 关闭时使用（开发环境 / 测试）
// 实现全部四个 Repository，过滤语义与 Postgres 版本一致
type MemoryStore struct {
	mu            sync.RWMutex
	portfolios    map[string]domain.Portfolio
	subPortfolios map[string]domain.SubPortfolio
	properties    map[string]domain.Property
	credentials   map[string]domain.PropertyCredential
	grants        map[string]domain.Grant
	lastTick      time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		portfolios:    map[string]domain.Portfolio{},
		subPortfolios: map[string]domain.SubPortfolio{},
		properties:    map[string]domain.Property{},
		credentials:   map[string]domain.PropertyCredential{},
		grants:        map[string]domain.Grant{},
	}
}

var (
	_ PropertiesRepository    = (*MemoryStore)(nil)
	_ SubPortfoliosRepository = (*MemoryStore)(nil)
	_ PortfoliosRepository    = (*MemoryStore)(nil)
	_ GrantsRepository        = (*MemoryStore)(nil)
)

// tick 严格递增的时间戳，保证默认排序（created_at desc）稳定
// 调用方需持有写锁
func (s *MemoryStore) tick() time.Time {
	now := time.Now().UTC()
	if !now.After(s.lastTick) {
		now = s.lastTick.Add(time.Microsecond)
	}
	s.lastTick = now
	return now
}

func (s *MemoryStore) stamp(id *string, createdAt, updatedAt *time.Time) {
	if *id == "" {
		*id = uuid.NewString()
	}
	if createdAt.IsZero() {
		*createdAt = s.tick()
	}
	if updatedAt.IsZero() {
		*updatedAt = *createdAt
	}
}

// ===== 数据写入（seed / 开发用）=====

func (s *MemoryStore) AddPortfolio(p domain.Portfolio) domain.Portfolio {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stamp(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	s.portfolios[p.ID] = p
	return p
}

func (s *MemoryStore) AddSubPortfolio(sp domain.SubPortfolio) domain.SubPortfolio {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stamp(&sp.ID, &sp.CreatedAt, &sp.UpdatedAt)
	sp.Portfolio = nil
	s.subPortfolios[sp.ID] = sp
	return sp
}

func (s *MemoryStore) AddProperty(p domain.Property) domain.Property {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stamp(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	p.Portfolio, p.SubPortfolio = nil, nil
	s.properties[p.ID] = p
	return p
}

func (s *MemoryStore) AddCredential(c domain.PropertyCredential) domain.PropertyCredential {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stamp(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	s.credentials[c.ID] = c
	return c
}

// ===== PropertiesRepository =====

func (s *MemoryStore) ListProperties(_ context.Context, opts ListOptions) ([]domain.Property, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	allowed := idSet(opts)
	all := make([]domain.Property, 0, len(s.properties))
	for _, p := range s.properties {
		if allowed != nil && !allowed[p.ID] {
			continue
		}
		if id := opts.Filter.PortfolioID; id != "" && !s.propertyInPortfolio(p, id) {
			continue
		}
		if id := opts.Filter.SubPortfolioID; id != "" && deref(p.SubPortfolioID) != id {
			continue
		}
		all = append(all, s.withParents(p))
	}

	items, total := applyMemoryFilter(all, opts.Filter, propertyField, func(p domain.Property) string { return p.ID })
	return items, total, nil
}

func (s *MemoryStore) GetProperty(_ context.Context, propertyID string) (*domain.Property, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.properties[propertyID]
	if !ok {
		return nil, fmt.Errorf("property %s: %w", propertyID, ErrNotFound)
	}
	p = s.withParents(p)
	return &p, nil
}

func (s *MemoryStore) ListPropertyIDsByPortfolios(_ context.Context, portfolioIDs []string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := []string{}
	for _, p := range s.properties {
		for _, pid := range portfolioIDs {
			if s.propertyInPortfolio(p, pid) {
				ids = append(ids, p.ID)
				break
			}
		}
	}
	return ids, nil
}

func (s *MemoryStore) ListPropertyIDsBySubPortfolios(_ context.Context, subPortfolioIDs []string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	want := toSet(subPortfolioIDs)
	ids := []string{}
	for _, p := range s.properties {
		if p.SubPortfolioID != nil && want[*p.SubPortfolioID] {
			ids = append(ids, p.ID)
		}
	}
	return ids, nil
}

func (s *MemoryStore) ListCredentials(_ context.Context, propertyID string) ([]domain.PropertyCredential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []domain.PropertyCredential{}
	for _, c := range s.credentials {
		if c.PropertyID == propertyID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].IsActive != out[j].IsActive {
			return out[i].IsActive
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// propertyInPortfolio 直属，或所属子组合属于该 portfolio
func (s *MemoryStore) propertyInPortfolio(p domain.Property, portfolioID string) bool {
	if deref(p.PortfolioID) == portfolioID {
		return true
	}
	if p.SubPortfolioID == nil {
		return false
	}
	sp, ok := s.subPortfolios[*p.SubPortfolioID]
	return ok && sp.PortfolioID == portfolioID
}

func (s *MemoryStore) withParents(p domain.Property) domain.Property {
	if p.SubPortfolioID != nil {
		if sp, ok := s.subPortfolios[*p.SubPortfolioID]; ok {
			p.SubPortfolio = &domain.SubPortfolioRef{ID: sp.ID, Name: sp.Name, PortfolioID: sp.PortfolioID}
		}
	}
	if p.PortfolioID != nil {
		if pf, ok := s.portfolios[*p.PortfolioID]; ok {
			p.Portfolio = &domain.PortfolioRef{ID: pf.ID, Name: pf.Name}
		}
	}
	return p
}

// ===== SubPortfoliosRepository =====

func (s *MemoryStore) ListSubPortfolios(_ context.Context, opts ListOptions) ([]domain.SubPortfolioSummary, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := map[string]int{}
	for _, p := range s.properties {
		if p.SubPortfolioID != nil {
			counts[*p.SubPortfolioID]++
		}
	}

	allowed := idSet(opts)
	all := make([]domain.SubPortfolioSummary, 0, len(s.subPortfolios))
	for _, sp := range s.subPortfolios {
		if allowed != nil && !allowed[sp.ID] {
			continue
		}
		if id := opts.Filter.PortfolioID; id != "" && sp.PortfolioID != id {
			continue
		}
		if id := opts.Filter.SubPortfolioID; id != "" && sp.ID != id {
			continue
		}
		pf, ok := s.portfolios[sp.PortfolioID]
		if !ok {
			// 与 Postgres 的 INNER JOIN 一致
			continue
		}
		sp.Portfolio = &domain.PortfolioRef{ID: pf.ID, Name: pf.Name}
		all = append(all, domain.SubPortfolioSummary{SubPortfolio: sp, PropertyCount: counts[sp.ID]})
	}

	items, total := applyMemoryFilter(all, opts.Filter, subPortfolioField, func(sp domain.SubPortfolioSummary) string { return sp.ID })
	return items, total, nil
}

func (s *MemoryStore) GetSubPortfolio(_ context.Context, subPortfolioID string) (*domain.SubPortfolio, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sp, ok := s.subPortfolios[subPortfolioID]
	if !ok {
		return nil, fmt.Errorf("sub portfolio %s: %w", subPortfolioID, ErrNotFound)
	}
	if pf, ok := s.portfolios[sp.PortfolioID]; ok {
		sp.Portfolio = &domain.PortfolioRef{ID: pf.ID, Name: pf.Name}
	}
	return &sp, nil
}

func (s *MemoryStore) ListSubPortfolioIDsByPortfolios(_ context.Context, portfolioIDs []string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	want := toSet(portfolioIDs)
	ids := []string{}
	for _, sp := range s.subPortfolios {
		if want[sp.PortfolioID] {
			ids = append(ids, sp.ID)
		}
	}
	return ids, nil
}

// ===== PortfoliosRepository =====

func (s *MemoryStore) ListPortfolios(_ context.Context, opts ListOptions) ([]domain.PortfolioSummary, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	subCounts := map[string]int{}
	for _, sp := range s.subPortfolios {
		subCounts[sp.PortfolioID]++
	}
	propCounts := map[string]int{}
	for _, p := range s.properties {
		if p.PortfolioID != nil {
			propCounts[*p.PortfolioID]++
			continue
		}
		if p.SubPortfolioID != nil {
			if sp, ok := s.subPortfolios[*p.SubPortfolioID]; ok {
				propCounts[sp.PortfolioID]++
			}
		}
	}

	allowed := idSet(opts)
	all := make([]domain.PortfolioSummary, 0, len(s.portfolios))
	for _, pf := range s.portfolios {
		if allowed != nil && !allowed[pf.ID] {
			continue
		}
		if id := opts.Filter.PortfolioID; id != "" && pf.ID != id {
			continue
		}
		all = append(all, domain.PortfolioSummary{
			Portfolio:         pf,
			SubPortfolioCount: subCounts[pf.ID],
			PropertyCount:     propCounts[pf.ID],
		})
	}

	items, total := applyMemoryFilter(all, opts.Filter, portfolioField, func(p domain.PortfolioSummary) string { return p.ID })
	return items, total, nil
}

func (s *MemoryStore) GetPortfolio(_ context.Context, portfolioID string) (*domain.Portfolio, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pf, ok := s.portfolios[portfolioID]
	if !ok {
		return nil, fmt.Errorf("portfolio %s: %w", portfolioID, ErrNotFound)
	}
	return &pf, nil
}

// ===== GrantsRepository =====

func (s *MemoryStore) UpsertGrant(_ context.Context, userID string, scope domain.GrantScope) (*domain.Grant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	scope = scope.Normalize()
	for id, g := range s.grants {
		if g.UserID == userID && scopeEqual(g.Scope(), scope) {
			g.UpdatedAt = s.tick()
			s.grants[id] = g
			return &g, nil
		}
	}

	now := s.tick()
	g := domain.Grant{
		ID:             uuid.NewString(),
		UserID:         userID,
		PortfolioID:    scope.PortfolioID,
		SubPortfolioID: scope.SubPortfolioID,
		PropertyID:     scope.PropertyID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	s.grants[g.ID] = g
	return &g, nil
}

func (s *MemoryStore) ListGrants(_ context.Context, filter query.FilterSpec) ([]domain.Grant, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make([]domain.Grant, 0, len(s.grants))
	for _, g := range s.grants {
		if id := filter.PortfolioID; id != "" && deref(g.PortfolioID) != id {
			continue
		}
		if id := filter.SubPortfolioID; id != "" && deref(g.SubPortfolioID) != id {
			continue
		}
		all = append(all, g)
	}
	items, total := applyMemoryFilter(all, filter, grantField, func(g domain.Grant) string { return g.ID })
	return items, total, nil
}

func (s *MemoryStore) GetGrant(_ context.Context, grantID string) (*domain.Grant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	g, ok := s.grants[grantID]
	if !ok {
		return nil, fmt.Errorf("grant %s: %w", grantID, ErrNotFound)
	}
	return &g, nil
}

func (s *MemoryStore) DeleteGrant(_ context.Context, grantID string) (*domain.Grant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.grants[grantID]
	if !ok {
		return nil, fmt.Errorf("grant %s: %w", grantID, ErrNotFound)
	}
	delete(s.grants, grantID)
	return &g, nil
}

func (s *MemoryStore) FindGrantByUserAndScope(_ context.Context, userID string, scope domain.GrantScope) (*domain.Grant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	scope = scope.Normalize()
	for _, g := range s.grants {
		if g.UserID == userID && scopeEqual(g.Scope(), scope) {
			return &g, nil
		}
	}
	return nil, nil
}

func (s *MemoryStore) ListGrantsByUser(_ context.Context, userID string) ([]domain.Grant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userGrants(userID), nil
}

func (s *MemoryStore) FindFirstMatchingGrant(_ context.Context, userID string, candidates []domain.GrantScope) (*domain.Grant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, g := range s.userGrants(userID) {
		for _, c := range candidates {
			if scopeMatches(g, c.Normalize()) {
				return &g, nil
			}
		}
	}
	return nil, nil
}

// userGrants 按 created_at 升序；调用方需持有读锁
func (s *MemoryStore) userGrants(userID string) []domain.Grant {
	out := []domain.Grant{}
	for _, g := range s.grants {
		if g.UserID == userID {
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// scopeMatches 候选内设置了的字段必须全部相等；空候选不匹配
func scopeMatches(g domain.Grant, c domain.GrantScope) bool {
	if c.IsEmpty() {
		return false
	}
	if c.PortfolioID != nil && deref(g.PortfolioID) != *c.PortfolioID {
		return false
	}
	if c.SubPortfolioID != nil && deref(g.SubPortfolioID) != *c.SubPortfolioID {
		return false
	}
	if c.PropertyID != nil && deref(g.PropertyID) != *c.PropertyID {
		return false
	}
	return true
}

func scopeEqual(a, b domain.GrantScope) bool {
	return ptrEqual(a.PortfolioID, b.PortfolioID) &&
		ptrEqual(a.SubPortfolioID, b.SubPortfolioID) &&
		ptrEqual(a.PropertyID, b.PropertyID)
}

func ptrEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func toSet(ids []string) map[string]bool {
	m := make(map[string]bool, len(ids))
	for _, id := range ids {
		m[id] = true
	}
	return m
}

// idSet nil 表示不限制
func idSet(opts ListOptions) map[string]bool {
	if !opts.Restrict {
		return nil
	}
	return toSet(opts.IDs)
}

// ===== 内存过滤 =====

// fieldFunc 返回实体某个过滤字段的值（*string 已解引用；nil 表示 NULL）
type fieldFunc[T any] func(item T, field string) (any, bool)

// applyMemoryFilter search / 时间范围 / 等值 / 排序 / 分页，返回当前页与总数
func applyMemoryFilter[T any](items []T, spec query.FilterSpec, field fieldFunc[T], id func(T) string) ([]T, int) {
	matched := make([]T, 0, len(items))
	for _, it := range items {
		if matchesFilter(it, spec, field) {
			matched = append(matched, it)
		}
	}

	sortField := spec.Sort.Field
	sort.SliceStable(matched, func(i, j int) bool {
		a, _ := field(matched[i], sortField)
		b, _ := field(matched[j], sortField)
		c := compareValues(a, b)
		if c == 0 {
			c = strings.Compare(id(matched[i]), id(matched[j]))
		}
		if spec.Sort.Desc {
			return c > 0
		}
		return c < 0
	})

	total := len(matched)
	start := spec.Skip()
	if start < 0 || start > total {
		start = total
	}
	end := start + spec.Take()
	if end < start || end > total {
		end = total
	}
	return matched[start:end], total
}

func matchesFilter[T any](it T, spec query.FilterSpec, field fieldFunc[T]) bool {
	if spec.Search != "" {
		needle := strings.ToLower(spec.Search)
		hit := false
		for _, f := range spec.SearchFields {
			v, ok := field(it, f)
			if !ok || v == nil {
				continue
			}
			if s, isStr := v.(string); isStr && strings.Contains(strings.ToLower(s), needle) {
				hit = true
				break
			}
		}
		if !hit {
			return false
		}
	}

	if dr := spec.DateRange; dr != nil {
		v, ok := field(it, dr.Field)
		if ok {
			t, isTime := v.(time.Time)
			if !isTime || t.Before(dr.From) || t.After(dr.To) {
				return false
			}
		}
	}

	for _, eq := range spec.Equals {
		v, ok := field(it, eq.Field)
		if !ok {
			continue
		}
		if v == nil || fmt.Sprint(v) != fmt.Sprint(eq.Value) {
			return false
		}
	}
	return true
}

// compareValues NULL 排在最前（升序）
func compareValues(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	switch av := a.(type) {
	case time.Time:
		bv, _ := b.(time.Time)
		return av.Compare(bv)
	case int:
		bv, _ := b.(int)
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		}
		return 0
	default:
		return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
	}
}

func strField(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func propertyField(p domain.Property, field string) (any, bool) {
	switch field {
	case "id":
		return p.ID, true
	case "name":
		return p.Name, true
	case "expedia_id":
		return strField(p.ExpediaID), true
	case "expedia_status":
		return strField(p.ExpediaStatus), true
	case "booking_id":
		return strField(p.BookingID), true
	case "booking_status":
		return strField(p.BookingStatus), true
	case "agoda_id":
		return strField(p.AgodaID), true
	case "agoda_status":
		return strField(p.AgodaStatus), true
	case "user_email":
		return strField(p.UserEmail), true
	case "created_at":
		return p.CreatedAt, true
	case "updated_at":
		return p.UpdatedAt, true
	}
	return nil, false
}

func subPortfolioField(sp domain.SubPortfolioSummary, field string) (any, bool) {
	switch field {
	case "id":
		return sp.ID, true
	case "name":
		return sp.Name, true
	case "description":
		return strField(sp.Description), true
	case "created_at":
		return sp.CreatedAt, true
	case "updated_at":
		return sp.UpdatedAt, true
	case "propertyCount":
		return sp.PropertyCount, true
	}
	return nil, false
}

func portfolioField(p domain.PortfolioSummary, field string) (any, bool) {
	switch field {
	case "id":
		return p.ID, true
	case "name":
		return p.Name, true
	case "created_by":
		return strField(p.CreatedBy), true
	case "updated_by":
		return strField(p.UpdatedBy), true
	case "created_at":
		return p.CreatedAt, true
	case "updated_at":
		return p.UpdatedAt, true
	}
	return nil, false
}

func grantField(g domain.Grant, field string) (any, bool) {
	switch field {
	case "id":
		return g.ID, true
	case "user_id":
		return g.UserID, true
	case "portfolio_id":
		return strField(g.PortfolioID), true
	case "sub_portfolio_id":
		return strField(g.SubPortfolioID), true
	case "property_id":
		return strField(g.PropertyID), true
	case "created_at":
		return g.CreatedAt, true
	case "updated_at":
		return g.UpdatedAt, true
	}
	return nil, false
}
