package domain

import "time"

// Grant 用户访问授权（对应 user_feature_access_permissions 表）
// 每条授权只应填写三个范围字段中的一个
type Grant struct {
	ID             string    `db:"id" json:"id"`
	UserID         string    `db:"user_id" json:"user_id"`
	PortfolioID    *string   `db:"portfolio_id" json:"portfolio_id"`
	SubPortfolioID *string   `db:"sub_portfolio_id" json:"sub_portfolio_id"`
	PropertyID     *string   `db:"property_id" json:"property_id"`
	CreatedAt      time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time `db:"updated_at" json:"updatedAt"`
}

// GrantScope 授权范围（三个字段，nil 表示未设置）
type GrantScope struct {
	PortfolioID    *string `json:"portfolio_id"`
	SubPortfolioID *string `json:"sub_portfolio_id"`
	PropertyID     *string `json:"property_id"`
}

// Scope 返回授权的范围字段
func (g Grant) Scope() GrantScope {
	return GrantScope{
		PortfolioID:    g.PortfolioID,
		SubPortfolioID: g.SubPortfolioID,
		PropertyID:     g.PropertyID,
	}
}

// IsEmpty 三个范围字段都未设置
func (s GrantScope) IsEmpty() bool {
	return isBlank(s.PortfolioID) && isBlank(s.SubPortfolioID) && isBlank(s.PropertyID)
}

// Normalize 空字符串视为未设置
func (s GrantScope) Normalize() GrantScope {
	return GrantScope{
		PortfolioID:    nilIfBlank(s.PortfolioID),
		SubPortfolioID: nilIfBlank(s.SubPortfolioID),
		PropertyID:     nilIfBlank(s.PropertyID),
	}
}

// PortfolioScope / SubPortfolioScope / PropertyScope 构造单层级范围
func PortfolioScope(id string) GrantScope    { return GrantScope{PortfolioID: &id} }
func SubPortfolioScope(id string) GrantScope { return GrantScope{SubPortfolioID: &id} }
func PropertyScope(id string) GrantScope     { return GrantScope{PropertyID: &id} }

func isBlank(s *string) bool { return s == nil || *s == "" }

func nilIfBlank(s *string) *string {
	if isBlank(s) {
		return nil
	}
	v := *s
	return &v
}
