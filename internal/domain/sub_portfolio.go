package domain

import "time"

// SubPortfolio 子组合（对应 sub_portfolios 表），必须挂在一个 Portfolio 下
type SubPortfolio struct {
	ID          string    `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description *string   `db:"description" json:"description"`
	PortfolioID string    `db:"portfolio_id" json:"portfolio_id"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time `db:"updated_at" json:"updatedAt"`

	Portfolio *PortfolioRef `json:"portfolio,omitempty"`
}

// SubPortfolioSummary 列表行：PropertyCount 为子物业数
type SubPortfolioSummary struct {
	SubPortfolio
	PropertyCount int `json:"propertyCount"`
}

// PortfolioRef 关联加载时只带 id/name
type PortfolioRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// SubPortfolioRef 关联加载的子组合（带其父 portfolio_id，权限判断需要）
type SubPortfolioRef struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	PortfolioID string `json:"portfolio_id"`
}
