package domain

import "time"

// Portfolio 组合（层级顶层，对应 portfolios 表）
type Portfolio struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	CreatedBy *string   `db:"created_by" json:"createdBy"`
	UpdatedBy *string   `db:"updated_by" json:"updatedBy"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// PortfolioSummary 列表行：附带子组合数与物业数（同一查询内计算）
type PortfolioSummary struct {
	Portfolio
	SubPortfolioCount int `json:"subPortfolioCount"`
	PropertyCount     int `json:"propertyCount"`
}
