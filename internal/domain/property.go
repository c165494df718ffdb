package domain

import "time"

// Property 物业（对应 properties 表）
// 直接属于 Portfolio，或属于某个 SubPortfolio（两者不应同时存在，表结构不强制）
type Property struct {
	ID             string  `db:"id" json:"id"`
	Name           string  `db:"name" json:"name"`
	PortfolioID    *string `db:"portfolio_id" json:"portfolio_id"`
	SubPortfolioID *string `db:"sub_portfolio_id" json:"sub_portfolio_id"`

	ExpediaID     *string `db:"expedia_id" json:"expedia_id"`
	ExpediaStatus *string `db:"expedia_status" json:"expedia_status"`
	BookingID     *string `db:"booking_id" json:"booking_id"`
	BookingStatus *string `db:"booking_status" json:"booking_status"`
	AgodaID       *string `db:"agoda_id" json:"agoda_id"`
	AgodaStatus   *string `db:"agoda_status" json:"agoda_status"`

	UserEmail *string `db:"user_email" json:"user_email"`
	// UserPassword 加密存储，不对外输出
	UserPassword *string `db:"user_password" json:"-"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`

	// 关联加载
	Portfolio    *PortfolioRef    `json:"portfolio,omitempty"`
	SubPortfolio *SubPortfolioRef `json:"sub_portfolio,omitempty"`
}

// PropertyCredential OTA 登录凭据（property 的子记录，业务上只有一条 active）
type PropertyCredential struct {
	ID         string    `db:"id" json:"id"`
	PropertyID string    `db:"property_id" json:"property_id"`
	OTA        string    `db:"ota" json:"ota"`
	Username   string    `db:"username" json:"username"`
	Password   string    `db:"password" json:"password"`
	IsActive   bool      `db:"is_active" json:"is_active"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt  time.Time `db:"updated_at" json:"updatedAt"`
}
