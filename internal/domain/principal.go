package domain

const (
	RoleAdmin   = "admin"
	RolePartial = "partial"
)

// Principal 已认证的调用方（由上游网关解析 token 后写入请求头）
type Principal struct {
	UserID string
	Role   string
}

// IsAdmin admin 角色不做权限解析，全部可见
func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}
