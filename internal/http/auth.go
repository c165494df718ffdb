package httpapi

import (
	"net/http"
	"strings"

	"github.com/VNP-Solutions/vnp-scraper-backend-sub000/internal/domain"
)

// 上游网关验证 token 后写入的身份头
const (
	headerUserID   = "X-User-Id"
	headerUserRole = "X-User-Role"
)

// principalFromRequest 缺少用户 id 时返回 401
func principalFromRequest(w http.ResponseWriter, r *http.Request) (domain.Principal, bool) {
	userID := strings.TrimSpace(r.Header.Get(headerUserID))
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, Fail(http.StatusUnauthorized, "authentication required"))
		return domain.Principal{}, false
	}
	role := strings.ToLower(strings.TrimSpace(r.Header.Get(headerUserRole)))
	if role == "" {
		role = domain.RolePartial
	}
	return domain.Principal{UserID: userID, Role: role}, true
}

// requireAdmin 授权管理接口只允许 admin
func requireAdmin(w http.ResponseWriter, r *http.Request) (domain.Principal, bool) {
	p, ok := principalFromRequest(w, r)
	if !ok {
		return p, false
	}
	if !p.IsAdmin() {
		writeJSON(w, http.StatusForbidden, Fail(http.StatusForbidden, "admin role required"))
		return p, false
	}
	return p, true
}
