package httpapi

import (
	"context"
	"net/http"

	"github.com/VNP-Solutions/vnp-scraper-backend-sub000/internal/domain"

	"go.uber.org/zap"
)

// accessResult GET .../{id}/access 的响应数据
type accessResult struct {
	Allowed bool          `json:"allowed"`
	Grant   *domain.Grant `json:"grant,omitempty"`
}

type accessCheckFunc func(ctx context.Context, id, userID string) (*domain.Grant, error)

// serveAccessCheck admin 可通过 ?user_id= 查询其他用户；默认查询调用方自己
func serveAccessCheck(w http.ResponseWriter, r *http.Request, logger *zap.Logger, id string, check accessCheckFunc) {
	p, ok := principalFromRequest(w, r)
	if !ok {
		return
	}
	target := p.UserID
	if other := r.URL.Query().Get("user_id"); other != "" && p.IsAdmin() {
		target = other
	}

	g, err := check(r.Context(), id, target)
	if err != nil {
		writeError(w, logger, "CheckAccess", err)
		return
	}
	res := accessResult{Allowed: g != nil, Grant: g}
	if target == p.UserID && p.IsAdmin() {
		res.Allowed = true
	}
	writeJSON(w, http.StatusOK, Ok(http.StatusOK, "access checked", res))
}
