package httpapi

import (
	"net/http"

	"github.com/VNP-Solutions/vnp-scraper-backend-sub000/internal/domain"
	"github.com/VNP-Solutions/vnp-scraper-backend-sub000/internal/query"
	"github.com/VNP-Solutions/vnp-scraper-backend-sub000/internal/repository"
	"github.com/VNP-Solutions/vnp-scraper-backend-sub000/internal/service"

	"go.uber.org/zap"
)

const permissionsPath = apiPrefix + "/permissions"

// PermissionsHandler 用户授权管理（仅 admin）
type PermissionsHandler struct {
	grants *service.GrantService
	logger *zap.Logger
}

func NewPermissionsHandler(grants *service.GrantService, logger *zap.Logger) *PermissionsHandler {
	return &PermissionsHandler{grants: grants, logger: logger}
}

func (h *PermissionsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	parts := splitPath(r.URL.Path, permissionsPath)

	switch {
	case len(parts) == 0 && r.Method == http.MethodGet:
		h.List(w, r)
	case len(parts) == 0 && r.Method == http.MethodPost:
		h.Upsert(w, r)
	case len(parts) == 1 && parts[0] == "batch" && r.Method == http.MethodPost:
		h.UpsertBatch(w, r)
	case len(parts) == 1 && parts[0] != "batch" && r.Method == http.MethodGet:
		h.Get(w, r, parts[0])
	case len(parts) == 1 && parts[0] != "batch" && r.Method == http.MethodDelete:
		h.Delete(w, r, parts[0])
	case len(parts) <= 1:
		methodNotAllowed(w)
	default:
		notFound(w)
	}
}

// List GET /permissions（支持 user_id / portfolio_id / sub_portfolio_id / property_id 过滤）
func (h *PermissionsHandler) List(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireAdmin(w, r); !ok {
		return
	}
	spec := query.Build(query.Normalize(r.URL.Query()), repository.GrantSchema)

	page, err := h.grants.List(r.Context(), spec)
	if err != nil {
		writeError(w, h.logger, "ListGrants", err)
		return
	}
	writeJSON(w, http.StatusOK, OkPage("permissions retrieved", page))
}

// Get GET /permissions/{id}
func (h *PermissionsHandler) Get(w http.ResponseWriter, r *http.Request, id string) {
	if _, ok := requireAdmin(w, r); !ok {
		return
	}
	if !validID(id) {
		writeJSON(w, http.StatusBadRequest, Fail(http.StatusBadRequest, "invalid permission id"))
		return
	}
	g, err := h.grants.Get(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, "GetGrant", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(http.StatusOK, "permission retrieved", g))
}

// Upsert POST /permissions
func (h *PermissionsHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	admin, ok := requireAdmin(w, r)
	if !ok {
		return
	}
	var req service.UpsertGrantRequest
	if err := readBodyJSON(r, maxBodyBytes, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail(http.StatusBadRequest, "invalid request body"))
		return
	}

	g, err := h.grants.Upsert(r.Context(), admin.UserID, req)
	if err != nil {
		writeError(w, h.logger, "UpsertGrant", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(http.StatusOK, "permission saved", g))
}

// batchRequest POST /permissions/batch 请求体
type batchRequest struct {
	Permissions []service.UpsertGrantRequest `json:"permissions"`
}

// UpsertBatch POST /permissions/batch：按顺序执行，遇到第一个错误即停止
func (h *PermissionsHandler) UpsertBatch(w http.ResponseWriter, r *http.Request) {
	admin, ok := requireAdmin(w, r)
	if !ok {
		return
	}
	var req batchRequest
	if err := readBodyJSON(r, maxBodyBytes, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail(http.StatusBadRequest, "invalid request body"))
		return
	}
	grants, err := h.grants.UpsertMany(r.Context(), admin.UserID, req.Permissions)
	if err != nil {
		writeError(w, h.logger, "UpsertGrants", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok[[]domain.Grant](http.StatusOK, "permissions saved", grants))
}

// Delete DELETE /permissions/{id}
func (h *PermissionsHandler) Delete(w http.ResponseWriter, r *http.Request, id string) {
	admin, ok := requireAdmin(w, r)
	if !ok {
		return
	}
	if !validID(id) {
		writeJSON(w, http.StatusBadRequest, Fail(http.StatusBadRequest, "invalid permission id"))
		return
	}
	g, err := h.grants.Delete(r.Context(), admin.UserID, id)
	if err != nil {
		writeError(w, h.logger, "DeleteGrant", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(http.StatusOK, "permission deleted", g))
}
