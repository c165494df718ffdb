package httpapi

import (
	"net/http"

	"go.uber.org/zap"
)

const apiPrefix = "/api/v1"

// Router 使用标准库 http.ServeMux
type Router struct {
	mux    *http.ServeMux
	logger *zap.Logger
}

func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		mux:    http.NewServeMux(),
		logger: logger,
	}
}

func (r *Router) Handle(pattern string, h http.HandlerFunc) {
	r.mux.HandleFunc(pattern, h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// RegisterPropertyRoutes /properties 及其子路径
func (r *Router) RegisterPropertyRoutes(h *PropertiesHandler) {
	r.Handle(apiPrefix+"/properties", h.ServeHTTP)
	r.Handle(apiPrefix+"/properties/", h.ServeHTTP)
}

func (r *Router) RegisterSubPortfolioRoutes(h *SubPortfoliosHandler) {
	r.Handle(apiPrefix+"/sub-portfolios", h.ServeHTTP)
	r.Handle(apiPrefix+"/sub-portfolios/", h.ServeHTTP)
}

func (r *Router) RegisterPortfolioRoutes(h *PortfoliosHandler) {
	r.Handle(apiPrefix+"/portfolios", h.ServeHTTP)
	r.Handle(apiPrefix+"/portfolios/", h.ServeHTTP)
}

// RegisterPermissionRoutes 授权管理（仅 admin）
func (r *Router) RegisterPermissionRoutes(h *PermissionsHandler) {
	r.Handle(apiPrefix+"/permissions", h.ServeHTTP)
	r.Handle(apiPrefix+"/permissions/", h.ServeHTTP)
}

func (r *Router) RegisterHealthRoutes(h *HealthHandler) {
	r.Handle("/healthz", h.ServeHTTP)
}
