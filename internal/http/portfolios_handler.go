package httpapi

import (
	"net/http"

	"github.com/VNP-Solutions/vnp-scraper-backend-sub000/internal/query"
	"github.com/VNP-Solutions/vnp-scraper-backend-sub000/internal/repository"
	"github.com/VNP-Solutions/vnp-scraper-backend-sub000/internal/service"

	"go.uber.org/zap"
)

const portfoliosPath = apiPrefix + "/portfolios"

// PortfoliosHandler 组合接口
type PortfoliosHandler struct {
	listing *service.ListingService
	checker *service.AccessChecker
	logger  *zap.Logger
}

func NewPortfoliosHandler(listing *service.ListingService, checker *service.AccessChecker, logger *zap.Logger) *PortfoliosHandler {
	return &PortfoliosHandler{listing: listing, checker: checker, logger: logger}
}

func (h *PortfoliosHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	parts := splitPath(r.URL.Path, portfoliosPath)
	if len(parts) == 1 || len(parts) > 2 || (len(parts) == 2 && parts[1] != "access") {
		notFound(w)
		return
	}
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	if len(parts) == 0 {
		h.List(w, r)
		return
	}
	if !validID(parts[0]) {
		writeJSON(w, http.StatusBadRequest, Fail(http.StatusBadRequest, "invalid portfolio id"))
		return
	}
	serveAccessCheck(w, r, h.logger, parts[0], h.checker.CheckPortfolioAccess)
}

// List GET /portfolios（每行带 subPortfolioCount / propertyCount）
func (h *PortfoliosHandler) List(w http.ResponseWriter, r *http.Request) {
	p, ok := principalFromRequest(w, r)
	if !ok {
		return
	}
	spec := query.Build(query.Normalize(r.URL.Query()), repository.PortfolioSchema)

	page, err := h.listing.ListPortfolios(r.Context(), p.UserID, p.IsAdmin(), spec)
	if err != nil {
		writeError(w, h.logger, "ListPortfolios", err)
		return
	}
	writeJSON(w, http.StatusOK, OkPage("portfolios retrieved", page))
}
