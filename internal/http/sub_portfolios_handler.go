package httpapi

import (
	"net/http"

	"github.com/VNP-Solutions/vnp-scraper-backend-sub000/internal/query"
	"github.com/VNP-Solutions/vnp-scraper-backend-sub000/internal/repository"
	"github.com/VNP-Solutions/vnp-scraper-backend-sub000/internal/service"

	"go.uber.org/zap"
)

const subPortfoliosPath = apiPrefix + "/sub-portfolios"

// SubPortfoliosHandler 子组合接口
type SubPortfoliosHandler struct {
	listing *service.ListingService
	checker *service.AccessChecker
	logger  *zap.Logger
}

func NewSubPortfoliosHandler(listing *service.ListingService, checker *service.AccessChecker, logger *zap.Logger) *SubPortfoliosHandler {
	return &SubPortfoliosHandler{listing: listing, checker: checker, logger: logger}
}

func (h *SubPortfoliosHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	parts := splitPath(r.URL.Path, subPortfoliosPath)
	if len(parts) > 2 || (len(parts) == 2 && parts[1] != "access") {
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

	id := parts[0]
	if !validID(id) {
		writeJSON(w, http.StatusBadRequest, Fail(http.StatusBadRequest, "invalid sub portfolio id"))
		return
	}
	if len(parts) == 2 {
		serveAccessCheck(w, r, h.logger, id, h.checker.CheckSubPortfolioAccess)
		return
	}
	h.Get(w, r, id)
}

// List GET /sub-portfolios
func (h *SubPortfoliosHandler) List(w http.ResponseWriter, r *http.Request) {
	p, ok := principalFromRequest(w, r)
	if !ok {
		return
	}
	spec := query.Build(query.Normalize(r.URL.Query()), repository.SubPortfolioSchema)

	page, err := h.listing.ListSubPortfolios(r.Context(), p.UserID, p.IsAdmin(), spec)
	if err != nil {
		writeError(w, h.logger, "ListSubPortfolios", err)
		return
	}
	writeJSON(w, http.StatusOK, OkPage("sub portfolios retrieved", page))
}

// Get GET /sub-portfolios/{id}
func (h *SubPortfoliosHandler) Get(w http.ResponseWriter, r *http.Request, id string) {
	p, ok := principalFromRequest(w, r)
	if !ok {
		return
	}
	sp, err := h.checker.AuthorizeSubPortfolio(r.Context(), p, id)
	if err != nil {
		writeError(w, h.logger, "GetSubPortfolio", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(http.StatusOK, "sub portfolio retrieved", sp))
}
