package httpapi

import (
	"fmt"
	"net/http"
	"time"

	"github.com/VNP-Solutions/vnp-scraper-backend-sub000/internal/query"
	"github.com/VNP-Solutions/vnp-scraper-backend-sub000/internal/repository"
	"github.com/VNP-Solutions/vnp-scraper-backend-sub000/internal/service"

	"go.uber.org/zap"
)

const propertiesPath = apiPrefix + "/properties"

// PropertiesHandler 物业接口
type PropertiesHandler struct {
	listing    *service.ListingService
	properties *service.PropertyService
	checker    *service.AccessChecker
	logger     *zap.Logger
}

func NewPropertiesHandler(listing *service.ListingService, properties *service.PropertyService, checker *service.AccessChecker, logger *zap.Logger) *PropertiesHandler {
	return &PropertiesHandler{
		listing:    listing,
		properties: properties,
		checker:    checker,
		logger:     logger,
	}
}

func (h *PropertiesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	parts := splitPath(r.URL.Path, propertiesPath)
	if len(parts) > 2 {
		notFound(w)
		return
	}

	if len(parts) == 0 || (len(parts) == 1 && parts[0] == "export") {
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		if len(parts) == 0 {
			h.List(w, r)
		} else {
			h.Export(w, r)
		}
		return
	}

	id := parts[0]
	if !validID(id) {
		writeJSON(w, http.StatusBadRequest, Fail(http.StatusBadRequest, "invalid property id"))
		return
	}
	sub := ""
	if len(parts) == 2 {
		sub = parts[1]
	}

	switch {
	case sub == "" && r.Method == http.MethodGet:
		h.Get(w, r, id)
	case sub == "access" && r.Method == http.MethodGet:
		serveAccessCheck(w, r, h.logger, id, h.checker.CheckPropertyAccess)
	case sub == "credentials" && r.Method == http.MethodGet:
		h.Credentials(w, r, id)
	case sub == "jobs" && r.Method == http.MethodPost:
		h.TriggerJob(w, r, id)
	case sub == "" || sub == "access" || sub == "credentials" || sub == "jobs":
		methodNotAllowed(w)
	default:
		notFound(w)
	}
}

// List GET /properties
func (h *PropertiesHandler) List(w http.ResponseWriter, r *http.Request) {
	p, ok := principalFromRequest(w, r)
	if !ok {
		return
	}
	spec := query.Build(query.Normalize(r.URL.Query()), repository.PropertySchema)

	page, err := h.listing.ListProperties(r.Context(), p.UserID, p.IsAdmin(), spec)
	if err != nil {
		writeError(w, h.logger, "ListProperties", err)
		return
	}
	writeJSON(w, http.StatusOK, OkPage("properties retrieved", page))
}

// Get GET /properties/{id}
func (h *PropertiesHandler) Get(w http.ResponseWriter, r *http.Request, id string) {
	p, ok := principalFromRequest(w, r)
	if !ok {
		return
	}
	prop, err := h.properties.GetProperty(r.Context(), p, id)
	if err != nil {
		writeError(w, h.logger, "GetProperty", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(http.StatusOK, "property retrieved", prop))
}

// Credentials GET /properties/{id}/credentials
func (h *PropertiesHandler) Credentials(w http.ResponseWriter, r *http.Request, id string) {
	p, ok := principalFromRequest(w, r)
	if !ok {
		return
	}
	creds, err := h.properties.GetCredentials(r.Context(), p, id)
	if err != nil {
		writeError(w, h.logger, "GetCredentials", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(http.StatusOK, "credentials retrieved", creds))
}

// TriggerJob POST /properties/{id}/jobs
func (h *PropertiesHandler) TriggerJob(w http.ResponseWriter, r *http.Request, id string) {
	p, ok := principalFromRequest(w, r)
	if !ok {
		return
	}
	var req service.TriggerScrapeJobRequest
	if err := readBodyJSON(r, maxBodyBytes, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail(http.StatusBadRequest, "invalid request body"))
		return
	}

	job, err := h.properties.TriggerScrapeJob(r.Context(), p, id, req)
	if err != nil {
		writeError(w, h.logger, "TriggerScrapeJob", err)
		return
	}
	writeJSON(w, http.StatusCreated, Ok(http.StatusCreated, "scrape job created", job))
}

// Export GET /properties/export：与列表相同的过滤条件，导出全部页
func (h *PropertiesHandler) Export(w http.ResponseWriter, r *http.Request) {
	p, ok := principalFromRequest(w, r)
	if !ok {
		return
	}
	spec := query.Build(query.Normalize(r.URL.Query()), repository.PropertySchema)

	items, err := h.listing.ExportProperties(r.Context(), p.UserID, p.IsAdmin(), spec)
	if err != nil {
		writeError(w, h.logger, "ExportProperties", err)
		return
	}

	data, err := GeneratePropertiesExport(items)
	if err != nil {
		writeError(w, h.logger, "GeneratePropertiesExport", err)
		return
	}

	filename := fmt.Sprintf("properties_%s.xlsx", time.Now().UTC().Format("20060102"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", "attachment; filename="+filename)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
