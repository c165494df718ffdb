package httpapi

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Pinger *sql.DB 满足此接口
type Pinger interface {
	PingContext(ctx context.Context) error
}

// HealthHandler GET /healthz；db 为 nil（内存存储）时只报告存活
type HealthHandler struct {
	db     Pinger
	logger *zap.Logger
}

func NewHealthHandler(db Pinger, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{db: db, logger: logger}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	status := map[string]string{"status": "ok", "database": "disabled"}
	if h.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.db.PingContext(ctx); err != nil {
			h.logger.Warn("Database ping failed", zap.Error(err))
			status["status"] = "degraded"
			status["database"] = "unreachable"
			writeJSON(w, http.StatusServiceUnavailable, Result[map[string]string]{
				StatusCode: http.StatusServiceUnavailable,
				Message:    "database unreachable",
				Data:       status,
			})
			return
		}
		status["database"] = "ok"
	}
	writeJSON(w, http.StatusOK, Ok(http.StatusOK, "ok", status))
}
