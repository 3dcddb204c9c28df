package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/avatarstudio/avatarstudio/internal/handler/dto"
	"github.com/avatarstudio/avatarstudio/internal/service"
)

// AnalyticsHandler handles video analytics requests.
type AnalyticsHandler struct {
	svc    *service.AnalyticsService
	logger *slog.Logger
}

// NewAnalyticsHandler creates a new AnalyticsHandler.
func NewAnalyticsHandler(svc *service.AnalyticsService, logger *slog.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{
		svc:    svc,
		logger: logger.With("component", "handler.analytics"),
	}
}

// List handles GET /api/analytics. With ?start=&end= it returns only videos
// created within the inclusive range.
func (h *AnalyticsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Has("start") || q.Has("end") {
		start, end, err := dto.ParseDateRange(q.Get("start"), q.Get("end"))
		if err != nil {
			handleServiceError(w, h.logger, err)
			return
		}
		items, err := h.svc.GetAnalyticsForDateRange(r.Context(), start, end)
		if err != nil {
			handleServiceError(w, h.logger, err)
			return
		}
		writeSuccess(w, http.StatusOK, "", envelope{"analytics": items})
		return
	}

	items, err := h.svc.GetAllAnalytics(r.Context())
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	writeSuccess(w, http.StatusOK, "", envelope{"analytics": items})
}

// Create handles POST /api/analytics.
func (h *AnalyticsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateVideoAnalyticsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	record, err := h.svc.CreateVideoAnalytics(r.Context(), req.VideoID, req.Title)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	writeSuccess(w, http.StatusCreated, "", envelope{"analytics": record})
}

// Get handles GET /api/analytics/videos/{videoId}.
func (h *AnalyticsHandler) Get(w http.ResponseWriter, r *http.Request) {
	record, err := h.svc.GetVideoAnalytics(r.Context(), chi.URLParam(r, "videoId"))
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	if record == nil {
		writeError(w, http.StatusNotFound, "Video analytics not found")
		return
	}
	writeSuccess(w, http.StatusOK, "", envelope{"analytics": record})
}

// RecordView handles POST /api/analytics/videos/{videoId}/views.
// Views of untracked videos are accepted and ignored.
func (h *AnalyticsHandler) RecordView(w http.ResponseWriter, r *http.Request) {
	var req dto.RecordViewRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	err := h.svc.RecordView(r.Context(), chi.URLParam(r, "videoId"), req.Duration, req.Completed, req.Source)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	writeSuccess(w, http.StatusAccepted, "View recorded", nil)
}

// RecordEngagement handles POST /api/analytics/videos/{videoId}/engagements.
func (h *AnalyticsHandler) RecordEngagement(w http.ResponseWriter, r *http.Request) {
	var req dto.RecordEngagementRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.svc.RecordEngagement(r.Context(), chi.URLParam(r, "videoId"), req.Type); err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	writeSuccess(w, http.StatusAccepted, "Engagement recorded", nil)
}

// Delete handles DELETE /api/analytics/videos/{videoId}.
func (h *AnalyticsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	deleted, err := h.svc.DeleteVideoAnalytics(r.Context(), chi.URLParam(r, "videoId"))
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	if !deleted {
		writeError(w, http.StatusNotFound, "Video analytics not found")
		return
	}
	writeSuccess(w, http.StatusOK, "Video analytics deleted", nil)
}

// Summary handles GET /api/analytics/summary.
func (h *AnalyticsHandler) Summary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.svc.GetAnalyticsSummary(r.Context())
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	writeSuccess(w, http.StatusOK, "", envelope{"summary": summary})
}

// Export handles GET /api/analytics/export. The body is the export document
// itself so it can be saved as a file.
func (h *AnalyticsHandler) Export(w http.ResponseWriter, r *http.Request) {
	doc, err := h.svc.ExportAnalytics(r.Context())
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	writeExport(w, "analytics-export.json", doc)
}

// writeExport writes a pre-rendered JSON document as a download.
func writeExport(w http.ResponseWriter, filename, doc string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(doc))
}
