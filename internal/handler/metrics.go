package handler

import (
	"fmt"
	"net/http"

	"github.com/avatarstudio/avatarstudio/internal/metrics"
)

// MetricsHandler exposes in-memory metrics.
type MetricsHandler struct {
	snapshotter metrics.Snapshotter
}

// NewMetricsHandler creates a new MetricsHandler.
func NewMetricsHandler(snapshotter metrics.Snapshotter) *MetricsHandler {
	return &MetricsHandler{snapshotter: snapshotter}
}

// Metrics returns metrics in Prometheus exposition format.
func (h *MetricsHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	if h.snapshotter == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	snap := h.snapshotter.Snapshot()

	w.Header().Set("Content-Type", "text/plain; version=0.0.4")

	writeMetric(w, "avatarstudio_video_views_total %d\n", snap.VideoViews)
	writeMetric(w, "avatarstudio_engagements_total{type=\"like\"} %d\n", snap.EngagementLikes)
	writeMetric(w, "avatarstudio_engagements_total{type=\"share\"} %d\n", snap.EngagementShares)
	writeMetric(w, "avatarstudio_engagements_total{type=\"comment\"} %d\n", snap.EngagementComments)

	writeMetric(w, "avatarstudio_leads_created_total %d\n", snap.LeadsCreated)
	writeMetric(w, "avatarstudio_lead_status_changes_total %d\n", snap.LeadStatusChanges)

	writeMetric(w, "avatarstudio_shares_created_total %d\n", snap.SharesCreated)
	writeMetric(w, "avatarstudio_share_views_total %d\n", snap.ShareViews)
	writeMetric(w, "avatarstudio_share_leads_total %d\n", snap.ShareLeads)
	writeMetric(w, "avatarstudio_shares_expired_total %d\n", snap.SharesExpired)

	writeMetric(w, "avatarstudio_store_errors_total %d\n", snap.StoreErrors)
	writeMetric(w, "avatarstudio_store_duration_seconds_count %d\n", snap.StoreDurationCount)
	writeMetric(w, "avatarstudio_store_duration_seconds_sum %.6f\n", float64(snap.StoreDurationTotalNs)/1e9)
}

func writeMetric(w http.ResponseWriter, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}
