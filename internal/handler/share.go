package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/avatarstudio/avatarstudio/internal/handler/dto"
	"github.com/avatarstudio/avatarstudio/internal/middleware"
	"github.com/avatarstudio/avatarstudio/internal/model"
	"github.com/avatarstudio/avatarstudio/internal/service"
)

// ShareHandler handles share link management and the public watch page.
type ShareHandler struct {
	shares    *service.SharingService
	analytics *service.AnalyticsService
	leads     *service.LeadService
	logger    *slog.Logger
}

// NewShareHandler creates a new ShareHandler. The analytics and lead
// services receive the views and leads captured through share links.
func NewShareHandler(shares *service.SharingService, analytics *service.AnalyticsService, leads *service.LeadService, logger *slog.Logger) *ShareHandler {
	return &ShareHandler{
		shares:    shares,
		analytics: analytics,
		leads:     leads,
		logger:    logger.With("component", "handler.shares"),
	}
}

// Create handles POST /api/shares.
func (h *ShareHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateShareRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	share, err := h.shares.ShareVideo(r.Context(), req.Input())
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	writeSuccess(w, http.StatusCreated, "Share link created", envelope{
		"share":        dto.ToShareResponse(share),
		"shareMessage": service.GenerateShareMessage(*share),
	})
}

// List handles GET /api/shares, optionally narrowed by ?videoId=.
func (h *ShareHandler) List(w http.ResponseWriter, r *http.Request) {
	var (
		shares []model.SharedVideo
		err    error
	)
	if videoID := r.URL.Query().Get("videoId"); videoID != "" {
		shares, err = h.shares.GetVideoShares(r.Context(), videoID)
	} else {
		shares, err = h.shares.GetAllSharedVideos(r.Context())
	}
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	writeSuccess(w, http.StatusOK, "", envelope{"shares": dto.ToShareResponses(shares)})
}

// Get handles GET /api/shares/{shareId}. Expired shares read as missing.
func (h *ShareHandler) Get(w http.ResponseWriter, r *http.Request) {
	share, ok := h.activeShare(w, r)
	if !ok {
		return
	}
	writeSuccess(w, http.StatusOK, "", envelope{"share": dto.ToShareResponse(share)})
}

// Update handles PUT /api/shares/{shareId}.
func (h *ShareHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req dto.UpdateShareRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	share, err := h.shares.UpdateSharedVideo(r.Context(), chi.URLParam(r, "shareId"), req.Update())
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	if share == nil {
		writeShareNotFound(w)
		return
	}
	writeSuccess(w, http.StatusOK, "Share updated", envelope{"share": dto.ToShareResponse(share)})
}

// Delete handles DELETE /api/shares/{shareId}.
func (h *ShareHandler) Delete(w http.ResponseWriter, r *http.Request) {
	deleted, err := h.shares.DeleteSharedVideo(r.Context(), chi.URLParam(r, "shareId"))
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	if !deleted {
		writeShareNotFound(w)
		return
	}
	writeSuccess(w, http.StatusOK, "Share deleted", nil)
}

// Analytics handles GET /api/shares/analytics, optionally narrowed by ?videoId=.
func (h *ShareHandler) Analytics(w http.ResponseWriter, r *http.Request) {
	stats, err := h.shares.GetShareAnalytics(r.Context(), r.URL.Query().Get("videoId"))
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	writeSuccess(w, http.StatusOK, "", envelope{"analytics": dto.ToShareAnalyticsResponse(stats)})
}

// Cleanup handles POST /api/shares/cleanup.
func (h *ShareHandler) Cleanup(w http.ResponseWriter, r *http.Request) {
	removed, err := h.shares.CleanupExpiredShares(r.Context())
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	writeSuccess(w, http.StatusOK, "", envelope{"removed": removed})
}

// Message handles GET /api/shares/{shareId}/message.
func (h *ShareHandler) Message(w http.ResponseWriter, r *http.Request) {
	share, ok := h.activeShare(w, r)
	if !ok {
		return
	}
	writeSuccess(w, http.StatusOK, "", envelope{"shareMessage": service.GenerateShareMessage(*share)})
}

// Email handles POST /api/shares/{shareId}/email.
func (h *ShareHandler) Email(w http.ResponseWriter, r *http.Request) {
	var req dto.EmailTemplateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	share, ok := h.activeShare(w, r)
	if !ok {
		return
	}
	writeSuccess(w, http.StatusOK, "", envelope{"email": service.GenerateEmailTemplate(*share, req.RecipientName)})
}

// Watch handles GET /watch/{shareId}. The password comes from the
// X-Share-Password header or the password query parameter. A successful
// request counts as a view of the share and a share-sourced video view.
func (h *ShareHandler) Watch(w http.ResponseWriter, r *http.Request) {
	share, ok := h.authorizedShare(w, r)
	if !ok {
		return
	}

	if _, err := h.shares.RecordView(r.Context(), share.ID); err != nil {
		h.logger.Warn("share_view_not_recorded", "share_id", share.ID, "error", err)
	} else {
		share.ViewCount++
	}
	if err := h.analytics.RecordView(r.Context(), share.VideoID, 0, false, model.ViewSourceShare); err != nil {
		h.logger.Warn("video_view_not_recorded", "video_id", share.VideoID, "error", err)
	}

	writeSuccess(w, http.StatusOK, "", envelope{"share": dto.ToWatchResponse(share)})
}

// CaptureLead handles POST /watch/{shareId}/leads: a viewer leaves their
// contact details. The lead is attributed to the shared video.
func (h *ShareHandler) CaptureLead(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateLeadRequest
	if req.Source == "" {
		req.Source = model.LeadSourceVideo
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	share, ok := h.authorizedShare(w, r)
	if !ok {
		return
	}

	input := req.Input()
	input.VideoID = share.VideoID
	lead, err := h.leads.CreateLead(r.Context(), input)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	if _, err := h.shares.RecordLead(r.Context(), share.ID); err != nil {
		h.logger.Warn("share_lead_not_recorded", "share_id", share.ID, "error", err)
	}

	writeSuccess(w, http.StatusCreated, "Thanks! We'll be in touch.", envelope{"leadId": lead.ID})
}

// activeShare loads the non-expired share named in the URL or writes 404.
func (h *ShareHandler) activeShare(w http.ResponseWriter, r *http.Request) (*model.SharedVideo, bool) {
	share, err := h.shares.GetSharedVideo(r.Context(), chi.URLParam(r, "shareId"))
	if err != nil {
		handleServiceError(w, h.logger, err)
		return nil, false
	}
	if share == nil {
		writeShareNotFound(w)
		return nil, false
	}
	return share, true
}

// authorizedShare is activeShare plus the password check.
func (h *ShareHandler) authorizedShare(w http.ResponseWriter, r *http.Request) (*model.SharedVideo, bool) {
	share, ok := h.activeShare(w, r)
	if !ok {
		return nil, false
	}

	password := r.Header.Get(middleware.SharePasswordHeader)
	if password == "" {
		password = r.URL.Query().Get("password")
	}

	allowed, err := h.shares.ValidateAccess(r.Context(), share.ID, password)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return nil, false
	}
	if !allowed {
		h.logger.Info("share_access_denied", "share_id", share.ID, "password_supplied", password != "")
		if password == "" {
			writeError(w, http.StatusUnauthorized, "This video is password protected")
		} else {
			writeError(w, http.StatusUnauthorized, "Incorrect password")
		}
		return nil, false
	}
	return share, true
}

func writeShareNotFound(w http.ResponseWriter) {
	writeError(w, http.StatusNotFound, "Share link not found or expired")
}
