package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/avatarstudio/avatarstudio/internal/avatarapi"
	"github.com/avatarstudio/avatarstudio/internal/handler/dto"
	"github.com/avatarstudio/avatarstudio/internal/service"
)

// AvatarHandler handles photo avatar and video generation requests.
type AvatarHandler struct {
	avatars   *service.AvatarService
	analytics *service.AnalyticsService
	logger    *slog.Logger
}

// NewAvatarHandler creates a new AvatarHandler. Generated videos are
// registered with analytics so views can be tracked from the start.
func NewAvatarHandler(avatars *service.AvatarService, analytics *service.AnalyticsService, logger *slog.Logger) *AvatarHandler {
	return &AvatarHandler{
		avatars:   avatars,
		analytics: analytics,
		logger:    logger.With("component", "handler.avatars"),
	}
}

// CreatePhotoAvatar handles POST /api/photo-avatars.
func (h *AvatarHandler) CreatePhotoAvatar(w http.ResponseWriter, r *http.Request) {
	var req service.PhotoAvatarInput
	if !decodeJSON(w, r, &req) {
		return
	}

	avatar, err := h.avatars.CreatePhotoAvatar(r.Context(), req)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	writeSuccess(w, http.StatusCreated, "Photo avatar created", envelope{"avatar": avatar})
}

// ListPhotoAvatars handles GET /api/photo-avatars/user/{userId}.
func (h *AvatarHandler) ListPhotoAvatars(w http.ResponseWriter, r *http.Request) {
	avatars, err := h.avatars.ListPhotoAvatars(r.Context(), chi.URLParam(r, "userId"))
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	writeSuccess(w, http.StatusOK, "", envelope{"avatars": avatars})
}

// GetPhotoAvatar handles GET /api/photo-avatars/{avatarId}.
func (h *AvatarHandler) GetPhotoAvatar(w http.ResponseWriter, r *http.Request) {
	avatar, err := h.avatars.GetPhotoAvatar(r.Context(), chi.URLParam(r, "avatarId"))
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	writeSuccess(w, http.StatusOK, "", envelope{"avatar": avatar})
}

// UpdateStatus handles PUT /api/photo-avatars/{avatarId}/status.
func (h *AvatarHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req dto.UpdateAvatarStatusRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	avatarID := chi.URLParam(r, "avatarId")
	if err := h.avatars.UpdatePhotoAvatarStatus(r.Context(), avatarID, req.Status); err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	writeSuccess(w, http.StatusOK, "Status updated", envelope{
		"avatarId": avatarID,
		"status":   req.Status,
	})
}

// DeletePhotoAvatar handles DELETE /api/photo-avatars/{avatarId}.
func (h *AvatarHandler) DeletePhotoAvatar(w http.ResponseWriter, r *http.Request) {
	if err := h.avatars.DeletePhotoAvatar(r.Context(), chi.URLParam(r, "avatarId")); err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Photo avatar deleted", nil)
}

// GenerateVideo handles POST /api/videos.
func (h *AvatarHandler) GenerateVideo(w http.ResponseWriter, r *http.Request) {
	var req dto.GenerateVideoRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	videoID, err := h.avatars.GenerateVideo(r.Context(), avatarapi.VideoRequest{
		AvatarID: req.AvatarID,
		VoiceID:  req.VoiceID,
		Script:   req.Script,
		Title:    req.Title,
		Width:    req.Width,
		Height:   req.Height,
	})
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	// The job is already submitted; a tracking failure must not fail it.
	if _, err := h.analytics.CreateVideoAnalytics(r.Context(), videoID, req.Title); err != nil {
		h.logger.Warn("video_analytics_create_failed", "video_id", videoID, "error", err)
	}

	writeSuccess(w, http.StatusAccepted, "Video generation started", envelope{"videoId": videoID})
}

// VideoStatus handles GET /api/videos/{videoId}/status.
func (h *AvatarHandler) VideoStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.avatars.VideoStatus(r.Context(), chi.URLParam(r, "videoId"))
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	writeSuccess(w, http.StatusOK, "", envelope{"video": status})
}
