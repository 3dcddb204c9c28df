// Package handler provides HTTP request handlers.
//
// Every response body is an envelope: {"success": bool, "message"?: string,
// ...payload}. Non-2xx responses always carry success=false.
package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/avatarstudio/avatarstudio/internal/avatarapi"
	"github.com/avatarstudio/avatarstudio/internal/handler/dto"
	"github.com/avatarstudio/avatarstudio/internal/service"
)

// Version is reported by the index endpoint.
const Version = "1.0.0"

// envelope is the payload merged into a response body.
type envelope map[string]any

// Handler serves the routes that have no backing service.
type Handler struct{}

// New creates a new Handler instance.
func New() *Handler {
	return &Handler{}
}

// Index identifies the API.
// GET /
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, http.StatusOK, "", envelope{
		"name":    "avatarstudio",
		"version": Version,
	})
}

// NotFound handles 404 responses.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, "Resource not found")
}

// MethodNotAllowed handles 405 responses.
func (h *Handler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeSuccess writes {success:true, message?, ...payload}.
func writeSuccess(w http.ResponseWriter, status int, message string, payload envelope) {
	body := make(envelope, len(payload)+2)
	for k, v := range payload {
		body[k] = v
	}
	body["success"] = true
	if message != "" {
		body["message"] = message
	}
	writeJSON(w, status, body)
}

// writeError writes {success:false, message}.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, envelope{"success": false, "message": message})
}

// decodeJSON decodes the request body into dst and runs its Validate
// method when it has one. Failures are written as 400 and reported false.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var maxBytes *http.MaxBytesError
		switch {
		case errors.As(err, &maxBytes):
			writeError(w, http.StatusRequestEntityTooLarge, "Request body too large")
		case errors.Is(err, io.EOF):
			writeError(w, http.StatusBadRequest, "Request body is required")
		default:
			writeError(w, http.StatusBadRequest, "Invalid request body")
		}
		return false
	}
	if v, ok := dst.(interface{ Validate() error }); ok {
		if err := v.Validate(); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return false
		}
	}
	return true
}

// handleServiceError maps service errors to HTTP responses.
func handleServiceError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var validation *dto.ValidationError
	switch {
	case errors.As(err, &validation):
		writeError(w, http.StatusBadRequest, validation.Message)
	case errors.Is(err, service.ErrMissingFields):
		writeError(w, http.StatusBadRequest, "Missing required fields")
	case errors.Is(err, service.ErrEmailTaken):
		writeError(w, http.StatusBadRequest, "An account with this email already exists")
	case errors.Is(err, service.ErrEmailNotFound):
		writeError(w, http.StatusUnauthorized, "No account found with this email")
	case errors.Is(err, service.ErrWrongPassword):
		writeError(w, http.StatusUnauthorized, "Incorrect password")
	case errors.Is(err, service.ErrUserNotFound):
		writeError(w, http.StatusNotFound, "User not found")
	case errors.Is(err, service.ErrNoProfileFields):
		writeError(w, http.StatusBadRequest, "No profile fields to update")
	case errors.Is(err, service.ErrPhotoAvatarNotFound):
		writeError(w, http.StatusNotFound, "Photo avatar not found")
	case errors.Is(err, service.ErrPhotoAvatarExists):
		writeError(w, http.StatusConflict, "Photo avatar already exists")
	case errors.Is(err, service.ErrInvalidAvatarStatus):
		writeError(w, http.StatusBadRequest, "Invalid avatar status")
	case errors.Is(err, service.ErrGeneratorDisabled), errors.Is(err, avatarapi.ErrNotConfigured):
		writeError(w, http.StatusServiceUnavailable, "Avatar generation is not configured")
	case errors.Is(err, avatarapi.ErrUnavailable):
		logger.Warn("avatar_api_unavailable", "error", err)
		writeError(w, http.StatusServiceUnavailable, "Avatar service is unreachable, try again")
	case errors.Is(err, service.ErrStore):
		logger.Error("store_unavailable", "error", err)
		writeError(w, http.StatusServiceUnavailable, "Storage is unavailable, try again")
	default:
		if apiErr, ok := avatarapi.AsAPIError(err); ok {
			logger.Warn("avatar_api_error", "status_code", apiErr.StatusCode, "error", err)
			writeError(w, http.StatusBadGateway, apiErr.Error())
			return
		}
		logger.Error("internal_error", "error", err)
		writeError(w, http.StatusInternalServerError, "An internal error occurred")
	}
}
