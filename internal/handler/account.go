package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/avatarstudio/avatarstudio/internal/handler/dto"
	"github.com/avatarstudio/avatarstudio/internal/service"
)

// AccountHandler handles registration, login and profile requests.
type AccountHandler struct {
	svc    *service.AccountService
	logger *slog.Logger
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(svc *service.AccountService, logger *slog.Logger) *AccountHandler {
	return &AccountHandler{
		svc:    svc,
		logger: logger.With("component", "handler.accounts"),
	}
}

// Register handles POST /api/auth/register.
func (h *AccountHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req service.RegisterInput
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.svc.Register(r.Context(), req)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	writeSuccess(w, http.StatusCreated, "Registration successful", envelope{
		"user": user.Summary(),
	})
}

// Login handles POST /api/auth/login.
func (h *AccountHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	writeSuccess(w, http.StatusOK, "Login successful", envelope{"user": user})
}

// GetUser handles GET /api/user/{id}.
func (h *AccountHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.svc.GetUser(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	writeSuccess(w, http.StatusOK, "", envelope{"user": user})
}

// UpdateProfile handles PUT /api/user/{id}/profile. The body may hold any
// subset of role, logo, photo, instagram, tiktok, facebook, linkedin, website.
func (h *AccountHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var fields map[string]string
	if !decodeJSON(w, r, &fields) {
		return
	}

	user, err := h.svc.UpdateProfile(r.Context(), chi.URLParam(r, "id"), fields)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	writeSuccess(w, http.StatusOK, "Profile updated", envelope{"user": user})
}
