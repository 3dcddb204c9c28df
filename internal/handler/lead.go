package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/avatarstudio/avatarstudio/internal/handler/dto"
	"github.com/avatarstudio/avatarstudio/internal/model"
	"github.com/avatarstudio/avatarstudio/internal/service"
)

// LeadHandler handles lead pipeline requests.
type LeadHandler struct {
	svc    *service.LeadService
	logger *slog.Logger
}

// NewLeadHandler creates a new LeadHandler.
func NewLeadHandler(svc *service.LeadService, logger *slog.Logger) *LeadHandler {
	return &LeadHandler{
		svc:    svc,
		logger: logger.With("component", "handler.leads"),
	}
}

// List handles GET /api/leads. Query parameters status, priority, source,
// tags (comma separated) and search filter the result, newest first.
func (h *LeadHandler) List(w http.ResponseWriter, r *http.Request) {
	filter, err := dto.LeadFilterFromQuery(r.URL.Query())
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	leads, err := h.svc.FilterLeads(r.Context(), filter)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	writeSuccess(w, http.StatusOK, "", envelope{"leads": leads, "count": len(leads)})
}

// Create handles POST /api/leads.
func (h *LeadHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateLeadRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	lead, err := h.svc.CreateLead(r.Context(), req.Input())
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	writeSuccess(w, http.StatusCreated, "Lead created", envelope{"lead": lead})
}

// Get handles GET /api/leads/{id}.
func (h *LeadHandler) Get(w http.ResponseWriter, r *http.Request) {
	lead, err := h.svc.GetLeadByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	if lead == nil {
		writeLeadNotFound(w)
		return
	}
	writeSuccess(w, http.StatusOK, "", envelope{"lead": lead})
}

// Update handles PUT /api/leads/{id}.
func (h *LeadHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req dto.UpdateLeadRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	lead, err := h.svc.UpdateLead(r.Context(), chi.URLParam(r, "id"), model.LeadUpdate(req))
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	if lead == nil {
		writeLeadNotFound(w)
		return
	}
	writeSuccess(w, http.StatusOK, "Lead updated", envelope{"lead": lead})
}

// Delete handles DELETE /api/leads/{id}.
func (h *LeadHandler) Delete(w http.ResponseWriter, r *http.Request) {
	h.respondBool(w, "Lead deleted", func() (bool, error) {
		return h.svc.DeleteLead(r.Context(), chi.URLParam(r, "id"))
	})
}

// AddNote handles POST /api/leads/{id}/notes.
func (h *LeadHandler) AddNote(w http.ResponseWriter, r *http.Request) {
	var req dto.AddNoteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	h.respondBool(w, "Note added", func() (bool, error) {
		return h.svc.AddNoteToLead(r.Context(), chi.URLParam(r, "id"), req.Text, req.Type)
	})
}

// ChangeStatus handles PUT /api/leads/{id}/status.
func (h *LeadHandler) ChangeStatus(w http.ResponseWriter, r *http.Request) {
	var req dto.ChangeStatusRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	h.respondBool(w, "Status updated", func() (bool, error) {
		return h.svc.ChangeLeadStatus(r.Context(), chi.URLParam(r, "id"), req.Status)
	})
}

// AddTags handles POST /api/leads/{id}/tags.
func (h *LeadHandler) AddTags(w http.ResponseWriter, r *http.Request) {
	var req dto.AddTagsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	h.respondBool(w, "Tags added", func() (bool, error) {
		return h.svc.AddTagsToLead(r.Context(), chi.URLParam(r, "id"), req.Tags)
	})
}

// BulkStatus handles PUT /api/leads/bulk/status. Unknown ids are skipped;
// the response reports how many leads changed.
func (h *LeadHandler) BulkStatus(w http.ResponseWriter, r *http.Request) {
	var req dto.BulkStatusRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	updated, err := h.svc.BulkUpdateLeadStatus(r.Context(), req.IDs, req.Status)
	if err != nil && updated == 0 {
		handleServiceError(w, h.logger, err)
		return
	}
	if err != nil {
		h.logger.Warn("bulk_status_partial", "updated", updated, "requested", len(req.IDs), "error", err)
	}
	writeSuccess(w, http.StatusOK, "", envelope{"updated": updated, "requested": len(req.IDs)})
}

// Stats handles GET /api/leads/stats.
func (h *LeadHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.GetLeadStats(r.Context())
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	writeSuccess(w, http.StatusOK, "", envelope{"stats": stats})
}

// Export handles GET /api/leads/export.
func (h *LeadHandler) Export(w http.ResponseWriter, r *http.Request) {
	doc, err := h.svc.ExportLeads(r.Context())
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	writeExport(w, "leads-export.json", doc)
}

// respondBool maps the (found, error) result of a lead mutation.
func (h *LeadHandler) respondBool(w http.ResponseWriter, message string, fn func() (bool, error)) {
	ok, err := fn()
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	if !ok {
		writeLeadNotFound(w)
		return
	}
	writeSuccess(w, http.StatusOK, message, nil)
}

func writeLeadNotFound(w http.ResponseWriter) {
	writeError(w, http.StatusNotFound, "Lead not found")
}
