package dto

import (
	"net/url"
	"strings"

	"github.com/avatarstudio/avatarstudio/internal/model"
)

// CreateLeadRequest is the lead capture form.
type CreateLeadRequest model.LeadInput

// Validate checks the required contact fields and the source.
func (r *CreateLeadRequest) Validate() error {
	if err := required("name", r.Name, "email", r.Email); err != nil {
		return err
	}
	if !strings.Contains(r.Email, "@") {
		return invalid("email is not valid")
	}
	if !r.Source.IsValid() {
		return invalid("source must be one of video, form, calendar, direct")
	}
	return nil
}

// Input converts the request to the service input.
func (r *CreateLeadRequest) Input() model.LeadInput {
	return model.LeadInput(*r)
}

// UpdateLeadRequest is a shallow partial update of a lead.
type UpdateLeadRequest model.LeadUpdate

// Validate rejects unknown enum values.
func (r *UpdateLeadRequest) Validate() error {
	if r.Status != nil && !r.Status.IsValid() {
		return invalid("unknown status %q", *r.Status)
	}
	if r.Priority != nil && !r.Priority.IsValid() {
		return invalid("unknown priority %q", *r.Priority)
	}
	if r.Notes != nil {
		for _, note := range *r.Notes {
			if !note.Type.IsValid() {
				return invalid("unknown note type %q", note.Type)
			}
		}
	}
	return nil
}

// AddNoteRequest appends a note to a lead.
type AddNoteRequest struct {
	Text string         `json:"text"`
	Type model.NoteType `json:"type"`
}

// Validate requires text and defaults the type to note.
func (r *AddNoteRequest) Validate() error {
	if err := required("text", r.Text); err != nil {
		return err
	}
	if r.Type == "" {
		r.Type = model.NoteTypeNote
	}
	if !r.Type.IsValid() {
		return invalid("type must be one of note, call, email, meeting")
	}
	return nil
}

// ChangeStatusRequest moves a lead through the pipeline.
type ChangeStatusRequest struct {
	Status model.LeadStatus `json:"status"`
}

// Validate rejects unknown statuses.
func (r *ChangeStatusRequest) Validate() error {
	if !r.Status.IsValid() {
		return invalid("unknown status %q", r.Status)
	}
	return nil
}

// AddTagsRequest adds tags to a lead.
type AddTagsRequest struct {
	Tags []string `json:"tags"`
}

// Validate requires at least one tag.
func (r *AddTagsRequest) Validate() error {
	if len(r.Tags) == 0 {
		return invalid("tags must not be empty")
	}
	return nil
}

// BulkStatusRequest sets one status on many leads.
type BulkStatusRequest struct {
	IDs    []string         `json:"ids"`
	Status model.LeadStatus `json:"status"`
}

// Validate requires ids and a known status.
func (r *BulkStatusRequest) Validate() error {
	if len(r.IDs) == 0 {
		return invalid("ids must not be empty")
	}
	if !r.Status.IsValid() {
		return invalid("unknown status %q", r.Status)
	}
	return nil
}

// LeadFilterFromQuery builds a filter from ?status=&priority=&source=&tags=a,b&search=.
func LeadFilterFromQuery(q url.Values) (model.LeadFilter, error) {
	filter := model.LeadFilter{
		Status:   model.LeadStatus(q.Get("status")),
		Priority: model.LeadPriority(q.Get("priority")),
		Source:   model.LeadSource(q.Get("source")),
		Search:   strings.TrimSpace(q.Get("search")),
	}
	if filter.Status != "" && !filter.Status.IsValid() {
		return filter, invalid("unknown status %q", filter.Status)
	}
	if filter.Priority != "" && !filter.Priority.IsValid() {
		return filter, invalid("unknown priority %q", filter.Priority)
	}
	if filter.Source != "" && !filter.Source.IsValid() {
		return filter, invalid("unknown source %q", filter.Source)
	}
	for _, tag := range strings.Split(q.Get("tags"), ",") {
		if tag = strings.TrimSpace(tag); tag != "" {
			filter.Tags = append(filter.Tags, tag)
		}
	}
	return filter, nil
}
