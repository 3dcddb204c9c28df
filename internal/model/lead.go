package model

import (
	"strings"
	"time"
)

// LeadSource identifies how a lead was captured. Immutable after creation.
type LeadSource string

const (
	LeadSourceVideo    LeadSource = "video"
	LeadSourceForm     LeadSource = "form"
	LeadSourceCalendar LeadSource = "calendar"
	LeadSourceDirect   LeadSource = "direct"
)

// IsValid checks if the lead source is known.
func (s LeadSource) IsValid() bool {
	switch s {
	case LeadSourceVideo, LeadSourceForm, LeadSourceCalendar, LeadSourceDirect:
		return true
	}
	return false
}

// LeadStatus is the pipeline stage of a lead.
type LeadStatus string

const (
	LeadStatusNew       LeadStatus = "new"
	LeadStatusContacted LeadStatus = "contacted"
	LeadStatusQualified LeadStatus = "qualified"
	LeadStatusConverted LeadStatus = "converted"
	LeadStatusLost      LeadStatus = "lost"
)

// IsValid checks if the lead status is known.
func (s LeadStatus) IsValid() bool {
	switch s {
	case LeadStatusNew, LeadStatusContacted, LeadStatusQualified, LeadStatusConverted, LeadStatusLost:
		return true
	}
	return false
}

// LeadPriority ranks follow-up urgency.
type LeadPriority string

const (
	LeadPriorityLow    LeadPriority = "low"
	LeadPriorityMedium LeadPriority = "medium"
	LeadPriorityHigh   LeadPriority = "high"
)

// IsValid checks if the priority is known.
func (p LeadPriority) IsValid() bool {
	return p == LeadPriorityLow || p == LeadPriorityMedium || p == LeadPriorityHigh
}

// NoteType classifies a lead note.
type NoteType string

const (
	NoteTypeNote    NoteType = "note"
	NoteTypeCall    NoteType = "call"
	NoteTypeEmail   NoteType = "email"
	NoteTypeMeeting NoteType = "meeting"
)

// IsValid checks if the note type is known.
func (t NoteType) IsValid() bool {
	return t == NoteTypeNote || t.IsContact()
}

// IsContact reports whether the note records direct contact with the lead.
func (t NoteType) IsContact() bool {
	return t == NoteTypeCall || t == NoteTypeEmail || t == NoteTypeMeeting
}

// LeadNote is an append-only entry on a lead's timeline.
type LeadNote struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
	Type      NoteType  `json:"type"`
}

// Lead is a captured contact tracked through the sales pipeline.
type Lead struct {
	ID              string            `json:"id"`
	Name            string            `json:"name"`
	Email           string            `json:"email"`
	Phone           string            `json:"phone,omitempty"`
	Company         string            `json:"company,omitempty"`
	Message         string            `json:"message,omitempty"`
	Source          LeadSource        `json:"source"`
	Status          LeadStatus        `json:"status"`
	Priority        LeadPriority      `json:"priority"`
	Tags            []string          `json:"tags"`
	CreatedAt       time.Time         `json:"createdAt"`
	LastContactedAt *time.Time        `json:"lastContactedAt,omitempty"`
	Notes           []LeadNote        `json:"notes"`
	VideoID         string            `json:"videoId,omitempty"`
	CustomFields    map[string]string `json:"customFields"`
}

// HasAnyTag reports whether the lead carries at least one of tags.
func (l *Lead) HasAnyTag(tags []string) bool {
	for _, want := range tags {
		want = strings.ToLower(want)
		for _, have := range l.Tags {
			if have == want {
				return true
			}
		}
	}
	return false
}

// Matches reports whether term is a case-insensitive substring of the
// lead's name, email, company or message.
func (l *Lead) Matches(term string) bool {
	term = strings.ToLower(term)
	for _, field := range []string{l.Name, l.Email, l.Company, l.Message} {
		if strings.Contains(strings.ToLower(field), term) {
			return true
		}
	}
	return false
}

// LeadInput is the form submission used to create a lead.
type LeadInput struct {
	Name         string            `json:"name"`
	Email        string            `json:"email"`
	Phone        string            `json:"phone,omitempty"`
	Company      string            `json:"company,omitempty"`
	Message      string            `json:"message,omitempty"`
	Source       LeadSource        `json:"source"`
	VideoID      string            `json:"videoId,omitempty"`
	Tags         []string          `json:"tags,omitempty"`
	CustomFields map[string]string `json:"customFields"`
}

// LeadUpdate is a shallow partial update. Nil fields are left untouched;
// slices and maps replace the stored value wholesale.
type LeadUpdate struct {
	Name            *string            `json:"name,omitempty"`
	Email           *string            `json:"email,omitempty"`
	Phone           *string            `json:"phone,omitempty"`
	Company         *string            `json:"company,omitempty"`
	Message         *string            `json:"message,omitempty"`
	Status          *LeadStatus        `json:"status,omitempty"`
	Priority        *LeadPriority      `json:"priority,omitempty"`
	Tags            *[]string          `json:"tags,omitempty"`
	Notes           *[]LeadNote        `json:"notes,omitempty"`
	VideoID         *string            `json:"videoId,omitempty"`
	CustomFields    *map[string]string `json:"customFields"`
	LastContactedAt *time.Time         `json:"lastContactedAt,omitempty"`
}

// Apply merges the update into lead.
func (u LeadUpdate) Apply(lead *Lead) {
	if u.Name != nil {
		lead.Name = *u.Name
	}
	if u.Email != nil {
		lead.Email = *u.Email
	}
	if u.Phone != nil {
		lead.Phone = *u.Phone
	}
	if u.Company != nil {
		lead.Company = *u.Company
	}
	if u.Message != nil {
		lead.Message = *u.Message
	}
	if u.Status != nil {
		lead.Status = *u.Status
	}
	if u.Priority != nil {
		lead.Priority = *u.Priority
	}
	if u.Tags != nil {
		lead.Tags = *u.Tags
	}
	if u.Notes != nil {
		lead.Notes = *u.Notes
	}
	if u.VideoID != nil {
		lead.VideoID = *u.VideoID
	}
	if u.CustomFields != nil {
		lead.CustomFields = *u.CustomFields
	}
	if u.LastContactedAt != nil {
		t := *u.LastContactedAt
		lead.LastContactedAt = &t
	}
}

// LeadFilter composes predicates with AND. Zero values match everything.
type LeadFilter struct {
	Status   LeadStatus
	Priority LeadPriority
	Source   LeadSource
	Tags     []string
	Search   string
}

// Match reports whether the lead satisfies every set predicate.
func (f LeadFilter) Match(lead *Lead) bool {
	if f.Status != "" && lead.Status != f.Status {
		return false
	}
	if f.Priority != "" && lead.Priority != f.Priority {
		return false
	}
	if f.Source != "" && lead.Source != f.Source {
		return false
	}
	if len(f.Tags) > 0 && !lead.HasAnyTag(f.Tags) {
		return false
	}
	if f.Search != "" && !lead.Matches(f.Search) {
		return false
	}
	return true
}

// LeadStats aggregates the lead collection.
type LeadStats struct {
	TotalLeads     int                `json:"totalLeads"`
	NewLeads       int                `json:"newLeads"`
	QualifiedLeads int                `json:"qualifiedLeads"`
	ConvertedLeads int                `json:"convertedLeads"`
	ConversionRate int                `json:"conversionRate"`
	LeadsBySource  map[LeadSource]int `json:"leadsBySource"`
	LeadsByStatus  map[LeadStatus]int `json:"leadsByStatus"`
	RecentLeads    []Lead             `json:"recentLeads"`
}

// NormalizeTags lower-cases, trims and deduplicates tags, keeping first
// occurrence order. Empty tags are dropped.
func NormalizeTags(existing []string, incoming ...string) []string {
	out := make([]string, 0, len(existing)+len(incoming))
	seen := make(map[string]struct{}, cap(out))
	for _, group := range [][]string{existing, incoming} {
		for _, tag := range group {
			tag = strings.ToLower(strings.TrimSpace(tag))
			if tag == "" {
				continue
			}
			if _, ok := seen[tag]; ok {
				continue
			}
			seen[tag] = struct{}{}
			out = append(out, tag)
		}
	}
	return out
}
