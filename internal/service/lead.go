package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strconv"
	"time"

	"github.com/avatarstudio/avatarstudio/internal/metrics"
	"github.com/avatarstudio/avatarstudio/internal/model"
	"github.com/avatarstudio/avatarstudio/internal/store"
)

const recentLeadsLimit = 5

// LeadService manages captured leads, their notes and pipeline status.
type LeadService struct {
	leads   *collection[model.Lead]
	store   store.Store
	logger  *slog.Logger
	metrics metrics.Recorder
	now     func() time.Time
}

// NewLeadService creates a new LeadService.
func NewLeadService(st store.Store, logger *slog.Logger, recorder metrics.Recorder) *LeadService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &LeadService{
		leads:   newCollection[model.Lead](store.KeyLeads, st, recorder),
		store:   st,
		logger:  logger.With("component", "leads"),
		metrics: recorder,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// GetAllLeads returns every lead in insertion order.
func (s *LeadService) GetAllLeads(ctx context.Context) ([]model.Lead, error) {
	leads, err := s.leads.read(ctx)
	if err != nil {
		s.logger.Error("leads_read_failed", "error", err)
		return []model.Lead{}, err
	}
	return leads, nil
}

// GetLeadByID returns the lead with id, or nil.
func (s *LeadService) GetLeadByID(ctx context.Context, id string) (*model.Lead, error) {
	leads, err := s.GetAllLeads(ctx)
	if err != nil {
		return nil, err
	}
	if i := indexLead(leads, id); i >= 0 {
		return &leads[i], nil
	}
	return nil, nil
}

// CreateLead stores a new lead with status new and priority medium. A
// non-empty message becomes the first note.
func (s *LeadService) CreateLead(ctx context.Context, input model.LeadInput) (*model.Lead, error) {
	now := s.now()
	customFields := maps.Clone(input.CustomFields)
	if customFields == nil {
		customFields = map[string]string{}
	}
	lead := model.Lead{
		Name:         input.Name,
		Email:        input.Email,
		Phone:        input.Phone,
		Company:      input.Company,
		Message:      input.Message,
		Source:       input.Source,
		Status:       model.LeadStatusNew,
		Priority:     model.LeadPriorityMedium,
		Tags:         model.NormalizeTags(nil, input.Tags...),
		CreatedAt:    now,
		Notes:        []model.LeadNote{},
		VideoID:      input.VideoID,
		CustomFields: customFields,
	}
	if input.Message != "" {
		lead.Notes = append(lead.Notes, model.LeadNote{
			ID:        newID(),
			Text:      input.Message,
			CreatedAt: now,
			Type:      model.NoteTypeNote,
		})
	}

	_, _, err := s.leads.update(ctx, func(leads []model.Lead) ([]model.Lead, bool, error) {
		counter, err := s.nextCounter(ctx)
		if err != nil {
			return nil, false, err
		}
		lead.ID = fmt.Sprintf("lead_%d_%d", counter, now.UnixMilli())
		return append(leads, lead), true, nil
	})
	if err != nil {
		s.logger.Error("lead_create_failed", "email", input.Email, "error", err)
		return nil, err
	}

	s.metrics.IncLeadCreated()
	s.logger.Info("lead_created", "lead_id", lead.ID, "source", lead.Source)
	return &lead, nil
}

// nextCounter increments the persisted lead counter. Callers hold the
// leads lock.
func (s *LeadService) nextCounter(ctx context.Context) (int64, error) {
	raw, found, err := s.store.Get(ctx, store.KeyLeadCounter)
	if err != nil {
		s.metrics.IncStoreError(store.KeyLeadCounter)
		return 0, fmt.Errorf("%w: read %s: %v", ErrStore, store.KeyLeadCounter, err)
	}

	var counter int64
	if found && raw != "" {
		counter, err = strconv.ParseInt(raw, 10, 64)
		if err != nil {
			s.metrics.IncStoreError(store.KeyLeadCounter)
			return 0, fmt.Errorf("%w: decode %s: %v", ErrStore, store.KeyLeadCounter, err)
		}
	}
	counter++

	if err := s.store.Set(ctx, store.KeyLeadCounter, strconv.FormatInt(counter, 10)); err != nil {
		s.metrics.IncStoreError(store.KeyLeadCounter)
		return 0, fmt.Errorf("%w: write %s: %v", ErrStore, store.KeyLeadCounter, err)
	}
	return counter, nil
}

// UpdateLead merges update into the lead with id and returns the result,
// or nil when the lead does not exist.
func (s *LeadService) UpdateLead(ctx context.Context, id string, update model.LeadUpdate) (*model.Lead, error) {
	var updated *model.Lead
	err := s.mutate(ctx, id, func(lead *model.Lead) {
		update.Apply(lead)
		if update.Tags != nil {
			lead.Tags = model.NormalizeTags(lead.Tags)
		}
		updated = lead
	})
	if err != nil || updated == nil {
		return nil, err
	}
	result := *updated
	return &result, nil
}

// AddNoteToLead appends a note. Call, email and meeting notes also stamp
// lastContactedAt.
func (s *LeadService) AddNoteToLead(ctx context.Context, id, text string, noteType model.NoteType) (bool, error) {
	if noteType == "" {
		noteType = model.NoteTypeNote
	}
	found := false
	err := s.mutate(ctx, id, func(lead *model.Lead) {
		now := s.now()
		lead.Notes = append(lead.Notes, model.LeadNote{
			ID:        newID(),
			Text:      text,
			CreatedAt: now,
			Type:      noteType,
		})
		if noteType.IsContact() {
			lead.LastContactedAt = &now
		}
		found = true
	})
	return found, err
}

// ChangeLeadStatus moves the lead to status. Moving to contacted stamps
// lastContactedAt.
func (s *LeadService) ChangeLeadStatus(ctx context.Context, id string, status model.LeadStatus) (bool, error) {
	found := false
	err := s.mutate(ctx, id, func(lead *model.Lead) {
		lead.Status = status
		if status == model.LeadStatusContacted {
			now := s.now()
			lead.LastContactedAt = &now
		}
		found = true
	})
	if found && err == nil {
		s.metrics.IncLeadStatusChanged(string(status))
	}
	return found, err
}

// AddTagsToLead unions tags into the lead's tag set, case-insensitively.
func (s *LeadService) AddTagsToLead(ctx context.Context, id string, tags []string) (bool, error) {
	found := false
	err := s.mutate(ctx, id, func(lead *model.Lead) {
		lead.Tags = model.NormalizeTags(lead.Tags, tags...)
		found = true
	})
	return found, err
}

// FilterLeads returns the leads matching every set predicate in filter,
// newest first.
func (s *LeadService) FilterLeads(ctx context.Context, filter model.LeadFilter) ([]model.Lead, error) {
	leads, err := s.GetAllLeads(ctx)
	if err != nil {
		return leads, err
	}
	out := make([]model.Lead, 0, len(leads))
	for i := range leads {
		if filter.Match(&leads[i]) {
			out = append(out, leads[i])
		}
	}
	sortNewestFirst(out)
	return out, nil
}

// GetLeadStats aggregates counts and the five most recent leads.
func (s *LeadService) GetLeadStats(ctx context.Context) (*model.LeadStats, error) {
	leads, err := s.GetAllLeads(ctx)
	stats := leadStats(leads)
	return &stats, err
}

// DeleteLead removes the lead with id and reports whether it existed.
func (s *LeadService) DeleteLead(ctx context.Context, id string) (bool, error) {
	_, changed, err := s.leads.update(ctx, func(leads []model.Lead) ([]model.Lead, bool, error) {
		i := indexLead(leads, id)
		if i < 0 {
			return leads, false, nil
		}
		return slices.Delete(leads, i, i+1), true, nil
	})
	if err != nil {
		s.logger.Error("lead_delete_failed", "lead_id", id, "error", err)
		return false, err
	}
	return changed, nil
}

type leadsExport struct {
	Stats      model.LeadStats `json:"stats"`
	Leads      []model.Lead    `json:"leads"`
	ExportedAt time.Time       `json:"exportedAt"`
}

// ExportLeads returns stats and every lead as indented JSON.
func (s *LeadService) ExportLeads(ctx context.Context) (string, error) {
	leads, err := s.GetAllLeads(ctx)
	if err != nil {
		return "", err
	}
	data, err := json.MarshalIndent(leadsExport{
		Stats:      leadStats(leads),
		Leads:      leads,
		ExportedAt: s.now(),
	}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode leads export: %w", err)
	}
	return string(data), nil
}

// BulkUpdateLeadStatus changes the status of each lead independently and
// returns how many were updated. Unknown ids are skipped; store failures
// are joined into the returned error without aborting the batch.
func (s *LeadService) BulkUpdateLeadStatus(ctx context.Context, ids []string, status model.LeadStatus) (int, error) {
	var (
		updated int
		errs    []error
	)
	for _, id := range ids {
		ok, err := s.ChangeLeadStatus(ctx, id, status)
		if err != nil {
			errs = append(errs, fmt.Errorf("lead %s: %w", id, err))
			continue
		}
		if ok {
			updated++
		}
	}
	return updated, errors.Join(errs...)
}

// mutate applies fn to the lead with id and persists the collection. fn is
// not called when the lead does not exist.
func (s *LeadService) mutate(ctx context.Context, id string, fn func(lead *model.Lead)) error {
	_, _, err := s.leads.update(ctx, func(leads []model.Lead) ([]model.Lead, bool, error) {
		i := indexLead(leads, id)
		if i < 0 {
			return leads, false, nil
		}
		fn(&leads[i])
		return leads, true, nil
	})
	if err != nil {
		s.logger.Error("lead_update_failed", "lead_id", id, "error", err)
	}
	return err
}

func leadStats(leads []model.Lead) model.LeadStats {
	stats := model.LeadStats{
		TotalLeads:    len(leads),
		LeadsBySource: make(map[model.LeadSource]int),
		LeadsByStatus: make(map[model.LeadStatus]int),
	}
	for _, lead := range leads {
		stats.LeadsBySource[lead.Source]++
		stats.LeadsByStatus[lead.Status]++
	}
	stats.NewLeads = stats.LeadsByStatus[model.LeadStatusNew]
	stats.QualifiedLeads = stats.LeadsByStatus[model.LeadStatusQualified]
	stats.ConvertedLeads = stats.LeadsByStatus[model.LeadStatusConverted]
	stats.ConversionRate = model.Percent(stats.ConvertedLeads, stats.TotalLeads)

	recent := slices.Clone(leads)
	sortNewestFirst(recent)
	if len(recent) > recentLeadsLimit {
		recent = recent[:recentLeadsLimit]
	}
	if recent == nil {
		recent = []model.Lead{}
	}
	stats.RecentLeads = recent
	return stats
}

func sortNewestFirst(leads []model.Lead) {
	slices.SortStableFunc(leads, func(a, b model.Lead) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
}

func indexLead(leads []model.Lead, id string) int {
	for i := range leads {
		if leads[i].ID == id {
			return i
		}
	}
	return -1
}
