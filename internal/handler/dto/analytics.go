package dto

import (
	"time"

	"github.com/avatarstudio/avatarstudio/internal/model"
)

// CreateVideoAnalyticsRequest starts tracking a video.
type CreateVideoAnalyticsRequest struct {
	VideoID string `json:"videoId"`
	Title   string `json:"title"`
}

// Validate checks required fields.
func (r *CreateVideoAnalyticsRequest) Validate() error {
	return required("videoId", r.VideoID)
}

// RecordViewRequest records one view of a video.
type RecordViewRequest struct {
	Duration  float64          `json:"duration"`
	Completed bool             `json:"completed"`
	Source    model.ViewSource `json:"source"`
}

// Validate defaults the source to direct and rejects unknown sources.
func (r *RecordViewRequest) Validate() error {
	if r.Source == "" {
		r.Source = model.ViewSourceDirect
	}
	if !r.Source.IsValid() {
		return invalid("source must be one of direct, share, preview")
	}
	return nil
}

// RecordEngagementRequest records a like, share or comment.
type RecordEngagementRequest struct {
	Type model.EngagementType `json:"type"`
}

// Validate rejects unknown engagement types.
func (r *RecordEngagementRequest) Validate() error {
	if !r.Type.IsValid() {
		return invalid("type must be one of like, share, comment")
	}
	return nil
}

// dateLayout is accepted alongside RFC 3339 for date range bounds.
const dateLayout = "2006-01-02"

// ParseDateRange parses inclusive start and end bounds. Plain dates are
// taken as UTC; an end date without a time covers the whole day.
func ParseDateRange(start, end string) (time.Time, time.Time, error) {
	if start == "" || end == "" {
		return time.Time{}, time.Time{}, invalid("start and end are required")
	}
	from, err := parseBound(start, false)
	if err != nil {
		return time.Time{}, time.Time{}, invalid("invalid start: %q", start)
	}
	to, err := parseBound(end, true)
	if err != nil {
		return time.Time{}, time.Time{}, invalid("invalid end: %q", end)
	}
	if to.Before(from) {
		return time.Time{}, time.Time{}, invalid("end must not be before start")
	}
	return from, to, nil
}

func parseBound(value string, endOfDay bool) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		return time.Time{}, err
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return t, nil
}
