package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/avatarstudio/avatarstudio/internal/metrics"
	"github.com/avatarstudio/avatarstudio/internal/model"
	"github.com/avatarstudio/avatarstudio/internal/store"
)

// AnalyticsService tracks per-video views and engagement.
type AnalyticsService struct {
	records *collection[model.VideoAnalytics]
	store   store.Store
	logger  *slog.Logger
	metrics metrics.Recorder
	now     func() time.Time
}

// NewAnalyticsService creates a new AnalyticsService.
func NewAnalyticsService(st store.Store, logger *slog.Logger, recorder metrics.Recorder) *AnalyticsService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &AnalyticsService{
		records: newCollection[model.VideoAnalytics](store.KeyAnalytics, st, recorder),
		store:   st,
		logger:  logger.With("component", "analytics"),
		metrics: recorder,
		now:     func() time.Time { return time.Now().UTC() },
	}
	s.records.afterSave = s.cacheSummary
	return s
}

// GetAllAnalytics returns every record in insertion order.
func (s *AnalyticsService) GetAllAnalytics(ctx context.Context) ([]model.VideoAnalytics, error) {
	items, err := s.records.read(ctx)
	if err != nil {
		s.logger.Error("analytics_read_failed", "error", err)
		return []model.VideoAnalytics{}, err
	}
	return items, nil
}

// GetVideoAnalytics returns the first record for videoID, or nil.
func (s *AnalyticsService) GetVideoAnalytics(ctx context.Context, videoID string) (*model.VideoAnalytics, error) {
	items, err := s.GetAllAnalytics(ctx)
	if err != nil {
		return nil, err
	}
	if i := indexVideo(items, videoID); i >= 0 {
		return &items[i], nil
	}
	return nil, nil
}

// CreateVideoAnalytics appends a zeroed record for videoID. An existing
// record for the same video is left in place.
func (s *AnalyticsService) CreateVideoAnalytics(ctx context.Context, videoID, title string) (*model.VideoAnalytics, error) {
	record := model.VideoAnalytics{
		ID:          newID(),
		VideoID:     videoID,
		VideoTitle:  title,
		CreatedAt:   s.now(),
		ViewHistory: []model.ViewEvent{},
	}

	_, _, err := s.records.update(ctx, func(items []model.VideoAnalytics) ([]model.VideoAnalytics, bool, error) {
		return append(items, record), true, nil
	})
	if err != nil {
		s.logger.Error("analytics_create_failed", "video_id", videoID, "error", err)
		return nil, err
	}
	return &record, nil
}

// RecordView counts a view of videoID. Unknown videos are ignored.
func (s *AnalyticsService) RecordView(ctx context.Context, videoID string, duration float64, completed bool, source model.ViewSource) error {
	if duration < 0 {
		duration = 0
	}
	now := s.now()

	_, changed, err := s.records.update(ctx, func(items []model.VideoAnalytics) ([]model.VideoAnalytics, bool, error) {
		i := indexVideo(items, videoID)
		if i < 0 {
			return items, false, nil
		}
		rec := &items[i]
		rec.Views++
		rec.WatchTime += duration
		rec.ViewHistory = append(rec.ViewHistory, model.ViewEvent{
			Timestamp: now,
			Duration:  duration,
			Completed: completed,
			Source:    source,
		})
		viewed := now
		rec.LastViewed = &viewed
		rec.RecomputeEngagementRate()
		return items, true, nil
	})
	if err != nil {
		s.logger.Error("analytics_view_failed", "video_id", videoID, "error", err)
		return err
	}
	if !changed {
		return nil
	}

	s.metrics.IncVideoView(string(source))
	return nil
}

// RecordEngagement counts a like, share or comment on videoID. Unknown
// videos and unknown kinds are ignored.
func (s *AnalyticsService) RecordEngagement(ctx context.Context, videoID string, kind model.EngagementType) error {
	_, changed, err := s.records.update(ctx, func(items []model.VideoAnalytics) ([]model.VideoAnalytics, bool, error) {
		i := indexVideo(items, videoID)
		if i < 0 {
			return items, false, nil
		}
		rec := &items[i]
		switch kind {
		case model.EngagementLike:
			rec.Likes++
		case model.EngagementShare:
			rec.Shares++
		case model.EngagementComment:
			rec.Comments++
		default:
			return items, false, nil
		}
		rec.RecomputeEngagementRate()
		return items, true, nil
	})
	if err != nil {
		s.logger.Error("analytics_engagement_failed", "video_id", videoID, "kind", kind, "error", err)
		return err
	}
	if !changed {
		return nil
	}

	s.metrics.IncEngagement(string(kind))
	return nil
}

// GetAnalyticsSummary recomputes the summary from the stored records.
func (s *AnalyticsService) GetAnalyticsSummary(ctx context.Context) (*model.AnalyticsSummary, error) {
	items, err := s.GetAllAnalytics(ctx)
	summary := summarize(items)
	return &summary, err
}

// DeleteVideoAnalytics removes every record for videoID and reports
// whether any existed.
func (s *AnalyticsService) DeleteVideoAnalytics(ctx context.Context, videoID string) (bool, error) {
	_, changed, err := s.records.update(ctx, func(items []model.VideoAnalytics) ([]model.VideoAnalytics, bool, error) {
		kept := items[:0]
		for _, rec := range items {
			if rec.VideoID != videoID {
				kept = append(kept, rec)
			}
		}
		return kept, len(kept) != len(items), nil
	})
	if err != nil {
		s.logger.Error("analytics_delete_failed", "video_id", videoID, "error", err)
		return false, err
	}
	return changed, nil
}

// GetAnalyticsForDateRange returns records created within [start, end].
func (s *AnalyticsService) GetAnalyticsForDateRange(ctx context.Context, start, end time.Time) ([]model.VideoAnalytics, error) {
	items, err := s.GetAllAnalytics(ctx)
	if err != nil {
		return items, err
	}
	out := make([]model.VideoAnalytics, 0, len(items))
	for _, rec := range items {
		if !rec.CreatedAt.Before(start) && !rec.CreatedAt.After(end) {
			out = append(out, rec)
		}
	}
	return out, nil
}

type analyticsExport struct {
	Summary    model.AnalyticsSummary `json:"summary"`
	Analytics  []model.VideoAnalytics `json:"analytics"`
	ExportedAt time.Time              `json:"exportedAt"`
}

// ExportAnalytics returns the summary and every record as indented JSON.
func (s *AnalyticsService) ExportAnalytics(ctx context.Context) (string, error) {
	items, err := s.GetAllAnalytics(ctx)
	if err != nil {
		return "", err
	}
	data, err := json.MarshalIndent(analyticsExport{
		Summary:    summarize(items),
		Analytics:  items,
		ExportedAt: s.now(),
	}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode analytics export: %w", err)
	}
	return string(data), nil
}

// cacheSummary writes the derived summary under the summary key. It runs
// inside the records lock, so the cache always matches the last saved
// records. The cache is never read back, so a failed write is only logged.
func (s *AnalyticsService) cacheSummary(ctx context.Context, items []model.VideoAnalytics) {
	data, err := json.Marshal(summarize(items))
	if err == nil {
		err = s.store.Set(ctx, store.KeyAnalyticsSummary, string(data))
	}
	if err != nil {
		s.metrics.IncStoreError(store.KeyAnalyticsSummary)
		s.logger.Warn("analytics_summary_cache_failed", "error", err)
	}
}

func summarize(items []model.VideoAnalytics) model.AnalyticsSummary {
	var (
		summary   model.AnalyticsSummary
		watchTime float64
		rateSum   int
	)
	summary.TotalVideos = len(items)
	for i := range items {
		rec := &items[i]
		summary.TotalViews += rec.Views
		summary.TotalEngagementActions += rec.EngagementActions()
		watchTime += rec.WatchTime
		rateSum += rec.EngagementRate
		if summary.TopPerformingVideo == nil || rec.Views > summary.TopPerformingVideo.Views {
			top := *rec
			summary.TopPerformingVideo = &top
		}
	}
	if summary.TotalViews > 0 {
		summary.AverageWatchTime = roundDiv(watchTime, float64(summary.TotalViews))
	}
	if summary.TotalVideos > 0 {
		summary.AverageEngagementRate = roundDiv(float64(rateSum), float64(summary.TotalVideos))
	}
	return summary
}

func indexVideo(items []model.VideoAnalytics, videoID string) int {
	for i := range items {
		if items[i].VideoID == videoID {
			return i
		}
	}
	return -1
}

func roundDiv(a, b float64) int {
	return int(math.Round(a / b))
}
