// Package model defines domain entities for the application.
package model

import (
	"math"
	"time"
)

// ViewSource identifies where a video view originated.
type ViewSource string

const (
	ViewSourceDirect  ViewSource = "direct"
	ViewSourceShare   ViewSource = "share"
	ViewSourcePreview ViewSource = "preview"
)

// IsValid checks if the view source is known.
func (s ViewSource) IsValid() bool {
	return s == ViewSourceDirect || s == ViewSourceShare || s == ViewSourcePreview
}

// EngagementType is a viewer interaction counted against a video.
type EngagementType string

const (
	EngagementLike    EngagementType = "like"
	EngagementShare   EngagementType = "share"
	EngagementComment EngagementType = "comment"
)

// IsValid checks if the engagement type is known.
func (e EngagementType) IsValid() bool {
	return e == EngagementLike || e == EngagementShare || e == EngagementComment
}

// ViewEvent is a single recorded view of a video.
type ViewEvent struct {
	Timestamp time.Time  `json:"timestamp"`
	Duration  float64    `json:"duration"`
	Completed bool       `json:"completed"`
	Source    ViewSource `json:"source"`
}

// VideoAnalytics holds view and engagement counters for one video.
type VideoAnalytics struct {
	ID             string      `json:"id"`
	VideoID        string      `json:"videoId"`
	VideoTitle     string      `json:"videoTitle"`
	Views          int         `json:"views"`
	Likes          int         `json:"likes"`
	Shares         int         `json:"shares"`
	Comments       int         `json:"comments"`
	WatchTime      float64     `json:"watchTime"`
	CreatedAt      time.Time   `json:"createdAt"`
	LastViewed     *time.Time  `json:"lastViewed,omitempty"`
	ViewHistory    []ViewEvent `json:"viewHistory"`
	EngagementRate int         `json:"engagementRate"`
}

// EngagementActions returns likes + shares + comments.
func (a *VideoAnalytics) EngagementActions() int {
	return a.Likes + a.Shares + a.Comments
}

// RecomputeEngagementRate derives EngagementRate from the counters.
func (a *VideoAnalytics) RecomputeEngagementRate() {
	a.EngagementRate = Percent(a.EngagementActions(), a.Views)
}

// AnalyticsSummary aggregates every tracked video.
type AnalyticsSummary struct {
	TotalViews             int             `json:"totalViews"`
	TotalVideos            int             `json:"totalVideos"`
	AverageWatchTime       int             `json:"averageWatchTime"`
	TopPerformingVideo     *VideoAnalytics `json:"topPerformingVideo"`
	TotalEngagementActions int             `json:"totalEngagementActions"`
	AverageEngagementRate  int             `json:"averageEngagementRate"`
}

// Percent returns round(100 * part / whole), or 0 when whole is not positive.
func Percent(part, whole int) int {
	if whole <= 0 {
		return 0
	}
	return int(math.Round(100 * float64(part) / float64(whole)))
}
