package service

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/avatarstudio/avatarstudio/internal/metrics"
	"github.com/avatarstudio/avatarstudio/internal/model"
	"github.com/avatarstudio/avatarstudio/internal/store"
)

const (
	topSharesLimit = 5
	qrCodeSize     = "300x300"
	expiryLayout   = "January 2, 2006"
)

// SharingService manages public share links for generated videos.
type SharingService struct {
	shares       *collection[model.SharedVideo]
	baseURL      string
	qrServiceURL string
	logger       *slog.Logger
	metrics      metrics.Recorder
	now          func() time.Time
	random       io.Reader
}

// NewSharingService creates a new SharingService. Share links are built as
// baseURL + "/watch/" + id and QR images are requested from qrServiceURL.
func NewSharingService(st store.Store, baseURL, qrServiceURL string, logger *slog.Logger, recorder metrics.Recorder) *SharingService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SharingService{
		shares:       newCollection[model.SharedVideo](store.KeySharedVideos, st, recorder),
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		qrServiceURL: qrServiceURL,
		logger:       logger.With("component", "sharing"),
		metrics:      recorder,
		now:          func() time.Time { return time.Now().UTC() },
		random:       rand.Reader,
	}
}

// ShareVideo creates a share link. Shares are public unless input says
// otherwise; ExpirationDays > 0 sets an expiry.
func (s *SharingService) ShareVideo(ctx context.Context, input model.ShareInput) (*model.SharedVideo, error) {
	now := s.now()
	id, err := generateShareID(s.random)
	if err != nil {
		s.logger.Error("share_create_failed", "video_id", input.VideoID, "error", err)
		return nil, err
	}
	shareURL := s.baseURL + "/watch/" + id

	share := model.SharedVideo{
		ID:           id,
		VideoID:      input.VideoID,
		Title:        input.Title,
		CreatorName:  input.CreatorName,
		CreatorEmail: input.CreatorEmail,
		ShareURL:     shareURL,
		QRCodeURL:    s.qrServiceURL + "?size=" + qrCodeSize + "&data=" + url.QueryEscape(shareURL),
		IsPublic:     true,
		Password:     input.Password,
		CreatedAt:    now,
	}
	if input.IsPublic != nil {
		share.IsPublic = *input.IsPublic
	}
	if input.ExpirationDays > 0 {
		expires := now.Add(time.Duration(input.ExpirationDays) * 24 * time.Hour)
		share.ExpiresAt = &expires
	}

	_, _, err = s.shares.update(ctx, func(shares []model.SharedVideo) ([]model.SharedVideo, bool, error) {
		return append(shares, share), true, nil
	})
	if err != nil {
		s.logger.Error("share_create_failed", "video_id", input.VideoID, "error", err)
		return nil, err
	}

	s.metrics.IncShareCreated()
	s.logger.Info("share_created", "share_id", id, "video_id", input.VideoID, "public", share.IsPublic)
	return &share, nil
}

// GetAllSharedVideos returns every share, expired ones included.
func (s *SharingService) GetAllSharedVideos(ctx context.Context) ([]model.SharedVideo, error) {
	shares, err := s.shares.read(ctx)
	if err != nil {
		s.logger.Error("shares_read_failed", "error", err)
		return []model.SharedVideo{}, err
	}
	return shares, nil
}

// GetVideoShares returns every share of videoID.
func (s *SharingService) GetVideoShares(ctx context.Context, videoID string) ([]model.SharedVideo, error) {
	shares, err := s.GetAllSharedVideos(ctx)
	if err != nil {
		return shares, err
	}
	return filterByVideo(shares, videoID), nil
}

// GetSharedVideo returns the share with id, or nil when it does not exist
// or has expired. Expired shares stay stored until CleanupExpiredShares.
func (s *SharingService) GetSharedVideo(ctx context.Context, id string) (*model.SharedVideo, error) {
	shares, err := s.GetAllSharedVideos(ctx)
	if err != nil {
		return nil, err
	}
	i := indexShare(shares, id)
	if i < 0 || shares[i].IsExpired(s.now()) {
		return nil, nil
	}
	return &shares[i], nil
}

// RecordView increments the view counter. Expiry is not checked.
func (s *SharingService) RecordView(ctx context.Context, id string) (bool, error) {
	found, err := s.mutate(ctx, id, func(share *model.SharedVideo) {
		share.ViewCount++
	})
	if found {
		s.metrics.IncShareView()
	}
	return found, err
}

// RecordLead increments the lead counter. Expiry is not checked.
func (s *SharingService) RecordLead(ctx context.Context, id string) (bool, error) {
	found, err := s.mutate(ctx, id, func(share *model.SharedVideo) {
		share.LeadCount++
	})
	if found {
		s.metrics.IncShareLead()
	}
	return found, err
}

// UpdateSharedVideo applies update and returns the result, or nil when the
// share does not exist.
func (s *SharingService) UpdateSharedVideo(ctx context.Context, id string, update model.ShareUpdate) (*model.SharedVideo, error) {
	var updated model.SharedVideo
	found, err := s.mutate(ctx, id, func(share *model.SharedVideo) {
		update.Apply(share)
		updated = *share
	})
	if err != nil || !found {
		return nil, err
	}
	return &updated, nil
}

// DeleteSharedVideo removes the share and reports whether it existed.
func (s *SharingService) DeleteSharedVideo(ctx context.Context, id string) (bool, error) {
	_, changed, err := s.shares.update(ctx, func(shares []model.SharedVideo) ([]model.SharedVideo, bool, error) {
		i := indexShare(shares, id)
		if i < 0 {
			return shares, false, nil
		}
		return slices.Delete(shares, i, i+1), true, nil
	})
	if err != nil {
		s.logger.Error("share_delete_failed", "share_id", id, "error", err)
		return false, err
	}
	return changed, nil
}

// GetShareAnalytics aggregates the shares of videoID, or of every video
// when videoID is empty.
func (s *SharingService) GetShareAnalytics(ctx context.Context, videoID string) (*model.ShareAnalytics, error) {
	shares, err := s.GetAllSharedVideos(ctx)
	if videoID != "" {
		shares = filterByVideo(shares, videoID)
	}

	stats := model.ShareAnalytics{TotalShares: len(shares)}
	for _, share := range shares {
		stats.TotalViews += share.ViewCount
		stats.TotalLeads += share.LeadCount
	}
	stats.ConversionRate = model.Percent(stats.TotalLeads, stats.TotalViews)

	top := slices.Clone(shares)
	slices.SortStableFunc(top, func(a, b model.SharedVideo) int {
		return b.ViewCount - a.ViewCount
	})
	if len(top) > topSharesLimit {
		top = top[:topSharesLimit]
	}
	if top == nil {
		top = []model.SharedVideo{}
	}
	stats.TopPerformingShares = top
	return &stats, err
}

// ValidateAccess reports whether password opens the share. Missing and
// expired shares are never accessible; public shares and shares without a
// stored password always are.
func (s *SharingService) ValidateAccess(ctx context.Context, id, password string) (bool, error) {
	share, err := s.GetSharedVideo(ctx, id)
	if err != nil || share == nil {
		return false, err
	}
	if share.IsPublic || share.Password == "" {
		return true, nil
	}
	return subtle.ConstantTimeCompare([]byte(share.Password), []byte(password)) == 1, nil
}

// CleanupExpiredShares deletes every expired share and returns how many
// were removed.
func (s *SharingService) CleanupExpiredShares(ctx context.Context) (int, error) {
	now := s.now()
	removed := 0
	_, _, err := s.shares.update(ctx, func(shares []model.SharedVideo) ([]model.SharedVideo, bool, error) {
		kept := shares[:0]
		for _, share := range shares {
			if share.IsExpired(now) {
				removed++
				continue
			}
			kept = append(kept, share)
		}
		return kept, removed > 0, nil
	})
	if err != nil {
		s.logger.Error("share_cleanup_failed", "error", err)
		return 0, err
	}

	if removed > 0 {
		s.metrics.AddSharesExpired(removed)
		s.logger.Info("expired_shares_removed", "count", removed)
	}
	return removed, nil
}

// GenerateShareMessage renders a short message suitable for chat or SMS.
func GenerateShareMessage(share model.SharedVideo) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Check out \"%s\", a personalized video from %s!\n\n", share.Title, share.CreatorName)
	fmt.Fprintf(&b, "Watch it here: %s", share.ShareURL)
	if !share.IsPublic && share.Password != "" {
		b.WriteString("\n\nThis video is password protected. Ask me for the password.")
	}
	if share.ExpiresAt != nil {
		fmt.Fprintf(&b, "\n\nThis link expires on %s.", share.ExpiresAt.Format(expiryLayout))
	}
	return b.String()
}

// GenerateEmailTemplate renders a share email addressed to recipientName.
func GenerateEmailTemplate(share model.SharedVideo, recipientName string) model.EmailTemplate {
	greeting := "Hi there,"
	if name := strings.TrimSpace(recipientName); name != "" {
		greeting = "Hi " + name + ","
	}

	var b strings.Builder
	b.WriteString(greeting)
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "I recorded a personalized video for you: \"%s\".\n\n", share.Title)
	fmt.Fprintf(&b, "Watch it here: %s\n", share.ShareURL)
	if !share.IsPublic && share.Password != "" {
		b.WriteString("\nThe video is password protected. Reply to this email if you need the password.\n")
	}
	if share.ExpiresAt != nil {
		fmt.Fprintf(&b, "\nThe link is available until %s.\n", share.ExpiresAt.Format(expiryLayout))
	}
	fmt.Fprintf(&b, "\nBest regards,\n%s", share.CreatorName)
	if share.CreatorEmail != "" {
		fmt.Fprintf(&b, "\n%s", share.CreatorEmail)
	}

	return model.EmailTemplate{
		Subject: fmt.Sprintf("%s shared a video with you: %s", share.CreatorName, share.Title),
		Body:    b.String(),
	}
}

func (s *SharingService) mutate(ctx context.Context, id string, fn func(share *model.SharedVideo)) (bool, error) {
	_, found, err := s.shares.update(ctx, func(shares []model.SharedVideo) ([]model.SharedVideo, bool, error) {
		i := indexShare(shares, id)
		if i < 0 {
			return shares, false, nil
		}
		fn(&shares[i])
		return shares, true, nil
	})
	if err != nil {
		s.logger.Error("share_update_failed", "share_id", id, "error", err)
		return false, err
	}
	return found, nil
}

func filterByVideo(shares []model.SharedVideo, videoID string) []model.SharedVideo {
	out := make([]model.SharedVideo, 0, len(shares))
	for _, share := range shares {
		if share.VideoID == videoID {
			out = append(out, share)
		}
	}
	return out
}

func indexShare(shares []model.SharedVideo, id string) int {
	for i := range shares {
		if shares[i].ID == id {
			return i
		}
	}
	return -1
}
