package dto

import (
	"time"

	"github.com/avatarstudio/avatarstudio/internal/model"
)

// maxExpirationDays bounds expirationDays on new shares.
const maxExpirationDays = 3650

// CreateShareRequest creates a share link for a video.
type CreateShareRequest model.ShareInput

// Validate checks required fields and the expiry window.
func (r *CreateShareRequest) Validate() error {
	if err := required("videoId", r.VideoID, "title", r.Title, "creatorName", r.CreatorName); err != nil {
		return err
	}
	if r.ExpirationDays < 0 || r.ExpirationDays > maxExpirationDays {
		return invalid("expirationDays must be between 0 and %d", maxExpirationDays)
	}
	return nil
}

// Input converts the request to the service input.
func (r *CreateShareRequest) Input() model.ShareInput {
	return model.ShareInput(*r)
}

// UpdateShareRequest changes access settings on a share.
type UpdateShareRequest model.ShareUpdate

// Update converts the request to the service update.
func (r *UpdateShareRequest) Update() model.ShareUpdate {
	return model.ShareUpdate(*r)
}

// EmailTemplateRequest names the recipient of a share email.
type EmailTemplateRequest struct {
	RecipientName string `json:"recipientName"`
}

// ShareResponse is a share as returned to its owner. The stored password
// is replaced by a flag.
type ShareResponse struct {
	ID           string     `json:"id"`
	VideoID      string     `json:"videoId"`
	Title        string     `json:"title"`
	CreatorName  string     `json:"creatorName"`
	CreatorEmail string     `json:"creatorEmail"`
	ShareURL     string     `json:"shareUrl"`
	QRCodeURL    string     `json:"qrCodeUrl"`
	IsPublic     bool       `json:"isPublic"`
	HasPassword  bool       `json:"hasPassword"`
	ExpiresAt    *time.Time `json:"expiresAt,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	ViewCount    int        `json:"viewCount"`
	LeadCount    int        `json:"leadCount"`
}

// ToShareResponse converts a SharedVideo model to ShareResponse.
func ToShareResponse(share *model.SharedVideo) ShareResponse {
	return ShareResponse{
		ID:           share.ID,
		VideoID:      share.VideoID,
		Title:        share.Title,
		CreatorName:  share.CreatorName,
		CreatorEmail: share.CreatorEmail,
		ShareURL:     share.ShareURL,
		QRCodeURL:    share.QRCodeURL,
		IsPublic:     share.IsPublic,
		HasPassword:  share.Password != "",
		ExpiresAt:    share.ExpiresAt,
		CreatedAt:    share.CreatedAt,
		ViewCount:    share.ViewCount,
		LeadCount:    share.LeadCount,
	}
}

// ToShareResponses converts a slice of shares.
func ToShareResponses(shares []model.SharedVideo) []ShareResponse {
	out := make([]ShareResponse, len(shares))
	for i := range shares {
		out[i] = ToShareResponse(&shares[i])
	}
	return out
}

// ShareAnalyticsResponse mirrors model.ShareAnalytics with passwords hidden.
type ShareAnalyticsResponse struct {
	TotalShares         int             `json:"totalShares"`
	TotalViews          int             `json:"totalViews"`
	TotalLeads          int             `json:"totalLeads"`
	ConversionRate      int             `json:"conversionRate"`
	TopPerformingShares []ShareResponse `json:"topPerformingShares"`
}

// ToShareAnalyticsResponse converts share analytics for the API.
func ToShareAnalyticsResponse(a *model.ShareAnalytics) ShareAnalyticsResponse {
	return ShareAnalyticsResponse{
		TotalShares:         a.TotalShares,
		TotalViews:          a.TotalViews,
		TotalLeads:          a.TotalLeads,
		ConversionRate:      a.ConversionRate,
		TopPerformingShares: ToShareResponses(a.TopPerformingShares),
	}
}

// WatchResponse is what a viewer of a share link sees.
type WatchResponse struct {
	ID          string     `json:"id"`
	VideoID     string     `json:"videoId"`
	Title       string     `json:"title"`
	CreatorName string     `json:"creatorName"`
	ShareURL    string     `json:"shareUrl"`
	ExpiresAt   *time.Time `json:"expiresAt,omitempty"`
	ViewCount   int        `json:"viewCount"`
}

// ToWatchResponse converts a share for public viewing.
func ToWatchResponse(share *model.SharedVideo) WatchResponse {
	return WatchResponse{
		ID:          share.ID,
		VideoID:     share.VideoID,
		Title:       share.Title,
		CreatorName: share.CreatorName,
		ShareURL:    share.ShareURL,
		ExpiresAt:   share.ExpiresAt,
		ViewCount:   share.ViewCount,
	}
}
