package model

import "time"

// SharedVideo is a public share link for a generated video.
type SharedVideo struct {
	ID           string     `json:"id"`
	VideoID      string     `json:"videoId"`
	Title        string     `json:"title"`
	CreatorName  string     `json:"creatorName"`
	CreatorEmail string     `json:"creatorEmail"`
	ShareURL     string     `json:"shareUrl"`
	QRCodeURL    string     `json:"qrCodeUrl"`
	IsPublic     bool       `json:"isPublic"`
	Password     string     `json:"password,omitempty"`
	ExpiresAt    *time.Time `json:"expiresAt,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	ViewCount    int        `json:"viewCount"`
	LeadCount    int        `json:"leadCount"`
}

// IsExpired reports whether the share has an expiry at or before now.
func (s *SharedVideo) IsExpired(now time.Time) bool {
	return s.ExpiresAt != nil && !s.ExpiresAt.After(now)
}

// ShareInput describes a new share link.
type ShareInput struct {
	VideoID      string `json:"videoId"`
	Title        string `json:"title"`
	CreatorName  string `json:"creatorName"`
	CreatorEmail string `json:"creatorEmail"`
	// IsPublic defaults to true when nil.
	IsPublic       *bool  `json:"isPublic,omitempty"`
	Password       string `json:"password,omitempty"`
	ExpirationDays int    `json:"expirationDays,omitempty"`
}

// ShareUpdate changes the access settings of a share.
type ShareUpdate struct {
	IsPublic    *bool      `json:"isPublic,omitempty"`
	Password    *string    `json:"password,omitempty"`
	ExpiresAt   *time.Time `json:"expiresAt,omitempty"`
	ClearExpiry bool       `json:"clearExpiry,omitempty"`
}

// Apply merges the update into share.
func (u ShareUpdate) Apply(share *SharedVideo) {
	if u.IsPublic != nil {
		share.IsPublic = *u.IsPublic
	}
	if u.Password != nil {
		share.Password = *u.Password
	}
	if u.ClearExpiry {
		share.ExpiresAt = nil
	} else if u.ExpiresAt != nil {
		t := *u.ExpiresAt
		share.ExpiresAt = &t
	}
}

// ShareAnalytics aggregates share-level counters.
type ShareAnalytics struct {
	TotalShares         int           `json:"totalShares"`
	TotalViews          int           `json:"totalViews"`
	TotalLeads          int           `json:"totalLeads"`
	ConversionRate      int           `json:"conversionRate"`
	TopPerformingShares []SharedVideo `json:"topPerformingShares"`
}

// EmailTemplate is a ready-to-send share email.
type EmailTemplate struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}
