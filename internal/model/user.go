package model

import "time"

// User is an app account created through registration.
type User struct {
	ID           string    `json:"id"`
	FirstName    string    `json:"firstName"`
	LastName     string    `json:"lastName"`
	Email        string    `json:"email"`
	Phone        string    `json:"phone,omitempty"`
	Company      string    `json:"company,omitempty"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role,omitempty"`
	Logo         string    `json:"logo,omitempty"`
	Photo        string    `json:"photo,omitempty"`
	Instagram    string    `json:"instagram,omitempty"`
	TikTok       string    `json:"tiktok,omitempty"`
	Facebook     string    `json:"facebook,omitempty"`
	LinkedIn     string    `json:"linkedin,omitempty"`
	Website      string    `json:"website,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// UserSummary is the subset returned on registration.
type UserSummary struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// Summary returns the registration view of the user.
func (u *User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Email: u.Email, FirstName: u.FirstName, LastName: u.LastName}
}

// ProfileFields lists the profile columns that may be updated, keyed by
// their JSON name. Values are column names.
var ProfileFields = map[string]string{
	"role":      "role",
	"logo":      "logo",
	"photo":     "photo",
	"instagram": "instagram",
	"tiktok":    "tiktok",
	"facebook":  "facebook",
	"linkedin":  "linkedin",
	"website":   "website",
}

// PhotoAvatarStatus tracks remote avatar processing.
type PhotoAvatarStatus string

const (
	PhotoAvatarPending    PhotoAvatarStatus = "pending"
	PhotoAvatarProcessing PhotoAvatarStatus = "processing"
	PhotoAvatarCompleted  PhotoAvatarStatus = "completed"
	PhotoAvatarFailed     PhotoAvatarStatus = "failed"
)

// IsValid checks if the status is known.
func (s PhotoAvatarStatus) IsValid() bool {
	switch s {
	case PhotoAvatarPending, PhotoAvatarProcessing, PhotoAvatarCompleted, PhotoAvatarFailed:
		return true
	}
	return false
}

// PhotoAvatar links a user's uploaded photo to a remote avatar id.
type PhotoAvatar struct {
	ID        string            `json:"id"`
	UserID    string            `json:"userId"`
	AvatarID  string            `json:"avatarId"`
	Name      string            `json:"name"`
	ImageURL  string            `json:"imageUrl"`
	Status    PhotoAvatarStatus `json:"status"`
	CreatedAt time.Time         `json:"createdAt"`
	UpdatedAt time.Time         `json:"updatedAt"`
}
