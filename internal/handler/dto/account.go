package dto

import (
	"github.com/avatarstudio/avatarstudio/internal/model"
)

// LoginRequest is the login form.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate checks required fields.
func (r *LoginRequest) Validate() error {
	return required("email", r.Email, "password", r.Password)
}

// UpdateAvatarStatusRequest changes a photo avatar's processing status.
type UpdateAvatarStatusRequest struct {
	Status model.PhotoAvatarStatus `json:"status"`
}

// Validate rejects unknown statuses.
func (r *UpdateAvatarStatusRequest) Validate() error {
	if !r.Status.IsValid() {
		return invalid("status must be one of pending, processing, completed, failed")
	}
	return nil
}

// GenerateVideoRequest starts a text-to-video job.
type GenerateVideoRequest struct {
	AvatarID string `json:"avatarId"`
	VoiceID  string `json:"voiceId"`
	Script   string `json:"script"`
	Title    string `json:"title"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
}

// Validate checks required fields and dimensions.
func (r *GenerateVideoRequest) Validate() error {
	if err := required("avatarId", r.AvatarID, "script", r.Script); err != nil {
		return err
	}
	if r.Width < 0 || r.Height < 0 {
		return invalid("width and height must not be negative")
	}
	return nil
}
