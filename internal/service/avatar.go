package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/avatarstudio/avatarstudio/internal/avatarapi"
	"github.com/avatarstudio/avatarstudio/internal/model"
	"github.com/avatarstudio/avatarstudio/internal/repository"
)

// Avatar errors.
var (
	ErrPhotoAvatarNotFound = errors.New("photo avatar not found")
	ErrPhotoAvatarExists   = errors.New("photo avatar already exists")
	ErrInvalidAvatarStatus = errors.New("invalid avatar status")
	ErrGeneratorDisabled   = errors.New("avatar generation is not configured")
)

// PhotoAvatarRepository persists photo avatar records.
type PhotoAvatarRepository interface {
	CreatePhotoAvatar(ctx context.Context, avatar *model.PhotoAvatar) error
	ListPhotoAvatarsByUser(ctx context.Context, userID string) ([]*model.PhotoAvatar, error)
	GetPhotoAvatar(ctx context.Context, avatarID string) (*model.PhotoAvatar, error)
	UpdatePhotoAvatarStatus(ctx context.Context, avatarID string, status model.PhotoAvatarStatus) error
	DeletePhotoAvatar(ctx context.Context, avatarID string) error
}

// AvatarGenerator is the remote avatar API.
type AvatarGenerator interface {
	Configured() bool
	UploadPhoto(ctx context.Context, imageURL, name string) (string, error)
	GenerateVideo(ctx context.Context, req avatarapi.VideoRequest) (string, error)
	VideoStatus(ctx context.Context, videoID string) (*avatarapi.VideoStatus, error)
}

// AvatarService manages photo avatars and video generation.
type AvatarService struct {
	avatars   PhotoAvatarRepository
	generator AvatarGenerator
	logger    *slog.Logger
}

// NewAvatarService creates a new AvatarService. generator may be nil when
// no avatar API is configured.
func NewAvatarService(avatars PhotoAvatarRepository, generator AvatarGenerator, logger *slog.Logger) *AvatarService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AvatarService{
		avatars:   avatars,
		generator: generator,
		logger:    logger.With("component", "avatars"),
	}
}

// PhotoAvatarInput registers a photo avatar. When AvatarID is empty the
// photo at ImageURL is uploaded to the avatar API first.
type PhotoAvatarInput struct {
	UserID   string                  `json:"userId"`
	AvatarID string                  `json:"avatarId"`
	Name     string                  `json:"name"`
	ImageURL string                  `json:"imageUrl"`
	Status   model.PhotoAvatarStatus `json:"status"`
}

// CreatePhotoAvatar stores a photo avatar record.
func (s *AvatarService) CreatePhotoAvatar(ctx context.Context, input PhotoAvatarInput) (*model.PhotoAvatar, error) {
	if strings.TrimSpace(input.UserID) == "" || strings.TrimSpace(input.Name) == "" {
		return nil, ErrMissingFields
	}

	status := input.Status
	if status == "" {
		status = model.PhotoAvatarPending
	}
	if !status.IsValid() {
		return nil, ErrInvalidAvatarStatus
	}

	avatarID := input.AvatarID
	if avatarID == "" {
		if input.ImageURL == "" {
			return nil, ErrMissingFields
		}
		if !s.generatorReady() {
			return nil, ErrGeneratorDisabled
		}
		remoteID, err := s.generator.UploadPhoto(ctx, input.ImageURL, input.Name)
		if err != nil {
			return nil, fmt.Errorf("upload photo: %w", err)
		}
		avatarID = remoteID
		status = model.PhotoAvatarProcessing
	}

	now := time.Now().UTC()
	avatar := &model.PhotoAvatar{
		ID:        newID(),
		UserID:    input.UserID,
		AvatarID:  avatarID,
		Name:      input.Name,
		ImageURL:  input.ImageURL,
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.avatars.CreatePhotoAvatar(ctx, avatar); err != nil {
		if errors.Is(err, repository.ErrPhotoAvatarExists) {
			return nil, ErrPhotoAvatarExists
		}
		return nil, fmt.Errorf("create photo avatar: %w", err)
	}

	s.logger.Info("photo_avatar_created", "avatar_id", avatarID, "user_id", input.UserID)
	return avatar, nil
}

// ListPhotoAvatars returns a user's avatars, newest first.
func (s *AvatarService) ListPhotoAvatars(ctx context.Context, userID string) ([]*model.PhotoAvatar, error) {
	avatars, err := s.avatars.ListPhotoAvatarsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list photo avatars: %w", err)
	}
	return avatars, nil
}

// GetPhotoAvatar returns the avatar with the remote id avatarID.
func (s *AvatarService) GetPhotoAvatar(ctx context.Context, avatarID string) (*model.PhotoAvatar, error) {
	avatar, err := s.avatars.GetPhotoAvatar(ctx, avatarID)
	if err != nil {
		return nil, mapAvatarErr(err)
	}
	return avatar, nil
}

// UpdatePhotoAvatarStatus sets the processing status.
func (s *AvatarService) UpdatePhotoAvatarStatus(ctx context.Context, avatarID string, status model.PhotoAvatarStatus) error {
	if !status.IsValid() {
		return ErrInvalidAvatarStatus
	}
	if err := s.avatars.UpdatePhotoAvatarStatus(ctx, avatarID, status); err != nil {
		return mapAvatarErr(err)
	}
	return nil
}

// DeletePhotoAvatar removes the avatar record.
func (s *AvatarService) DeletePhotoAvatar(ctx context.Context, avatarID string) error {
	if err := s.avatars.DeletePhotoAvatar(ctx, avatarID); err != nil {
		return mapAvatarErr(err)
	}
	return nil
}

// GenerateVideo submits a text-to-video job and returns the remote video id.
func (s *AvatarService) GenerateVideo(ctx context.Context, req avatarapi.VideoRequest) (string, error) {
	if strings.TrimSpace(req.AvatarID) == "" || strings.TrimSpace(req.Script) == "" {
		return "", ErrMissingFields
	}
	if !s.generatorReady() {
		return "", ErrGeneratorDisabled
	}
	videoID, err := s.generator.GenerateVideo(ctx, req)
	if err != nil {
		return "", fmt.Errorf("generate video: %w", err)
	}
	s.logger.Info("video_generation_started", "video_id", videoID, "avatar_id", req.AvatarID)
	return videoID, nil
}

// VideoStatus returns the processing status of a generated video.
func (s *AvatarService) VideoStatus(ctx context.Context, videoID string) (*avatarapi.VideoStatus, error) {
	if !s.generatorReady() {
		return nil, ErrGeneratorDisabled
	}
	status, err := s.generator.VideoStatus(ctx, videoID)
	if err != nil {
		return nil, fmt.Errorf("video status: %w", err)
	}
	return status, nil
}

func (s *AvatarService) generatorReady() bool {
	return s.generator != nil && s.generator.Configured()
}

func mapAvatarErr(err error) error {
	if errors.Is(err, repository.ErrPhotoAvatarNotFound) {
		return ErrPhotoAvatarNotFound
	}
	return err
}
