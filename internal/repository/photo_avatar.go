package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/avatarstudio/avatarstudio/internal/model"
)

// Common errors for photo avatar repository operations.
var (
	ErrPhotoAvatarNotFound = errors.New("photo avatar not found")
	ErrPhotoAvatarExists   = errors.New("photo avatar already exists")
)

const photoAvatarColumns = `id, user_id, avatar_id, name, image_url, status, created_at, updated_at`

// CreatePhotoAvatar inserts a new photo avatar record.
func (r *Repository) CreatePhotoAvatar(ctx context.Context, avatar *model.PhotoAvatar) error {
	query := `
		INSERT INTO photo_avatars (id, user_id, avatar_id, name, image_url, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.pool.Exec(ctx, query,
		avatar.ID,
		avatar.UserID,
		avatar.AvatarID,
		avatar.Name,
		avatar.ImageURL,
		avatar.Status,
		avatar.CreatedAt,
		avatar.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrPhotoAvatarExists
		}
		return fmt.Errorf("failed to create photo avatar: %w", err)
	}

	return nil
}

// ListPhotoAvatarsByUser returns a user's avatars, newest first.
func (r *Repository) ListPhotoAvatarsByUser(ctx context.Context, userID string) ([]*model.PhotoAvatar, error) {
	query := `SELECT ` + photoAvatarColumns + ` FROM photo_avatars WHERE user_id = $1 ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list photo avatars: %w", err)
	}
	defer rows.Close()

	avatars := make([]*model.PhotoAvatar, 0)
	for rows.Next() {
		avatar, err := scanPhotoAvatar(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan photo avatar: %w", err)
		}
		avatars = append(avatars, avatar)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate photo avatars: %w", err)
	}

	return avatars, nil
}

// GetPhotoAvatar retrieves an avatar by its remote avatar id.
func (r *Repository) GetPhotoAvatar(ctx context.Context, avatarID string) (*model.PhotoAvatar, error) {
	query := `SELECT ` + photoAvatarColumns + ` FROM photo_avatars WHERE avatar_id = $1`

	avatar, err := scanPhotoAvatar(r.pool.QueryRow(ctx, query, avatarID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPhotoAvatarNotFound
		}
		return nil, fmt.Errorf("failed to get photo avatar: %w", err)
	}

	return avatar, nil
}

// UpdatePhotoAvatarStatus sets the processing status of an avatar.
func (r *Repository) UpdatePhotoAvatarStatus(ctx context.Context, avatarID string, status model.PhotoAvatarStatus) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE photo_avatars SET status = $1, updated_at = NOW() WHERE avatar_id = $2`,
		status, avatarID,
	)
	if err != nil {
		return fmt.Errorf("failed to update photo avatar status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrPhotoAvatarNotFound
	}
	return nil
}

// DeletePhotoAvatar removes an avatar record.
func (r *Repository) DeletePhotoAvatar(ctx context.Context, avatarID string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM photo_avatars WHERE avatar_id = $1`, avatarID)
	if err != nil {
		return fmt.Errorf("failed to delete photo avatar: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrPhotoAvatarNotFound
	}
	return nil
}

func scanPhotoAvatar(row pgx.Row) (*model.PhotoAvatar, error) {
	var a model.PhotoAvatar
	err := row.Scan(
		&a.ID,
		&a.UserID,
		&a.AvatarID,
		&a.Name,
		&a.ImageURL,
		&a.Status,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}
