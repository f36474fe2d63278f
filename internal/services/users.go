package services

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"skillswap-server/internal/models"
)

// UserDirectory answers membership questions about platform users.
type UserDirectory interface {
	UserExists(ctx context.Context, userID string) (bool, error)
	GetUser(ctx context.Context, userID string) (*models.User, error)
	// EachUserBatch streams every user id except excludeID, in id order, batchSize at a time.
	// Iteration stops at the first error returned by fn.
	EachUserBatch(ctx context.Context, excludeID string, batchSize int, fn func(ids []string) error) error
}

type userDirectory struct {
	db *gorm.DB
}

// NewUserDirectory creates a gorm-backed UserDirectory.
func NewUserDirectory(db *gorm.DB) UserDirectory {
	return &userDirectory{db: db}
}

func (d *userDirectory) UserExists(ctx context.Context, userID string) (bool, error) {
	var count int64
	if err := d.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to look up user %s: %w", userID, err)
	}
	return count > 0, nil
}

func (d *userDirectory) GetUser(ctx context.Context, userID string) (*models.User, error) {
	var user models.User
	if err := d.db.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("user", userID)
		}
		return nil, fmt.Errorf("failed to load user %s: %w", userID, err)
	}
	return &user, nil
}

func (d *userDirectory) EachUserBatch(ctx context.Context, excludeID string, batchSize int, fn func(ids []string) error) error {
	if batchSize <= 0 {
		batchSize = 100
	}
	cursor := ""
	for {
		var ids []string
		err := d.db.WithContext(ctx).Model(&models.User{}).
			Where("id > ? AND id <> ?", cursor, excludeID).
			Order("id asc").
			Limit(batchSize).
			Pluck("id", &ids).Error
		if err != nil {
			return fmt.Errorf("failed to page users after %q: %w", cursor, err)
		}
		if len(ids) == 0 {
			return nil
		}
		if err := fn(ids); err != nil {
			return err
		}
		if len(ids) < batchSize {
			return nil
		}
		cursor = ids[len(ids)-1]
	}
}
