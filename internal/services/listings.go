package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"skillswap-server/internal/models"
)

// ListingStore is the slice of the offer/request store the core depends on.
type ListingStore interface {
	GetListing(ctx context.Context, ref models.ListingRef) (*models.Listing, error)
	GetListingOwner(ctx context.Context, ref models.ListingRef) (string, error)
	SetListingStatus(ctx context.Context, ref models.ListingRef, status models.ListingStatus) error
	CreateListing(ctx context.Context, listing *models.Listing) error
	DeleteListing(ctx context.Context, ref models.ListingRef, actorID string) error
	CountResponses(ctx context.Context, ref models.ListingRef) (map[models.ResponseStatus]int64, error)
	// WithTx returns a store bound to tx so listing writes join the caller's transaction.
	WithTx(tx *gorm.DB) ListingStore
}

type listingStore struct {
	db *gorm.DB
}

// NewListingStore creates a gorm-backed ListingStore.
func NewListingStore(db *gorm.DB) ListingStore {
	return &listingStore{db: db}
}

func (s *listingStore) WithTx(tx *gorm.DB) ListingStore {
	return &listingStore{db: tx}
}

func (s *listingStore) GetListing(ctx context.Context, ref models.ListingRef) (*models.Listing, error) {
	var listing models.Listing
	err := s.db.WithContext(ctx).
		Where("id = ? AND kind = ?", ref.ID, ref.Kind).
		First(&listing).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("listing", ref.String())
		}
		return nil, fmt.Errorf("failed to load listing %s: %w", ref, err)
	}
	return &listing, nil
}

func (s *listingStore) GetListingOwner(ctx context.Context, ref models.ListingRef) (string, error) {
	listing, err := s.GetListing(ctx, ref)
	if err != nil {
		return "", err
	}
	return listing.UserID, nil
}

func (s *listingStore) SetListingStatus(ctx context.Context, ref models.ListingRef, status models.ListingStatus) error {
	res := s.db.WithContext(ctx).Model(&models.Listing{}).
		Where("id = ? AND kind = ?", ref.ID, ref.Kind).
		Update("status", status)
	if res.Error != nil {
		return fmt.Errorf("failed to set status of listing %s: %w", ref, res.Error)
	}
	if res.RowsAffected > 0 {
		return nil
	}
	// MySQL reports zero affected rows when the status is already set.
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Listing{}).
		Where("id = ? AND kind = ?", ref.ID, ref.Kind).
		Count(&count).Error; err != nil {
		return fmt.Errorf("failed to look up listing %s: %w", ref, err)
	}
	if count == 0 {
		return notFound("listing", ref.String())
	}
	return nil
}

func (s *listingStore) CreateListing(ctx context.Context, listing *models.Listing) error {
	if !listing.Kind.Valid() {
		return invalid("kind", "must be offer or request")
	}
	listing.Title = strings.TrimSpace(listing.Title)
	if listing.Title == "" {
		return invalid("title", "is required")
	}
	if listing.Status == "" {
		listing.Status = models.ListingActive
	}
	if err := s.db.WithContext(ctx).Create(listing).Error; err != nil {
		return fmt.Errorf("failed to create %s: %w", listing.Kind, err)
	}
	return nil
}

// DeleteListing removes a listing owned by actorID together with every response made to it.
func (s *listingStore) DeleteListing(ctx context.Context, ref models.ListingRef, actorID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var listing models.Listing
		if err := tx.Where("id = ? AND kind = ?", ref.ID, ref.Kind).First(&listing).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFound("listing", ref.String())
			}
			return fmt.Errorf("failed to load listing %s: %w", ref, err)
		}
		if listing.UserID != actorID {
			return fmt.Errorf("delete listing %s: %w", ref, ErrUnauthorized)
		}
		if err := tx.Where("response_type = ? AND listing_id = ?", ref.Kind, ref.ID).
			Delete(&models.Response{}).Error; err != nil {
			return fmt.Errorf("failed to delete responses of listing %s: %w", ref, err)
		}
		if err := tx.Delete(&listing).Error; err != nil {
			return fmt.Errorf("failed to delete listing %s: %w", ref, err)
		}
		return nil
	})
}

func (s *listingStore) CountResponses(ctx context.Context, ref models.ListingRef) (map[models.ResponseStatus]int64, error) {
	var rows []struct {
		Status models.ResponseStatus
		Total  int64
	}
	err := s.db.WithContext(ctx).Model(&models.Response{}).
		Select("status, COUNT(*) AS total").
		Where("response_type = ? AND listing_id = ?", ref.Kind, ref.ID).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count responses of listing %s: %w", ref, err)
	}
	counts := make(map[models.ResponseStatus]int64, len(rows))
	for _, r := range rows {
		counts[r.Status] = r.Total
	}
	return counts, nil
}
