package repositories

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"oglasnik/internal/models/db_models"
)

// IAdRepository is the read-only view of the listing catalog. The
// marketplace CRUD side owns writes to ads.
type IAdRepository interface {
	GetListingByID(ctx context.Context, listingID uuid.UUID) (*db_models.Ad, error)
}

type AdRepository struct {
	db *gorm.DB
}

func NewAdRepository(db *gorm.DB) IAdRepository {
	return &AdRepository{db: db}
}

func (r *AdRepository) GetListingByID(ctx context.Context, listingID uuid.UUID) (*db_models.Ad, error) {
	var ad db_models.Ad
	err := r.db.WithContext(ctx).First(&ad, "id = ?", listingID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &ad, nil
}
