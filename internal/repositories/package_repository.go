package repositories

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"oglasnik/internal/models/db_models"
)

type IPackageRepository interface {
	GetPackageByID(ctx context.Context, packageID uuid.UUID) (*db_models.ProductPackage, error)
	// GetCategoryPrice returns the per-category price override for a
	// package, or nil when the category uses the package default.
	GetCategoryPrice(ctx context.Context, packageID uuid.UUID, category string) (*db_models.ProductPackagePrice, error)
}

type PackageRepository struct {
	db *gorm.DB
}

func NewPackageRepository(db *gorm.DB) IPackageRepository {
	return &PackageRepository{db: db}
}

func (r *PackageRepository) GetPackageByID(ctx context.Context, packageID uuid.UUID) (*db_models.ProductPackage, error) {
	var pkg db_models.ProductPackage
	err := r.db.WithContext(ctx).First(&pkg, "id = ? AND active = TRUE", packageID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &pkg, nil
}

func (r *PackageRepository) GetCategoryPrice(ctx context.Context, packageID uuid.UUID, category string) (*db_models.ProductPackagePrice, error) {
	var price db_models.ProductPackagePrice
	err := r.db.WithContext(ctx).
		Where("package_id = ? AND category = ? AND active = TRUE", packageID, category).
		First(&price).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &price, nil
}
