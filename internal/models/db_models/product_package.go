package db_models

import (
	"github.com/google/uuid"
)

// ProductPackage is immutable reference data describing one purchasable
// promotion tier. PriorityWeight decides queue ordering when a category
// is out of slots.
type ProductPackage struct {
	BaseModel
	Name           string `gorm:"not null"`
	DurationDays   int32  `gorm:"not null"`
	PriceMinor     int64  `gorm:"not null"`
	Currency       string `gorm:"size:3"`
	StripePriceID  string `gorm:"not null"`
	PriorityWeight int32  `gorm:"not null;default:0"`
	Active         bool   `gorm:"default:true"`
}

func (ProductPackage) TableName() string { return "product_packages" }

// ProductPackagePrice overrides the package price for one category,
// e.g. car promotions priced differently from real estate.
type ProductPackagePrice struct {
	BaseModel
	PackageID     uuid.UUID `gorm:"index;not null"`
	Category      string    `gorm:"index;not null"`
	StripePriceID string    `gorm:"not null"`
	Active        bool      `gorm:"default:true"`
}

func (ProductPackagePrice) TableName() string { return "product_package_prices" }
