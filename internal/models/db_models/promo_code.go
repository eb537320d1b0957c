package db_models

import (
	"github.com/google/uuid"
	"github.com/lib/pq"
)

// PromoCode is a discount code with optional global and per-user usage
// limits plus category/package segmentation. UsedCount is only ever
// bumped through the conditional update in the promo code repository,
// never read-then-written.
type PromoCode struct {
	BaseModel
	Code     string `gorm:"uniqueIndex;not null"`
	Active   bool   `gorm:"default:true"`
	StartsAt int64  `gorm:"not null"`
	EndsAt   *int64

	MaxUses        *int32
	UsedCount      int32 `gorm:"not null;default:0"`
	MaxUsesPerUser *int32

	AllowedCategories pq.StringArray `gorm:"type:text[]"`
	AllowedPackages   pq.StringArray `gorm:"type:text[]"`

	OverrideStripePriceID *string
}

func (PromoCode) TableName() string { return "promo_codes" }

// PromoCodeRedemption is append-only: one row per accepted redemption,
// the source of truth for per-user limits.
type PromoCodeRedemption struct {
	BaseModel
	Code      string    `gorm:"index;not null"`
	UserID    uuid.UUID `gorm:"index;not null"`
	ListingID uuid.UUID `gorm:"not null"`
}

func (PromoCodeRedemption) TableName() string { return "promo_code_redemptions" }
