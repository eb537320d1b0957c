package db_models

import (
	"github.com/google/uuid"
)

// UserPromotionFlag is the fraud-guard state for one buyer. The purchase
// validation path reads IsBlocked; the payment event processor and the
// sweep are the only writers.
type UserPromotionFlag struct {
	BaseModel
	UserID         uuid.UUID `gorm:"uniqueIndex;not null"`
	RefundCount30d int32     `gorm:"not null;default:0"`
	IsBlocked      bool      `gorm:"index;default:false"`
	LastRefundAt   *int64
	ActiveDispute  bool `gorm:"default:false"`
}

func (UserPromotionFlag) TableName() string { return "user_promotion_flags" }
