package db_models

// PromotionSlotLimit caps the number of simultaneously active promotions
// in one category. Changes take effect on the next sweep cycle.
type PromotionSlotLimit struct {
	BaseModel
	Category string `gorm:"uniqueIndex;not null"`
	MaxSlots int32  `gorm:"not null"`
	Active   bool   `gorm:"default:true"`
}

func (PromotionSlotLimit) TableName() string { return "promotion_slot_limits" }
