package repositories

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"oglasnik/internal/models/db_models"
)

// DefaultMaxSlots applies to categories without a configured limit row.
const DefaultMaxSlots int32 = 10

type ISlotLimitRepository interface {
	GetMaxSlots(ctx context.Context, category string) (int32, error)
	ListLimits(ctx context.Context) ([]db_models.PromotionSlotLimit, error)
	UpsertLimit(ctx context.Context, limit *db_models.PromotionSlotLimit) error
}

type SlotLimitRepository struct {
	db *gorm.DB
}

func NewSlotLimitRepository(db *gorm.DB) ISlotLimitRepository {
	return &SlotLimitRepository{db: db}
}

func (r *SlotLimitRepository) GetMaxSlots(ctx context.Context, category string) (int32, error) {
	var limit db_models.PromotionSlotLimit
	err := r.db.WithContext(ctx).
		Where("category = ? AND active = TRUE", category).
		First(&limit).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return DefaultMaxSlots, nil
		}
		return 0, err
	}

	return limit.MaxSlots, nil
}

func (r *SlotLimitRepository) ListLimits(ctx context.Context) ([]db_models.PromotionSlotLimit, error) {
	var limits []db_models.PromotionSlotLimit
	err := r.db.WithContext(ctx).
		Order("category ASC").
		Find(&limits).Error
	return limits, err
}

func (r *SlotLimitRepository) UpsertLimit(ctx context.Context, limit *db_models.PromotionSlotLimit) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "category"}},
			DoUpdates: clause.AssignmentColumns([]string{"max_slots", "active", "updated_at"}),
		}).
		Create(limit).Error
}
