package repositories

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"oglasnik/internal/models/db_models"
)

type IPromotionRepository interface {
	Create(ctx context.Context, promotion *db_models.ListingPromotion) error
	// AdmitWithSlotGuard inserts the promotion as active when the
	// category still has a free slot, otherwise as queued. A per-category
	// advisory lock serializes concurrent admissions so two purchases
	// cannot both grab the last slot.
	AdmitWithSlotGuard(ctx context.Context, promotion *db_models.ListingPromotion, maxSlots int32, durationDays int32, now int64) error
	GetByID(ctx context.Context, id uuid.UUID) (*db_models.ListingPromotion, error)
	FindByPaymentIntent(ctx context.Context, paymentIntentID string) (*db_models.ListingPromotion, error)

	// State-guarded transitions. Each returns false when the row was not
	// in the expected source state anymore, i.e. a concurrent actor won.
	ActivateQueued(ctx context.Context, id uuid.UUID, startsAt int64, endsAt int64) (bool, error)
	MarkExpired(ctx context.Context, id uuid.UUID) (bool, error)
	Revoke(ctx context.Context, id uuid.UUID) (bool, error)

	ListDueActive(ctx context.Context, now int64) ([]db_models.ListingPromotion, error)
	CountActiveInCategory(ctx context.Context, category string, now int64) (int64, error)
	ListQueuedInCategory(ctx context.Context, category string, limit int) ([]db_models.ListingPromotion, error)
	ListQueuedCategories(ctx context.Context) ([]string, error)
}

type PromotionRepository struct {
	db *gorm.DB
}

func NewPromotionRepository(db *gorm.DB) IPromotionRepository {
	return &PromotionRepository{db: db}
}

func (r *PromotionRepository) Create(ctx context.Context, promotion *db_models.ListingPromotion) error {
	return r.db.WithContext(ctx).Create(promotion).Error
}

func (r *PromotionRepository) AdmitWithSlotGuard(ctx context.Context, promotion *db_models.ListingPromotion, maxSlots int32, durationDays int32, now int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", promotion.Category).Error; err != nil {
			return err
		}

		var active int64
		if err := tx.Model(&db_models.ListingPromotion{}).
			Where("category = ? AND status = ? AND ends_at > ?",
				promotion.Category, db_models.PromotionActive, now).
			Count(&active).Error; err != nil {
			return err
		}

		if active < int64(maxSlots) {
			startsAt := now
			endsAt := now + int64(durationDays)*86400
			promotion.Status = db_models.PromotionActive
			promotion.StartsAt = &startsAt
			promotion.EndsAt = &endsAt
		} else {
			promotion.Status = db_models.PromotionQueued
		}

		return tx.Create(promotion).Error
	})
}

func (r *PromotionRepository) GetByID(ctx context.Context, id uuid.UUID) (*db_models.ListingPromotion, error) {
	var promotion db_models.ListingPromotion
	err := r.db.WithContext(ctx).First(&promotion, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &promotion, nil
}

func (r *PromotionRepository) FindByPaymentIntent(ctx context.Context, paymentIntentID string) (*db_models.ListingPromotion, error) {
	var promotion db_models.ListingPromotion
	err := r.db.WithContext(ctx).
		Where("payment_intent_id = ?", paymentIntentID).
		First(&promotion).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &promotion, nil
}

func (r *PromotionRepository) ActivateQueued(ctx context.Context, id uuid.UUID, startsAt int64, endsAt int64) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&db_models.ListingPromotion{}).
		Where("id = ? AND status = ?", id, db_models.PromotionQueued).
		Updates(map[string]interface{}{
			"status":    db_models.PromotionActive,
			"starts_at": startsAt,
			"ends_at":   endsAt,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *PromotionRepository) MarkExpired(ctx context.Context, id uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&db_models.ListingPromotion{}).
		Where("id = ? AND status = ?", id, db_models.PromotionActive).
		Update("status", db_models.PromotionExpired)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *PromotionRepository) Revoke(ctx context.Context, id uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&db_models.ListingPromotion{}).
		Where("id = ? AND status IN ?", id,
			[]db_models.PromotionStatus{db_models.PromotionQueued, db_models.PromotionActive}).
		Update("status", db_models.PromotionRevoked)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *PromotionRepository) ListDueActive(ctx context.Context, now int64) ([]db_models.ListingPromotion, error) {
	var due []db_models.ListingPromotion
	err := r.db.WithContext(ctx).
		Where("status = ? AND ends_at <= ?", db_models.PromotionActive, now).
		Find(&due).Error
	return due, err
}

func (r *PromotionRepository) CountActiveInCategory(ctx context.Context, category string, now int64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db_models.ListingPromotion{}).
		Where("category = ? AND status = ? AND ends_at > ?", category, db_models.PromotionActive, now).
		Count(&count).Error
	return count, err
}

func (r *PromotionRepository) ListQueuedInCategory(ctx context.Context, category string, limit int) ([]db_models.ListingPromotion, error) {
	var queued []db_models.ListingPromotion
	q := r.db.WithContext(ctx).
		Where("category = ? AND status = ?", category, db_models.PromotionQueued).
		Order("priority_weight DESC, created_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&queued).Error
	return queued, err
}

func (r *PromotionRepository) ListQueuedCategories(ctx context.Context) ([]string, error) {
	var categories []string
	err := r.db.WithContext(ctx).
		Model(&db_models.ListingPromotion{}).
		Where("status = ?", db_models.PromotionQueued).
		Distinct().
		Pluck("category", &categories).Error
	return categories, err
}
