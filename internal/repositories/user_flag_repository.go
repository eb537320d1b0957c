package repositories

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"oglasnik/internal/models/db_models"
)

type IUserFlagRepository interface {
	GetByUserID(ctx context.Context, userID uuid.UUID) (*db_models.UserPromotionFlag, error)
	// RecordRefund bumps the rolling refund counter and flips is_blocked
	// once the counter reaches blockThreshold, all inside one transaction.
	RecordRefund(ctx context.Context, userID uuid.UUID, now int64, blockThreshold int32) (*db_models.UserPromotionFlag, error)
	SetDisputeActive(ctx context.Context, userID uuid.UUID, active bool) error
	// UnblockCooledDown clears blocks whose last refund predates cutoff
	// and that carry no open dispute. Returns the unblocked user ids.
	UnblockCooledDown(ctx context.Context, cutoff int64) ([]uuid.UUID, error)
}

type UserFlagRepository struct {
	db *gorm.DB
}

func NewUserFlagRepository(db *gorm.DB) IUserFlagRepository {
	return &UserFlagRepository{db: db}
}

func (r *UserFlagRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*db_models.UserPromotionFlag, error) {
	var flag db_models.UserPromotionFlag
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&flag).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &flag, nil
}

func (r *UserFlagRepository) RecordRefund(ctx context.Context, userID uuid.UUID, now int64, blockThreshold int32) (*db_models.UserPromotionFlag, error) {
	var flag db_models.UserPromotionFlag

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Make sure the row exists without clobbering existing counters.
		seed := db_models.UserPromotionFlag{UserID: userID}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoNothing: true,
		}).Create(&seed).Error; err != nil {
			return err
		}

		if err := tx.Model(&db_models.UserPromotionFlag{}).
			Where("user_id = ?", userID).
			Updates(map[string]interface{}{
				"refund_count_30d": gorm.Expr("refund_count_30d + 1"),
				"last_refund_at":   now,
			}).Error; err != nil {
			return err
		}

		if err := tx.Model(&db_models.UserPromotionFlag{}).
			Where("user_id = ? AND refund_count_30d >= ?", userID, blockThreshold).
			Update("is_blocked", true).Error; err != nil {
			return err
		}

		return tx.Where("user_id = ?", userID).First(&flag).Error
	})

	if err != nil {
		return nil, err
	}

	return &flag, nil
}

func (r *UserFlagRepository) SetDisputeActive(ctx context.Context, userID uuid.UUID, active bool) error {
	seed := db_models.UserPromotionFlag{UserID: userID, ActiveDispute: active}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{"active_dispute": active}),
		}).
		Create(&seed).Error
}

func (r *UserFlagRepository) UnblockCooledDown(ctx context.Context, cutoff int64) ([]uuid.UUID, error) {
	var candidates []db_models.UserPromotionFlag
	err := r.db.WithContext(ctx).
		Where("is_blocked = TRUE AND active_dispute = FALSE AND last_refund_at < ?", cutoff).
		Find(&candidates).Error
	if err != nil {
		return nil, err
	}

	var unblocked []uuid.UUID
	for _, candidate := range candidates {
		// Guarded per row so a concurrent refund that re-blocks between
		// the select and this update is not silently wiped out.
		res := r.db.WithContext(ctx).
			Model(&db_models.UserPromotionFlag{}).
			Where("user_id = ? AND is_blocked = TRUE AND active_dispute = FALSE AND last_refund_at < ?",
				candidate.UserID, cutoff).
			Updates(map[string]interface{}{
				"refund_count_30d": 0,
				"is_blocked":       false,
			})
		if res.Error != nil {
			return unblocked, res.Error
		}
		if res.RowsAffected > 0 {
			unblocked = append(unblocked, candidate.UserID)
		}
	}

	return unblocked, nil
}
