package repositories

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"oglasnik/internal/models/db_models"
	"oglasnik/pkg/utils"
)

type IPromoCodeRepository interface {
	GetActiveByCode(ctx context.Context, code string, now int64) (*db_models.PromoCode, error)
	CountUserRedemptions(ctx context.Context, code string, userID uuid.UUID) (int64, error)
	// RedeemAtomically bumps used_count only while it is still below
	// max_uses and appends the redemption row in the same transaction.
	// Returns false when the conditional update lost the race.
	RedeemAtomically(ctx context.Context, code string, userID uuid.UUID, listingID uuid.UUID) (bool, error)
	ListCodes(ctx context.Context) ([]db_models.PromoCode, error)
	UpsertCode(ctx context.Context, promo *db_models.PromoCode) error
}

type PromoCodeRepository struct {
	db *gorm.DB
}

func NewPromoCodeRepository(db *gorm.DB) IPromoCodeRepository {
	return &PromoCodeRepository{db: db}
}

func (r *PromoCodeRepository) GetActiveByCode(ctx context.Context, code string, now int64) (*db_models.PromoCode, error) {
	var promo db_models.PromoCode
	err := r.db.WithContext(ctx).
		Where("code = ? AND active = TRUE AND starts_at <= ? AND (ends_at IS NULL OR ends_at > ?)",
			code, now, now).
		First(&promo).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &promo, nil
}

func (r *PromoCodeRepository) CountUserRedemptions(ctx context.Context, code string, userID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db_models.PromoCodeRedemption{}).
		Where("code = ? AND user_id = ?", code, userID).
		Count(&count).Error

	return count, err
}

func (r *PromoCodeRepository) RedeemAtomically(ctx context.Context, code string, userID uuid.UUID, listingID uuid.UUID) (bool, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&db_models.PromoCode{}).
			Where("code = ? AND (max_uses IS NULL OR used_count < max_uses)", code).
			UpdateColumn("used_count", gorm.Expr("used_count + 1"))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// Another redeemer took the last remaining use between our
			// validation read and this write.
			return utils.ErrConflict
		}

		return tx.Create(&db_models.PromoCodeRedemption{
			Code:      code,
			UserID:    userID,
			ListingID: listingID,
		}).Error
	})

	if errors.Is(err, utils.ErrConflict) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	return true, nil
}

func (r *PromoCodeRepository) ListCodes(ctx context.Context) ([]db_models.PromoCode, error) {
	var codes []db_models.PromoCode
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Find(&codes).Error

	return codes, err
}

func (r *PromoCodeRepository) UpsertCode(ctx context.Context, promo *db_models.PromoCode) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "code"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"active", "starts_at", "ends_at", "max_uses", "max_uses_per_user",
				"allowed_categories", "allowed_packages", "override_stripe_price_id",
				"updated_at",
			}),
		}).
		Create(promo).Error
}
