package repositories

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"oglasnik/internal/models/db_models"
)

// PartnerPayoutRow is one aggregated payout line for the admin report.
type PartnerPayoutRow struct {
	PartnerCode      string
	PayoutPercent    float64
	AttributionCount int64
	GrossMinor       int64
}

type IReferralRepository interface {
	GetActivePartner(ctx context.Context, code string) (*db_models.ReferralPartner, error)
	// UpsertAttribution is keyed by checkout_session_id: replays of the
	// same webhook overwrite the row instead of duplicating it.
	UpsertAttribution(ctx context.Context, attribution *db_models.ReferralAttribution) error

	CreatePartnerKey(ctx context.Context, key *db_models.PartnerAPIKey) error
	RevokePartnerKey(ctx context.Context, keyID uuid.UUID, now int64) (bool, error)
	ListActiveKeys(ctx context.Context) ([]db_models.PartnerAPIKey, error)
	PartnerPayouts(ctx context.Context, from int64, to int64) ([]PartnerPayoutRow, error)
	// ListPartnerAttributions pages one partner's non-self-referral
	// conversions, newest first.
	ListPartnerAttributions(ctx context.Context, partnerCode string, from int64, to int64, limit int, offset int) ([]db_models.ReferralAttribution, error)
}

type ReferralRepository struct {
	db *gorm.DB
}

func NewReferralRepository(db *gorm.DB) IReferralRepository {
	return &ReferralRepository{db: db}
}

func (r *ReferralRepository) GetActivePartner(ctx context.Context, code string) (*db_models.ReferralPartner, error) {
	var partner db_models.ReferralPartner
	err := r.db.WithContext(ctx).
		Where("code = ? AND active = TRUE", code).
		First(&partner).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &partner, nil
}

func (r *ReferralRepository) UpsertAttribution(ctx context.Context, attribution *db_models.ReferralAttribution) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "checkout_session_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"payment_intent_id", "partner_code", "user_id", "listing_id",
				"utm_source", "utm_medium", "utm_campaign", "utm_content", "utm_term",
				"is_self_referral", "self_referral_reason",
				"amount_total_minor", "currency", "updated_at",
			}),
		}).
		Create(attribution).Error
}

func (r *ReferralRepository) CreatePartnerKey(ctx context.Context, key *db_models.PartnerAPIKey) error {
	return r.db.WithContext(ctx).Create(key).Error
}

func (r *ReferralRepository) RevokePartnerKey(ctx context.Context, keyID uuid.UUID, now int64) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&db_models.PartnerAPIKey{}).
		Where("id = ? AND revoked_at IS NULL", keyID).
		Update("revoked_at", now)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *ReferralRepository) ListActiveKeys(ctx context.Context) ([]db_models.PartnerAPIKey, error) {
	var keys []db_models.PartnerAPIKey
	err := r.db.WithContext(ctx).
		Where("revoked_at IS NULL").
		Find(&keys).Error
	return keys, err
}

func (r *ReferralRepository) ListPartnerAttributions(ctx context.Context, partnerCode string, from int64, to int64, limit int, offset int) ([]db_models.ReferralAttribution, error) {
	var attributions []db_models.ReferralAttribution
	err := r.db.WithContext(ctx).
		Where("partner_code = ? AND is_self_referral = FALSE AND created_at >= ? AND created_at < ?",
			partnerCode, from, to).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&attributions).Error
	return attributions, err
}

func (r *ReferralRepository) PartnerPayouts(ctx context.Context, from int64, to int64) ([]PartnerPayoutRow, error) {
	var rows []PartnerPayoutRow
	err := r.db.WithContext(ctx).Raw(`
		SELECT p.code AS partner_code,
		       p.payout_percent,
		       COUNT(a.id) AS attribution_count,
		       COALESCE(SUM(a.amount_total_minor), 0) AS gross_minor
		FROM referral_partners p
		JOIN referral_attributions a ON a.partner_code = p.code
		WHERE a.is_self_referral = FALSE
		  AND a.created_at >= ? AND a.created_at < ?
		GROUP BY p.code, p.payout_percent
		ORDER BY gross_minor DESC`, from, to).
		Scan(&rows).Error

	return rows, err
}
