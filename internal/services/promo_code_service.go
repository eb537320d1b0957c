package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"oglasnik/internal/models/db_models"
	"oglasnik/internal/models/request_models"
	"oglasnik/internal/repositories"
	"oglasnik/pkg/utils"
)

// RedeemResult reports the outcome of one redemption attempt. A rejected
// attempt is not an error: checkout continues at the regular price and
// the reason travels back to the caller.
type RedeemResult struct {
	Applied               bool
	Code                  string
	OverrideStripePriceID *string
	RejectReason          string
}

type PromoCodeService interface {
	Redeem(ctx context.Context, code string, userID uuid.UUID, listingID uuid.UUID, category string, packageID uuid.UUID, now time.Time) (*RedeemResult, error)
	ListCodes(ctx context.Context) ([]db_models.PromoCode, error)
	UpsertCode(ctx context.Context, req *request_models.UpsertPromoCodeRequest) (*db_models.PromoCode, error)
}

type promoCodeService struct {
	promoRepo repositories.IPromoCodeRepository
}

func NewPromoCodeService(promoRepo repositories.IPromoCodeRepository) PromoCodeService {
	return &promoCodeService{promoRepo: promoRepo}
}

func (s *promoCodeService) Redeem(ctx context.Context, code string, userID uuid.UUID, listingID uuid.UUID, category string, packageID uuid.UUID, now time.Time) (*RedeemResult, error) {
	normalized := strings.ToUpper(strings.TrimSpace(code))
	rejected := func(reason string) *RedeemResult {
		return &RedeemResult{Code: normalized, RejectReason: reason}
	}

	promo, err := s.promoRepo.GetActiveByCode(ctx, normalized, now.Unix())
	if err != nil {
		return nil, err
	}
	if promo == nil {
		return rejected(utils.ReasonCodeNotFound), nil
	}

	if promo.MaxUses != nil && promo.UsedCount >= *promo.MaxUses {
		return rejected(utils.ReasonGlobalLimitReached), nil
	}

	if len(promo.AllowedCategories) > 0 && !contains(promo.AllowedCategories, category) {
		return rejected(utils.ReasonCategoryNotAllowed), nil
	}

	if len(promo.AllowedPackages) > 0 && !contains(promo.AllowedPackages, packageID.String()) {
		return rejected(utils.ReasonPackageNotAllowed), nil
	}

	if promo.MaxUsesPerUser != nil {
		userUses, err := s.promoRepo.CountUserRedemptions(ctx, normalized, userID)
		if err != nil {
			return nil, err
		}
		if userUses >= int64(*promo.MaxUsesPerUser) {
			return rejected(utils.ReasonUserLimitReached), nil
		}
	}

	// All reads passed; the write re-checks the global limit so two
	// concurrent redeemers cannot both take the last remaining use.
	applied, err := s.promoRepo.RedeemAtomically(ctx, normalized, userID, listingID)
	if err != nil {
		return nil, err
	}
	if !applied {
		return rejected(utils.ReasonRaceConditionLimit), nil
	}

	return &RedeemResult{
		Applied:               true,
		Code:                  normalized,
		OverrideStripePriceID: promo.OverrideStripePriceID,
	}, nil
}

func (s *promoCodeService) ListCodes(ctx context.Context) ([]db_models.PromoCode, error) {
	return s.promoRepo.ListCodes(ctx)
}

func (s *promoCodeService) UpsertCode(ctx context.Context, req *request_models.UpsertPromoCodeRequest) (*db_models.PromoCode, error) {
	promo := &db_models.PromoCode{
		Code:                  strings.ToUpper(strings.TrimSpace(req.Code)),
		Active:                req.Active,
		StartsAt:              req.StartsAt,
		EndsAt:                req.EndsAt,
		MaxUses:               req.MaxUses,
		MaxUsesPerUser:        req.MaxUsesPerUser,
		AllowedCategories:     req.AllowedCategories,
		AllowedPackages:       req.AllowedPackages,
		OverrideStripePriceID: req.OverrideStripePriceID,
	}
	if promo.StartsAt == 0 {
		promo.StartsAt = time.Now().Unix()
	}

	if err := s.promoRepo.UpsertCode(ctx, promo); err != nil {
		return nil, err
	}

	return promo, nil
}

func contains(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}
