package services

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"oglasnik/internal/models/db_models"
	"oglasnik/internal/models/request_models"
	"oglasnik/internal/models/response_models"
	"oglasnik/internal/repositories"
	"oglasnik/pkg/utils"
)

// FraudCooldownDays is how long a refund-based block lasts once refunds
// stop and no dispute is open.
const FraudCooldownDays = 30

// AdmissionParams carries everything the lifecycle manager needs to
// admit one paid promotion. PaymentIntentID may be empty for purchases
// settled outside the webhook path.
type AdmissionParams struct {
	ListingID       uuid.UUID
	PackageID       uuid.UUID
	UserID          uuid.UUID
	PaymentIntentID string
	AmountMinor     int64
	Currency        string
}

type PromotionService interface {
	// RequestPromotion validates the purchase (ownership, fraud flag,
	// promo code, referral code) and selects the checkout price. No
	// promotion row is written here; admission happens once the payment
	// settles and the webhook delivers checkout.session.completed.
	RequestPromotion(ctx context.Context, userID uuid.UUID, userEmail string, req *request_models.CreatePromotionCheckoutRequest) (*response_models.PromotionCheckoutResponse, error)

	// AdmitPurchase creates the promotion active when a slot is free,
	// queued otherwise. Idempotent on PaymentIntentID.
	AdmitPurchase(ctx context.Context, params AdmissionParams) (*db_models.ListingPromotion, error)

	// Revoke is the administrative override; valid from queued or active.
	Revoke(ctx context.Context, promotionID uuid.UUID) error

	// RunExpirySweep expires due promotions, drains category queues into
	// freed slots and lifts cooled-down fraud blocks, in that order.
	RunExpirySweep(ctx context.Context) (*response_models.SweepResultResponse, error)

	ListSlotLimits(ctx context.Context) ([]db_models.PromotionSlotLimit, error)
	UpsertSlotLimit(ctx context.Context, req *request_models.UpsertSlotLimitRequest) (*db_models.PromotionSlotLimit, error)
}

type promotionService struct {
	promotionRepo repositories.IPromotionRepository
	slotRepo      repositories.ISlotLimitRepository
	packageRepo   repositories.IPackageRepository
	adRepo        repositories.IAdRepository
	userFlagRepo  repositories.IUserFlagRepository
	auditRepo     repositories.IAuditRepository
	promoService  PromoCodeService
	referral      ReferralService
}

func NewPromotionService(
	promotionRepo repositories.IPromotionRepository,
	slotRepo repositories.ISlotLimitRepository,
	packageRepo repositories.IPackageRepository,
	adRepo repositories.IAdRepository,
	userFlagRepo repositories.IUserFlagRepository,
	auditRepo repositories.IAuditRepository,
	promoService PromoCodeService,
	referral ReferralService,
) PromotionService {
	return &promotionService{
		promotionRepo: promotionRepo,
		slotRepo:      slotRepo,
		packageRepo:   packageRepo,
		adRepo:        adRepo,
		userFlagRepo:  userFlagRepo,
		auditRepo:     auditRepo,
		promoService:  promoService,
		referral:      referral,
	}
}

func (s *promotionService) RequestPromotion(ctx context.Context, userID uuid.UUID, userEmail string, req *request_models.CreatePromotionCheckoutRequest) (*response_models.PromotionCheckoutResponse, error) {
	listingID, err := uuid.Parse(req.ListingID)
	if err != nil {
		return nil, utils.ErrListingNotFound
	}
	packageID, err := uuid.Parse(req.PackageID)
	if err != nil {
		return nil, utils.ErrPackageNotFound
	}

	listing, err := s.adRepo.GetListingByID(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if listing == nil {
		return nil, utils.ErrListingNotFound
	}
	if listing.OwnerID != userID {
		return nil, utils.ErrNotListingOwner
	}

	flag, err := s.userFlagRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if flag != nil && flag.IsBlocked {
		return nil, utils.ErrUserBlocked
	}

	pkg, err := s.packageRepo.GetPackageByID(ctx, packageID)
	if err != nil {
		return nil, err
	}
	if pkg == nil {
		return nil, utils.ErrPackageNotFound
	}

	resp := &response_models.PromotionCheckoutResponse{}

	// Promo rejection does not abort the purchase; checkout simply
	// proceeds at the regular price with the reason reported back.
	var overridePriceID *string
	if req.PromoCode != "" {
		redeem, err := s.promoService.Redeem(ctx, req.PromoCode, userID, listingID, listing.Category, packageID, time.Now())
		if err != nil {
			return nil, err
		}
		if redeem.Applied {
			resp.AppliedPromoCode = redeem.Code
			overridePriceID = redeem.OverrideStripePriceID
		} else {
			resp.PromoRejectReason = redeem.RejectReason
		}
	}

	partner := s.referral.ValidateCode(ctx, req.ReferralCode)
	if partner != nil {
		resp.ReferralCode = partner.Code
	}

	priceID, err := s.selectPriceID(ctx, pkg, listing.Category, overridePriceID)
	if err != nil {
		return nil, err
	}
	resp.StripePriceID = priceID

	// Tell the buyer what admission will most likely yield once their
	// payment settles. Non-binding: the webhook re-checks under the
	// category lock.
	maxSlots, err := s.slotRepo.GetMaxSlots(ctx, listing.Category)
	if err != nil {
		return nil, err
	}
	active, err := s.promotionRepo.CountActiveInCategory(ctx, listing.Category, time.Now().Unix())
	if err != nil {
		return nil, err
	}
	resp.PredictedStatus = string(db_models.PromotionQueued)
	if active < int64(maxSlots) {
		resp.PredictedStatus = string(db_models.PromotionActive)
	}

	eventType := db_models.AuditCheckoutStarted
	if partner != nil {
		eventType = db_models.AuditReferralCaptured
	}
	s.audit(ctx, db_models.AuditLogEntry{
		EventType: eventType,
		ListingID: &listingID,
		UserID:    &userID,
		Metadata: jsonMeta(map[string]interface{}{
			"package_id":    packageID.String(),
			"promo_code":    resp.AppliedPromoCode,
			"referral_code": resp.ReferralCode,
			"utm_source":    req.UTMSource,
		}),
	})

	return resp, nil
}

// selectPriceID resolves the final checkout price: promo override first,
// then the category-specific price, then the package default.
func (s *promotionService) selectPriceID(ctx context.Context, pkg *db_models.ProductPackage, category string, override *string) (string, error) {
	if override != nil && *override != "" {
		return *override, nil
	}

	catPrice, err := s.packageRepo.GetCategoryPrice(ctx, pkg.ID, category)
	if err != nil {
		return "", err
	}
	if catPrice != nil {
		return catPrice.StripePriceID, nil
	}

	return pkg.StripePriceID, nil
}

func (s *promotionService) AdmitPurchase(ctx context.Context, params AdmissionParams) (*db_models.ListingPromotion, error) {
	if params.PaymentIntentID != "" {
		existing, err := s.promotionRepo.FindByPaymentIntent(ctx, params.PaymentIntentID)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return existing, nil
		}
	}

	listing, err := s.adRepo.GetListingByID(ctx, params.ListingID)
	if err != nil {
		return nil, err
	}
	if listing == nil {
		return nil, utils.ErrListingNotFound
	}

	pkg, err := s.packageRepo.GetPackageByID(ctx, params.PackageID)
	if err != nil {
		return nil, err
	}
	if pkg == nil {
		return nil, utils.ErrPackageNotFound
	}

	maxSlots, err := s.slotRepo.GetMaxSlots(ctx, listing.Category)
	if err != nil {
		return nil, err
	}

	promotion := &db_models.ListingPromotion{
		ListingID:       params.ListingID,
		PackageID:       params.PackageID,
		UserID:          params.UserID,
		Category:        listing.Category,
		PriorityWeight:  pkg.PriorityWeight,
		PaymentIntentID: params.PaymentIntentID,
		AmountMinor:     params.AmountMinor,
		Currency:        params.Currency,
	}

	now := time.Now().Unix()
	if err := s.promotionRepo.AdmitWithSlotGuard(ctx, promotion, maxSlots, pkg.DurationDays, now); err != nil {
		return nil, err
	}

	eventType := db_models.AuditPromotionQueued
	if promotion.Status == db_models.PromotionActive {
		eventType = db_models.AuditPromotionActivated
	}
	s.audit(ctx, db_models.AuditLogEntry{
		EventType:       eventType,
		ListingID:       &promotion.ListingID,
		UserID:          &promotion.UserID,
		PaymentIntentID: optional(params.PaymentIntentID),
		Category:        &promotion.Category,
		Metadata: jsonMeta(map[string]interface{}{
			"promotion_id":    promotion.ID.String(),
			"package_id":      params.PackageID.String(),
			"priority_weight": promotion.PriorityWeight,
		}),
	})

	return promotion, nil
}

func (s *promotionService) Revoke(ctx context.Context, promotionID uuid.UUID) error {
	promotion, err := s.promotionRepo.GetByID(ctx, promotionID)
	if err != nil {
		return err
	}
	if promotion == nil {
		return utils.ErrPromotionNotFound
	}

	ok, err := s.promotionRepo.Revoke(ctx, promotionID)
	if err != nil {
		return err
	}
	if !ok {
		// Already expired or revoked by someone else.
		return utils.ErrConflict
	}

	s.audit(ctx, db_models.AuditLogEntry{
		EventType: db_models.AuditPromotionRevoked,
		ListingID: &promotion.ListingID,
		UserID:    &promotion.UserID,
		Category:  &promotion.Category,
		Metadata:  jsonMeta(map[string]interface{}{"promotion_id": promotionID.String()}),
	})

	return nil
}

func (s *promotionService) RunExpirySweep(ctx context.Context) (*response_models.SweepResultResponse, error) {
	result := &response_models.SweepResultResponse{}
	now := time.Now().Unix()

	// Expire first so freed slots are visible to the activation step and
	// the category never goes transiently over capacity.
	expired, err := s.expireDue(ctx, now)
	if err != nil {
		return result, s.sweepError(ctx, "expire", err)
	}
	result.ExpiredCount = expired

	activated, err := s.drainQueues(ctx, now)
	if err != nil {
		return result, s.sweepError(ctx, "queue_activation", err)
	}
	result.ActivatedCount = activated

	unblocked, err := s.liftCooledDownBlocks(ctx, now)
	if err != nil {
		return result, s.sweepError(ctx, "fraud_guard", err)
	}
	result.UnblockedCount = unblocked

	return result, nil
}

func (s *promotionService) expireDue(ctx context.Context, now int64) (int, error) {
	due, err := s.promotionRepo.ListDueActive(ctx, now)
	if err != nil {
		return 0, err
	}

	var entries []db_models.AuditLogEntry
	count := 0
	for _, promotion := range due {
		ok, err := s.promotionRepo.MarkExpired(ctx, promotion.ID)
		if err != nil {
			return count, err
		}
		if !ok {
			// A concurrent sweep already transitioned this one.
			continue
		}
		count++
		entries = append(entries, db_models.AuditLogEntry{
			EventType: db_models.AuditPromotionExpired,
			ListingID: &promotion.ListingID,
			UserID:    &promotion.UserID,
			Category:  &promotion.Category,
			Metadata: jsonMeta(map[string]interface{}{
				"promotion_id": promotion.ID.String(),
				"package_id":   promotion.PackageID.String(),
			}),
		})
	}

	if err := s.auditRepo.AppendAll(ctx, entries); err != nil {
		log.Printf("sweep: audit append failed: %v", err)
	}

	return count, nil
}

func (s *promotionService) drainQueues(ctx context.Context, now int64) (int, error) {
	categories, err := s.promotionRepo.ListQueuedCategories(ctx)
	if err != nil {
		return 0, err
	}

	total := 0
	for _, category := range categories {
		maxSlots, err := s.slotRepo.GetMaxSlots(ctx, category)
		if err != nil {
			return total, err
		}

		// Active count is snapshotted once per category per cycle; a
		// skipped candidate does not eat into the remaining budget
		// because only confirmed transitions are counted below.
		active, err := s.promotionRepo.CountActiveInCategory(ctx, category, now)
		if err != nil {
			return total, err
		}

		slotsAvailable := int(int64(maxSlots) - active)
		if slotsAvailable <= 0 {
			continue
		}

		queued, err := s.promotionRepo.ListQueuedInCategory(ctx, category, 0)
		if err != nil {
			return total, err
		}

		activatedInCategory := 0
		for _, candidate := range queued {
			if activatedInCategory >= slotsAvailable {
				break
			}

			pkg, err := s.packageRepo.GetPackageByID(ctx, candidate.PackageID)
			if err != nil {
				return total, err
			}
			if pkg == nil {
				log.Printf("sweep: queued promotion %s references missing package %s", candidate.ID, candidate.PackageID)
				continue
			}

			endsAt := now + int64(pkg.DurationDays)*86400
			ok, err := s.promotionRepo.ActivateQueued(ctx, candidate.ID, now, endsAt)
			if err != nil {
				return total, err
			}
			if !ok {
				// Lost to a concurrent sweep; skip without burning a slot.
				continue
			}

			activatedInCategory++
			total++
			s.audit(ctx, db_models.AuditLogEntry{
				EventType: db_models.AuditActivatedFromQueue,
				ListingID: &candidate.ListingID,
				UserID:    &candidate.UserID,
				Category:  &candidate.Category,
				Metadata: jsonMeta(map[string]interface{}{
					"promotion_id":           candidate.ID.String(),
					"chosen_priority_weight": candidate.PriorityWeight,
					"chosen_created_at":      candidate.CreatedAt,
					"duration_applied":       pkg.DurationDays,
				}),
			})
		}
	}

	return total, nil
}

func (s *promotionService) liftCooledDownBlocks(ctx context.Context, now int64) (int, error) {
	cutoff := now - FraudCooldownDays*86400
	unblocked, err := s.userFlagRepo.UnblockCooledDown(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	var entries []db_models.AuditLogEntry
	for _, userID := range unblocked {
		id := userID
		entries = append(entries, db_models.AuditLogEntry{
			EventType: db_models.AuditUserUnblocked,
			UserID:    &id,
			Metadata:  jsonMeta(map[string]interface{}{"reason": "expiry_of_30d_period"}),
		})
	}
	if err := s.auditRepo.AppendAll(ctx, entries); err != nil {
		log.Printf("sweep: audit append failed: %v", err)
	}

	return len(unblocked), nil
}

func (s *promotionService) ListSlotLimits(ctx context.Context) ([]db_models.PromotionSlotLimit, error) {
	return s.slotRepo.ListLimits(ctx)
}

func (s *promotionService) UpsertSlotLimit(ctx context.Context, req *request_models.UpsertSlotLimitRequest) (*db_models.PromotionSlotLimit, error) {
	limit := &db_models.PromotionSlotLimit{
		Category: req.Category,
		MaxSlots: req.MaxSlots,
		Active:   req.Active,
	}
	if err := s.slotRepo.UpsertLimit(ctx, limit); err != nil {
		return nil, err
	}
	return limit, nil
}

func (s *promotionService) sweepError(ctx context.Context, stage string, err error) error {
	s.audit(ctx, db_models.AuditLogEntry{
		EventType: db_models.AuditError,
		Metadata:  jsonMeta(map[string]interface{}{"context": "expiry_sweep", "stage": stage, "error": err.Error()}),
	})
	return err
}

func (s *promotionService) audit(ctx context.Context, entry db_models.AuditLogEntry) {
	if err := s.auditRepo.Append(ctx, &entry); err != nil {
		log.Printf("audit: append %s failed: %v", entry.EventType, err)
	}
}

func jsonMeta(m map[string]interface{}) datatypes.JSON {
	b, _ := json.Marshal(m)
	return datatypes.JSON(b)
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
