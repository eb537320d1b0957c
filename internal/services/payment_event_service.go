package services

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"oglasnik/internal/models/db_models"
	"oglasnik/internal/repositories"
	"oglasnik/pkg/utils"
)

// Event types the processor understands. Anything else is acknowledged
// and ignored so new provider event types never break the webhook.
const (
	EventCheckoutCompleted = "checkout.session.completed"
	EventChargeRefunded    = "charge.refunded"
	EventDisputeCreated    = "charge.dispute.created"
	EventDisputeClosed     = "charge.dispute.closed"
)

// ProviderEvent is one verified payment-provider event. Signature
// verification happens in the webhook controller before this struct is
// ever built.
type ProviderEvent struct {
	ID                string
	Type              string
	AmountTotal       int64
	Currency          string
	PaymentIntentID   string
	CheckoutSessionID string
	CustomerEmail     string
	Metadata          map[string]string
}

type PaymentEventService interface {
	// HandleEvent routes one event. A nil return acknowledges the event;
	// a retryable error tells the webhook to answer 5xx so the provider
	// redelivers.
	HandleEvent(ctx context.Context, event *ProviderEvent) error
}

type PaymentEventConfig struct {
	// RefundBlockThreshold is the rolling refund count that flips a
	// buyer's fraud block.
	RefundBlockThreshold int32
}

type paymentEventService struct {
	eventRepo     repositories.IPaymentEventRepository
	promotionRepo repositories.IPromotionRepository
	userFlagRepo  repositories.IUserFlagRepository
	auditRepo     repositories.IAuditRepository
	promotions    PromotionService
	referral      ReferralService
	cfg           PaymentEventConfig
}

func NewPaymentEventService(
	eventRepo repositories.IPaymentEventRepository,
	promotionRepo repositories.IPromotionRepository,
	userFlagRepo repositories.IUserFlagRepository,
	auditRepo repositories.IAuditRepository,
	promotions PromotionService,
	referral ReferralService,
	cfg PaymentEventConfig,
) PaymentEventService {
	if cfg.RefundBlockThreshold <= 0 {
		cfg.RefundBlockThreshold = 3
	}
	return &paymentEventService{
		eventRepo:     eventRepo,
		promotionRepo: promotionRepo,
		userFlagRepo:  userFlagRepo,
		auditRepo:     auditRepo,
		promotions:    promotions,
		referral:      referral,
		cfg:           cfg,
	}
}

func (s *paymentEventService) HandleEvent(ctx context.Context, event *ProviderEvent) error {
	// Idempotency check runs strictly before any side-effecting work.
	accepted, err := s.eventRepo.RecordEvent(ctx, event.ID, event.Type)
	if err != nil {
		return utils.Retryable(err)
	}
	if !accepted {
		log.Printf("webhook: duplicate event %s (%s) acknowledged", event.ID, event.Type)
		return nil
	}

	switch event.Type {
	case EventCheckoutCompleted:
		err = s.handleCheckoutCompleted(ctx, event)
	case EventChargeRefunded:
		err = s.handleRefund(ctx, event)
	case EventDisputeCreated:
		err = s.handleDispute(ctx, event, true)
	case EventDisputeClosed:
		err = s.handleDispute(ctx, event, false)
	default:
		log.Printf("webhook: ignoring event type %s", event.Type)
		return nil
	}

	if utils.IsRetryable(err) {
		// The apply failed after the ledger insert. Release the ledger
		// row so the provider's redelivery is processed instead of being
		// short-circuited as a duplicate.
		if relErr := s.eventRepo.ReleaseEvent(ctx, event.ID); relErr != nil {
			log.Printf("webhook: releasing event %s failed: %v", event.ID, relErr)
		}
	}

	return err
}

func (s *paymentEventService) handleCheckoutCompleted(ctx context.Context, event *ProviderEvent) error {
	listingID, err1 := uuid.Parse(event.Metadata["listing_id"])
	packageID, err2 := uuid.Parse(event.Metadata["package_id"])
	userID, err3 := uuid.Parse(event.Metadata["user_id"])
	if err1 != nil || err2 != nil || err3 != nil {
		// Malformed metadata cannot become valid through retries.
		s.audit(ctx, db_models.AuditLogEntry{
			EventType:       db_models.AuditError,
			PaymentIntentID: optional(event.PaymentIntentID),
			Metadata: jsonMeta(map[string]interface{}{
				"stage":    "checkout_metadata",
				"event_id": event.ID,
				"message":  "missing or invalid listing_id/package_id/user_id",
			}),
		})
		return nil
	}

	_, err := s.promotions.AdmitPurchase(ctx, AdmissionParams{
		ListingID:       listingID,
		PackageID:       packageID,
		UserID:          userID,
		PaymentIntentID: event.PaymentIntentID,
		AmountMinor:     event.AmountTotal,
		Currency:        event.Currency,
	})
	if err != nil {
		s.audit(ctx, db_models.AuditLogEntry{
			EventType:       db_models.AuditError,
			ListingID:       &listingID,
			UserID:          &userID,
			PaymentIntentID: optional(event.PaymentIntentID),
			Metadata: jsonMeta(map[string]interface{}{
				"stage":   "admit_purchase",
				"message": err.Error(),
			}),
		})
		// Propagate as retryable: the payment is settled, the promotion
		// must not be silently dropped.
		return utils.Retryable(err)
	}

	s.attributeReferral(ctx, event, listingID, userID)
	return nil
}

// attributeReferral is fail-open by design: a broken referral code or a
// failed attribution write annotates nothing but never disturbs the
// already-admitted promotion.
func (s *paymentEventService) attributeReferral(ctx context.Context, event *ProviderEvent, listingID uuid.UUID, userID uuid.UUID) {
	referralCode := event.Metadata["referral_code"]
	if referralCode == "" {
		return
	}

	partner := s.referral.ValidateCode(ctx, referralCode)
	isSelf, reason := s.referral.Classify(partner, userID, event.CustomerEmail)

	attribution := &db_models.ReferralAttribution{
		CheckoutSessionID: event.CheckoutSessionID,
		PaymentIntentID:   optional(event.PaymentIntentID),
		PartnerCode:       optional(referralCode),
		UserID:            userID,
		ListingID:         listingID,
		UTMSource:         optional(event.Metadata["utm_source"]),
		UTMMedium:         optional(event.Metadata["utm_medium"]),
		UTMCampaign:       optional(event.Metadata["utm_campaign"]),
		IsSelfReferral:    isSelf,
		AmountTotalMinor:  event.AmountTotal,
		Currency:          event.Currency,
	}
	if reason != "" {
		attribution.SelfReferralReason = &reason
	}

	if err := s.referral.RecordAttribution(ctx, attribution); err != nil {
		log.Printf("webhook: attribution upsert failed for session %s: %v", event.CheckoutSessionID, err)
		return
	}

	eventType := db_models.AuditReferralAttributed
	if isSelf {
		eventType = db_models.AuditSelfReferralDetected
	}
	s.audit(ctx, db_models.AuditLogEntry{
		EventType:       eventType,
		ListingID:       &listingID,
		UserID:          &userID,
		PaymentIntentID: optional(event.PaymentIntentID),
		Metadata: jsonMeta(map[string]interface{}{
			"partner_code": referralCode,
			"reason":       reason,
			"utm_source":   event.Metadata["utm_source"],
		}),
	})
}

func (s *paymentEventService) handleRefund(ctx context.Context, event *ProviderEvent) error {
	s.audit(ctx, db_models.AuditLogEntry{
		EventType:       db_models.AuditRefund,
		PaymentIntentID: optional(event.PaymentIntentID),
		Metadata: jsonMeta(map[string]interface{}{
			"amount":   event.AmountTotal,
			"currency": event.Currency,
		}),
	})

	userID, ok := s.resolveBuyer(ctx, event)
	if !ok {
		// No promotion on record for this payment; audit entry above is
		// all we can do.
		return nil
	}

	flag, err := s.userFlagRepo.RecordRefund(ctx, userID, time.Now().Unix(), s.cfg.RefundBlockThreshold)
	if err != nil {
		return utils.Retryable(err)
	}

	if flag.IsBlocked && flag.RefundCount30d == s.cfg.RefundBlockThreshold {
		s.audit(ctx, db_models.AuditLogEntry{
			EventType: db_models.AuditUserBlocked,
			UserID:    &userID,
			Metadata: jsonMeta(map[string]interface{}{
				"refund_count_30d": flag.RefundCount30d,
				"threshold":        s.cfg.RefundBlockThreshold,
			}),
		})
	}

	return nil
}

func (s *paymentEventService) handleDispute(ctx context.Context, event *ProviderEvent, opened bool) error {
	eventType := db_models.AuditDisputeClosed
	if opened {
		eventType = db_models.AuditDisputeCreated
	}
	s.audit(ctx, db_models.AuditLogEntry{
		EventType:       eventType,
		PaymentIntentID: optional(event.PaymentIntentID),
		Metadata: jsonMeta(map[string]interface{}{
			"amount":   event.AmountTotal,
			"currency": event.Currency,
		}),
	})

	userID, ok := s.resolveBuyer(ctx, event)
	if !ok {
		return nil
	}

	if err := s.userFlagRepo.SetDisputeActive(ctx, userID, opened); err != nil {
		return utils.Retryable(err)
	}

	return nil
}

// resolveBuyer maps a payment intent back to the buyer through the
// promotion record, falling back to event metadata.
func (s *paymentEventService) resolveBuyer(ctx context.Context, event *ProviderEvent) (uuid.UUID, bool) {
	if event.PaymentIntentID != "" {
		promotion, err := s.promotionRepo.FindByPaymentIntent(ctx, event.PaymentIntentID)
		if err != nil {
			log.Printf("webhook: promotion lookup for intent %s failed: %v", event.PaymentIntentID, err)
		} else if promotion != nil {
			return promotion.UserID, true
		}
	}

	if raw := event.Metadata["user_id"]; raw != "" {
		if userID, err := uuid.Parse(raw); err == nil {
			return userID, true
		}
	}

	return uuid.Nil, false
}

func (s *paymentEventService) audit(ctx context.Context, entry db_models.AuditLogEntry) {
	if err := s.auditRepo.Append(ctx, &entry); err != nil {
		log.Printf("audit: append %s failed: %v", entry.EventType, err)
	}
}
