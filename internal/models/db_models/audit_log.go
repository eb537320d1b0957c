package db_models

import (
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Audit event types written by the promotion core. The log is append-only
// and never read back by the core itself.
const (
	AuditCheckoutStarted      = "checkout_started"
	AuditReferralCaptured     = "referral_captured"
	AuditReferralAttributed   = "referral_attributed"
	AuditSelfReferralDetected = "self_referral_detected"
	AuditPromotionActivated   = "activated"
	AuditPromotionQueued      = "queued"
	AuditActivatedFromQueue   = "activated_from_queue"
	AuditPromotionExpired     = "expired"
	AuditPromotionRevoked     = "revoked"
	AuditRefund               = "refund"
	AuditDisputeCreated       = "dispute_created"
	AuditDisputeClosed        = "dispute_closed"
	AuditUserBlocked          = "blocked"
	AuditUserUnblocked        = "unblocked"
	AuditPartnerKeyCreated    = "admin_partner_key_created"
	AuditPartnerKeyRevoked    = "admin_partner_key_revoked"
	AuditPartnerMetricsViewed = "partner_metrics_viewed"
	AuditPayoutsViewed        = "admin_payouts_viewed"
	AuditError                = "error"
)

type AuditLogEntry struct {
	BaseModel
	EventType       string     `gorm:"index;not null"`
	ListingID       *uuid.UUID `gorm:"index"`
	UserID          *uuid.UUID `gorm:"index"`
	PaymentIntentID *string
	Category        *string
	Metadata        datatypes.JSON `gorm:"type:jsonb;default:'{}'"`
}

func (AuditLogEntry) TableName() string { return "promotion_audit_log" }
