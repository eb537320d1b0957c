package db_models

import (
	"github.com/google/uuid"
)

type ReferralPartner struct {
	BaseModel
	Code          string  `gorm:"uniqueIndex;not null"`
	Active        bool    `gorm:"default:true"`
	PayoutPercent float64 `gorm:"not null;default:0"`

	// OwnerUserID and Domain feed self-referral detection.
	OwnerUserID *uuid.UUID `gorm:"index"`
	Domain      *string
}

func (ReferralPartner) TableName() string { return "referral_partners" }

// ReferralAttribution links one checkout to the partner that referred it.
// Keyed by checkout session id so webhook replays overwrite instead of
// duplicating.
type ReferralAttribution struct {
	BaseModel
	CheckoutSessionID string  `gorm:"uniqueIndex;not null"`
	PaymentIntentID   *string `gorm:"index"`
	PartnerCode       *string `gorm:"index"`

	UserID    uuid.UUID `gorm:"index;not null"`
	ListingID uuid.UUID `gorm:"not null"`

	UTMSource   *string
	UTMMedium   *string
	UTMCampaign *string
	UTMContent  *string
	UTMTerm     *string

	IsSelfReferral     bool `gorm:"default:false"`
	SelfReferralReason *string

	// Captured from the payment event so payout reports do not need to
	// reach back into the payment provider.
	AmountTotalMinor int64
	Currency         string `gorm:"size:3"`
}

func (ReferralAttribution) TableName() string { return "referral_attributions" }

// PartnerAPIKey stores only the bcrypt hash; the raw key is shown once
// at creation and never again.
type PartnerAPIKey struct {
	BaseModel
	PartnerCode string `gorm:"index;not null"`
	KeyHash     string `gorm:"not null"`
	RevokedAt   *int64
}

func (PartnerAPIKey) TableName() string { return "partner_api_keys" }
