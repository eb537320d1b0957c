package db_models

import (
	"github.com/google/uuid"
)

type PromotionStatus string

const (
	PromotionQueued  PromotionStatus = "queued"
	PromotionActive  PromotionStatus = "active"
	PromotionExpired PromotionStatus = "expired"
	PromotionRevoked PromotionStatus = "revoked"
)

// promotionEdges is the closed edge set of the promotion state machine.
// expired and revoked are terminal; there are no backward edges.
var promotionEdges = map[PromotionStatus][]PromotionStatus{
	PromotionQueued: {PromotionActive, PromotionRevoked},
	PromotionActive: {PromotionExpired, PromotionRevoked},
}

func (s PromotionStatus) CanTransitionTo(next PromotionStatus) bool {
	for _, allowed := range promotionEdges[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s PromotionStatus) IsTerminal() bool {
	return len(promotionEdges[s]) == 0
}

// ListingPromotion is a paid visibility boost for one listing. Rows are
// never deleted; terminal statuses keep them around as history.
// Category is captured from the listing at admission time so slot counting
// does not need a join against ads on every sweep.
type ListingPromotion struct {
	BaseModel
	ListingID uuid.UUID `gorm:"index;not null"`
	PackageID uuid.UUID `gorm:"index;not null"`
	UserID    uuid.UUID `gorm:"index;not null"`
	Category  string    `gorm:"index;not null"`

	Status         PromotionStatus `gorm:"index;not null;default:'queued'"`
	PriorityWeight int32           `gorm:"not null;default:0"`

	// Unix seconds; nil while the promotion sits in the queue.
	StartsAt *int64
	EndsAt   *int64 `gorm:"index"`

	PaymentIntentID string `gorm:"index"`
	AmountMinor     int64
	Currency        string `gorm:"size:3"`
}

func (ListingPromotion) TableName() string { return "listing_promotions" }
