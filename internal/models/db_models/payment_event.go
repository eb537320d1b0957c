package db_models

import (
	"time"

	"gorm.io/gorm"
)

// PaymentEventRecord is insert-only. The primary key is the provider's
// event id, so the unique-constraint violation on insert IS the
// duplicate-detection signal for redelivered webhooks.
type PaymentEventRecord struct {
	ID         string `gorm:"primaryKey"`
	Type       string `gorm:"index;not null"`
	ReceivedAt int64
}

func (PaymentEventRecord) TableName() string { return "payment_event_records" }

func (r *PaymentEventRecord) BeforeCreate(tx *gorm.DB) error {
	if r.ReceivedAt == 0 {
		r.ReceivedAt = time.Now().Unix()
	}
	return nil
}
