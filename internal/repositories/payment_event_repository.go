package repositories

import (
	"context"
	"errors"

	"github.com/lib/pq"
	"gorm.io/gorm"

	"oglasnik/internal/models/db_models"
)

type IPaymentEventRepository interface {
	// RecordEvent inserts the provider event id and reports whether this
	// delivery is the first one. A unique-constraint violation means the
	// event was already handled and the caller must short-circuit.
	RecordEvent(ctx context.Context, eventID string, eventType string) (bool, error)
	// ReleaseEvent compensates a failed apply: dropping the ledger row
	// lets the provider's redelivery be accepted instead of short-
	// circuited as a duplicate.
	ReleaseEvent(ctx context.Context, eventID string) error
}

type PaymentEventRepository struct {
	db *gorm.DB
}

func NewPaymentEventRepository(db *gorm.DB) IPaymentEventRepository {
	return &PaymentEventRepository{db: db}
}

func (r *PaymentEventRepository) RecordEvent(ctx context.Context, eventID string, eventType string) (bool, error) {
	record := db_models.PaymentEventRecord{
		ID:   eventID,
		Type: eventType,
	}

	err := r.db.WithContext(ctx).Create(&record).Error
	if err != nil {
		if isUniqueViolation(err) {
			return false, nil
		}
		return false, err
	}

	return true, nil
}

func (r *PaymentEventRepository) ReleaseEvent(ctx context.Context, eventID string) error {
	return r.db.WithContext(ctx).
		Delete(&db_models.PaymentEventRecord{}, "id = ?", eventID).Error
}

// isUniqueViolation detects the postgres duplicate-key error (23505)
// under both the raw pq error and gorm's translated form.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}
