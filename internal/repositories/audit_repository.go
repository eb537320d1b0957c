package repositories

import (
	"context"

	"gorm.io/gorm"

	"oglasnik/internal/models/db_models"
)

// IAuditRepository is the append-only observability sink. The core only
// ever writes here; reporting reads the table out of band.
type IAuditRepository interface {
	Append(ctx context.Context, entry *db_models.AuditLogEntry) error
	AppendAll(ctx context.Context, entries []db_models.AuditLogEntry) error
}

type AuditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) IAuditRepository {
	return &AuditRepository{db: db}
}

func (r *AuditRepository) Append(ctx context.Context, entry *db_models.AuditLogEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *AuditRepository) AppendAll(ctx context.Context, entries []db_models.AuditLogEntry) error {
	if len(entries) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&entries).Error
}
