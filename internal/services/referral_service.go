package services

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"oglasnik/internal/models/db_models"
	"oglasnik/internal/models/response_models"
	"oglasnik/internal/repositories"
	"oglasnik/pkg/utils"
)

// Self-referral classification reasons.
const (
	SelfReferralPartnerUserMatch = "partner_user_match"
	SelfReferralEmailDomainMatch = "email_domain_match"
)

type ReferralService interface {
	// ValidateCode is fail-open: an unknown or inactive code yields nil
	// without an error, so a bad referral never blocks a purchase.
	ValidateCode(ctx context.Context, code string) *db_models.ReferralPartner

	// Classify decides whether the paying user and the referring partner
	// are effectively the same party. It never blocks; it only annotates.
	Classify(partner *db_models.ReferralPartner, buyerUserID uuid.UUID, buyerEmail string) (bool, string)

	RecordAttribution(ctx context.Context, attribution *db_models.ReferralAttribution) error

	CreatePartnerKey(ctx context.Context, partnerCode string) (*response_models.PartnerKeyResponse, error)
	RevokePartnerKey(ctx context.Context, keyID uuid.UUID) (bool, error)
	PartnerPayouts(ctx context.Context, from int64, to int64) (*response_models.PartnerPayoutReportResponse, error)

	// AuthenticateKey resolves a raw partner API key to its owning
	// partner code. Returns "" without an error when no active key
	// matches.
	AuthenticateKey(ctx context.Context, rawKey string) (string, error)
	PartnerMetrics(ctx context.Context, partnerCode string, from int64, to int64, limit int, offset int) (*response_models.PartnerMetricsResponse, error)
}

type referralService struct {
	referralRepo repositories.IReferralRepository
	auditRepo    repositories.IAuditRepository
}

func NewReferralService(referralRepo repositories.IReferralRepository, auditRepo repositories.IAuditRepository) ReferralService {
	return &referralService{referralRepo: referralRepo, auditRepo: auditRepo}
}

func (s *referralService) ValidateCode(ctx context.Context, code string) *db_models.ReferralPartner {
	trimmed := strings.TrimSpace(code)
	if trimmed == "" {
		return nil
	}

	partner, err := s.referralRepo.GetActivePartner(ctx, trimmed)
	if err != nil {
		// Degrades to "no attribution" on lookup failure.
		log.Printf("referral: partner lookup failed for %q: %v", trimmed, err)
		return nil
	}

	return partner
}

func (s *referralService) Classify(partner *db_models.ReferralPartner, buyerUserID uuid.UUID, buyerEmail string) (bool, string) {
	if partner == nil {
		return false, ""
	}

	if partner.OwnerUserID != nil && *partner.OwnerUserID == buyerUserID {
		return true, SelfReferralPartnerUserMatch
	}

	if partner.Domain != nil && *partner.Domain != "" {
		buyerDomain := utils.NormalizeEmailDomain(buyerEmail)
		if buyerDomain != "" && buyerDomain == strings.ToLower(*partner.Domain) {
			return true, SelfReferralEmailDomainMatch
		}
	}

	return false, ""
}

func (s *referralService) RecordAttribution(ctx context.Context, attribution *db_models.ReferralAttribution) error {
	return s.referralRepo.UpsertAttribution(ctx, attribution)
}

func (s *referralService) CreatePartnerKey(ctx context.Context, partnerCode string) (*response_models.PartnerKeyResponse, error) {
	rawKey, err := utils.GeneratePartnerKey()
	if err != nil {
		return nil, err
	}

	hashed, err := utils.HashPartnerKey(rawKey)
	if err != nil {
		return nil, err
	}

	key := &db_models.PartnerAPIKey{
		PartnerCode: partnerCode,
		KeyHash:     hashed,
	}
	if err := s.referralRepo.CreatePartnerKey(ctx, key); err != nil {
		return nil, err
	}

	s.audit(ctx, db_models.AuditLogEntry{
		EventType: db_models.AuditPartnerKeyCreated,
		Metadata:  jsonMeta(map[string]interface{}{"partner_code": partnerCode, "key_id": key.ID.String()}),
	})

	return &response_models.PartnerKeyResponse{
		ID:          key.ID.String(),
		PartnerCode: partnerCode,
		RawKey:      rawKey,
		CreatedAt:   key.CreatedAt,
		Warning:     "Copy this key now, it will not be shown again.",
	}, nil
}

func (s *referralService) RevokePartnerKey(ctx context.Context, keyID uuid.UUID) (bool, error) {
	revoked, err := s.referralRepo.RevokePartnerKey(ctx, keyID, time.Now().Unix())
	if err != nil {
		return false, err
	}
	if revoked {
		s.audit(ctx, db_models.AuditLogEntry{
			EventType: db_models.AuditPartnerKeyRevoked,
			Metadata:  jsonMeta(map[string]interface{}{"key_id": keyID.String()}),
		})
	}
	return revoked, nil
}

func (s *referralService) PartnerPayouts(ctx context.Context, from int64, to int64) (*response_models.PartnerPayoutReportResponse, error) {
	rows, err := s.referralRepo.PartnerPayouts(ctx, from, to)
	if err != nil {
		return nil, err
	}

	s.audit(ctx, db_models.AuditLogEntry{
		EventType: db_models.AuditPayoutsViewed,
		Metadata:  jsonMeta(map[string]interface{}{"date_from": from, "date_to": to}),
	})

	report := &response_models.PartnerPayoutReportResponse{
		From:    from,
		To:      to,
		Payouts: make([]response_models.PartnerPayoutResponse, 0, len(rows)),
	}
	for _, row := range rows {
		report.Payouts = append(report.Payouts, response_models.PartnerPayoutResponse{
			PartnerCode:      row.PartnerCode,
			PayoutPercent:    row.PayoutPercent,
			AttributionCount: row.AttributionCount,
			GrossMinor:       row.GrossMinor,
			PayoutMinor:      int64(float64(row.GrossMinor) * row.PayoutPercent / 100.0),
		})
	}

	return report, nil
}

// AuthenticateKey compares the presented key against every active key
// hash. Keys are stored bcrypt-hashed, so there is no lookup column; the
// active key set is small (a handful of partners) and the linear scan is
// bounded by it.
func (s *referralService) AuthenticateKey(ctx context.Context, rawKey string) (string, error) {
	if rawKey == "" {
		return "", nil
	}

	keys, err := s.referralRepo.ListActiveKeys(ctx)
	if err != nil {
		return "", err
	}

	for _, key := range keys {
		if utils.ComparePartnerKey(key.KeyHash, rawKey) == nil {
			return key.PartnerCode, nil
		}
	}

	return "", nil
}

func (s *referralService) PartnerMetrics(ctx context.Context, partnerCode string, from int64, to int64, limit int, offset int) (*response_models.PartnerMetricsResponse, error) {
	metrics := &response_models.PartnerMetricsResponse{
		PartnerCode: partnerCode,
		From:        from,
		To:          to,
		Conversions: []response_models.PartnerConversionResponse{},
	}

	if partner, err := s.referralRepo.GetActivePartner(ctx, partnerCode); err != nil {
		return nil, err
	} else if partner != nil {
		metrics.PayoutPercent = partner.PayoutPercent
	}

	rows, err := s.referralRepo.PartnerPayouts(ctx, from, to)
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		if row.PartnerCode != partnerCode {
			continue
		}
		metrics.AttributionCount = row.AttributionCount
		metrics.GrossMinor = row.GrossMinor
		metrics.PayoutPercent = row.PayoutPercent
		metrics.PayoutMinor = int64(float64(row.GrossMinor) * row.PayoutPercent / 100.0)
	}

	conversions, err := s.referralRepo.ListPartnerAttributions(ctx, partnerCode, from, to, limit, offset)
	if err != nil {
		return nil, err
	}
	for _, conversion := range conversions {
		metrics.Conversions = append(metrics.Conversions, response_models.PartnerConversionResponse{
			ListingID:   conversion.ListingID.String(),
			AmountMinor: conversion.AmountTotalMinor,
			Currency:    conversion.Currency,
			CreatedAt:   conversion.CreatedAt,
		})
	}

	s.audit(ctx, db_models.AuditLogEntry{
		EventType: db_models.AuditPartnerMetricsViewed,
		Metadata:  jsonMeta(map[string]interface{}{"partner_code": partnerCode, "date_from": from, "date_to": to}),
	})

	return metrics, nil
}

func (s *referralService) audit(ctx context.Context, entry db_models.AuditLogEntry) {
	if err := s.auditRepo.Append(ctx, &entry); err != nil {
		log.Printf("audit: append %s failed: %v", entry.EventType, err)
	}
}
